package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/joho/godotenv"

	"github.com/mergd/curro-sub001/internal/config"
	"github.com/mergd/curro-sub001/internal/httpapi"
	"github.com/mergd/curro-sub001/internal/logger"
)

func main() {
	var (
		defaultCfg = flag.String("config", filepath.Join("config", "config.yml"), "default config copied into the data dir on first start")
		dataDirArg = flag.String("data-dir", "", "data directory (overrides app.data_dir and ENGINE_DATA_DIR)")
		once       = flag.Bool("once", false, "run one ingestion pass, print the report and exit")
	)
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	log := logger.New("engine")
	if err := run(log, *defaultCfg, *dataDirArg, *once); err != nil {
		log.Error("engine stopped", "err", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger, defaultCfg, dataDirArg string, once bool) error {
	dataDir := dataDirArg
	if dataDir == "" {
		dataDir = os.Getenv("ENGINE_DATA_DIR")
	}
	if dataDir == "" {
		base, err := config.Load(defaultCfg)
		if err != nil {
			return fmt.Errorf("load default config %s: %w", defaultCfg, err)
		}
		dataDir = base.App.DataDir
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	// one engine per data dir
	lock := flock.New(filepath.Join(dataDir, "engine.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock data dir: %w", err)
	}
	if !locked {
		return fmt.Errorf("another engine is already using %s", dataDir)
	}
	defer lock.Unlock()

	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfg)
	if err != nil {
		return fmt.Errorf("config bootstrap: %w", err)
	}
	loadCfg := func() (config.Config, error) {
		cfg, err := config.Load(userCfgPath)
		if err != nil {
			return cfg, err
		}
		cfg.App.DataDir = dataDir
		if err := config.OverlayCompanies(&cfg, filepath.Join(dataDir, "companies.yml")); err != nil {
			return cfg, fmt.Errorf("companies overlay: %w", err)
		}
		return cfg, nil
	}
	cfg, err := loadCfg()
	if err != nil {
		return fmt.Errorf("config load (%s): %w", userCfgPath, err)
	}
	cfg, v := config.NormalizeAndValidate(cfg)
	for _, w := range v.Warnings {
		log.Warn("config", "warning", w)
	}
	if !v.OK() {
		return fmt.Errorf("invalid config %s: %v", userCfgPath, v.Errors)
	}
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	eng, err := build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := seedCompanies(ctx, eng.store, cfg.Companies, log); err != nil {
		return err
	}

	if once {
		rep, err := eng.runner.RunOnce(ctx)
		if err != nil {
			return err
		}
		printReport(os.Stdout, rep, time.Now())
		return nil
	}

	eng.runner.Start(ctx, cfg.Ingest.Interval)

	srv := &http.Server{
		Addr: cfg.App.Listen,
		Handler: httpapi.NewRouter(httpapi.Deps{
			Ctx:         ctx,
			Store:       eng.store,
			Ingest:      eng.runner,
			Hub:         eng.hub,
			Enricher:    eng.enricher,
			Log:         log,
			CfgVal:      &cfgVal,
			UserCfgPath: userCfgPath,
			LoadCfg:     loadCfg,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info("engine listening", "addr", "http://"+cfg.App.Listen, "data_dir", dataDir, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "err", err)
	}
	return nil
}
