package config

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mergd/curro-sub001/internal/domain"
	"github.com/mergd/curro-sub001/internal/retry"
)

type Config struct {
	App struct {
		DataDir string `yaml:"data_dir" json:"dataDir"`
		Listen  string `yaml:"listen" json:"listen"`
	} `yaml:"app" json:"app"`

	Store struct {
		Driver   string `yaml:"driver" json:"driver"` // sqlite | postgres
		DSN      string `yaml:"dsn" json:"dsn"`       // file path for sqlite
		MaxConns int    `yaml:"max_conns" json:"maxConns"`
		// ViaBouncer switches pgx to the simple protocol for pgbouncer
		// transaction pooling.
		ViaBouncer bool `yaml:"via_pgbouncer" json:"viaPgbouncer"`
	} `yaml:"store" json:"store"`

	Ingest struct {
		Interval       time.Duration `yaml:"interval" json:"interval"`
		Workers        int           `yaml:"workers" json:"workers"`
		CompanyTimeout time.Duration `yaml:"company_timeout" json:"companyTimeout"`
		HydrateDetails bool          `yaml:"hydrate_details" json:"hydrateDetails"`
		HydrateBudget  time.Duration `yaml:"hydrate_budget" json:"hydrateBudget"`
		Retry          retry.Policy  `yaml:"retry" json:"retry"`
		RateLimit      RateLimit     `yaml:"rate_limit" json:"rateLimit"`
		Render         Render        `yaml:"render" json:"render"`
	} `yaml:"ingest" json:"ingest"`

	Retention struct {
		Policy     domain.Retention `yaml:"policy" json:"policy"`
		PurgeAfter time.Duration    `yaml:"purge_after" json:"purgeAfter"`
	} `yaml:"retention" json:"retention"`

	Sinks struct {
		Kafka struct {
			Enabled bool     `yaml:"enabled" json:"enabled"`
			Brokers []string `yaml:"brokers" json:"brokers"`
			Topic   string   `yaml:"topic" json:"topic"`
		} `yaml:"kafka" json:"kafka"`
		Elasticsearch struct {
			Enabled bool   `yaml:"enabled" json:"enabled"`
			Addr    string `yaml:"addr" json:"addr"`
			Index   string `yaml:"index" json:"index"`
		} `yaml:"elasticsearch" json:"elasticsearch"`
	} `yaml:"sinks" json:"sinks"`

	Enrich struct {
		Enabled        bool          `yaml:"enabled" json:"enabled"`
		Model          string        `yaml:"model" json:"model"`
		APIKeyEnv      string        `yaml:"api_key_env" json:"apiKeyEnv"`
		KeyringAccount string        `yaml:"keyring_account" json:"keyringAccount"`
		Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	} `yaml:"enrich" json:"enrich"`

	Companies []domain.CompanyInput `yaml:"companies" json:"companies"`
}

type RateLimit struct {
	PerHostRPS   float64       `yaml:"per_host_rps" json:"perHostRps"`
	PerHostBurst int           `yaml:"per_host_burst" json:"perHostBurst"`
	GlobalRPS    float64       `yaml:"global_rps" json:"globalRps"`
	GlobalBurst  int           `yaml:"global_burst" json:"globalBurst"`
	MaxWait      time.Duration `yaml:"max_wait" json:"maxWait"`
}

type Render struct {
	Wait     time.Duration `yaml:"wait" json:"wait"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
	ExecPath string        `yaml:"exec_path" json:"execPath"`
	Headless *bool         `yaml:"headless" json:"headless"`
}

// Headless defaults to true.
func (r Render) IsHeadless() bool { return r.Headless == nil || *r.Headless }

func Default() Config {
	var cfg Config
	cfg.App.DataDir = "./data"
	cfg.App.Listen = "127.0.0.1:38471"
	cfg.Store.Driver = "sqlite"
	cfg.Store.MaxConns = 8
	cfg.Ingest.Interval = 30 * time.Minute
	cfg.Ingest.Workers = 4
	cfg.Ingest.CompanyTimeout = 3 * time.Minute
	cfg.Ingest.HydrateBudget = 90 * time.Second
	cfg.Ingest.Retry = retry.DefaultPolicy()
	cfg.Ingest.RateLimit = RateLimit{
		PerHostRPS:   1,
		PerHostBurst: 2,
		GlobalRPS:    8,
		GlobalBurst:  8,
		MaxWait:      30 * time.Second,
	}
	cfg.Ingest.Render = Render{Wait: 2 * time.Second, Timeout: 45 * time.Second}
	cfg.Retention.Policy = domain.RetentionSoft
	cfg.Retention.PurgeAfter = 90 * 24 * time.Hour
	cfg.Sinks.Kafka.Topic = "job-changes"
	cfg.Sinks.Elasticsearch.Index = "jobs"
	cfg.Enrich.Model = "gemini-2.5-flash"
	cfg.Enrich.APIKeyEnv = "GEMINI_API_KEY"
	cfg.Enrich.KeyringAccount = "enrich-api-key"
	cfg.Enrich.Timeout = 30 * time.Second
	return cfg
}

// Load reads path over the defaults and applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}
	ApplyEnv(&cfg)
	return cfg, nil
}

// ApplyEnv overrides the data dir and store DSN from ENGINE_DATA_DIR and
// ENGINE_STORE_DSN.
func ApplyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("ENGINE_DATA_DIR")); v != "" {
		cfg.App.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_STORE_DSN")); v != "" {
		cfg.Store.DSN = v
	}
}
