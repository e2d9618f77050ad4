package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mergd/curro-sub001/internal/domain"
)

type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}
func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}
func (v Validation) OK() bool { return len(v.Errors) == 0 }

// NormalizeAndValidate returns a normalized copy of cfg and the problems
// found in it.
func NormalizeAndValidate(cfg Config) (Config, Validation) {
	var out = cfg
	var res Validation

	out.Store.Driver = strings.ToLower(strings.TrimSpace(out.Store.Driver))
	out.Retention.Policy = domain.Retention(strings.ToLower(strings.TrimSpace(string(out.Retention.Policy))))

	var brokers []string
	for _, b := range out.Sinks.Kafka.Brokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	out.Sinks.Kafka.Brokers = brokers

	if strings.TrimSpace(out.App.Listen) == "" {
		res.addErr("app.listen is required")
	}

	switch out.Store.Driver {
	case "sqlite", "":
		out.Store.Driver = "sqlite"
	case "postgres":
		if strings.TrimSpace(out.Store.DSN) == "" {
			res.addErr("store.dsn is required when store.driver=postgres")
		}
	default:
		res.addErr("store.driver must be sqlite or postgres, got %q", out.Store.Driver)
	}

	in := out.Ingest
	if in.Interval <= 0 {
		res.addErr("ingest.interval must be > 0")
	} else if in.Interval < time.Minute {
		res.addWarn("ingest.interval is very low (%s) and may get the engine blocked by job boards.", in.Interval)
	}
	if in.Workers <= 0 {
		res.addErr("ingest.workers must be > 0")
	} else if in.Workers > 32 {
		res.addWarn("ingest.workers is %d; each generic board may start a browser.", in.Workers)
	}
	if in.CompanyTimeout <= 0 {
		res.addErr("ingest.company_timeout must be > 0")
	}
	if in.HydrateBudget < 0 {
		res.addErr("ingest.hydrate_budget cannot be negative")
	}
	if in.HydrateDetails && in.CompanyTimeout > 0 && (in.HydrateBudget == 0 || in.HydrateBudget >= in.CompanyTimeout) {
		res.addWarn("ingest.hydrate_budget should be below ingest.company_timeout; large Greenhouse boards will time out before their listing is stored.")
	}
	if in.Retry.MaxAttempts <= 0 {
		res.addErr("ingest.retry.max_attempts must be > 0")
	}
	if in.Retry.BaseDelay < 0 || in.Retry.MaxDelay < 0 {
		res.addErr("ingest.retry delays cannot be negative")
	}
	if in.Retry.Jitter < 0 || in.Retry.Jitter > 1 {
		res.addErr("ingest.retry.jitter must be between 0 and 1")
	}
	if in.RateLimit.PerHostRPS <= 0 {
		res.addWarn("ingest.rate_limit.per_host_rps is not set; requests to a single board are unthrottled.")
	}
	if in.RateLimit.PerHostBurst < 0 || in.RateLimit.GlobalBurst < 0 {
		res.addErr("ingest.rate_limit bursts cannot be negative")
	}

	if !out.Retention.Policy.Valid() {
		res.addErr("retention.policy must be soft or hard, got %q", out.Retention.Policy)
	}
	if out.Retention.PurgeAfter < 0 {
		res.addErr("retention.purge_after cannot be negative")
	}
	if out.Retention.Policy == domain.RetentionHard && out.Retention.PurgeAfter > 0 {
		res.addWarn("retention.purge_after has no effect with retention.policy=hard.")
	}

	if k := out.Sinks.Kafka; k.Enabled {
		if len(k.Brokers) == 0 {
			res.addErr("sinks.kafka.brokers is required when sinks.kafka.enabled=true")
		}
		if strings.TrimSpace(k.Topic) == "" {
			res.addErr("sinks.kafka.topic is required when sinks.kafka.enabled=true")
		}
	}
	if es := out.Sinks.Elasticsearch; es.Enabled {
		if !domain.IsAbsoluteHTTPURL(es.Addr) {
			res.addErr("sinks.elasticsearch.addr must be an absolute http(s) URL")
		}
		if strings.TrimSpace(es.Index) == "" {
			res.addErr("sinks.elasticsearch.index is required when sinks.elasticsearch.enabled=true")
		}
	}

	if out.Enrich.Enabled && out.Enrich.APIKeyEnv == "" && out.Enrich.KeyringAccount == "" {
		res.addErr("enrich needs api_key_env or keyring_account when enrich.enabled=true")
	}

	seen := map[string]int{}
	for i, ci := range out.Companies {
		c, err := ci.Validate()
		if err != nil {
			res.addErr("companies[%d]: %v", i, err)
			continue
		}
		if j, dup := seen[c.JobBoardURL]; dup {
			res.addWarn("companies[%d] repeats the job board of companies[%d] (%s)", i, j, c.JobBoardURL)
			continue
		}
		seen[c.JobBoardURL] = i
	}
	if len(out.Companies) == 0 {
		res.addWarn("no companies configured; add some here or through the API.")
	}

	return out, res
}
