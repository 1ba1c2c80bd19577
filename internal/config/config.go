package config

import (
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"go-query-coordinator/internal/model"
)

// EnvPrefix prefixes environment overrides, e.g. COORDINATOR_SCHEDULER_TICK_INTERVAL.
const EnvPrefix = "COORDINATOR"

// DefaultTargetDSN points at a local analytics database. The catalog is
// PostgreSQL SQL, so the default target is always pgx.
const DefaultTargetDSN = "postgres://localhost:5432/analytics?sslmode=disable"

func Defaults() model.CoordinatorConfig {
	return model.CoordinatorConfig{
		HTTP:    model.HTTPConfig{Address: ":8080"},
		Journal: model.JournalConfig{Path: "coordinator.db"},
		Target: model.TargetConfig{
			Driver: "pgx",
			DSN:    DefaultTargetDSN,
			Retry:  model.DefaultRetryConfig,
		},
		Scheduler: model.DefaultSchedulerConfig,
		Cache: model.CacheConfig{
			Enabled:         true,
			TTL:             5 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
		Advisor: model.DefaultAdvisorConfig,
		Logging: model.LoggingConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("http.address", d.HTTP.Address)
	v.SetDefault("journal.path", d.Journal.Path)
	v.SetDefault("target.driver", d.Target.Driver)
	v.SetDefault("target.dsn", d.Target.DSN)
	v.SetDefault("target.retry.max_attempts", d.Target.Retry.MaxAttempts)
	v.SetDefault("target.retry.initial_delay", d.Target.Retry.InitialDelay)
	v.SetDefault("target.retry.max_delay", d.Target.Retry.MaxDelay)
	v.SetDefault("target.retry.retryable_errors", d.Target.Retry.RetryableErrors)
	v.SetDefault("scheduler.tick_interval", d.Scheduler.TickInterval)
	v.SetDefault("scheduler.max_batch_size", d.Scheduler.MaxBatchSize)
	v.SetDefault("scheduler.max_concurrent_batches", d.Scheduler.MaxConcurrentBatches)
	v.SetDefault("executor.query_timeout", d.Executor.QueryTimeout)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.cleanup_interval", d.Cache.CleanupInterval)
	v.SetDefault("advisor.slow_query_threshold", d.Advisor.SlowQueryThreshold)
	v.SetDefault("advisor.min_cache_hit_rate", d.Advisor.MinCacheHitRate)
	v.SetDefault("advisor.min_index_efficiency", d.Advisor.MinIndexEfficiency)
	v.SetDefault("advisor.max_slow_query_ratio", d.Advisor.MaxSlowQueryRatio)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("report.dir", d.Report.Dir)
}

// Load merges defaults, the given config files in order and environment
// overrides, then validates the result.
func Load(files ...string) (model.CoordinatorConfig, error) {
	v := viper.New()
	setDefaults(v)

	for _, f := range files {
		v.SetConfigFile(f)
		if err := v.MergeInConfig(); err != nil {
			return model.CoordinatorConfig{}, errors.Wrapf(err, "reading config %s", f)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg model.CoordinatorConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return model.CoordinatorConfig{}, errors.Wrap(err, "decoding config")
	}
	if err := Validate(cfg); err != nil {
		return model.CoordinatorConfig{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func Validate(cfg model.CoordinatorConfig) error {
	var result *multierror.Error
	if cfg.Scheduler.TickInterval <= 0 {
		result = multierror.Append(result, errors.New("scheduler.tick_interval must be positive"))
	}
	if cfg.Scheduler.MaxBatchSize < 1 {
		result = multierror.Append(result, errors.New("scheduler.max_batch_size must be at least 1"))
	}
	if cfg.Scheduler.MaxConcurrentBatches < 1 {
		result = multierror.Append(result, errors.New("scheduler.max_concurrent_batches must be at least 1"))
	}
	if cfg.Executor.QueryTimeout < 0 {
		result = multierror.Append(result, errors.New("executor.query_timeout must not be negative"))
	}
	switch cfg.Target.Driver {
	case "sqlite3", "pgx":
	default:
		result = multierror.Append(result, errors.Errorf("target.driver %q is not one of sqlite3, pgx", cfg.Target.Driver))
	}
	if cfg.Target.Driver == "sqlite3" && cfg.Target.DSN == cfg.Journal.Path {
		result = multierror.Append(result, errors.New("target.dsn must not be the journal database"))
	}
	if cfg.Cache.Enabled && cfg.Cache.TTL <= 0 {
		result = multierror.Append(result, errors.New("cache.ttl must be positive when the cache is enabled"))
	}
	if _, err := log.ParseLevel(cfg.Logging.Level); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "logging.level"))
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		result = multierror.Append(result, errors.Errorf("logging.format %q is not one of text, json", cfg.Logging.Format))
	}
	return result.ErrorOrNil()
}

// ConfigureLogging applies level and format to the standard logrus logger.
func ConfigureLogging(cfg model.LoggingConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return errors.WithStack(err)
	}
	log.SetLevel(level)
	if cfg.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	return nil
}
