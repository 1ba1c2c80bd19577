package model

import "time"

// HTTPConfig configures the API server.
type HTTPConfig struct {
	Address string `json:"address" mapstructure:"address"`
}

// JournalConfig locates the sqlite batch journal.
type JournalConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// TargetConfig is the database the SQL collaborator runs catalog queries against.
type TargetConfig struct {
	Driver string      `json:"driver" mapstructure:"driver"` // sqlite3 or pgx
	DSN    string      `json:"dsn" mapstructure:"dsn"`
	Retry  RetryConfig `json:"retry" mapstructure:"retry"`
}

// SchedulerConfig bounds batch size and drain concurrency.
type SchedulerConfig struct {
	TickInterval         time.Duration `json:"tick_interval" mapstructure:"tick_interval"`
	MaxBatchSize         int           `json:"max_batch_size" mapstructure:"max_batch_size"`
	MaxConcurrentBatches int           `json:"max_concurrent_batches" mapstructure:"max_concurrent_batches"`
}

// ExecutorConfig holds the optional per-query timeout. Zero disables it.
type ExecutorConfig struct {
	QueryTimeout time.Duration `json:"query_timeout" mapstructure:"query_timeout"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled" mapstructure:"enabled"`
	TTL             time.Duration `json:"ttl" mapstructure:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval" mapstructure:"cleanup_interval"`
}

// AdvisorConfig holds the thresholds the advisor checks against.
type AdvisorConfig struct {
	SlowQueryThreshold time.Duration `json:"slow_query_threshold" mapstructure:"slow_query_threshold"`
	MinCacheHitRate    float64       `json:"min_cache_hit_rate" mapstructure:"min_cache_hit_rate"`
	MinIndexEfficiency float64       `json:"min_index_efficiency" mapstructure:"min_index_efficiency"`
	MaxSlowQueryRatio  float64       `json:"max_slow_query_ratio" mapstructure:"max_slow_query_ratio"`
}

type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`
	Format string `json:"format" mapstructure:"format"` // text or json
}

// ReportConfig enables the final metrics report written on shutdown.
type ReportConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// CoordinatorConfig is the full configuration of the coordinator process.
type CoordinatorConfig struct {
	HTTP      HTTPConfig      `json:"http" mapstructure:"http"`
	Journal   JournalConfig   `json:"journal" mapstructure:"journal"`
	Target    TargetConfig    `json:"target" mapstructure:"target"`
	Scheduler SchedulerConfig `json:"scheduler" mapstructure:"scheduler"`
	Executor  ExecutorConfig  `json:"executor" mapstructure:"executor"`
	Cache     CacheConfig     `json:"cache" mapstructure:"cache"`
	Advisor   AdvisorConfig   `json:"advisor" mapstructure:"advisor"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Report    ReportConfig    `json:"report" mapstructure:"report"`
}

var DefaultSchedulerConfig = SchedulerConfig{
	TickInterval:         100 * time.Millisecond,
	MaxBatchSize:         50,
	MaxConcurrentBatches: 5,
}

var DefaultAdvisorConfig = AdvisorConfig{
	SlowQueryThreshold: SlowQueryThreshold,
	MinCacheHitRate:    0.7,
	MinIndexEfficiency: 0.8,
	MaxSlowQueryRatio:  0.1,
}
