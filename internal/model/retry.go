package model

import "time"

// RetryConfig defines how the SQL collaborator retries transient driver errors.
type RetryConfig struct {
	MaxAttempts     int           `json:"max_attempts" mapstructure:"max_attempts"`
	InitialDelay    time.Duration `json:"initial_delay" mapstructure:"initial_delay"`
	MaxDelay        time.Duration `json:"max_delay" mapstructure:"max_delay"`
	RetryableErrors []string      `json:"retryable_errors" mapstructure:"retryable_errors"` // matched as substrings
}

// DefaultRetryConfig covers sqlite lock contention and dropped connections.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts:     3,
	InitialDelay:    100 * time.Millisecond,
	MaxDelay:        2 * time.Second,
	RetryableErrors: []string{"database is locked", "busy", "connection reset", "timeout"},
}
