package extension

import "time"

// Config holds the rewards extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.rewards" or "rewards" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// NotifyBuffer is the outbox buffer capacity (default: 1024).
	NotifyBuffer int `json:"notify_buffer" mapstructure:"notify_buffer" yaml:"notify_buffer"`

	// LeaderboardCacheTTL controls how long computed leaderboards are
	// served from cache before rescanning the store (default: 30s).
	LeaderboardCacheTTL time.Duration `json:"leaderboard_cache_ttl" mapstructure:"leaderboard_cache_ttl" yaml:"leaderboard_cache_ttl"`

	// MaxRetries bounds transparent retries of conflicting transactions
	// (default: 5).
	MaxRetries int `json:"max_retries" mapstructure:"max_retries" yaml:"max_retries"`

	// SingleTransactionCap overrides the per-award amount cap when > 0.
	SingleTransactionCap int64 `json:"single_transaction_cap" mapstructure:"single_transaction_cap" yaml:"single_transaction_cap"`

	// DailyAwardCap overrides the per-actor daily award quota when > 0.
	DailyAwardCap int64 `json:"daily_award_cap" mapstructure:"daily_award_cap" yaml:"daily_award_cap"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		NotifyBuffer:        1024,
		LeaderboardCacheTTL: 30 * time.Second,
		MaxRetries:          5,
	}
}
