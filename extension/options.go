package extension

import (
	"time"

	"github.com/srujanreddynadipi/rewards"
	"github.com/srujanreddynadipi/rewards/plugin"
	"github.com/srujanreddynadipi/rewards/store"
)

// Option configures the rewards Forge extension.
type Option func(*Extension)

// WithStore sets the store for the rewards engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a rewards.Option through to the underlying engine.
func WithEngineOption(opt rewards.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a rewards plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, rewards.WithPlugin(p))
	}
}

// WithCapabilities sets the identity/permission oracle.
func WithCapabilities(caps rewards.Capabilities) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, rewards.WithCapabilities(caps))
	}
}

// WithNotifier sets the outbound notification sink.
func WithNotifier(n rewards.Notifier) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, rewards.WithNotifier(n))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithNotifyBuffer sets the outbox buffer capacity.
func WithNotifyBuffer(n int) Option {
	return func(e *Extension) { e.config.NotifyBuffer = n }
}

// WithLeaderboardCacheTTL sets the leaderboard cache duration.
func WithLeaderboardCacheTTL(d time.Duration) Option {
	return func(e *Extension) { e.config.LeaderboardCacheTTL = d }
}

// WithMaxRetries bounds transparent retries of conflicting transactions.
func WithMaxRetries(n int) Option {
	return func(e *Extension) { e.config.MaxRetries = n }
}
