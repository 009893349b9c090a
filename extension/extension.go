// Package extension provides the Forge extension adapter for the rewards
// engine.
//
// It implements the forge.Extension interface to integrate the engine
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.rewards" or "rewards" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/srujanreddynadipi/rewards"
	"github.com/srujanreddynadipi/rewards/store"
	"github.com/srujanreddynadipi/rewards/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "rewards"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Points ledger and coupon redemption engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the rewards engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *rewards.Engine
	store      store.Store
	engineOpts []rewards.Option
}

// New creates a new rewards Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying rewards engine.
// This is nil until Register is called.
func (e *Extension) Engine() *rewards.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the rewards engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	eng := rewards.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*rewards.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("rewards: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("rewards: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs rewards.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []rewards.Option {
	opts := make([]rewards.Option, 0, len(e.engineOpts)+4)

	if e.config.NotifyBuffer > 0 {
		opts = append(opts, rewards.WithNotifyBuffer(e.config.NotifyBuffer))
	}
	if e.config.LeaderboardCacheTTL > 0 {
		opts = append(opts, rewards.WithLeaderboardCacheTTL(e.config.LeaderboardCacheTTL))
	}
	if e.config.MaxRetries > 0 {
		opts = append(opts, rewards.WithMaxRetries(e.config.MaxRetries))
	}
	if e.config.SingleTransactionCap > 0 || e.config.DailyAwardCap > 0 {
		limits := rewards.DefaultLimits()
		if e.config.SingleTransactionCap > 0 {
			limits.SingleTransactionCap = e.config.SingleTransactionCap
		}
		if e.config.DailyAwardCap > 0 {
			limits.DailyAwardCap = e.config.DailyAwardCap
		}
		opts = append(opts, rewards.WithLimits(limits))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("rewards: configuration is required but not found in config files; " +
				"ensure 'extensions.rewards' or 'rewards' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("rewards: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("notify_buffer", e.config.NotifyBuffer),
		forge.F("leaderboard_cache_ttl", e.config.LeaderboardCacheTTL),
		forge.F("max_retries", e.config.MaxRetries),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.rewards" first (namespaced pattern).
	if cm.IsSet("extensions.rewards") {
		if err := cm.Bind("extensions.rewards", &cfg); err == nil {
			e.Logger().Debug("rewards: loaded config from file",
				forge.F("key", "extensions.rewards"),
			)
			return cfg, true
		}
		e.Logger().Warn("rewards: failed to bind extensions.rewards config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "rewards" key.
	if cm.IsSet("rewards") {
		if err := cm.Bind("rewards", &cfg); err == nil {
			e.Logger().Debug("rewards: loaded config from file",
				forge.F("key", "rewards"),
			)
			return cfg, true
		}
		e.Logger().Warn("rewards: failed to bind rewards config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.NotifyBuffer == 0 {
		cfg.NotifyBuffer = defaults.NotifyBuffer
	}
	if cfg.LeaderboardCacheTTL == 0 {
		cfg.LeaderboardCacheTTL = defaults.LeaderboardCacheTTL
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaults.MaxRetries
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// Int/duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.NotifyBuffer == 0 && programmaticConfig.NotifyBuffer != 0 {
		yamlConfig.NotifyBuffer = programmaticConfig.NotifyBuffer
	}
	if yamlConfig.LeaderboardCacheTTL == 0 && programmaticConfig.LeaderboardCacheTTL != 0 {
		yamlConfig.LeaderboardCacheTTL = programmaticConfig.LeaderboardCacheTTL
	}
	if yamlConfig.MaxRetries == 0 && programmaticConfig.MaxRetries != 0 {
		yamlConfig.MaxRetries = programmaticConfig.MaxRetries
	}
	if yamlConfig.SingleTransactionCap == 0 && programmaticConfig.SingleTransactionCap != 0 {
		yamlConfig.SingleTransactionCap = programmaticConfig.SingleTransactionCap
	}
	if yamlConfig.DailyAwardCap == 0 && programmaticConfig.DailyAwardCap != 0 {
		yamlConfig.DailyAwardCap = programmaticConfig.DailyAwardCap
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
