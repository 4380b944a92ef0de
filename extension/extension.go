// Package extension provides the Forge extension adapter for Curbside.
//
// It implements the forge.Extension interface to integrate Curbside
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.curbside" or
// "curbside" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	curbside "github.com/xraph/curbside"
	"github.com/xraph/curbside/store"
	"github.com/xraph/curbside/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "curbside"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Subscription and billing engine for curbside collection services"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Curbside as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *curbside.Engine
	store      store.Store
	engineOpts []curbside.Option
}

// New creates a new Curbside Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Curbside instance.
// This is nil until Register is called.
func (e *Extension) Engine() *curbside.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the curbside engine, and registers it in the DI container.
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

	eng := curbside.New(e.store, opts...)
	e.engine = eng

	return vessel.Provide(fapp.Container(), func() (*curbside.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("curbside: extension not initialized")
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
		return errors.New("curbside: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs curbside.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []curbside.Option {
	opts := make([]curbside.Option, 0, len(e.engineOpts)+3)

	if e.config.Currency != "" {
		opts = append(opts, curbside.WithCurrency(e.config.Currency))
	}
	if e.config.OverdueSweepInterval > 0 {
		opts = append(opts, curbside.WithOverdueSweep(e.config.OverdueSweepInterval))
	}
	if e.config.InvoiceDueIn > 0 {
		opts = append(opts, curbside.WithInvoiceDueIn(e.config.InvoiceDueIn))
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
			return errors.New("curbside: configuration is required but not found in config files; " +
				"ensure 'extensions.curbside' or 'curbside' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("curbside: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("currency", e.config.Currency),
		forge.F("overdue_sweep_interval", e.config.OverdueSweepInterval),
		forge.F("invoice_due_in", e.config.InvoiceDueIn),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.curbside" first (namespaced pattern).
	if cm.IsSet("extensions.curbside") {
		if err := cm.Bind("extensions.curbside", &cfg); err == nil {
			e.Logger().Debug("curbside: loaded config from file",
				forge.F("key", "extensions.curbside"),
			)
			return cfg, true
		}
		e.Logger().Warn("curbside: failed to bind extensions.curbside config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "curbside" key.
	if cm.IsSet("curbside") {
		if err := cm.Bind("curbside", &cfg); err == nil {
			e.Logger().Debug("curbside: loaded config from file",
				forge.F("key", "curbside"),
			)
			return cfg, true
		}
		e.Logger().Warn("curbside: failed to bind curbside config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.OverdueSweepInterval == 0 {
		cfg.OverdueSweepInterval = defaults.OverdueSweepInterval
	}
	if cfg.InvoiceDueIn == 0 {
		cfg.InvoiceDueIn = defaults.InvoiceDueIn
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

	// String fields: YAML takes precedence.
	if yamlConfig.Currency == "" && programmaticConfig.Currency != "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}

	// Duration fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.OverdueSweepInterval == 0 && programmaticConfig.OverdueSweepInterval != 0 {
		yamlConfig.OverdueSweepInterval = programmaticConfig.OverdueSweepInterval
	}
	if yamlConfig.InvoiceDueIn == 0 && programmaticConfig.InvoiceDueIn != 0 {
		yamlConfig.InvoiceDueIn = programmaticConfig.InvoiceDueIn
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
