// Package extension provides the Forge extension adapter for streamswap.
//
// It implements the forge.Extension interface to integrate the stream swap
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.streamswap" or
// "streamswap" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/api"
	"github.com/xraph/streamswap/store"
	"github.com/xraph/streamswap/store/memory"
	"github.com/xraph/streamswap/store/mongo"
	"github.com/xraph/streamswap/store/postgres"
	"github.com/xraph/streamswap/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "streamswap"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Continuous token stream-swap engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the streamswap engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *streamswap.Engine
	handler    *api.Handler
	store      store.Store
	groveDB    *grove.DB
	engineOpts []streamswap.Option
}

// New creates a new streamswap Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *streamswap.Engine { return e.engine }

// Handler returns the HTTP query handler, or nil when routes are disabled.
func (e *Extension) Handler() *api.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	s, err := e.storeFor()
	if err != nil {
		return err
	}
	e.store = s

	opts, err := e.buildEngineOpts()
	if err != nil {
		return err
	}
	e.engine = streamswap.New(e.store, opts...)

	if err := vessel.Provide(fapp.Container(), func() (*streamswap.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}
	e.handler = api.New(e.engine, e.config.BasePath)
	return vessel.Provide(fapp.Container(), func() (*api.Handler, error) {
		return e.handler, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("streamswap: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
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
		return errors.New("streamswap: store not initialized")
	}
	return e.store.Ping(ctx)
}

// storeFor picks the store backend. An explicit store wins, then a grove
// database with its configured driver, then the memory store.
func (e *Extension) storeFor() (store.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	if e.groveDB == nil {
		return memory.New(), nil
	}

	switch e.config.Driver {
	case DriverSQLite:
		return sqlite.New(e.groveDB), nil
	case DriverPostgres:
		return postgres.New(e.groveDB), nil
	case DriverMongo:
		var opts []mongo.Option
		if e.config.DisableMongoTransactions {
			opts = append(opts, mongo.WithoutTransactions())
		}
		return mongo.New(e.groveDB, opts...), nil
	default:
		return nil, fmt.Errorf("streamswap: unsupported store driver %q for grove database", e.config.Driver)
	}
}

// buildEngineOpts constructs streamswap.Option values from the resolved config.
func (e *Extension) buildEngineOpts() ([]streamswap.Option, error) {
	opts := make([]streamswap.Option, 0, len(e.engineOpts)+5)

	if e.config.SyncInterval > 0 {
		opts = append(opts, streamswap.WithSyncInterval(e.config.SyncInterval))
	}
	if e.config.SyncConcurrency > 0 {
		opts = append(opts, streamswap.WithSyncConcurrency(e.config.SyncConcurrency))
	}
	if e.config.PluginTimeout > 0 {
		opts = append(opts, streamswap.WithPluginTimeout(e.config.PluginTimeout))
	}
	if e.config.DisableMigrate {
		opts = append(opts, streamswap.WithoutMigrate())
	}
	if !e.config.Params.isZero() {
		params, err := e.config.Params.Resolve()
		if err != nil {
			return nil, fmt.Errorf("streamswap: params: %w", err)
		}
		opts = append(opts, streamswap.WithDefaultParams(params))
	}

	// Pass-through engine options apply last so they can override config.
	opts = append(opts, e.engineOpts...)

	return opts, nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("streamswap: configuration is required but not found in config files; " +
				"ensure 'extensions.streamswap' or 'streamswap' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("streamswap: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("driver", e.config.Driver),
		forge.F("sync_interval", e.config.SyncInterval),
		forge.F("sync_concurrency", e.config.SyncConcurrency),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.streamswap", "streamswap"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err == nil {
			e.Logger().Debug("streamswap: loaded config from file",
				forge.F("key", key),
			)
			return cfg, true
		}
		e.Logger().Warn("streamswap: failed to bind config",
			forge.F("key", key),
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.SyncConcurrency == 0 {
		cfg.SyncConcurrency = defaults.SyncConcurrency
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	if cfg.Driver == "" {
		cfg.Driver = defaults.Driver
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableMongoTransactions {
		yamlConfig.DisableMongoTransactions = true
	}

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.Driver == "" {
		yamlConfig.Driver = programmaticConfig.Driver
	}
	if yamlConfig.SyncInterval == 0 {
		yamlConfig.SyncInterval = programmaticConfig.SyncInterval
	}
	if yamlConfig.SyncConcurrency == 0 {
		yamlConfig.SyncConcurrency = programmaticConfig.SyncConcurrency
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}
	if yamlConfig.Params.isZero() {
		yamlConfig.Params = programmaticConfig.Params
	}

	return mergeWithDefaults(yamlConfig)
}
