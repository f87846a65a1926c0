package extension

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/streamswap"
	"github.com/xraph/streamswap/plugin"
	"github.com/xraph/streamswap/store"
)

// Option configures the streamswap Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine. It takes precedence over
// WithGroveDB.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithGroveDB sets the grove database the store is built on. driver picks
// the backend: sqlite, postgres or mongo.
func WithGroveDB(db *grove.DB, driver string) Option {
	return func(e *Extension) {
		e.groveDB = db
		e.config.Driver = driver
	}
}

// WithEngineOption passes a streamswap.Option through to the underlying engine.
func WithEngineOption(opt streamswap.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a streamswap plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, streamswap.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents the HTTP query handler from being provided.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for query routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithSyncInterval enables the background sync worker.
func WithSyncInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.SyncInterval = d }
}

// WithSyncConcurrency bounds how many streams the worker syncs at once.
func WithSyncConcurrency(n int) Option {
	return func(e *Extension) { e.config.SyncConcurrency = n }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}

// WithParams sets the protocol parameters seeded on first start.
func WithParams(p ParamsConfig) Option {
	return func(e *Extension) { e.config.Params = p }
}

// WithoutMongoTransactions commits mongo changesets without a transaction.
func WithoutMongoTransactions() Option {
	return func(e *Extension) { e.config.DisableMongoTransactions = true }
}
