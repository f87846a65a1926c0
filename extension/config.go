package extension

import (
	"fmt"
	"time"

	"github.com/xraph/streamswap/factory"
	"github.com/xraph/streamswap/types"
)

// Store drivers accepted in Config.Driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Config holds the streamswap extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.streamswap" or "streamswap" keys).
type Config struct {
	// DisableRoutes prevents the HTTP query handler from being provided.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for query routes (default: "/streamswap").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// SyncInterval enables the background sync worker. Zero disables it.
	SyncInterval time.Duration `json:"sync_interval" mapstructure:"sync_interval" yaml:"sync_interval"`

	// SyncConcurrency bounds how many streams the worker syncs at once
	// (default: 4).
	SyncConcurrency int `json:"sync_concurrency" mapstructure:"sync_concurrency" yaml:"sync_concurrency"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// Driver selects the store backend for a grove database passed with
	// WithGroveDB: sqlite, postgres or mongo. Without a database the memory
	// store is used.
	Driver string `json:"driver" mapstructure:"driver" yaml:"driver"`

	// DisableMongoTransactions commits mongo changesets without a
	// transaction. Set it for standalone servers, which have none.
	DisableMongoTransactions bool `json:"disable_mongo_transactions" mapstructure:"disable_mongo_transactions" yaml:"disable_mongo_transactions"`

	// Params seeds the protocol parameters on first start. Empty fields
	// keep their defaults.
	Params ParamsConfig `json:"params" mapstructure:"params" yaml:"params"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// ParamsConfig is the file form of factory.Params. Amounts and rates are
// decimal strings.
type ParamsConfig struct {
	MinStreamDuration     time.Duration `json:"min_stream_duration" mapstructure:"min_stream_duration" yaml:"min_stream_duration"`
	MinDurationUntilStart time.Duration `json:"min_duration_until_start" mapstructure:"min_duration_until_start" yaml:"min_duration_until_start"`
	AcceptedInDenom       string        `json:"accepted_in_denom" mapstructure:"accepted_in_denom" yaml:"accepted_in_denom"`
	CreationFeeDenom      string        `json:"creation_fee_denom" mapstructure:"creation_fee_denom" yaml:"creation_fee_denom"`
	CreationFeeAmount     string        `json:"creation_fee_amount" mapstructure:"creation_fee_amount" yaml:"creation_fee_amount"`
	ExitFeePercent        string        `json:"exit_fee_percent" mapstructure:"exit_fee_percent" yaml:"exit_fee_percent"`
	FeeCollector          string        `json:"fee_collector" mapstructure:"fee_collector" yaml:"fee_collector"`
	ProtocolAdmin         string        `json:"protocol_admin" mapstructure:"protocol_admin" yaml:"protocol_admin"`
	Governance            string        `json:"governance" mapstructure:"governance" yaml:"governance"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:        "/streamswap",
		SyncConcurrency: 4,
		PluginTimeout:   5 * time.Second,
		Driver:          DriverMemory,
	}
}

// Resolve overlays the set fields of c on factory.DefaultParams.
func (c ParamsConfig) Resolve() (factory.Params, error) {
	p := factory.DefaultParams()

	if c.MinStreamDuration > 0 {
		p.MinStreamDuration = c.MinStreamDuration
	}
	if c.MinDurationUntilStart > 0 {
		p.MinDurationUntilStart = c.MinDurationUntilStart
	}
	if c.AcceptedInDenom != "" {
		p.AcceptedInDenom = c.AcceptedInDenom
	}
	if c.CreationFeeDenom != "" {
		p.StreamCreationFee.Denom = c.CreationFeeDenom
	}
	if c.CreationFeeAmount != "" {
		amount, err := types.ParseAmount(c.CreationFeeAmount)
		if err != nil {
			return p, fmt.Errorf("creation_fee_amount: %w", err)
		}
		p.StreamCreationFee.Amount = amount
	}
	if c.ExitFeePercent != "" {
		rate, err := types.ParseDec(c.ExitFeePercent)
		if err != nil {
			return p, fmt.Errorf("exit_fee_percent: %w", err)
		}
		p.ExitFeePercent = rate
	}
	if c.FeeCollector != "" {
		p.FeeCollector = c.FeeCollector
	}
	if c.ProtocolAdmin != "" {
		p.ProtocolAdmin = c.ProtocolAdmin
	}
	if c.Governance != "" {
		p.Governance = c.Governance
	}

	return p, p.Validate()
}

// isZero reports whether no params field was configured.
func (c ParamsConfig) isZero() bool {
	return c == ParamsConfig{}
}
