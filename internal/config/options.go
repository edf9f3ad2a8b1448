package config

import (
	"time"

	"github.com/smazurov/camctl/internal/cache"
	"github.com/smazurov/camctl/internal/devices"
	"github.com/smazurov/camctl/internal/logging"
)

// Options is every setting camctl reads. Flag names derive from the field
// names unless a flag tag says otherwise.
type Options struct {
	Config string `flag:"config"`

	ServerAddr   string `toml:"server.addr" env:"SERVER_ADDR" flag:"addr"`
	AuthUsername string `toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `toml:"auth.password" env:"AUTH_PASSWORD"`

	Backend       string `toml:"backend.type" env:"BACKEND" flag:"backend"`
	ForceFallback bool   `toml:"backend.force_fallback" env:"FORCE_FALLBACK"`

	Quiet    bool `toml:"fallback.quiet" env:"QUIET" flag:"quiet"`
	MaxProbe int  `toml:"fallback.max_probe" env:"MAX_PROBE"`

	CacheDevicesTTL  time.Duration `toml:"cache.devices_ttl" env:"CACHE_DEVICES_TTL"`
	CacheFormatsTTL  time.Duration `toml:"cache.formats_ttl" env:"CACHE_FORMATS_TTL"`
	CacheControlsTTL time.Duration `toml:"cache.controls_ttl" env:"CACHE_CONTROLS_TTL"`
	CacheWorkers     int           `toml:"cache.workers" env:"CACHE_WORKERS"`
	CacheCallTimeout time.Duration `toml:"cache.call_timeout" env:"CACHE_CALL_TIMEOUT"`

	SettleTime time.Duration `toml:"controls.settle_time" env:"SETTLE_TIME" flag:"settle"`

	LoggingLevel   string            `toml:"logging.level" env:"LOGGING_LEVEL" flag:"log-level"`
	LoggingFormat  string            `toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingOutput  string            `toml:"logging.output" env:"LOGGING_OUTPUT"`
	LoggingModules map[string]string `toml:"logging.modules" env:"LOGGING_MODULES"`
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	c := cache.DefaultConfig()
	return Options{
		Config:           "camctl.toml",
		ServerAddr:       ":8090",
		MaxProbe:         devices.DefaultMaxProbe,
		CacheDevicesTTL:  c.DevicesTTL,
		CacheFormatsTTL:  c.FormatsTTL,
		CacheControlsTTL: c.ControlsTTL,
		CacheWorkers:     c.Workers,
		CacheCallTimeout: c.CallTimeout,
		SettleTime:       2 * time.Second,
		LoggingLevel:     "info",
		LoggingFormat:    "text",
		LoggingOutput:    "stderr",
	}
}

// Load returns the defaults overlaid by the file at path and the
// environment. It is the Watcher's loader.
func Load(path string) (Options, error) {
	opts := DefaultOptions()
	opts.Config = path
	if err := LoadConfig(&opts, nil, EnvPrefix); err != nil {
		return Options{}, err
	}
	return opts, nil
}

// DeviceOptions selects and configures the device backend.
func (o Options) DeviceOptions() devices.Options {
	backend := o.Backend
	if o.ForceFallback {
		backend = devices.BackendFallback
	}
	return devices.Options{Backend: backend, Quiet: o.Quiet, MaxProbe: o.MaxProbe}
}

// CacheConfig returns the cache TTLs and pool settings.
func (o Options) CacheConfig() cache.Config {
	c := cache.DefaultConfig()
	c.DevicesTTL = o.CacheDevicesTTL
	c.FormatsTTL = o.CacheFormatsTTL
	c.ControlsTTL = o.CacheControlsTTL
	c.Workers = o.CacheWorkers
	c.CallTimeout = o.CacheCallTimeout
	return c
}

// LoggingConfig returns the logging settings.
func (o Options) LoggingConfig() logging.Config {
	return logging.Config{
		Level:   o.LoggingLevel,
		Format:  o.LoggingFormat,
		Output:  o.LoggingOutput,
		Modules: o.LoggingModules,
	}
}
