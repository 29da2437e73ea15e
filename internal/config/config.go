// Package config loads loadlab configuration from defaults, an optional
// YAML file, LOADLAB_* environment variables and command line flags, in
// increasing order of precedence.
//
// Example YAML:
//
//	server:
//	  addr: ":3001"
//	  allowedOrigin: "*"
//	metrics:
//	  flushInterval: 2s
//	  historyCapacity: 30
//	simulation:
//	  maxDelay: 60s
//	logging:
//	  level: debug
//	presetsFile: presets.yaml
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/wesleyorama2/loadlab/internal/metrics"
	"github.com/wesleyorama2/loadlab/internal/simulation"
)

// EnvPrefix is the prefix of environment variables that override config keys.
const EnvPrefix = "LOADLAB"

// Config is the root configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Logging    LoggingConfig    `mapstructure:"logging"`

	// PresetsFile replaces the built-in presets when set (YAML or JSON)
	PresetsFile string `mapstructure:"presetsFile"`

	// Presets is resolved by Load from PresetsFile or the built-in set
	Presets *Presets `mapstructure:"-"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address (default: ":3001")
	Addr string `mapstructure:"addr"`

	// ReadHeaderTimeout bounds how long reading request headers may take
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"`

	// ShutdownTimeout bounds graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`

	// AllowedOrigin is sent as Access-Control-Allow-Origin
	AllowedOrigin string `mapstructure:"allowedOrigin"`
}

// MetricsConfig configures the metrics engine.
type MetricsConfig struct {
	FlushInterval            time.Duration `mapstructure:"flushInterval"`
	HistoryCapacity          int           `mapstructure:"historyCapacity"`
	SketchSignificantFigures int           `mapstructure:"sketchSignificantFigures"`
	SketchMaxLatency         time.Duration `mapstructure:"sketchMaxLatency"`
	SubscriberBuffer         int           `mapstructure:"subscriberBuffer"`
}

// EngineConfig converts the section to a metrics engine configuration.
func (c MetricsConfig) EngineConfig() metrics.EngineConfig {
	return metrics.EngineConfig{
		FlushInterval:            c.FlushInterval,
		HistoryCapacity:          c.HistoryCapacity,
		SketchSignificantFigures: c.SketchSignificantFigures,
		SketchMaxLatency:         c.SketchMaxLatency,
		SubscriberBuffer:         c.SubscriberBuffer,
	}
}

// SimulationConfig bounds the parameters accepted by /process.
type SimulationConfig struct {
	MaxDelay    time.Duration `mapstructure:"maxDelay"`
	MaxJitter   time.Duration `mapstructure:"maxJitter"`
	MaxCPULoad  int64         `mapstructure:"maxCPULoad"`
	MaxMemoryMB int           `mapstructure:"maxMemoryMB"`
}

// Limits converts the section to simulation limits.
func (c SimulationConfig) Limits() simulation.Limits {
	return simulation.Limits{
		MaxDelay:    c.MaxDelay,
		MaxJitter:   c.MaxJitter,
		MaxCPULoad:  c.MaxCPULoad,
		MaxMemoryMB: c.MaxMemoryMB,
	}
}

// LoggingConfig configures logrus.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format is text or json
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default value. Keys must be
// known to viper for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	engine := metrics.DefaultEngineConfig()
	limits := simulation.DefaultLimits()

	v.SetDefault("server.addr", ":3001")
	v.SetDefault("server.readHeaderTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.allowedOrigin", "*")

	v.SetDefault("metrics.flushInterval", engine.FlushInterval)
	v.SetDefault("metrics.historyCapacity", engine.HistoryCapacity)
	v.SetDefault("metrics.sketchSignificantFigures", engine.SketchSignificantFigures)
	v.SetDefault("metrics.sketchMaxLatency", engine.SketchMaxLatency)
	v.SetDefault("metrics.subscriberBuffer", engine.SubscriberBuffer)

	v.SetDefault("simulation.maxDelay", limits.MaxDelay)
	v.SetDefault("simulation.maxJitter", limits.MaxJitter)
	v.SetDefault("simulation.maxCPULoad", limits.MaxCPULoad)
	v.SetDefault("simulation.maxMemoryMB", limits.MaxMemoryMB)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("presetsFile", "")
}

// NewViper returns a viper instance with defaults and environment
// overrides registered.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the configuration.
//
// When path is empty, loadlab.yaml is looked up in the working directory
// and $HOME/.loadlab, and a missing file is not an error. An explicit path
// must exist.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("loadlab")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.loadlab")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, errors.Wrap(err, "failed to read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	if cfg.PresetsFile != "" {
		presets, err := LoadPresets(cfg.PresetsFile)
		if err != nil {
			return nil, err
		}
		cfg.Presets = presets
	} else {
		cfg.Presets = DefaultPresets()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration produced by defaults alone, without
// consulting files or the environment.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	// Decoding the registered defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	cfg.Presets = DefaultPresets()
	return &cfg
}
