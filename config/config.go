// Package config loads a file sink configuration with viper. Values come
// from defaults, then an optional YAML, TOML or JSON file, then
// environment variables prefixed NLOGSINK_ (for example
// NLOGSINK_MAX_SIZE=1048576).
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/philipp01105/nlogsink/core"
	"github.com/philipp01105/nlogsink/formatter"
	"github.com/philipp01105/nlogsink/handler"
	"github.com/philipp01105/nlogsink/handler/filehandler"
	"github.com/philipp01105/nlogsink/logger"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NLOGSINK"

// ErrInvalid marks configuration values that cannot be converted.
var ErrInvalid = errors.New("config: invalid value")

// Config is the file sink configuration.
type Config struct {
	Filename string `mapstructure:"filename"`
	// Format is the serializer format name.
	Format string `mapstructure:"format"`
	// Layout selects the formatter: "text" or "json".
	Layout        string `mapstructure:"layout"`
	IncludeCaller bool   `mapstructure:"include_caller"`
	// Level is the minimum level of the logger built by NewLogger.
	Level string `mapstructure:"level"`
	Name  string `mapstructure:"name"`

	Async      bool `mapstructure:"async"`
	BufferSize int  `mapstructure:"buffer_size"`
	// Overflow maps level names to overflow policy names.
	Overflow     map[string]string `mapstructure:"overflow"`
	BlockTimeout time.Duration     `mapstructure:"block_timeout"`
	DrainTimeout time.Duration     `mapstructure:"drain_timeout"`

	MaxSize         int64         `mapstructure:"max_size"`
	RotateInterval  time.Duration `mapstructure:"rotate_interval"`
	MaxBackups      int           `mapstructure:"max_backups"`
	FlushEvery      int           `mapstructure:"flush_every"`
	RetryMaxElapsed time.Duration `mapstructure:"retry_max_elapsed"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("filename", "")
	v.SetDefault("format", "text")
	v.SetDefault("layout", "text")
	v.SetDefault("include_caller", false)
	v.SetDefault("level", "info")
	v.SetDefault("name", "")
	v.SetDefault("async", false)
	v.SetDefault("buffer_size", 1000)
	v.SetDefault("overflow", map[string]string{})
	v.SetDefault("block_timeout", 100*time.Millisecond)
	v.SetDefault("drain_timeout", 5*time.Second)
	v.SetDefault("max_size", 0)
	v.SetDefault("rotate_interval", time.Duration(0))
	v.SetDefault("max_backups", 0)
	v.SetDefault("flush_every", 0)
	v.SetDefault("retry_max_elapsed", 2*time.Second)
}

// Load reads the configuration from path on the OS filesystem. An empty
// path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), path)
}

// LoadFs is Load reading the file from fs.
func LoadFs(fs afero.Fs, path string) (*Config, error) {
	v := viper.New()
	v.SetFs(fs)
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		switch ext := filepath.Ext(path); ext {
		case ".yaml", ".yml":
			v.SetConfigType("yaml")
		case ".json":
			v.SetConfigType("json")
		case ".toml":
			v.SetConfigType("toml")
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "config: read %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "config: decode")
	}
	return &cfg, nil
}

// LogLevel returns the parsed Level.
func (c *Config) LogLevel() (core.Level, error) {
	level, ok := core.ParseLevel(c.Level)
	if !ok {
		return level, errors.Wrapf(ErrInvalid, "level %q", c.Level)
	}
	return level, nil
}

// NewLayout returns the formatter named by Layout.
func (c *Config) NewLayout() (formatter.Formatter, error) {
	fc := formatter.Config{IncludeCaller: c.IncludeCaller}
	switch strings.ToLower(c.Layout) {
	case "", "text":
		return formatter.NewTextFormatter(fc), nil
	case "json":
		return formatter.NewJSONFormatter(fc), nil
	default:
		return nil, errors.Wrapf(ErrInvalid, "layout %q", c.Layout)
	}
}

// OverflowPolicies converts Overflow. Levels that are not listed keep
// the default policy.
func (c *Config) OverflowPolicies() (map[core.Level]handler.OverflowPolicy, error) {
	if len(c.Overflow) == 0 {
		return nil, nil
	}
	policies := handler.DefaultLevelPolicy()
	for name, value := range c.Overflow {
		level, ok := core.ParseLevel(name)
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "overflow level %q", name)
		}
		policy, ok := handler.ParseOverflowPolicy(value)
		if !ok {
			return nil, errors.Wrapf(ErrInvalid, "overflow policy %q for %s", value, name)
		}
		policies[level] = policy
	}
	return policies, nil
}

// FileConfig converts c into a filehandler.FileConfig. Logger, Metrics,
// Registry and Fs are left for the caller.
func (c *Config) FileConfig() (filehandler.FileConfig, error) {
	if c.Filename == "" {
		return filehandler.FileConfig{}, errors.Wrap(ErrInvalid, "filename is required")
	}
	layout, err := c.NewLayout()
	if err != nil {
		return filehandler.FileConfig{}, err
	}
	policies, err := c.OverflowPolicies()
	if err != nil {
		return filehandler.FileConfig{}, err
	}
	return filehandler.FileConfig{
		Filename:        c.Filename,
		Format:          c.Format,
		Layout:          layout,
		Async:           c.Async,
		BufferSize:      c.BufferSize,
		MaxSize:         c.MaxSize,
		RotateInterval:  c.RotateInterval,
		MaxBackups:      c.MaxBackups,
		FlushEvery:      c.FlushEvery,
		OverflowPolicy:  policies,
		BlockTimeout:    c.BlockTimeout,
		DrainTimeout:    c.DrainTimeout,
		RetryMaxElapsed: c.RetryMaxElapsed,
	}, nil
}

// NewLogger builds a file handler from c and a Logger on top of it.
// zlog receives driver diagnostics and reg the driver metrics; either may
// be nil.
func (c *Config) NewLogger(fs afero.Fs, zlog *zap.Logger, reg prometheus.Registerer) (*logger.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	fc, err := c.FileConfig()
	if err != nil {
		return nil, err
	}
	fc.Fs = fs
	fc.Logger = zlog
	fc.Metrics = filehandler.NewMetrics(reg)

	h, err := filehandler.NewFileHandler(fc)
	if err != nil {
		return nil, err
	}
	return logger.NewBuilder().
		WithHandler(h).
		WithName(c.Name).
		WithLevel(level).
		WithCaller(c.IncludeCaller).
		Build(), nil
}
