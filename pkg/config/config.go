// Package config provides configuration management for bulkget.
// Settings are layered: built-in defaults, an optional YAML file,
// BULKGET_* environment variables and finally command line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glorpus-work/bulkget/pkg/errors"
	"github.com/glorpus-work/bulkget/pkg/fsutil"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Output is a directory path or a bucket URL (s3://, gs://, mem://).
	Output string `yaml:"output" mapstructure:"output"`

	// DelayMS is the pause between launching successive downloads, in milliseconds.
	DelayMS int `yaml:"delay_ms" mapstructure:"delay_ms"`

	// Request settings
	Referer     string        `yaml:"referer,omitempty" mapstructure:"referer"`
	UserAgent   string        `yaml:"user_agent,omitempty" mapstructure:"user_agent"`
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout"`

	// Extract unpacks downloaded archives next to the file.
	Extract bool `yaml:"extract" mapstructure:"extract"`

	Retry RetryConfig `yaml:"retry" mapstructure:"retry"`
	Log   LogConfig   `yaml:"log" mapstructure:"log"`
}

// RetryConfig controls the per-URL retry policy.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay" mapstructure:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay" mapstructure:"max_delay"`
	// ClientErrors retries 4xx responses like any other failure when true.
	ClientErrors bool `yaml:"client_errors" mapstructure:"client_errors"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// Default configuration values.
const (
	DefaultOutput       = "."
	DefaultHTTPTimeout  = time.Minute
	DefaultMaxAttempts  = 5
	DefaultBaseDelay    = time.Second
	DefaultMaxDelay     = time.Minute
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultConfigName   = "config.yaml"
	EnvPrefix           = "BULKGET"
	YAMLIndent          = 2
	defaultClientErrors = true
)

// Configuration keys, shared by viper, the YAML file and `config get`.
const (
	KeyOutput       = "output"
	KeyDelayMS      = "delay_ms"
	KeyReferer      = "referer"
	KeyUserAgent    = "user_agent"
	KeyHTTPTimeout  = "http_timeout"
	KeyExtract      = "extract"
	KeyMaxAttempts  = "retry.max_attempts"
	KeyBaseDelay    = "retry.base_delay"
	KeyMaxDelay     = "retry.max_delay"
	KeyClientErrors = "retry.client_errors"
	KeyLogLevel     = "log.level"
	KeyLogFormat    = "log.format"
)

// FlagBindings maps configuration keys to the command line flags that override them.
var FlagBindings = map[string]string{
	KeyOutput:       "output",
	KeyDelayMS:      "delay",
	KeyReferer:      "referer",
	KeyUserAgent:    "user-agent",
	KeyHTTPTimeout:  "timeout",
	KeyExtract:      "extract",
	KeyMaxAttempts:  "retries",
	KeyClientErrors: "retry-client-errors",
	KeyLogLevel:     "log-level",
	KeyLogFormat:    "log-format",
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Output:      DefaultOutput,
		HTTPTimeout: DefaultHTTPTimeout,
		Retry: RetryConfig{
			MaxAttempts:  DefaultMaxAttempts,
			BaseDelay:    DefaultBaseDelay,
			MaxDelay:     DefaultMaxDelay,
			ClientErrors: defaultClientErrors,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Delay returns DelayMS as a duration.
func (c *Config) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// Load builds the configuration from defaults, the YAML file at path (a
// missing file is not an error), the environment and any changed flags.
// flags may be nil.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
		}
		if _, err := os.Stat(absPath); err == nil {
			v.SetConfigFile(absPath)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to open config file: %s", path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, name := range FlagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, errors.Wrapf(err, "failed to bind flag --%s", name)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrConfigValidation, err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault(KeyOutput, d.Output)
	v.SetDefault(KeyDelayMS, d.DelayMS)
	v.SetDefault(KeyReferer, d.Referer)
	v.SetDefault(KeyUserAgent, d.UserAgent)
	v.SetDefault(KeyHTTPTimeout, d.HTTPTimeout)
	v.SetDefault(KeyExtract, d.Extract)
	v.SetDefault(KeyMaxAttempts, d.Retry.MaxAttempts)
	v.SetDefault(KeyBaseDelay, d.Retry.BaseDelay)
	v.SetDefault(KeyMaxDelay, d.Retry.MaxDelay)
	v.SetDefault(KeyClientErrors, d.Retry.ClientErrors)
	v.SetDefault(KeyLogLevel, d.Log.Level)
	v.SetDefault(KeyLogFormat, d.Log.Format)
}

func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	c.Log.Format = strings.ToLower(c.Log.Format)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.ErrConfigValidation
	}
	if c.DelayMS < 0 {
		return errors.ErrNegativeDelay
	}
	if c.HTTPTimeout < 0 {
		return errors.ErrNegativeTimeout
	}
	if c.Retry.MaxAttempts < 1 {
		return errors.ErrInvalidRetries
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		return errors.ErrInvalidBackoff
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return errors.ErrInvalidLogLevelWithDetails(c.Log.Level)
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Log.Format)] {
		return errors.ErrInvalidLogFormatWithDetails(c.Log.Format)
	}
	return nil
}

// SaveConfig writes the configuration to path as YAML, replacing any existing file.
func (c *Config) SaveConfig(path string) error {
	if path == "" {
		return errors.ErrEmptyConfigPath
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrInvalidConfigPath, err.Error())
	}

	if err := fsutil.EnsureFileDir(absPath); err != nil {
		return errors.Wrap(errors.ErrConfigDirectory, err.Error())
	}

	tempPath := absPath + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, fsutil.FileModeSecure)
	if err != nil {
		return errors.Wrap(errors.ErrConfigFileCreate, err.Error())
	}

	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(YAMLIndent)

	if err := encoder.Encode(c); err != nil {
		_ = file.Close()
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigEncode, err.Error())
	}

	_ = encoder.Close()
	_ = file.Close()

	if err := os.Rename(tempPath, absPath); err != nil {
		_ = os.Remove(tempPath)
		return errors.Wrap(errors.ErrConfigFileRename, err.Error())
	}
	return nil
}

// ToYAML converts the config to YAML bytes.
func (c *Config) ToYAML() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(errors.ErrConfigEncode, err.Error())
	}
	return data, nil
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() (string, error) {
	dir, err := fsutil.GetConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, DefaultConfigName), nil
}
