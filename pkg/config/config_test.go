package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/bulkget/pkg/errors"
	"github.com/glorpus-work/bulkget/pkg/fsutil"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, ".", cfg.Output)
	assert.Equal(t, 0, cfg.DelayMS)
	assert.Equal(t, time.Minute, cfg.HTTPTimeout)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.True(t, cfg.Retry.ClientErrors)
	assert.Equal(t, "info", cfg.Log.Level)
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, ".", cfg.Output)
}

func TestLoad_File(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	configContent := `output: /srv/downloads
delay_ms: 250
referer: https://gallery.example.com/
http_timeout: 10s
retry:
  max_attempts: 3
  base_delay: 500ms
  max_delay: 5s
  client_errors: false
log:
  level: DEBUG
  format: json
`
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), fsutil.FileModeDefault))

	cfg, err := Load(configPath, nil)
	require.NoError(t, err)

	assert.Equal(t, "/srv/downloads", cfg.Output)
	assert.Equal(t, 250*time.Millisecond, cfg.Delay())
	assert.Equal(t, "https://gallery.example.com/", cfg.Referer)
	assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.Equal(t, 5*time.Second, cfg.Retry.MaxDelay)
	assert.False(t, cfg.Retry.ClientErrors)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FlagsOverrideFileAndEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("output: from-file\nreferer: from-file\ndelay_ms: 5\n"), fsutil.FileModeDefault))
	t.Setenv("BULKGET_REFERER", "from-env")
	t.Setenv("BULKGET_RETRY_MAX_ATTEMPTS", "2")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", ".", "")
	flags.UintP("delay", "d", 0, "")
	flags.StringP("referer", "r", "", "")
	require.NoError(t, flags.Parse([]string{"-o", "from-flag", "--delay", "100"}))

	cfg, err := Load(configPath, flags)
	require.NoError(t, err)

	assert.Equal(t, "from-flag", cfg.Output)
	assert.Equal(t, 100, cfg.DelayMS)
	assert.Equal(t, "from-env", cfg.Referer)
	assert.Equal(t, 2, cfg.Retry.MaxAttempts)
}

func TestLoad_UnchangedFlagsKeepFileValues(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("output: from-file\n"), fsutil.FileModeDefault))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.StringP("output", "o", ".", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(configPath, flags)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.Output)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		target  error
	}{
		{name: "malformed yaml", content: "output: [unterminated\n", target: errors.ErrConfigParse},
		{name: "negative delay", content: "delay_ms: -1\n", target: errors.ErrNegativeDelay},
		{name: "zero attempts", content: "retry:\n  max_attempts: 0\n", target: errors.ErrInvalidRetries},
		{name: "bad log level", content: "log:\n  level: loud\n", target: errors.ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(configPath, []byte(tt.content), fsutil.FileModeDefault))

			_, err := Load(configPath, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.target)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Output = "/tmp/out"
	cfg.DelayMS = 50
	cfg.Log.Level = "debug"

	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.SaveConfig(configPath))

	data, err := os.ReadFile(configPath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	loaded, err := Load(configPath, nil)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveConfig_EmptyPath(t *testing.T) {
	require.ErrorIs(t, DefaultConfig().SaveConfig(""), errors.ErrEmptyConfigPath)
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTPTimeout = -time.Second }, wantErr: errors.ErrNegativeTimeout},
		{name: "max below base", mutate: func(c *Config) { c.Retry.MaxDelay = time.Millisecond }, wantErr: errors.ErrInvalidBackoff},
		{name: "bad format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: errors.ErrInvalidLogFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	var nilCfg *Config
	require.ErrorIs(t, nilCfg.Validate(), errors.ErrConfigValidation)
}

func TestGetValue(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Referer = "https://example.com/"

	value, err := cfg.GetValue(KeyReferer)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", value)

	value, err = cfg.GetValue(KeyMaxAttempts)
	require.NoError(t, err)
	assert.Equal(t, "5", value)

	_, err = cfg.GetValue("nope")
	require.ErrorIs(t, err, errors.ErrUnknownConfigKey)

	assert.Len(t, cfg.Keys(), len(cfg.ToMap()))
	assert.Equal(t, KeyDelayMS, cfg.Keys()[0])
}

func TestGetDefaultConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/test/config/home")
	t.Setenv("HOME", "/test/home")

	path, err := GetDefaultConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(fsutil.AppName, DefaultConfigName), filepath.Join(filepath.Base(filepath.Dir(path)), filepath.Base(path)))
}
