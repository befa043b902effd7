package config

import (
	"sort"
	"strconv"

	"github.com/glorpus-work/bulkget/pkg/errors"
)

// ToMap flattens the configuration into key/value strings.
// This is useful for displaying the configuration.
func (c *Config) ToMap() map[string]string {
	return map[string]string{
		KeyOutput:       c.Output,
		KeyDelayMS:      strconv.Itoa(c.DelayMS),
		KeyReferer:      c.Referer,
		KeyUserAgent:    c.UserAgent,
		KeyHTTPTimeout:  c.HTTPTimeout.String(),
		KeyExtract:      strconv.FormatBool(c.Extract),
		KeyMaxAttempts:  strconv.Itoa(c.Retry.MaxAttempts),
		KeyBaseDelay:    c.Retry.BaseDelay.String(),
		KeyMaxDelay:     c.Retry.MaxDelay.String(),
		KeyClientErrors: strconv.FormatBool(c.Retry.ClientErrors),
		KeyLogLevel:     c.Log.Level,
		KeyLogFormat:    c.Log.Format,
	}
}

// Keys returns every configuration key in sorted order.
func (c *Config) Keys() []string {
	m := c.ToMap()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetValue returns the string form of a single configuration key.
func (c *Config) GetValue(key string) (string, error) {
	value, ok := c.ToMap()[key]
	if !ok {
		return "", errors.ErrUnknownConfigKeyWithName(key)
	}
	return value, nil
}
