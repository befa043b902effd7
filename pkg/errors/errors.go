// Package errors defines the sentinel errors shared across bulkget and small
// helpers for adding context while keeping them matchable with errors.Is.
package errors

import "fmt"

// Run errors. ErrExtraction and ErrDirectory abort a run; the others are
// reported per URL and never stop the batch.
var (
	// ErrExtraction is returned when the URL list cannot be read.
	ErrExtraction = fmt.Errorf("failed to read url list")

	// ErrDirectory is returned when the output destination cannot be prepared.
	ErrDirectory = fmt.Errorf("failed to prepare output directory")

	// ErrRequest covers connection failures, timeouts and non-2xx responses.
	ErrRequest = fmt.Errorf("request failed")

	// ErrRetryExhausted wraps the last ErrRequest once the attempt budget is spent.
	ErrRetryExhausted = fmt.Errorf("retry budget exhausted")

	// ErrTaskExecution is returned when a download task dies without producing a result.
	ErrTaskExecution = fmt.Errorf("task execution failed")

	// ErrWrite is returned when a downloaded file cannot be stored.
	ErrWrite = fmt.Errorf("failed to write file")

	// ErrInvalidPath is returned when a filename or destination is unusable.
	ErrInvalidPath = fmt.Errorf("invalid path")
)

// Config errors.
var (
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to rename temporary config file")
	ErrConfigFileExists  = fmt.Errorf("configuration file already exists (use --force to overwrite)")
	ErrUnknownConfigKey  = fmt.Errorf("unknown configuration key")

	ErrInvalidLogLevel  = fmt.Errorf("invalid log level")
	ErrInvalidLogFormat = fmt.Errorf("invalid log format")
	ErrNegativeTimeout  = fmt.Errorf("http_timeout cannot be negative")
	ErrNegativeDelay    = fmt.Errorf("delay cannot be negative")
	ErrInvalidRetries   = fmt.Errorf("retry.max_attempts must be at least 1")
	ErrInvalidBackoff   = fmt.Errorf("retry delays must be positive and base_delay <= max_delay")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ErrInvalidLogLevelWithDetails reports an unsupported level together with the accepted ones.
func ErrInvalidLogLevelWithDetails(level string) error {
	return fmt.Errorf("%w: '%s', must be one of: debug, info, warn, error", ErrInvalidLogLevel, level)
}

// ErrInvalidLogFormatWithDetails reports an unsupported log format.
func ErrInvalidLogFormatWithDetails(format string) error {
	return fmt.Errorf("%w: '%s', must be one of: text, json", ErrInvalidLogFormat, format)
}

// ErrUnknownConfigKeyWithName names the key that could not be resolved.
func ErrUnknownConfigKeyWithName(key string) error {
	return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
}
