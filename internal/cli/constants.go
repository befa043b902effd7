package cli

// Default values for CLI flags and formatted output.
const (
	// TabWidth is the width of tabs in formatted output.
	TabWidth = 2
	// AppName is the command name.
	AppName = "bulkget"
)

// Flag names shared by the root command and config.FlagBindings.
const (
	flagOutput            = "output"
	flagDelay             = "delay"
	flagReferer           = "referer"
	flagUserAgent         = "user-agent"
	flagTimeout           = "timeout"
	flagRetries           = "retries"
	flagRetryClientErrors = "retry-client-errors"
	flagExtract           = "extract"
	flagConfig            = "config"
	flagVerbose           = "verbose"
	flagLogLevel          = "log-level"
	flagLogFormat         = "log-format"
)
