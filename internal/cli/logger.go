package cli

import (
	"io"
	"log/slog"

	"github.com/glorpus-work/bulkget/internal/logger"
	"github.com/glorpus-work/bulkget/pkg/config"
	"github.com/segmentio/ksuid"
)

// newLogger builds the logger for one invocation. Every record carries a
// run_id so lines from concurrent invocations can be told apart.
func newLogger(cfg *config.Config, verbose bool, w io.Writer) *slog.Logger {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logger.New(logger.Options{
		Level:  level,
		Format: logger.OutputFormat(cfg.Log.Format),
		Output: w,
	}).With("run_id", ksuid.New().String())
}
