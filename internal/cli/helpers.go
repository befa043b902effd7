package cli

import (
	"fmt"
	"log/slog"

	"github.com/glorpus-work/bulkget/pkg/config"
	"github.com/glorpus-work/bulkget/pkg/download"
	"github.com/glorpus-work/bulkget/pkg/retry"
	"github.com/spf13/cobra"
)

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
}

// getConfigPath returns --config or the default location.
func (g *globalFlags) getConfigPath() (string, error) {
	if g.configPath != "" {
		return g.configPath, nil
	}
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		return "", fmt.Errorf("failed to get default config path: %w", err)
	}
	return path, nil
}

// loadConfig layers the config file, the environment and cmd's flags.
func (g *globalFlags) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := g.getConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// retryPolicy converts the retry settings into a policy. With client errors
// disabled, 4xx responses fail on the first attempt.
func retryPolicy(cfg *config.Config) retry.Policy {
	p := retry.DefaultPolicy()
	p.MaxAttempts = cfg.Retry.MaxAttempts
	p.BaseDelay = cfg.Retry.BaseDelay
	p.MaxDelay = cfg.Retry.MaxDelay
	if !cfg.Retry.ClientErrors {
		p.RetryIf = func(err error) bool { return !download.IsClientError(err) }
	}
	return p
}

// clientOptions returns the fetcher settings, defaulting the user agent to UserAgent().
func clientOptions(cfg *config.Config) download.Options {
	ua := cfg.UserAgent
	if ua == "" {
		ua = UserAgent()
	}
	return download.Options{Timeout: cfg.HTTPTimeout, UserAgent: ua}
}

func logAttrs(cfg *config.Config) []any {
	return []any{
		slog.String("output", cfg.Output),
		slog.Duration("delay", cfg.Delay()),
		slog.Int("max_attempts", cfg.Retry.MaxAttempts),
		slog.Bool("extract", cfg.Extract),
	}
}
