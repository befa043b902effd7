package cli

import (
	"fmt"
	"time"

	"github.com/glorpus-work/bulkget/pkg/config"
	"github.com/glorpus-work/bulkget/pkg/download"
	"github.com/glorpus-work/bulkget/pkg/orchestrator"
	"github.com/glorpus-work/bulkget/pkg/output"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the bulkget command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	cmd := &cobra.Command{
		Use:   AppName + " [flags] URL_FILE",
		Short: "Download every URL found in a text file",
		Long: `bulkget reads a text file, extracts every http and https URL from it
and downloads them all concurrently into one directory or bucket.

Failed downloads are retried with exponential backoff and then reported as
warnings; they never stop the batch.`,
		Args:          cobra.ExactArgs(1),
		Version:       ParsedVersion().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDownload(cmd, g, args[0])
		},
	}

	cmd.PersistentFlags().StringVar(&g.configPath, flagConfig, "", "config file path (default: $XDG_CONFIG_HOME/bulkget/config.yaml)")
	cmd.PersistentFlags().BoolVarP(&g.verbose, flagVerbose, "v", false, "verbose output")
	cmd.PersistentFlags().String(flagLogLevel, config.DefaultLogLevel, "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String(flagLogFormat, config.DefaultLogFormat, "log format (text, json)")

	flags := cmd.Flags()
	flags.StringP(flagOutput, "o", config.DefaultOutput, "destination directory or bucket URL (s3://, gs://, mem://)")
	flags.UintP(flagDelay, "d", 0, "milliseconds to wait between launching successive requests")
	flags.StringP(flagReferer, "r", "", "referer header sent with every request")
	flags.String(flagUserAgent, "", "user agent (default \""+UserAgent()+"\")")
	flags.Duration(flagTimeout, config.DefaultHTTPTimeout, "per-request timeout")
	flags.Int(flagRetries, config.DefaultMaxAttempts, "total attempts per URL")
	flags.Bool(flagRetryClientErrors, true, "retry 4xx responses")
	flags.Bool(flagExtract, false, "unpack downloaded archives next to the file")

	cmd.AddCommand(
		NewConfigCmd(g),
		NewVersionCmd(),
	)

	return cmd
}

func runDownload(cmd *cobra.Command, g *globalFlags, inputPath string) error {
	ctx := cmd.Context()

	cfg, err := g.loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, g.verbose, cmd.ErrOrStderr())
	logger.Debug("configuration loaded", logAttrs(cfg)...)

	writer, err := output.Open(ctx, cfg.Output, output.Options{Extract: cfg.Extract, Logger: logger})
	if err != nil {
		return err
	}
	defer func() { _ = writer.Close() }()

	hooks := orchestrator.Hooks{OnEvent: func(e orchestrator.Event) {
		logger.Debug("task "+string(e.Phase), "index", e.Index, "url", e.URL)
	}}

	orch := orchestrator.New(download.NewClient(clientOptions(cfg)), writer, logger, retryPolicy(cfg), hooks)

	start := time.Now()
	summary, err := orch.Run(ctx, orchestrator.Options{
		InputPath: inputPath,
		Delay:     cfg.Delay(),
		Referer:   cfg.Referer,
	})
	if err != nil {
		return fmt.Errorf("download run failed: %w", err)
	}

	logger.Debug("run complete", "elapsed", time.Since(start), "written", summary.Written, "failed", summary.Failed)
	return nil
}
