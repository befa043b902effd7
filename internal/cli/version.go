package cli

import (
	"fmt"

	"github.com/hashicorp/go-version"
	"github.com/spf13/cobra"
)

// Build information, overridable with -ldflags "-X".
var (
	Version   = "1.0.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// ParsedVersion returns Version as a semantic version, or 0.0.0 when it does not parse.
func ParsedVersion() *version.Version {
	v, err := version.NewVersion(Version)
	if err != nil {
		return version.Must(version.NewVersion("0.0.0"))
	}
	return v
}

// UserAgent is the default User-Agent header: bulkget/<major>.<minor>.
func UserAgent() string {
	segments := ParsedVersion().Segments()
	return fmt.Sprintf("%s/%d.%d", AppName, segments[0], segments[1])
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version information for bulkget",
		Args:  cobra.NoArgs,
		Run:   runVersion,
	}

	return cmd
}

func runVersion(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()
	v := ParsedVersion()
	_, _ = fmt.Fprintf(out, "%s version %s\n", AppName, v.String())
	if pre := v.Prerelease(); pre != "" {
		_, _ = fmt.Fprintf(out, "Pre-release: %s\n", pre)
	}
	_, _ = fmt.Fprintf(out, "User agent: %s\n", UserAgent())
	_, _ = fmt.Fprintf(out, "Build date: %s\n", BuildDate)
	_, _ = fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
}
