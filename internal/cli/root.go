package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var (
	flagLogLevel string
	flagDemo     bool
	setupDone    bool
)

// annotationNoSetup marks commands that run without services.
const annotationNoSetup = "p3/no-setup"

var rootCmd = &cobra.Command{
	Use:   "p3",
	Short: "p3 - MySQL performance monitoring with anomaly detection",
	Long: `p3 collects MySQL server status counters, keeps a bounded metrics
history, and flags unusual samples with an isolation-forest detector trained
on that history. It also classifies slow queries by severity and issue
category and writes a recent-analysis snapshot for assistant integrations.

Data lives under $P3_HOME, or the nearest directory holding a config.yaml.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if setupDone || Setup == nil || cmd.Annotations[annotationNoSetup] == "true" {
			return nil
		}
		if err := Setup(Options{LogLevel: flagLogLevel, Demo: flagDemo}); err != nil {
			return fmt.Errorf("initializing p3: %w", err)
		}
		setupDone = true
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:         "version",
	Short:       "Print version information",
	Annotations: map[string]string{annotationNoSetup: "true"},
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "p3 %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Use generated demo metrics instead of connecting to MySQL")
	rootCmd.AddCommand(versionCmd)
}

// commandContext returns the command's context, or Background when the
// command was invoked without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
