package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/divyansh-cyber/AceE6data/internal/core"
	"github.com/divyansh-cyber/AceE6data/pkg/models"
)

var (
	monitorSamples int
	historyLast    int
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Collect metric samples into the history",
	Long: `Collect metric samples from MySQL and append each one to the metrics
history. When MySQL is unreachable the collector switches to generated demo
data for the rest of the run. The last sample is printed as a table.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("metrics monitor not initialized")
		}
		if monitorSamples < 1 {
			return fmt.Errorf("--samples must be at least 1")
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Collecting %d metric sample(s)...\n", monitorSamples)

		var last *core.CollectResult
		for i := 0; i < monitorSamples; i++ {
			res, err := Monitor.Collect(commandContext(cmd))
			if err != nil {
				return fmt.Errorf("collecting sample %d: %w", i+1, err)
			}
			if last != nil && last.Source != res.Source {
				fmt.Fprintf(out, "Source changed to %s at sample %d.\n", res.Source, i+1)
			}
			last = res
		}

		fmt.Fprintf(out, "Source: %s, history size: %d\n", last.Source, last.HistorySize)
		printMetricsTable(out, last.Sample, metricThresholds())
		return nil
	},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Collect one sample and check it for anomalies",
	Long: `Collect one sample, append it to the history, then score it against an
isolation-forest model trained on the history. The model needs a minimum
number of samples before it can score; until then the command reports how
many more are required.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("metrics monitor not initialized")
		}

		report, err := Monitor.Analyze(commandContext(cmd))
		if err != nil {
			return fmt.Errorf("analyzing metrics: %w", err)
		}
		printAnomalyReport(cmd.OutOrStdout(), report)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent metrics history entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Monitor == nil {
			return fmt.Errorf("metrics monitor not initialized")
		}
		if historyLast < 0 {
			return fmt.Errorf("--last must not be negative")
		}

		out := cmd.OutOrStdout()
		samples := Monitor.History()
		if len(samples) == 0 {
			fmt.Fprintln(out, "Metrics history is empty. Run `p3 monitor` to collect samples.")
			return nil
		}

		start := 0
		if historyLast > 0 && historyLast < len(samples) {
			start = len(samples) - historyLast
		}
		fmt.Fprintf(out, "Metrics History (%d of %d entries):\n", len(samples)-start, len(samples))
		fmt.Fprintln(out, strings.Repeat("=", 60))
		for i := start; i < len(samples); i++ {
			s := samples[i]
			fmt.Fprintf(out, "Entry %d (%s):\n", i+1, s.Timestamp.Format("2006-01-02 15:04:05 UTC"))
			for _, k := range s.Keys() {
				fmt.Fprintf(out, "  %s: %.2f\n", k, s.Values[k])
			}
			fmt.Fprintln(out, strings.Repeat("-", 40))
		}
		return nil
	},
}

// metricThresholds returns a lookup over the configured display thresholds.
func metricThresholds() func(string) (float64, bool) {
	if Config == nil {
		return func(string) (float64, bool) { return 0, false }
	}
	return Config.Metrics.Threshold
}

// metricStatus classifies one value for display: HIGH above its threshold,
// ERROR when negative, OK otherwise.
func metricStatus(value float64, threshold float64, hasThreshold bool) string {
	switch {
	case value < 0:
		return "ERROR"
	case hasThreshold && value > threshold:
		return "HIGH"
	default:
		return "OK"
	}
}

func printMetricsTable(w io.Writer, sample models.MetricSample, threshold func(string) (float64, bool)) {
	if len(sample.Values) == 0 {
		fmt.Fprintln(w, "No metrics collected.")
		return
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintln(w, "MySQL Performance Metrics")
	fmt.Fprintln(w, strings.Repeat("=", 60))
	fmt.Fprintf(w, "%-30s %-20s %-10s\n", "Metric", "Value", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, name := range sample.Keys() {
		value := sample.Values[name]
		limit, ok := threshold(name)
		fmt.Fprintf(w, "%-30s %-20.2f %-10s\n", name, value, metricStatus(value, limit, ok))
	}
	fmt.Fprintln(w, strings.Repeat("=", 60))
}

func printAnomalyReport(w io.Writer, report *core.AnomalyReport) {
	if !report.Ready {
		fmt.Fprintf(w, "Need %d more samples before anomaly detection can run (have %d of %d).\n",
			report.Missing(), report.Available, report.Required)
		fmt.Fprintln(w, "Run `p3 monitor` to collect training data.")
		return
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w, "Anomaly Detection Results")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	if report.Verdict.IsAnomaly {
		fmt.Fprintln(w, "ANOMALY DETECTED")
		fmt.Fprintf(w, "Anomaly Score: %.4f\n", report.Verdict.Score)
		fmt.Fprintln(w, "The current metrics show unusual patterns that may indicate:")
		fmt.Fprintln(w, "- Performance degradation")
		fmt.Fprintln(w, "- Resource contention")
		fmt.Fprintln(w, "- Potential issues requiring attention")
	} else {
		fmt.Fprintln(w, "Metrics appear normal")
		fmt.Fprintf(w, "Anomaly Score: %.4f\n", report.Verdict.Score)
	}
	fmt.Fprintf(w, "Model trained on %d samples.\n", report.TrainedOn)
	fmt.Fprintln(w, strings.Repeat("=", 50))
}

func init() {
	monitorCmd.Flags().IntVar(&monitorSamples, "samples", 100, "Number of samples to collect")
	historyCmd.Flags().IntVar(&historyLast, "last", 10, "Number of entries to show (0 for all)")
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(historyCmd)
}
