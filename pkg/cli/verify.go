package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/htmlrunner/htmlrunner/pkg/results"
)

// NewVerifyCmd creates the verify command
func NewVerifyCmd() *cobra.Command {
	var testThreshold float64
	var stepThreshold float64

	cmd := &cobra.Command{
		Use:   "verify <results-file>",
		Short: "Verify test results meet thresholds",
		Long: `Verify that test results meet minimum pass rate thresholds.

Exits with code 0 if all thresholds are met, code 1 otherwise.
Use 'htmlrunner view' to view detailed results.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			resultsFile := args[0]

			outcomes, err := results.Load(resultsFile)
			if err != nil {
				return fmt.Errorf("failed to load results file: %w", err)
			}

			stats := results.CalculateStats(resultsFile, outcomes)

			testThresholdMet := stats.TestPassRate >= testThreshold
			// If no steps were recorded, skip the step threshold check
			stepThresholdMet := stats.StepsTotal == 0 || stepSuccessRate(stats) >= stepThreshold
			passed := testThresholdMet && stepThresholdMet

			outputVerifyResults(cmd.OutOrStdout(), stats, testThreshold, stepThreshold, testThresholdMet, stepThresholdMet, passed)

			if !passed {
				// silent error (SilenceErrors: true), sets exit code 1
				return fmt.Errorf("thresholds not met")
			}

			return nil
		},
	}

	cmd.Flags().Float64Var(&testThreshold, "test", 0.0, "Minimum test pass rate (0.0-1.0)")
	cmd.Flags().Float64Var(&stepThreshold, "step", 0.0, "Minimum step success rate (0.0-1.0)")

	return cmd
}

func stepSuccessRate(stats results.Stats) float64 {
	if stats.StepsTotal == 0 {
		return 0
	}
	return float64(stats.StepsSuccessful) / float64(stats.StepsTotal)
}

func outputVerifyResults(out io.Writer, stats results.Stats, testThreshold, stepThreshold float64, testMet, stepMet, passed bool) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	_, _ = bold.Fprintln(out, "=== Threshold Verification ===")
	fmt.Fprintln(out)

	// Test threshold
	if testMet {
		_, _ = green.Fprintf(out, "Test Pass Rate:    %.2f%% >= %.2f%% ✓\n",
			stats.TestPassRate*100, testThreshold*100)
	} else {
		_, _ = red.Fprintf(out, "Test Pass Rate:    %.2f%% < %.2f%% ✗\n",
			stats.TestPassRate*100, testThreshold*100)
	}

	// Step threshold
	rate := stepSuccessRate(stats)
	if stats.StepsTotal == 0 {
		fmt.Fprintln(out, "Step Success Rate: N/A (no steps recorded)")
	} else if stepMet {
		_, _ = green.Fprintf(out, "Step Success Rate: %.2f%% >= %.2f%% ✓\n",
			rate*100, stepThreshold*100)
	} else {
		_, _ = red.Fprintf(out, "Step Success Rate: %.2f%% < %.2f%% ✗\n",
			rate*100, stepThreshold*100)
	}

	fmt.Fprintln(out)
	if passed {
		_, _ = green.Fprintln(out, "Result: PASSED")
	} else {
		_, _ = red.Fprintln(out, "Result: FAILED")
	}
}
