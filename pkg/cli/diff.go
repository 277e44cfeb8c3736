package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/htmlrunner/htmlrunner/pkg/results"
)

// DiffResult holds the comparison between two result files
type DiffResult struct {
	BaseStats    results.Stats
	HeadStats    results.Stats
	Regressions  []TestDiff
	Improvements []TestDiff
	New          []TestDiff
	Removed      []TestDiff
}

// TestDiff holds the diff for a single test, keyed by its url
type TestDiff struct {
	URL           string
	BasePassed    bool
	HeadPassed    bool
	FailureReason string
}

// NewDiffCmd creates the diff command
func NewDiffCmd() *cobra.Command {
	var outputFormat string
	var baseFile string
	var currentFile string

	cmd := &cobra.Command{
		Use:   "diff --base <results-file> --current <results-file>",
		Short: "Compare two test results",
		Long: `Compare test results between two runs (e.g., main vs PR).

Shows regressions, improvements, and overall pass rate changes.

Example:
  htmlrunner diff --base results-main.json --current results-pr.json
  htmlrunner diff --base results-main.json --current results-pr.json --output markdown`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			baseOutcomes, err := results.Load(baseFile)
			if err != nil {
				return fmt.Errorf("failed to load base results: %w", err)
			}

			currentOutcomes, err := results.Load(currentFile)
			if err != nil {
				return fmt.Errorf("failed to load current results: %w", err)
			}

			diff := calculateDiff(baseFile, currentFile, baseOutcomes, currentOutcomes)

			switch outputFormat {
			case "text":
				outputTextDiff(cmd.OutOrStdout(), diff)
			case "markdown":
				outputMarkdownDiff(cmd.OutOrStdout(), diff)
			default:
				return fmt.Errorf("unknown output format: %s", outputFormat)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&baseFile, "base", "", "Base results file (e.g., main branch)")
	cmd.Flags().StringVar(&currentFile, "current", "", "Current results file (e.g., PR branch)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "text", "Output format (text, markdown)")

	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("current")

	return cmd
}

// calculateDiff compares the last outcome recorded for each url.
func calculateDiff(baseFile, currentFile string, baseOutcomes, currentOutcomes []*results.TestOutcome) DiffResult {
	diff := DiffResult{
		BaseStats:    results.CalculateStats(baseFile, baseOutcomes),
		HeadStats:    results.CalculateStats(currentFile, currentOutcomes),
		Regressions:  make([]TestDiff, 0),
		Improvements: make([]TestDiff, 0),
		New:          make([]TestDiff, 0),
		Removed:      make([]TestDiff, 0),
	}

	baseMap := make(map[string]*results.TestOutcome)
	for _, o := range baseOutcomes {
		baseMap[o.URL] = o
	}

	currentMap := make(map[string]*results.TestOutcome)
	for _, o := range currentOutcomes {
		currentMap[o.URL] = o
	}

	for _, current := range currentOutcomes {
		if currentMap[current.URL] != current {
			continue
		}

		base, exists := baseMap[current.URL]
		if !exists {
			diff.New = append(diff.New, TestDiff{
				URL:        current.URL,
				HeadPassed: current.Passed,
			})
			continue
		}

		testDiff := TestDiff{
			URL:           current.URL,
			BasePassed:    base.Passed,
			HeadPassed:    current.Passed,
			FailureReason: results.FailureReason(current),
		}

		if base.Passed && !current.Passed {
			diff.Regressions = append(diff.Regressions, testDiff)
		} else if !base.Passed && current.Passed {
			diff.Improvements = append(diff.Improvements, testDiff)
		}
	}

	for _, base := range baseOutcomes {
		if baseMap[base.URL] != base {
			continue
		}
		if _, exists := currentMap[base.URL]; !exists {
			diff.Removed = append(diff.Removed, TestDiff{
				URL:        base.URL,
				BasePassed: base.Passed,
			})
		}
	}

	return diff
}

func outputTextDiff(out io.Writer, diff DiffResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	bold := color.New(color.Bold)

	_, _ = bold.Fprintln(out, "=== Results Diff ===")
	fmt.Fprintln(out)

	if len(diff.Regressions) > 0 {
		_, _ = red.Fprintf(out, "Regressions (%d):\n", len(diff.Regressions))
		for _, r := range diff.Regressions {
			_, _ = red.Fprintf(out, "  ✗ %s: PASSED → FAILED\n", r.URL)
			if r.FailureReason != "" {
				fmt.Fprintf(out, "      %s\n", r.FailureReason)
			}
		}
		fmt.Fprintln(out)
	}

	if len(diff.Improvements) > 0 {
		_, _ = green.Fprintf(out, "Improvements (%d):\n", len(diff.Improvements))
		for _, r := range diff.Improvements {
			_, _ = green.Fprintf(out, "  ✓ %s: FAILED → PASSED\n", r.URL)
		}
		fmt.Fprintln(out)
	}

	if len(diff.New) > 0 {
		_, _ = yellow.Fprintf(out, "New Tests (%d):\n", len(diff.New))
		for _, r := range diff.New {
			if r.HeadPassed {
				_, _ = green.Fprintf(out, "  + %s: PASSED\n", r.URL)
			} else {
				_, _ = red.Fprintf(out, "  + %s: FAILED\n", r.URL)
			}
		}
		fmt.Fprintln(out)
	}

	if len(diff.Removed) > 0 {
		_, _ = yellow.Fprintf(out, "Removed Tests (%d):\n", len(diff.Removed))
		for _, r := range diff.Removed {
			fmt.Fprintf(out, "  - %s\n", r.URL)
		}
		fmt.Fprintln(out)
	}

	_, _ = bold.Fprintln(out, "=== Summary ===")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "             Base        Head        Change\n")
	fmt.Fprintf(out, "Tests:       %d/%-8d %d/%-8d ",
		diff.BaseStats.TestsPassed, diff.BaseStats.TestsTotal,
		diff.HeadStats.TestsPassed, diff.HeadStats.TestsTotal)
	printChange(out, diff.HeadStats.TestPassRate-diff.BaseStats.TestPassRate)

	fmt.Fprintf(out, "Steps:       %d/%-8d %d/%-8d ",
		diff.BaseStats.StepsSuccessful, diff.BaseStats.StepsTotal,
		diff.HeadStats.StepsSuccessful, diff.HeadStats.StepsTotal)
	printChange(out, stepSuccessRate(diff.HeadStats)-stepSuccessRate(diff.BaseStats))
}

func printChange(out io.Writer, change float64) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	if change > 0 {
		_, _ = green.Fprintf(out, "+%.1f%%\n", change*100)
	} else if change < 0 {
		_, _ = red.Fprintf(out, "%.1f%%\n", change*100)
	} else {
		fmt.Fprintln(out, "0.0%")
	}
}

func outputMarkdownDiff(out io.Writer, diff DiffResult) {
	fmt.Fprintln(out, "### 📊 Test Results")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "| Metric | Base | Head | Change |")
	fmt.Fprintln(out, "|--------|------|------|--------|")
	fmt.Fprintf(out, "| Tests | %d/%d (%.1f%%) | %d/%d (%.1f%%) | %s |\n",
		diff.BaseStats.TestsPassed, diff.BaseStats.TestsTotal, diff.BaseStats.TestPassRate*100,
		diff.HeadStats.TestsPassed, diff.HeadStats.TestsTotal, diff.HeadStats.TestPassRate*100,
		formatChangeMarkdown(diff.HeadStats.TestPassRate-diff.BaseStats.TestPassRate))
	fmt.Fprintf(out, "| Steps | %d/%d (%.1f%%) | %d/%d (%.1f%%) | %s |\n",
		diff.BaseStats.StepsSuccessful, diff.BaseStats.StepsTotal, stepSuccessRate(diff.BaseStats)*100,
		diff.HeadStats.StepsSuccessful, diff.HeadStats.StepsTotal, stepSuccessRate(diff.HeadStats)*100,
		formatChangeMarkdown(stepSuccessRate(diff.HeadStats)-stepSuccessRate(diff.BaseStats)))

	if len(diff.Regressions) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "#### ❌ Regressions (%d)\n", len(diff.Regressions))
		for _, r := range diff.Regressions {
			fmt.Fprintf(out, "- `%s`: PASSED → FAILED", r.URL)
			if r.FailureReason != "" {
				fmt.Fprintf(out, " - %s", r.FailureReason)
			}
			fmt.Fprintln(out)
		}
	}

	if len(diff.Improvements) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "#### ✅ Improvements (%d)\n", len(diff.Improvements))
		for _, r := range diff.Improvements {
			fmt.Fprintf(out, "- `%s`: FAILED → PASSED\n", r.URL)
		}
	}

	if len(diff.New) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "#### 🆕 New Tests (%d)\n", len(diff.New))
		for _, r := range diff.New {
			status := "PASSED"
			if !r.HeadPassed {
				status = "FAILED"
			}
			fmt.Fprintf(out, "- `%s`: %s\n", r.URL, status)
		}
	}

	if len(diff.Removed) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintf(out, "#### 🗑️ Removed Tests (%d)\n", len(diff.Removed))
		for _, r := range diff.Removed {
			fmt.Fprintf(out, "- `%s`\n", r.URL)
		}
	}
}

func formatChangeMarkdown(change float64) string {
	if change > 0 {
		return fmt.Sprintf("🟢 +%.1f%%", change*100)
	} else if change < 0 {
		return fmt.Sprintf("🔴 %.1f%%", change*100)
	}
	return "➖ 0.0%"
}
