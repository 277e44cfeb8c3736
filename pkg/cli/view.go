package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/htmlrunner/htmlrunner/pkg/results"
	"github.com/htmlrunner/htmlrunner/pkg/runner"
)

const (
	defaultMaxLineLength = 100
)

type viewOptions struct {
	showSource    bool
	maxLineLength int
}

// NewViewCmd creates the view command for rendering test results.
func NewViewCmd() *cobra.Command {
	var (
		testFilter string
		opts       = viewOptions{maxLineLength: defaultMaxLineLength}
	)

	cmd := &cobra.Command{
		Use:   "view <results-file>",
		Short: "Pretty-print test results from a JSON file",
		Long: `Render the JSON output produced by "htmlrunner run" in a human-friendly format.

Examples:
  htmlrunner view results.json
  htmlrunner view --test login --source results.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outcomes, err := results.Load(args[0])
			if err != nil {
				return err
			}

			filtered := results.Filter(outcomes, testFilter)
			if len(filtered) == 0 {
				if testFilter == "" {
					return errors.New("no tests found in results")
				}
				return fmt.Errorf("no tests matched filter %q", testFilter)
			}

			out := cmd.OutOrStdout()
			for idx, outcome := range filtered {
				if idx > 0 {
					fmt.Fprintln(out)
				}
				printOutcome(out, outcome, opts)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&testFilter, "test", "", "Only show tests whose name or url contains this value")
	cmd.Flags().BoolVar(&opts.showSource, "source", false, "Include the page source the test was read from")
	cmd.Flags().IntVar(&opts.maxLineLength, "max-line-length", opts.maxLineLength, "Maximum characters per step line (0 = unlimited)")

	return cmd
}

func printOutcome(out io.Writer, outcome *results.TestOutcome, opts viewOptions) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	title := outcome.Name
	if title == "" {
		title = outcome.URL
	}
	bold.Fprintf(out, "Test: %s\n", title)
	fmt.Fprintf(out, "  URL: %s\n", outcome.URL)
	fmt.Fprintf(out, "  Run: %s\n", outcome.RunID)
	if !outcome.Timestamp.IsZero() {
		fmt.Fprintf(out, "  Finished: %s\n", outcome.Timestamp.Format(time.RFC3339))
	}

	if outcome.Passed {
		green.Fprintln(out, "  Status: PASSED")
	} else {
		red.Fprintln(out, "  Status: FAILED")
	}

	if len(outcome.Steps) > 0 {
		fmt.Fprintln(out, "  Steps:")
	}
	for _, step := range outcome.Steps {
		line := truncateString(formatStep(step), opts.maxLineLength)
		switch step.Status {
		case runner.StatusSuccessful:
			fmt.Fprintf(out, "    ✓ %s\n", line)
		case runner.StatusError:
			yellow.Fprintf(out, "    ✗ %s\n", line)
			fmt.Fprintf(out, "      error: %s\n", step.Error)
		default:
			red.Fprintf(out, "    ✗ %s\n", line)
			fmt.Fprintf(out, "      failure: %s\n", step.Error)
		}
	}

	if opts.showSource && strings.TrimSpace(outcome.RawSource) != "" {
		fmt.Fprintln(out, "  Source:")
		fmt.Fprintln(out, indentBlock(strings.TrimSpace(outcome.RawSource), "    "))
	}
}

func formatStep(step results.StepRecord) string {
	return fmt.Sprintf("[%d] %s", step.Index, runner.Row{
		Command: step.Command,
		Locator: step.Locator,
		Value:   step.Value,
	})
}

func truncateString(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}

func indentBlock(block, indent string) string {
	lines := strings.Split(block, "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}
