package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"k8s.io/utils/ptr"

	"github.com/htmlrunner/htmlrunner/pkg/browser"
	"github.com/htmlrunner/htmlrunner/pkg/commands"
	"github.com/htmlrunner/htmlrunner/pkg/config"
	"github.com/htmlrunner/htmlrunner/pkg/metrics"
	"github.com/htmlrunner/htmlrunner/pkg/results"
	"github.com/htmlrunner/htmlrunner/pkg/runner"
	"github.com/htmlrunner/htmlrunner/pkg/steps"
	"github.com/htmlrunner/htmlrunner/pkg/util"
)

// errTestFailed is returned when the test ran but did not pass.
var errTestFailed = errors.New("test failed")

// session is a browser the run drives.
type session interface {
	runner.Driver
	steps.Commands
	Close()
}

type sessionFactory func(ctx context.Context, opts browser.Options) (session, error)

func newBrowserSession(ctx context.Context, opts browser.Options) (session, error) {
	s, err := browser.New(ctx, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type runFlags struct {
	url          string
	baseURL      string
	remote       string
	headless     bool
	timeout      time.Duration
	maxSteps     int
	resultsFile  string
	metricsFile  string
	outputFormat string
	verbose      bool
}

// NewRunCmd creates the run command
func NewRunCmd() *cobra.Command {
	return newRunCmd(newBrowserSession)
}

func newRunCmd(newSession sessionFactory) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [run-config-file]",
		Short: "Run a table driven browser test",
		Long: `Run the test table found at a URL, configured by a run file, by flags, or both.
Flags override the values of the run file.

Examples:
  htmlrunner run run.yaml
  htmlrunner run --url http://localhost:8080/tests/login.html --remote ws://127.0.0.1:9222`,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := config.New()
			if len(args) == 1 {
				var err error
				spec, err = config.FromFile(args[0])
				if err != nil {
					return fmt.Errorf("failed to load run config: %w", err)
				}
			}

			if err := applyRunFlags(cmd, spec, &flags); err != nil {
				return err
			}
			if err := spec.Validate(); err != nil {
				return fmt.Errorf("invalid run config: %w", err)
			}
			if flags.outputFormat != "text" && flags.outputFormat != "json" {
				return fmt.Errorf("unknown output format: %s", flags.outputFormat)
			}

			logger := util.SetupLogger(flags.verbose)
			ctx := util.WithLogger(util.WithVerbose(cmd.Context(), flags.verbose), logger)

			out := cmd.OutOrStdout()
			display := newProgressDisplay(out, flags.verbose)

			outcome, err := runTest(ctx, spec, newSession, display.handleProgress)
			if err != nil {
				return fmt.Errorf("run failed: %w", err)
			}

			if spec.Config.Results.File != "" {
				fmt.Fprintf(out, "\n📄 Results saved to: %s\n", spec.Config.Results.File)
			}

			if err := displayOutcome(out, outcome, flags.outputFormat); err != nil {
				return fmt.Errorf("failed to display results: %w", err)
			}

			if !outcome.Passed {
				return errTestFailed
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.url, "url", "", "URL or file path of the test page")
	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "Base URL that relative urls are resolved against")
	cmd.Flags().StringVar(&flags.remote, "remote", "", "DevTools url of a running browser (default: start a local Chrome)")
	cmd.Flags().BoolVar(&flags.headless, "headless", true, "Run a local browser headless")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", browser.DefaultTimeout, "Timeout of each browser call")
	cmd.Flags().IntVar(&flags.maxSteps, "max-steps", runner.DefaultMaxSteps, "Maximum number of executed steps (0 = unlimited)")
	cmd.Flags().StringVar(&flags.resultsFile, "results-file", "", "Write the outcome as JSON to this file")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile")
	cmd.Flags().StringVarP(&flags.outputFormat, "output", "o", "text", "Output format (text, json)")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "Verbose output")

	return cmd
}

// applyRunFlags copies every flag the user set onto spec.
func applyRunFlags(cmd *cobra.Command, spec *config.RunSpec, flags *runFlags) error {
	changed := cmd.Flags().Changed
	cfg := &spec.Config

	if changed("base-url") {
		cfg.BaseURL = flags.baseURL
	}
	if changed("url") {
		cfg.Test = flags.url
		// Flag paths are relative to the working directory.
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to get working directory: %w", err)
		}
		if err := cfg.ResolvePaths(wd); err != nil {
			return err
		}
	}
	if changed("remote") {
		cfg.Browser.RemoteURL = flags.remote
	}
	if changed("headless") {
		cfg.Browser.Headless = ptr.To(flags.headless)
	}
	if changed("timeout") {
		cfg.Browser.Timeout = flags.timeout.String()
	}
	if changed("max-steps") {
		cfg.MaxSteps = ptr.To(flags.maxSteps)
	}
	if changed("results-file") {
		cfg.Results.File = flags.resultsFile
	}
	if changed("metrics-file") {
		cfg.MetricsFile = flags.metricsFile
	}

	return nil
}

// runTest executes the configured test once and fans its results out to
// every configured sink.
func runTest(ctx context.Context, spec *config.RunSpec, newSession sessionFactory, progress runner.ProgressCallback) (*results.TestOutcome, error) {
	cfg := &spec.Config
	logger := util.LoggerFrom(ctx)

	runID := uuid.NewString()
	meta := results.Meta{RunID: runID, Name: spec.Metadata.Name, URL: cfg.Test}

	registry, err := commands.NewRegistry(commands.Options{
		VerifyContinues: cfg.GetVerifyContinues(),
		PageLoadTimeout: cfg.Browser.GetPageLoadTimeout(),
	})
	if err != nil {
		return nil, err
	}

	recorder := results.NewRecorder(meta)
	sinks := results.Tee{recorder}

	var metricsRecorder *metrics.Recorder
	if cfg.MetricsFile != "" {
		metricsRecorder = metrics.NewRecorder()
		sinks = append(sinks, metricsRecorder)
	}

	var publisher *results.Publisher
	if amqp := cfg.Results.AMQP; amqp != nil {
		publisher, err = results.Dial(ctx, amqp.URL, amqp.Exchange, amqp.RoutingKey, meta, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to connect results publisher: %w", err)
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("failed to close results publisher", "error", err)
			}
		}()
		sinks = append(sinks, publisher)
	}

	tc, err := runner.NewTestCase(cfg.Test, registry,
		runner.WithRunID(runID),
		runner.WithMaxSteps(cfg.GetMaxSteps()),
		runner.WithLogger(logger),
		runner.WithProgress(progress),
	)
	if err != nil {
		return nil, err
	}

	sess, err := newSession(ctx, browser.Options{
		RemoteURL: cfg.Browser.RemoteURL,
		Headless:  cfg.Browser.GetHeadless(),
		Timeout:   cfg.Browser.GetTimeout(),
		BaseURL:   cfg.BaseURL,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer sess.Close()

	if err := tc.Run(ctx, sinks, sess, sess); err != nil {
		return nil, err
	}

	outcome := recorder.Last()

	if cfg.Results.File != "" {
		if err := results.SaveToFile(cfg.Results.File, recorder.Outcomes()); err != nil {
			return nil, err
		}
	}
	if metricsRecorder != nil {
		if err := metricsRecorder.WriteTextfile(cfg.MetricsFile); err != nil {
			return nil, err
		}
	}
	if publisher != nil {
		if err := publisher.Err(); err != nil {
			return nil, err
		}
	}

	return outcome, nil
}

// progressDisplay handles interactive progress display
type progressDisplay struct {
	out     io.Writer
	verbose bool
	green   *color.Color
	red     *color.Color
	yellow  *color.Color
	cyan    *color.Color
	bold    *color.Color
}

func newProgressDisplay(out io.Writer, verbose bool) *progressDisplay {
	return &progressDisplay{
		out:     out,
		verbose: verbose,
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed),
		yellow:  color.New(color.FgYellow),
		cyan:    color.New(color.FgCyan),
		bold:    color.New(color.Bold),
	}
}

func (d *progressDisplay) handleProgress(event runner.ProgressEvent) {
	switch event.Type {
	case runner.EventTestStart:
		d.bold.Fprintln(d.out, "\n=== Starting Test ===")
		d.cyan.Fprintf(d.out, "Test: %s\n", event.URL)

	case runner.EventNavigate:
		if d.verbose {
			fmt.Fprintf(d.out, "  → %s\n", event.Message)
		}

	case runner.EventStepsLoaded:
		fmt.Fprintf(d.out, "  → %d steps loaded\n", event.Total)

	case runner.EventStepStart:
		if d.verbose {
			fmt.Fprintf(d.out, "  → %s\n", event.Step)
		}

	case runner.EventStepComplete:
		d.printStepResult(event.Result)

	case runner.EventTestComplete:
		fmt.Fprintln(d.out)
		d.bold.Fprintln(d.out, "=== Test Complete ===")
	}
}

func (d *progressDisplay) printStepResult(result *runner.StepResult) {
	if result == nil {
		return
	}

	switch result.Status() {
	case runner.StatusSuccessful:
		if d.verbose {
			d.green.Fprintf(d.out, "  ✓ %s\n", result.Step)
		}
	case runner.StatusError:
		d.yellow.Fprintf(d.out, "  ✗ %s\n", result.Step)
		fmt.Fprintf(d.out, "    Error: %v\n", result.Cause())
	default:
		d.red.Fprintf(d.out, "  ✗ %s\n", result.Step)
		fmt.Fprintf(d.out, "    Failure: %v\n", result.Cause())
	}
}

func displayOutcome(out io.Writer, outcome *results.TestOutcome, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(outcome)

	case "text":
		displayTextOutcome(out, outcome)
		return nil

	default:
		return fmt.Errorf("unknown output format: %s", format)
	}
}

func displayTextOutcome(out io.Writer, outcome *results.TestOutcome) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	bold := color.New(color.Bold)

	fmt.Fprintln(out)
	bold.Fprintln(out, "=== Results Summary ===")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Test: %s\n", outcome.URL)
	fmt.Fprintf(out, "  Run: %s\n", outcome.RunID)

	if outcome.Passed {
		green.Fprintf(out, "  Status: PASSED\n")
	} else {
		red.Fprintf(out, "  Status: FAILED\n")
		if reason := results.FailureReason(outcome); reason != "" {
			fmt.Fprintf(out, "  Reason: %s\n", reason)
		}
	}

	fmt.Fprintf(out, "  Steps: %d successful, %d errors, %d failures\n",
		outcome.Count(runner.StatusSuccessful),
		outcome.Count(runner.StatusError),
		outcome.Count(runner.StatusFailure))
	fmt.Fprintf(out, "  Duration: %s\n", outcome.Duration.Round(time.Millisecond))
}
