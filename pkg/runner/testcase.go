package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/htmlrunner/htmlrunner/pkg/steps"
	"github.com/htmlrunner/htmlrunner/pkg/util"
)

const (
	DefaultMaxSteps = 10000
)

// ErrStepLimit is composed into the result of the step that reaches a run's
// step limit. Only jumps that loop can reach it.
var ErrStepLimit = errors.New("step limit exceeded")

// Driver is the part of the browser session the interpreter itself needs.
type Driver interface {
	CurrentURL(ctx context.Context) (string, error)
	Navigate(ctx context.Context, url string) error
	PageSource(ctx context.Context) (string, error)
	// Evaluate runs script in the page and decodes its JSON result into res.
	Evaluate(ctx context.Context, script string, res any) error
}

// Results receives the outcome of one test. AddTest is called exactly once
// per run that reaches the execution phase.
type Results interface {
	AddTest(rawSource string, results []StepResult)
}

// TestCase interprets the command table found at one URL.
type TestCase struct {
	url      string
	registry *steps.Registry
	maxSteps int
	runID    string
	logger   *slog.Logger
	progress ProgressCallback
}

type Option func(*TestCase)

// WithMaxSteps bounds the number of executed steps. n <= 0 disables the
// limit.
func WithMaxSteps(n int) Option {
	return func(tc *TestCase) {
		tc.maxSteps = n
	}
}

// WithRunID fixes the run ID instead of generating one per run.
func WithRunID(id string) Option {
	return func(tc *TestCase) {
		tc.runID = id
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(tc *TestCase) {
		tc.logger = logger
	}
}

func WithProgress(callback ProgressCallback) Option {
	return func(tc *TestCase) {
		tc.progress = callback
	}
}

func NewTestCase(url string, registry *steps.Registry, opts ...Option) (*TestCase, error) {
	if url == "" {
		return nil, fmt.Errorf("test case url cannot be empty")
	}
	if registry == nil {
		return nil, fmt.Errorf("step registry cannot be nil")
	}

	tc := &TestCase{
		url:      url,
		registry: registry,
		maxSteps: DefaultMaxSteps,
		logger:   slog.Default(),
		progress: NoopProgressCallback,
	}
	for _, opt := range opts {
		opt(tc)
	}

	return tc, nil
}

func (tc *TestCase) URL() string {
	return tc.url
}

// Run executes the test against the session and reports to results.
// Navigation, extraction and resolution errors are returned and results is
// not called. Step failures never surface as errors; they are part of the
// recorded results.
func (tc *TestCase) Run(ctx context.Context, results Results, driver Driver, cmds steps.Commands) error {
	runID := tc.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	logger := tc.logger.With("run_id", runID)

	emit := func(event ProgressEvent) {
		event.RunID = runID
		event.URL = tc.url
		tc.progress(event)
	}

	emit(ProgressEvent{
		Type:    EventTestStart,
		Message: fmt.Sprintf("Starting test: %s", tc.url),
	})

	if err := tc.navigate(ctx, logger, driver, emit); err != nil {
		return err
	}

	rawSource, err := driver.PageSource(ctx)
	if err != nil {
		return fmt.Errorf("failed to get page source: %w", err)
	}

	rows, err := ExtractRows(ctx, driver)
	if err != nil {
		return err
	}

	resolved, err := tc.resolve(rows)
	if err != nil {
		return err
	}

	state := steps.NewTestState()
	for _, step := range resolved {
		labeled, ok := step.step.(steps.Labeled)
		if !ok {
			continue
		}
		if err := state.DefineLabel(labeled.Label(), step.Index); err != nil {
			return fmt.Errorf("row %d: %w", step.Index, err)
		}
	}

	emit(ProgressEvent{
		Type:    EventStepsLoaded,
		Message: fmt.Sprintf("Resolved %d steps", len(resolved)),
		Total:   len(resolved),
	})

	stepResults := tc.execute(ctx, logger, resolved, cmds, state, emit)

	results.AddTest(rawSource, stepResults)

	emit(ProgressEvent{
		Type:    EventTestComplete,
		Message: fmt.Sprintf("Completed test: %s (%d steps recorded)", tc.url, len(stepResults)),
		Total:   len(resolved),
		Results: stepResults,
	})

	return nil
}

func (tc *TestCase) navigate(ctx context.Context, logger *slog.Logger, driver Driver, emit ProgressCallback) error {
	current, err := driver.CurrentURL(ctx)
	if err != nil {
		return fmt.Errorf("failed to get current location: %w", err)
	}
	if current == tc.url {
		return nil
	}

	logger.Debug("navigating to test", "from", current, "to", tc.url)
	emit(ProgressEvent{
		Type:    EventNavigate,
		Message: fmt.Sprintf("Navigating to %s", tc.url),
	})

	if err := driver.Navigate(ctx, tc.url); err != nil {
		return fmt.Errorf("failed to navigate to '%s': %w", tc.url, err)
	}

	return nil
}

// resolve builds every step before any of them runs, so an unknown command
// anywhere aborts the whole test.
func (tc *TestCase) resolve(rows []Row) ([]*ResolvedStep, error) {
	resolved := make([]*ResolvedStep, 0, len(rows))
	for i, row := range rows {
		step, err := tc.registry.Resolve(row.Command, row.Locator, row.Value)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		resolved = append(resolved, &ResolvedStep{
			Row:   row,
			Index: i,
			step:  step,
		})
	}
	return resolved, nil
}

func (tc *TestCase) execute(
	ctx context.Context,
	logger *slog.Logger,
	resolved []*ResolvedStep,
	cmds steps.Commands,
	state *steps.TestState,
	emit ProgressCallback,
) []StepResult {
	stepResults := make([]StepResult, 0, len(resolved))
	executed := 0
	ctx = util.WithLogger(ctx, logger)

	// A table without jumps always runs to its end.
	limit := tc.maxSteps
	if limit > 0 && limit < len(resolved) {
		limit = len(resolved)
	}

	for i := 0; i < len(resolved); {
		step := resolved[i]

		logger.Info(step.String(), "index", step.Index)
		emit(ProgressEvent{Type: EventStepStart, Step: step, Total: len(resolved)})

		start := time.Now()
		outcome := executeStep(ctx, step, cmds, state)
		executed++

		next, jumped := state.TakeJump()
		if !jumped {
			next = i + 1
		}

		// The step that used up the limit carries the failure; the row
		// that would have run next is not recorded.
		if limit > 0 && executed >= limit && outcome.Continuable() && next < len(resolved) {
			logger.Warn("step limit reached", "limit", limit, "index", step.Index)
			outcome = outcome.Compose(steps.Unexpected(fmt.Errorf("%w: %d steps executed", ErrStepLimit, executed)))
		}

		result := StepResult{
			Step:     step,
			Outcome:  outcome,
			Duration: time.Since(start),
		}
		stepResults = append(stepResults, result)

		if cause := outcome.Cause(); cause != nil {
			logger.Warn("step did not succeed", "index", step.Index, "status", result.Status(), "error", cause)
		}
		emit(ProgressEvent{Type: EventStepComplete, Step: step, Result: &result, Total: len(resolved)})

		if !outcome.Continuable() {
			break
		}
		i = next
	}

	return stepResults
}

// executeStep runs one step, turning a panic into an unexpected failure.
func executeStep(ctx context.Context, step *ResolvedStep, cmds steps.Commands, state *steps.TestState) (outcome steps.Decorator) {
	defer func() {
		if r := recover(); r != nil {
			outcome = steps.Unexpected(fmt.Errorf("step %s panicked: %v", step, r))
		}
	}()

	return step.Execute(ctx, cmds, state)
}
