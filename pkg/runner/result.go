package runner

import (
	"context"
	"time"

	"github.com/htmlrunner/htmlrunner/pkg/steps"
)

// Status is the classification of one step result.
type Status string

const (
	// StatusSuccessful means the step recorded no cause.
	StatusSuccessful Status = "successful"
	// StatusError means the test itself detected a violated condition.
	StatusError Status = "error"
	// StatusFailure means something broke that the test did not anticipate.
	StatusFailure Status = "failure"
)

func (s Status) String() string {
	return string(s)
}

// ResolvedStep is a row bound to the step built for it.
type ResolvedStep struct {
	Row
	Index int

	step steps.Step
}

func (s *ResolvedStep) Execute(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
	return s.step.Execute(ctx, cmds, state)
}

// StepResult is the recorded outcome of one executed step.
type StepResult struct {
	Step     *ResolvedStep
	Outcome  steps.Decorator
	Duration time.Duration
}

func (r StepResult) Cause() error {
	return r.Outcome.Cause()
}

func (r StepResult) Continuable() bool {
	return r.Outcome.Continuable()
}

func (r StepResult) Status() Status {
	switch {
	case r.IsSuccessful():
		return StatusSuccessful
	case r.IsError():
		return StatusError
	default:
		return StatusFailure
	}
}

func (r StepResult) IsSuccessful() bool {
	return r.Outcome.Cause() == nil
}

func (r StepResult) IsError() bool {
	return steps.IsDomainFailure(r.Outcome.Cause())
}

func (r StepResult) IsFailure() bool {
	return !r.IsSuccessful() && !r.IsError()
}

// StepLog is the textual form the step was logged with.
func (r StepResult) StepLog() string {
	if r.Step == nil {
		return ""
	}
	return r.Step.String()
}
