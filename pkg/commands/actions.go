package commands

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/htmlrunner/htmlrunner/pkg/steps"
	"github.com/htmlrunner/htmlrunner/pkg/util"
)

// action performs a page interaction with already expanded arguments.
type action func(ctx context.Context, cmds steps.Commands, locator, value string) error

// pageActions change the page and therefore also get an AndWait variant.
var pageActions = map[string]action{
	"click": func(ctx context.Context, cmds steps.Commands, locator, _ string) error {
		return cmds.Click(ctx, locator)
	},
	"type": func(ctx context.Context, cmds steps.Commands, locator, value string) error {
		return cmds.Type(ctx, locator, value)
	},
}

type actionStep struct {
	name           string
	locator, value string
	do             action
}

var _ steps.Step = &actionStep{}

func (s *actionStep) Execute(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
	if err := s.do(ctx, cmds, state.Expand(s.locator), state.Expand(s.value)); err != nil {
		return steps.Unexpected(fmt.Errorf("%s failed: %w", s.name, err))
	}
	return steps.Continue()
}

func newActionFactory(name string, do action) steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		return &actionStep{name: name, locator: locator, value: value, do: do}, nil
	}
}

// andWaitStep runs a step and then waits for the page to load. Its outcome
// is the composition of both.
type andWaitStep struct {
	inner   steps.Step
	timeout time.Duration
}

func (s *andWaitStep) Execute(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
	outcome := s.inner.Execute(ctx, cmds, state)
	if !outcome.Continuable() {
		return outcome
	}
	return outcome.Compose(waitForPage(ctx, cmds, s.timeout))
}

func newAndWaitFactory(inner steps.Factory, timeout time.Duration) steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		step, err := inner(locator, value)
		if err != nil {
			return nil, err
		}
		return &andWaitStep{inner: step, timeout: timeout}, nil
	}
}

func waitForPage(ctx context.Context, cmds steps.Commands, timeout time.Duration) steps.Decorator {
	if err := cmds.WaitForPageToLoad(ctx, timeout); err != nil {
		return steps.Unexpected(fmt.Errorf("waiting for page to load: %w", err))
	}
	return steps.Continue()
}

func newOpenFactory(timeout time.Duration) steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		if locator == "" {
			return nil, fmt.Errorf("open requires a url")
		}
		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			if err := cmds.Open(ctx, state.Expand(locator)); err != nil {
				return steps.Unexpected(fmt.Errorf("open failed: %w", err))
			}
			return waitForPage(ctx, cmds, timeout)
		}), nil
	}
}

// newWaitForPageFactory reads an optional timeout in milliseconds.
func newWaitForPageFactory(defaultTimeout time.Duration) steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		timeout := defaultTimeout
		if locator != "" {
			ms, err := strconv.Atoi(locator)
			if err != nil {
				return nil, fmt.Errorf("waitForPageToLoad timeout must be milliseconds: %w", err)
			}
			timeout = time.Duration(ms) * time.Millisecond
		}
		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			return waitForPage(ctx, cmds, timeout)
		}), nil
	}
}

func newPauseFactory() steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		ms, err := strconv.Atoi(locator)
		if err != nil || ms < 0 {
			return nil, fmt.Errorf("pause requires a non-negative number of milliseconds, got '%s'", locator)
		}
		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
			defer timer.Stop()
			select {
			case <-timer.C:
				return steps.Continue()
			case <-ctx.Done():
				return steps.Unexpected(fmt.Errorf("pause interrupted: %w", ctx.Err()))
			}
		}), nil
	}
}

func newEchoFactory() steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			util.LoggerFrom(ctx).Info("echo", "text", state.Expand(locator))
			return steps.Continue()
		}), nil
	}
}

// newStoreFactory handles `store | text | name`.
func newStoreFactory() steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		if value == "" {
			return nil, fmt.Errorf("store requires a variable name")
		}
		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			state.Store(value, state.Expand(locator))
			return steps.Continue()
		}), nil
	}
}
