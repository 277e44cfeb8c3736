package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/htmlrunner/htmlrunner/pkg/steps"
)

type labelStep struct {
	name string
}

var _ steps.Labeled = &labelStep{}

func (s *labelStep) Label() string {
	return s.name
}

func (s *labelStep) Execute(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
	return steps.Continue()
}

func newLabelFactory() steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		if locator == "" {
			return nil, fmt.Errorf("label requires a name")
		}
		return &labelStep{name: locator}, nil
	}
}

// newGotoLabelFactory handles `gotoLabel | name`.
func newGotoLabelFactory() steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		if locator == "" {
			return nil, fmt.Errorf("gotoLabel requires a label")
		}
		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			if err := state.JumpTo(locator); err != nil {
				return steps.Unexpected(err)
			}
			return steps.Continue()
		}), nil
	}
}

// newGotoIfFactory handles `gotoIf | condition | name`. The condition is
// expanded first and is false when empty, "false" or "0". A reference to a
// variable that was never stored is a failure.
func newGotoIfFactory() steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		if value == "" {
			return nil, fmt.Errorf("gotoIf requires a label")
		}
		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			if missing := state.Unresolved(locator); len(missing) > 0 {
				return steps.Unexpected(fmt.Errorf("gotoIf condition '%s': %w '%s'", locator, steps.ErrUnknownVariable, missing[0]))
			}
			if !truthy(state.Expand(locator)) {
				return steps.Continue()
			}
			if err := state.JumpTo(value); err != nil {
				return steps.Unexpected(err)
			}
			return steps.Continue()
		}), nil
	}
}

func newStopFactory() steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			return steps.Stop()
		}), nil
	}
}

func truthy(condition string) bool {
	switch strings.ToLower(strings.TrimSpace(condition)) {
	case "", "false", "0":
		return false
	default:
		return true
	}
}
