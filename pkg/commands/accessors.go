package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/htmlrunner/htmlrunner/pkg/steps"
)

// accessor reads a value from the page. Every accessor Foo generates
// assertFoo, assertNotFoo, verifyFoo, verifyNotFoo and storeFoo.
type accessor struct {
	name string
	// target is true when the locator column names what to read. Accessors
	// without a target take their pattern or variable name from the value
	// column, falling back to the locator column.
	target bool
	// get returns a string to match against a pattern.
	get func(ctx context.Context, cmds steps.Commands, target string) (string, error)
	// check answers a yes/no question. Exactly one of get and check is set.
	check func(ctx context.Context, cmds steps.Commands, target string) (bool, error)
}

var accessors = []accessor{
	{
		name: "Title",
		get: func(ctx context.Context, cmds steps.Commands, _ string) (string, error) {
			return cmds.Title(ctx)
		},
	},
	{
		name:   "Text",
		target: true,
		get: func(ctx context.Context, cmds steps.Commands, locator string) (string, error) {
			return cmds.Text(ctx, locator)
		},
	},
	{
		name:   "Value",
		target: true,
		get: func(ctx context.Context, cmds steps.Commands, locator string) (string, error) {
			return cmds.Value(ctx, locator)
		},
	},
	{
		name:   "Eval",
		target: true,
		get: func(ctx context.Context, cmds steps.Commands, script string) (string, error) {
			return cmds.Eval(ctx, script)
		},
	},
	{
		name:   "ElementPresent",
		target: true,
		check: func(ctx context.Context, cmds steps.Commands, locator string) (bool, error) {
			return cmds.IsElementPresent(ctx, locator)
		},
	},
	{
		name:   "TextPresent",
		target: true,
		check: func(ctx context.Context, cmds steps.Commands, pattern string) (bool, error) {
			body, err := cmds.BodyText(ctx)
			if err != nil {
				return false, err
			}
			return containsPattern(pattern, body)
		},
	},
}

// failureFunc builds the decorator for a failed check.
type failureFunc func(format string, args ...any) steps.Decorator

// addAccessorFactories registers the five commands of every accessor.
func addAccessorFactories(factories map[string]steps.Factory, opts Options) {
	assertFailed := failureFunc(steps.AssertionFailed)
	verifyFailed := failureFunc(func(format string, args ...any) steps.Decorator {
		return steps.VerificationFailed(opts.VerifyContinues, format, args...)
	})

	for _, acc := range accessors {
		factories["assert"+acc.name] = acc.checkFactory(true, assertFailed)
		factories["assertNot"+acc.name] = acc.checkFactory(false, assertFailed)
		factories["verify"+acc.name] = acc.checkFactory(true, verifyFailed)
		factories["verifyNot"+acc.name] = acc.checkFactory(false, verifyFailed)
		factories["store"+acc.name] = acc.storeFactory()
	}
}

// split returns the target and the argument (pattern or variable name) of
// a row.
func (a accessor) split(locator, value string) (target, arg string) {
	if a.target || a.check != nil {
		return locator, value
	}
	if value != "" {
		return "", value
	}
	return "", locator
}

func (a accessor) checkFactory(want bool, fail failureFunc) steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		target, pattern := a.split(locator, value)
		if a.target && target == "" {
			return nil, fmt.Errorf("%s requires a locator", a.name)
		}

		if a.check != nil {
			return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
				expanded := state.Expand(target)
				ok, err := a.check(ctx, cmds, expanded)
				if err != nil {
					return steps.Unexpected(fmt.Errorf("%s '%s': %w", a.name, expanded, err))
				}
				if ok != want {
					return fail("%s '%s' was %t, expected %t", a.name, expanded, ok, want)
				}
				return steps.Continue()
			}), nil
		}

		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			expanded := state.Expand(target)
			actual, err := a.get(ctx, cmds, expanded)
			if err != nil {
				return steps.Unexpected(fmt.Errorf("%s '%s': %w", a.name, expanded, err))
			}
			expected := state.Expand(pattern)
			matched, err := matchPattern(expected, actual)
			if err != nil {
				return steps.Unexpected(err)
			}
			if matched != want {
				if want {
					return fail("Actual value '%s' did not match '%s'", actual, expected)
				}
				return fail("Actual value '%s' did match '%s'", actual, expected)
			}
			return steps.Continue()
		}), nil
	}
}

func (a accessor) storeFactory() steps.Factory {
	return func(locator, value string) (steps.Step, error) {
		target, name := a.split(locator, value)
		if name == "" {
			return nil, fmt.Errorf("store%s requires a variable name", a.name)
		}
		if a.target && target == "" {
			return nil, fmt.Errorf("store%s requires a locator", a.name)
		}

		return steps.StepFunc(func(ctx context.Context, cmds steps.Commands, state *steps.TestState) steps.Decorator {
			expanded := state.Expand(target)
			var stored string
			if a.check != nil {
				ok, err := a.check(ctx, cmds, expanded)
				if err != nil {
					return steps.Unexpected(fmt.Errorf("%s '%s': %w", a.name, expanded, err))
				}
				stored = strconv.FormatBool(ok)
			} else {
				actual, err := a.get(ctx, cmds, expanded)
				if err != nil {
					return steps.Unexpected(fmt.Errorf("%s '%s': %w", a.name, expanded, err))
				}
				stored = actual
			}
			state.Store(name, stored)
			return steps.Continue()
		}), nil
	}
}
