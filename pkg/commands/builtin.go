// Package commands provides the built-in command vocabulary of the
// interpreter: page actions, accessor checks and simple control flow.
package commands

import (
	"fmt"
	"time"

	"github.com/htmlrunner/htmlrunner/pkg/steps"
)

type Options struct {
	// VerifyContinues is the continuation property of verify* steps.
	VerifyContinues bool
	// PageLoadTimeout bounds open, waitForPageToLoad and the AndWait
	// variants.
	PageLoadTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		VerifyContinues: true,
		PageLoadTimeout: steps.DefaultPageLoadTimeout,
	}
}

// Builtins returns the built-in commands as a registry source.
func Builtins(opts Options) steps.Source {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = steps.DefaultPageLoadTimeout
	}

	return steps.SourceFunc(func() map[string]steps.Factory {
		factories := map[string]steps.Factory{
			"open":              newOpenFactory(opts.PageLoadTimeout),
			"waitForPageToLoad": newWaitForPageFactory(opts.PageLoadTimeout),
			"pause":             newPauseFactory(),
			"echo":              newEchoFactory(),
			"store":             newStoreFactory(),
			"label":             newLabelFactory(),
			"gotoLabel":         newGotoLabelFactory(),
			"gotoIf":            newGotoIfFactory(),
			"stop":              newStopFactory(),
		}

		for name, do := range pageActions {
			factories[name] = newActionFactory(name, do)
			factories[name+"AndWait"] = newAndWaitFactory(factories[name], opts.PageLoadTimeout)
		}

		addAccessorFactories(factories, opts)

		return factories
	})
}

// NewRegistry builds a registry holding the built-ins and any extra
// sources.
func NewRegistry(opts Options, extra ...steps.Source) (*steps.Registry, error) {
	registry, err := steps.NewRegistry(append([]steps.Source{Builtins(opts)}, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to build command registry: %w", err)
	}
	return registry, nil
}
