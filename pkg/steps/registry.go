package steps

import (
	"fmt"
	"sort"
)

// Factory builds a step from the locator and value columns of a row.
type Factory func(locator, value string) (Step, error)

// Source provides a set of commands to the registry.
type Source interface {
	Commands() map[string]Factory
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func() map[string]Factory

func (f SourceFunc) Commands() map[string]Factory {
	return f()
}

// Registry maps command names to factories. It is built once and never
// modified afterwards, so it is safe to share between runs.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry merges all sources. A command name provided more than once
// is an error.
func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{
		factories: make(map[string]Factory),
	}

	for _, src := range sources {
		for name, factory := range src.Commands() {
			if _, exists := r.factories[name]; exists {
				return nil, &DuplicateCommandError{Command: name}
			}
			if factory == nil {
				return nil, fmt.Errorf("command '%s' has a nil factory", name)
			}
			r.factories[name] = factory
		}
	}

	return r, nil
}

// Resolve builds the step for one row.
func (r *Registry) Resolve(command, locator, value string) (Step, error) {
	factory, ok := r.factories[command]
	if !ok {
		return nil, &UnknownCommandError{Command: command}
	}

	step, err := factory(locator, value)
	if err != nil {
		return nil, fmt.Errorf("failed to create step for command '%s': %w", command, err)
	}
	if step == nil {
		return nil, fmt.Errorf("factory for command '%s' returned no step", command)
	}

	return step, nil
}

func (r *Registry) Has(command string) bool {
	_, ok := r.factories[command]
	return ok
}

// Commands returns the registered command names, sorted.
func (r *Registry) Commands() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	return len(r.factories)
}
