package steps

import (
	"fmt"
	"maps"
	"regexp"
)

var variablePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_.-]*)\}`)

// TestState is the mutable context of one test run. It is created fresh by
// the interpreter for every run and only touched by the steps of that run.
type TestState struct {
	vars   map[string]string
	labels map[string]int
	jump   int
	jumped bool
}

func NewTestState() *TestState {
	return &TestState{
		vars:   make(map[string]string),
		labels: make(map[string]int),
	}
}

func (s *TestState) Store(name, value string) {
	s.vars[name] = value
}

func (s *TestState) Get(name string) (string, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Vars returns a copy of the current variable bindings.
func (s *TestState) Vars() map[string]string {
	return maps.Clone(s.vars)
}

// Expand replaces ${name} references with stored values. Unknown names are
// left as written.
func (s *TestState) Expand(text string) string {
	if len(s.vars) == 0 {
		return text
	}
	return variablePattern.ReplaceAllStringFunc(text, func(ref string) string {
		name := variablePattern.FindStringSubmatch(ref)[1]
		if v, ok := s.vars[name]; ok {
			return v
		}
		return ref
	})
}

// Unresolved returns the names of ${name} references in text that have no
// stored value, in order of appearance.
func (s *TestState) Unresolved(text string) []string {
	var names []string
	for _, match := range variablePattern.FindAllStringSubmatch(text, -1) {
		if _, ok := s.vars[match[1]]; !ok {
			names = append(names, match[1])
		}
	}
	return names
}

// DefineLabel records the step index a label points at.
func (s *TestState) DefineLabel(name string, index int) error {
	if prev, ok := s.labels[name]; ok {
		return fmt.Errorf("%w '%s' at steps %d and %d", ErrDuplicateLabel, name, prev, index)
	}
	s.labels[name] = index
	return nil
}

// JumpTo makes the step at the named label the next one to execute.
func (s *TestState) JumpTo(label string) error {
	index, ok := s.labels[label]
	if !ok {
		return fmt.Errorf("%w '%s'", ErrUnknownLabel, label)
	}
	s.jump = index
	s.jumped = true
	return nil
}

// TakeJump returns and clears the pending jump target, if any.
func (s *TestState) TakeJump() (int, bool) {
	if !s.jumped {
		return 0, false
	}
	s.jumped = false
	return s.jump, true
}
