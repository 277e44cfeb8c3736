package steps

import (
	"context"
	"time"
)

const (
	DefaultPageLoadTimeout = 30 * time.Second
)

// Step is the executable form of one command row.
type Step interface {
	Execute(ctx context.Context, cmds Commands, state *TestState) Decorator
}

// StepFunc adapts a function to the Step interface.
type StepFunc func(ctx context.Context, cmds Commands, state *TestState) Decorator

func (f StepFunc) Execute(ctx context.Context, cmds Commands, state *TestState) Decorator {
	return f(ctx, cmds, state)
}

// Labeled is implemented by steps that mark a jump target. The interpreter
// registers every label before execution starts.
type Labeled interface {
	Label() string
}

// Commands is the legacy command-set client steps act through. Locators
// use the row syntax (id=, name=, css=, xpath=, link=, or a bare
// identifier); implementations translate them.
type Commands interface {
	Open(ctx context.Context, url string) error
	Click(ctx context.Context, locator string) error
	Type(ctx context.Context, locator, text string) error
	WaitForPageToLoad(ctx context.Context, timeout time.Duration) error

	Title(ctx context.Context) (string, error)
	Text(ctx context.Context, locator string) (string, error)
	Value(ctx context.Context, locator string) (string, error)
	IsElementPresent(ctx context.Context, locator string) (bool, error)
	BodyText(ctx context.Context) (string, error)
	Eval(ctx context.Context, script string) (string, error)
}
