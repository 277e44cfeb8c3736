package steps

import (
	"errors"
	"fmt"
)

// Severity orders failure causes. Composition keeps the highest one.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityVerification
	SeverityAssertion
	SeverityUnexpected
)

func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "none"
	case SeverityVerification:
		return "verification"
	case SeverityAssertion:
		return "assertion"
	case SeverityUnexpected:
		return "unexpected"
	default:
		return "unknown"
	}
}

// SeverityOf classifies a cause.
func SeverityOf(cause error) Severity {
	if cause == nil {
		return SeverityNone
	}

	var assertErr *AssertionError
	if errors.As(cause, &assertErr) {
		return SeverityAssertion
	}

	var verifyErr *VerificationError
	if errors.As(cause, &verifyErr) {
		return SeverityVerification
	}

	return SeverityUnexpected
}

// Decorator is the outcome of executing one step: the failure cause, if
// any, and whether the test may proceed to the next step. The zero value
// is not continuable; use Continue for a plain success.
type Decorator struct {
	cause       error
	continuable bool
}

// Continue is a successful outcome that lets the test proceed.
func Continue() Decorator {
	return Decorator{continuable: true}
}

// Stop ends the test without recording a failure.
func Stop() Decorator {
	return Decorator{}
}

// AssertionFailed records a domain failure that always ends the test.
func AssertionFailed(format string, args ...any) Decorator {
	return Decorator{cause: &AssertionError{Message: fmt.Sprintf(format, args...)}}
}

// VerificationFailed records a domain failure. continueTest is the
// verifying step's own continuation property.
func VerificationFailed(continueTest bool, format string, args ...any) Decorator {
	return Decorator{
		cause:       &VerificationError{Message: fmt.Sprintf(format, args...)},
		continuable: continueTest,
	}
}

// Unexpected records a fault that was not anticipated by the test. It is
// never continuable.
func Unexpected(err error) Decorator {
	if err == nil {
		err = errors.New("unexpected failure")
	}
	return Decorator{cause: err}
}

func (d Decorator) Cause() error {
	return d.cause
}

// Continuable reports whether the interpreter may execute the next step.
// Unexpected causes are never continuable, whatever the step asked for.
func (d Decorator) Continuable() bool {
	return d.continuable && SeverityOf(d.cause) != SeverityUnexpected
}

func (d Decorator) Severity() Severity {
	return SeverityOf(d.cause)
}

// Compose combines d with other. The result carries the more severe cause
// (d wins ties) and is continuable only if both are.
func (d Decorator) Compose(other Decorator) Decorator {
	out := Decorator{
		cause:       d.cause,
		continuable: d.Continuable() && other.Continuable(),
	}
	if SeverityOf(other.cause) > SeverityOf(d.cause) {
		out.cause = other.cause
	}
	return out
}

func (d Decorator) String() string {
	if d.cause == nil {
		return fmt.Sprintf("ok (continue=%t)", d.Continuable())
	}
	return fmt.Sprintf("%s: %v (continue=%t)", d.Severity(), d.cause, d.Continuable())
}
