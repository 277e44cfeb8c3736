package commands

import (
	"fmt"
	"regexp"
	"strings"
)

// matchPattern matches actual against a row pattern. Supported prefixes are
// glob: (the default), regexp:, regexpi: and exact:. Globs and exact
// patterns match the whole value; regexps may match anywhere.
func matchPattern(pattern, actual string) (bool, error) {
	switch {
	case strings.HasPrefix(pattern, "exact:"):
		return actual == strings.TrimPrefix(pattern, "exact:"), nil

	case strings.HasPrefix(pattern, "regexpi:"):
		rx, err := regexp.Compile("(?i)" + strings.TrimPrefix(pattern, "regexpi:"))
		if err != nil {
			return false, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		return rx.MatchString(actual), nil

	case strings.HasPrefix(pattern, "regexp:"):
		rx, err := regexp.Compile(strings.TrimPrefix(pattern, "regexp:"))
		if err != nil {
			return false, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		return rx.MatchString(actual), nil

	default:
		rx, err := globToRegexp(strings.TrimPrefix(pattern, "glob:"))
		if err != nil {
			return false, fmt.Errorf("invalid pattern '%s': %w", pattern, err)
		}
		return rx.MatchString(actual), nil
	}
}

// globToRegexp turns * and ? into their regexp equivalents and quotes
// everything else. Matching spans newlines.
func globToRegexp(glob string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString(`(?s)^`)
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString(`$`)
	return regexp.Compile(b.String())
}

// containsPattern reports whether pattern matches some part of text.
func containsPattern(pattern, text string) (bool, error) {
	switch {
	case strings.HasPrefix(pattern, "exact:"):
		return strings.Contains(text, strings.TrimPrefix(pattern, "exact:")), nil
	case strings.HasPrefix(pattern, "regexp:"), strings.HasPrefix(pattern, "regexpi:"):
		return matchPattern(pattern, text)
	default:
		return matchPattern("*"+strings.TrimPrefix(pattern, "glob:")+"*", text)
	}
}
