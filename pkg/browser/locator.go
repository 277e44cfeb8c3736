package browser

import (
	"fmt"
	"strings"

	"github.com/chromedp/chromedp"
)

type Strategy int

const (
	ByQuery Strategy = iota
	BySearch
)

func (s Strategy) String() string {
	switch s {
	case BySearch:
		return "xpath"
	default:
		return "css"
	}
}

// Locator is a row locator translated to a chromedp selector.
type Locator struct {
	Selector string
	Strategy Strategy
}

// ParseLocator translates the locator syntax used in test tables:
//
//	id=foo         element with id foo
//	name=foo       element with name foo
//	css=div > a    CSS selector
//	xpath=//a      XPath expression
//	link=Sign in   anchor whose text is "Sign in"
//	//a[@href]     XPath expression
//	foo            element with id or name foo
func ParseLocator(raw string) (Locator, error) {
	if raw == "" {
		return Locator{}, fmt.Errorf("locator cannot be empty")
	}

	if strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "(//") {
		return Locator{Selector: raw, Strategy: BySearch}, nil
	}

	kind, arg, ok := strings.Cut(raw, "=")
	if !ok {
		return identifier(raw), nil
	}

	switch kind {
	case "id":
		return Locator{Selector: "#" + cssIdent(arg), Strategy: ByQuery}, nil
	case "name":
		return Locator{Selector: fmt.Sprintf("[name=%s]", cssString(arg)), Strategy: ByQuery}, nil
	case "css":
		return Locator{Selector: arg, Strategy: ByQuery}, nil
	case "xpath":
		return Locator{Selector: arg, Strategy: BySearch}, nil
	case "link":
		return Locator{
			Selector: fmt.Sprintf("//a[normalize-space(.)=%s]", xpathLiteral(strings.TrimSpace(arg))),
			Strategy: BySearch,
		}, nil
	case "identifier":
		return identifier(arg), nil
	default:
		// Not a known prefix, e.g. an id that contains '='.
		return identifier(raw), nil
	}
}

func identifier(value string) Locator {
	lit := xpathLiteral(value)
	return Locator{
		Selector: fmt.Sprintf("//*[@id=%s or @name=%s]", lit, lit),
		Strategy: BySearch,
	}
}

func (l Locator) queryOptions() []chromedp.QueryOption {
	switch l.Strategy {
	case BySearch:
		return []chromedp.QueryOption{chromedp.BySearch}
	default:
		return []chromedp.QueryOption{chromedp.ByQuery}
	}
}

func (l Locator) String() string {
	return l.Strategy.String() + "=" + l.Selector
}

// xpathLiteral quotes s as an XPath string literal. XPath 1.0 has no escape
// sequences, so strings holding both quote kinds are built with concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}

	parts := strings.Split(s, `"`)
	quoted := make([]string, 0, 2*len(parts)-1)
	for i, part := range parts {
		if i > 0 {
			quoted = append(quoted, `'"'`)
		}
		quoted = append(quoted, `"`+part+`"`)
	}
	return "concat(" + strings.Join(quoted, ", ") + ")"
}

func cssString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

// cssIdent escapes characters that are not valid in an unquoted CSS
// identifier.
func cssIdent(s string) string {
	var b strings.Builder
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r == '_', r == '-', r > 0x7f:
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				fmt.Fprintf(&b, `\%x `, r)
			} else {
				b.WriteRune(r)
			}
		default:
			b.WriteRune('\\')
			b.WriteRune(r)
		}
	}
	return b.String()
}
