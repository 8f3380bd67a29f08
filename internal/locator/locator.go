// File: internal/locator/locator.go
// Package locator describes how a UI element is addressed on the page under test.
//
// Three strategies are supported, mirroring how a person would point at an
// element: a CSS selector, an accessible role plus its accessible name, or the
// visible text the element carries. Locators are plain values; resolving them
// against a live document is the job of the browser implementation.
package locator

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Strategy selects how a Locator is resolved.
type Strategy string

const (
	StrategyCSS  Strategy = "css"
	StrategyRole Strategy = "role"
	StrategyText Strategy = "text"
)

// State is the condition a readiness wait blocks on.
type State string

const (
	// StateAttached is satisfied once a matching element is present in the document.
	StateAttached State = "attached"
	// StateVisible additionally requires a non-empty, rendered box.
	StateVisible State = "visible"
	// StateHidden is satisfied when no matching element is visible.
	StateHidden State = "hidden"
)

// ParseState converts a textual state. An empty string maps to StateVisible.
func ParseState(s string) (State, error) {
	switch State(strings.ToLower(strings.TrimSpace(s))) {
	case "", StateVisible:
		return StateVisible, nil
	case StateAttached, "present":
		return StateAttached, nil
	case StateHidden:
		return StateHidden, nil
	}
	return "", fmt.Errorf("unknown element state %q", s)
}

var (
	ErrEmpty           = errors.New("locator is empty")
	ErrUnknownStrategy = errors.New("unknown locator strategy")
	ErrMalformed       = errors.New("malformed locator")
)

var roleToken = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Locator identifies a UI element. The zero value addresses nothing.
type Locator struct {
	Strategy Strategy `json:"strategy"`
	// Selector is used by StrategyCSS.
	Selector string `json:"selector,omitempty"`
	// Role and Name are used by StrategyRole. An empty Name matches any element with the role.
	Role string `json:"role,omitempty"`
	Name string `json:"name,omitempty"`
	// Text is used by StrategyText.
	Text string `json:"text,omitempty"`
	// Exact switches Name/Text matching from case-insensitive substring to exact equality.
	Exact bool `json:"exact,omitempty"`
}

// CSS addresses the first element matching a CSS selector.
func CSS(selector string) Locator {
	return Locator{Strategy: StrategyCSS, Selector: selector}
}

// Role addresses the first element with the given ARIA role whose accessible
// name contains name.
func Role(role, name string) Locator {
	return Locator{Strategy: StrategyRole, Role: strings.ToLower(role), Name: name}
}

// Text addresses the innermost element whose text contains text.
func Text(text string) Locator {
	return Locator{Strategy: StrategyText, Text: text}
}

// WithExact returns a copy that requires an exact name/text match.
func (l Locator) WithExact() Locator {
	l.Exact = true
	return l
}

// IsZero reports whether the locator addresses nothing.
func (l Locator) IsZero() bool {
	return l == Locator{}
}

// Validate checks that the fields required by the strategy are set.
func (l Locator) Validate() error {
	switch l.Strategy {
	case StrategyCSS:
		if strings.TrimSpace(l.Selector) == "" {
			return fmt.Errorf("%w: css selector is empty", ErrMalformed)
		}
	case StrategyRole:
		if !roleToken.MatchString(l.Role) {
			return fmt.Errorf("%w: invalid role %q", ErrMalformed, l.Role)
		}
	case StrategyText:
		if l.Text == "" {
			return fmt.Errorf("%w: text is empty", ErrMalformed)
		}
	case "":
		return ErrEmpty
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStrategy, l.Strategy)
	}
	return nil
}

// String renders the locator in the same grammar Parse accepts.
func (l Locator) String() string {
	switch l.Strategy {
	case StrategyCSS:
		return "css=" + l.Selector
	case StrategyRole:
		if l.Name == "" {
			return "role=" + l.Role
		}
		return "role=" + l.Role + "[name=" + quoteIf(l.Name, l.Exact) + "]"
	case StrategyText:
		return "text=" + quoteIf(l.Text, l.Exact)
	}
	return ""
}

// MarshalText implements encoding.TextMarshaler so locators read naturally in reports.
func (l Locator) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. An empty input yields the zero Locator.
func (l *Locator) UnmarshalText(b []byte) error {
	if strings.TrimSpace(string(b)) == "" {
		*l = Locator{}
		return nil
	}
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Parse reads a locator expression:
//
//	css=<selector>              CSS selector
//	role=<role>[name=<name>]    accessible role, optional accessible name
//	text=<text>                 visible text
//	<selector>                  bare input is treated as CSS
//
// A double-quoted name or text requests an exact match; unquoted values match
// as case-insensitive substrings.
func Parse(s string) (Locator, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Locator{}, ErrEmpty
	}

	prefix, rest, found := strings.Cut(s, "=")
	if !found || strings.ContainsAny(prefix, " []#.:>") {
		return finish(CSS(s))
	}

	rest = strings.TrimSpace(rest)
	switch Strategy(strings.ToLower(prefix)) {
	case StrategyCSS:
		return finish(CSS(rest))
	case StrategyText:
		text, exact := unquote(rest)
		l := Text(text)
		l.Exact = exact
		return finish(l)
	case StrategyRole:
		return parseRole(rest)
	}
	// Attribute selectors such as input[type=text] never reach here because
	// of the '[' check above; anything else with an unknown prefix is an error.
	return Locator{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, prefix)
}

func parseRole(rest string) (Locator, error) {
	role, attrs, hasAttrs := strings.Cut(rest, "[")
	l := Role(strings.TrimSpace(role), "")
	if hasAttrs {
		if !strings.HasSuffix(attrs, "]") {
			return Locator{}, fmt.Errorf("%w: unterminated attribute in %q", ErrMalformed, rest)
		}
		attrs = strings.TrimSuffix(attrs, "]")
		key, value, ok := strings.Cut(attrs, "=")
		if !ok || strings.TrimSpace(key) != "name" {
			return Locator{}, fmt.Errorf("%w: only [name=...] is supported, got %q", ErrMalformed, attrs)
		}
		name, exact := unquote(strings.TrimSpace(value))
		if name == "" {
			return Locator{}, fmt.Errorf("%w: empty accessible name", ErrMalformed)
		}
		l.Name = name
		l.Exact = exact
	}
	return finish(l)
}

func finish(l Locator) (Locator, error) {
	if err := l.Validate(); err != nil {
		return Locator{}, err
	}
	return l, nil
}

// unquote strips a surrounding pair of double quotes. The bool reports
// whether the value was quoted, which callers treat as an exact match.
func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		if v, err := strconv.Unquote(s); err == nil {
			return v, true
		}
	}
	return s, false
}

func quoteIf(s string, quote bool) string {
	if quote {
		return strconv.Quote(s)
	}
	return s
}
