// File: internal/verify/plan.go
package verify

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"

	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/locator"
)

// DefaultScreenshot is used when neither the scenario nor the options name one.
const DefaultScreenshot = "uiverify.png"

// Options are the run-wide settings the engine needs from configuration.
type Options struct {
	BaseURL  string
	Timeouts config.TimeoutConfig
	Retry    Retry
	// Screenshot overrides the scenario's capture path when set.
	Screenshot string
	// OutputDir prefixes relative capture paths.
	OutputDir string
}

// OptionsFromConfig extracts engine options from the application config.
func OptionsFromConfig(cfg config.Interface) Options {
	return Options{
		BaseURL:    cfg.Target().BaseURL,
		Timeouts:   cfg.Timeouts(),
		Retry:      Retry{Attempts: cfg.Retry().Attempts, Interval: cfg.Retry().Interval},
		Screenshot: cfg.Output().Screenshot,
		OutputDir:  cfg.Output().Dir,
	}
}

// timeoutFor returns the step's own timeout or the default for its kind.
func (o Options) timeoutFor(s Step) time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	switch s.Kind {
	case KindNavigate:
		return o.Timeouts.Navigation
	case KindWait:
		return o.Timeouts.Readiness
	case KindFill, KindClick, KindSelect:
		return o.Timeouts.Action
	case KindAssert:
		return o.Timeouts.Assertion
	case KindCapture:
		return o.Timeouts.Capture
	}
	return 0
}

// Validate checks the structural rules of a scenario: it starts with its
// only navigate step, capture may appear only last, and every step carries
// what its kind needs.
func (sc Scenario) Validate() error {
	if len(sc.Steps) == 0 {
		return fmt.Errorf("%w: %q has no steps", ErrInvalidScenario, sc.Name)
	}
	if sc.Steps[0].Kind != KindNavigate {
		return fmt.Errorf("%w: first step must be %s, got %s", ErrInvalidScenario, KindNavigate, sc.Steps[0].Kind)
	}
	for i, s := range sc.Steps {
		if i > 0 && s.Kind == KindNavigate {
			return fmt.Errorf("%w: step %d: only one %s step is allowed", ErrInvalidScenario, i, KindNavigate)
		}
		if s.Kind == KindCapture && i != len(sc.Steps)-1 {
			return fmt.Errorf("%w: step %d: %s must be the last step", ErrInvalidScenario, i, KindCapture)
		}
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrInvalidScenario, i, s.Kind, err)
		}
	}
	return nil
}

func (s Step) validate() error {
	needLocator := func() error {
		if s.Locator.IsZero() {
			return fmt.Errorf("a locator is required")
		}
		return s.Locator.Validate()
	}
	if s.Timeout < 0 || s.Settle < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	switch s.Policy {
	case "", PolicyRequired, PolicyOptional:
	default:
		return fmt.Errorf("unknown policy %q", s.Policy)
	}

	switch s.Kind {
	case KindNavigate:
		return nil
	case KindCapture:
		if s.Settle > 0 {
			return fmt.Errorf("settle is not allowed on a capture step")
		}
		return nil
	case KindWait:
		if s.Locator.IsZero() {
			return nil
		}
		if _, err := locator.ParseState(string(s.State)); err != nil {
			return err
		}
		return s.Locator.Validate()
	case KindFill, KindClick:
		return needLocator()
	case KindSelect:
		if s.Value == "" {
			return fmt.Errorf("an option value is required")
		}
		return needLocator()
	case KindAssert:
		switch s.Assertion {
		case AssertVisible, AssertHidden:
			return needLocator()
		case AssertValueContains:
			if s.Value == "" {
				return fmt.Errorf("an expected substring is required")
			}
			return needLocator()
		case AssertTitleContains:
			if s.Value == "" {
				return fmt.Errorf("an expected substring is required")
			}
			return nil
		}
		return fmt.Errorf("unknown assertion %q", s.Assertion)
	}
	return fmt.Errorf("unknown step kind %q", s.Kind)
}

// Plan validates sc and returns the steps the runner executes: the
// navigate URL resolved against the base URL, a capture step appended when
// missing, and the capture path resolved.
func Plan(sc Scenario, opts Options) ([]Step, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	steps := make([]Step, len(sc.Steps), len(sc.Steps)+1)
	copy(steps, sc.Steps)

	target, err := resolveURL(opts.BaseURL, firstNonEmpty(steps[0].Value, sc.URL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	steps[0].Value = target

	if steps[len(steps)-1].Kind != KindCapture {
		steps = append(steps, Step{Kind: KindCapture})
	}
	last := &steps[len(steps)-1]
	last.Value = firstNonEmpty(last.Value, opts.Screenshot, sc.Screenshot, DefaultScreenshot)
	if opts.OutputDir != "" && !filepath.IsAbs(last.Value) && last.Value[0] != '~' {
		last.Value = filepath.Join(opts.OutputDir, last.Value)
	}
	return steps, nil
}

func resolveURL(base, ref string) (string, error) {
	if ref == "" {
		if base == "" {
			return "", fmt.Errorf("no target URL: set target.base_url or the scenario URL")
		}
		return base, nil
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", ref, err)
	}
	if r.IsAbs() {
		return r.String(), nil
	}
	if base == "" {
		return "", fmt.Errorf("relative URL %q needs target.base_url", ref)
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	return b.ResolveReference(r).String(), nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
