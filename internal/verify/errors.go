package verify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xkilldash9x/uiverify/internal/locator"
)

var (
	// ErrLaunch means no session could be acquired. Fatal before navigation.
	ErrLaunch = errors.New("launch failure")
	// ErrNavigation means the target did not load in time. Fatal before interaction.
	ErrNavigation = errors.New("navigation failure")
	// ErrStepFailed is wrapped by every StepError.
	ErrStepFailed = errors.New("step failure")
	// ErrInvalidScenario is returned for a scenario that cannot be planned.
	ErrInvalidScenario = errors.New("invalid scenario")
	// ErrFault is the cause recorded for a step that panicked.
	ErrFault = errors.New("fault during step")
)

// Severity says whether a step failure stops the remaining interaction steps.
type Severity string

const (
	SeverityHard Severity = "hard"
	SeveritySoft Severity = "soft"
)

// StepError carries the context needed to diagnose a failed step.
type StepError struct {
	Index    int
	Kind     Kind
	Locator  locator.Locator
	Timeout  time.Duration
	Severity Severity
	Err      error
}

func (e *StepError) Error() string {
	target := ""
	if !e.Locator.IsZero() {
		target = " " + e.Locator.String()
	}
	if e.Timeout > 0 {
		return fmt.Sprintf("%s failure in step %d (%s%s, timeout %v): %v", e.Severity, e.Index, e.Kind, target, e.Timeout, e.Err)
	}
	return fmt.Sprintf("%s failure in step %d (%s%s): %v", e.Severity, e.Index, e.Kind, target, e.Err)
}

// Unwrap exposes both ErrStepFailed and the underlying cause to errors.Is.
func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}

// Hard reports whether the failure stops remaining interaction steps.
func (e *StepError) Hard() bool {
	return e.Severity == SeverityHard
}

// IsTimeout reports whether err stems from a bounded wait running out.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// IsHard reports whether err is a hard StepError.
func IsHard(err error) bool {
	var se *StepError
	return errors.As(err, &se) && se.Hard()
}
