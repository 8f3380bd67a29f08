// File: internal/verify/types.go
package verify

import (
	"fmt"
	"time"

	"github.com/xkilldash9x/uiverify/internal/locator"
)

// Kind is the type of work a Step performs.
type Kind string

const (
	KindNavigate Kind = "navigate"
	KindWait     Kind = "wait"
	KindFill     Kind = "fill"
	KindClick    Kind = "click"
	KindSelect   Kind = "select"
	KindAssert   Kind = "assert"
	KindCapture  Kind = "capture"
)

// Outcome is the recorded result of one Step.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeSoftFail Outcome = "soft-fail"
	OutcomeHardFail Outcome = "hard-fail"
	// OutcomeSkipped marks steps bypassed after a hard failure or an abort.
	OutcomeSkipped Outcome = "skipped"
)

// Policy decides whether a failed wait or assertion stops the run.
type Policy string

const (
	PolicyRequired Policy = "required"
	PolicyOptional Policy = "optional"
)

// Assertion selects the check an assert step performs.
type Assertion string

const (
	AssertVisible       Assertion = "visible"
	AssertHidden        Assertion = "hidden"
	AssertValueContains Assertion = "value_contains"
	AssertTitleContains Assertion = "title_contains"
)

// Verdict is the overall result of a run.
type Verdict string

const (
	VerdictPassed  Verdict = "passed"
	VerdictFailed  Verdict = "failed"
	VerdictAborted Verdict = "aborted"
)

// Exit codes for the CLI, one per verdict.
const (
	ExitPassed  = 0
	ExitFailed  = 1
	ExitAborted = 2
	// ExitUsage is used by the CLI for config and scenario errors; the runner never returns it.
	ExitUsage = 3
)

// ExitCode maps a verdict to a process exit code.
func (v Verdict) ExitCode() int {
	switch v {
	case VerdictPassed:
		return ExitPassed
	case VerdictFailed:
		return ExitFailed
	}
	return ExitAborted
}

// Phase is a state of the run state machine.
type Phase string

const (
	PhaseInit            Phase = "init"
	PhaseSessionAcquired Phase = "session_acquired"
	PhaseNavigated       Phase = "navigated"
	PhaseInteracting     Phase = "interacting"
	PhaseCaptured        Phase = "captured"
	PhaseReleased        Phase = "released"
	PhasePassed          Phase = "passed"
	PhaseFailed          Phase = "failed"
	PhaseAborted         Phase = "aborted"
)

// Retry bounds how often a readiness wait is attempted.
type Retry struct {
	Attempts int           `json:"attempts,omitempty"`
	Interval time.Duration `json:"interval,omitempty"`
}

// Step is one ordered unit of work. Steps are values and are never mutated
// by the runner; only their results are recorded.
type Step struct {
	Name    string          `json:"name,omitempty"`
	Kind    Kind            `json:"kind"`
	Locator locator.Locator `json:"locator,omitempty"`
	// Value is the URL for navigate, the text for fill, the option for
	// select, the expected substring for value/title assertions and the
	// output path for capture.
	Value     string        `json:"value,omitempty"`
	State     locator.State `json:"state,omitempty"`
	Assertion Assertion     `json:"assertion,omitempty"`
	Timeout   time.Duration `json:"timeout,omitempty"`
	Policy    Policy        `json:"policy,omitempty"`
	// Settle is slept after a successful step to let asynchronous UI work finish.
	Settle time.Duration `json:"settle,omitempty"`
	// Message replaces the default log line when the step fails.
	Message string `json:"message,omitempty"`
	Retry   Retry  `json:"retry,omitempty"`
}

// IsSettle reports whether the step is a plain delay: a wait without a locator.
func (s Step) IsSettle() bool {
	return s.Kind == KindWait && s.Locator.IsZero()
}

// EffectivePolicy returns the explicit policy or the default for the kind.
// Assertions default to optional; everything else is required.
func (s Step) EffectivePolicy() Policy {
	if s.Policy != "" {
		return s.Policy
	}
	if s.Kind == KindAssert {
		return PolicyOptional
	}
	return PolicyRequired
}

// Describe renders a short human label for logs.
func (s Step) Describe() string {
	if s.Name != "" {
		return s.Name
	}
	switch {
	case s.Kind == KindNavigate:
		return "navigate " + s.Value
	case s.IsSettle():
		return fmt.Sprintf("settle %v", s.Settle)
	case s.Kind == KindAssert && s.Assertion == AssertTitleContains:
		return fmt.Sprintf("assert title contains %q", s.Value)
	case s.Kind == KindAssert:
		return fmt.Sprintf("assert %s %s", s.Assertion, s.Locator)
	case s.Kind == KindCapture:
		return "capture " + s.Value
	}
	return fmt.Sprintf("%s %s", s.Kind, s.Locator)
}

// Scenario is an ordered list of steps against one target page.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// URL is used by a navigate step with an empty Value.
	URL string `json:"url,omitempty"`
	// Screenshot is used by a capture step with an empty Value.
	Screenshot string `json:"screenshot,omitempty"`
	Steps      []Step `json:"steps"`
}

// StepResult is the outcome of one executed (or skipped) step.
type StepResult struct {
	Index     int           `json:"index"`
	Step      Step          `json:"step"`
	Outcome   Outcome       `json:"outcome"`
	Message   string        `json:"message,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Err       error         `json:"-"`
}

// PhaseTransition records when the run entered a phase.
type PhaseTransition struct {
	Phase Phase     `json:"phase"`
	At    time.Time `json:"at"`
}

// Report is built incrementally while a run executes and is read-only after Run returns.
type Report struct {
	RunID      string            `json:"run_id"`
	Scenario   string            `json:"scenario"`
	Target     string            `json:"target"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Phases     []PhaseTransition `json:"phases"`
	Results    []StepResult      `json:"results"`
	// Artifact is the screenshot path; empty when no capture happened.
	Artifact string   `json:"artifact,omitempty"`
	Verdict  Verdict  `json:"verdict"`
	Reasons  []string `json:"reasons,omitempty"`
	ExitCode int      `json:"exit_code"`
}

// Outcomes lists the step outcomes in order. Two runs against an unchanged
// target compare equal on this.
func (r *Report) Outcomes() []Outcome {
	out := make([]Outcome, len(r.Results))
	for i, res := range r.Results {
		out[i] = res.Outcome
	}
	return out
}

// Count returns how many steps ended with outcome o.
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Reached reports whether the run entered phase p.
func (r *Report) Reached(p Phase) bool {
	for _, t := range r.Phases {
		if t.Phase == p {
			return true
		}
	}
	return false
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
