// File: internal/verify/runner.go
// The runner drives one scenario through the run state machine:
//
//	init -> session_acquired -> navigated -> interacting -> captured -> released -> passed|failed
//
// Launch failure aborts from init; navigation failure aborts after
// session_acquired but still releases. Any other failure only downgrades the
// verdict: capture and release always happen once navigation succeeded.
package verify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/internal/browser"
)

// Runner executes scenarios. A Runner holds no per-run state and may be reused.
type Runner struct {
	sessions  *SessionController
	navigator *Navigator
	waiter    *Waiter
	driver    *Driver
	reporter  *Reporter
	opts      Options
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewRunner wires the five components together.
func NewRunner(launcher browser.Launcher, fs afero.Fs, opts Options, logger *zap.Logger) *Runner {
	return &Runner{
		sessions:  NewSessionController(launcher, opts.Timeouts.Release, logger),
		navigator: NewNavigator(logger),
		waiter:    NewWaiter(logger),
		driver:    NewDriver(opts.Timeouts.Action, logger),
		reporter:  NewReporter(fs, opts.Timeouts.Assertion, logger),
		opts:      opts,
		logger:    logger.Named("runner"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Run executes sc and returns its report. The error is non-nil only when the
// scenario cannot be planned; every runtime failure is reported in the
// Report instead.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Report, error) {
	steps, err := Plan(sc, r.opts)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		RunID:     r.newID(),
		Scenario:  sc.Name,
		Target:    steps[0].Value,
		StartedAt: r.now(),
		Results:   make([]StepResult, 0, len(steps)),
	}
	log := r.logger.With(zap.String("run_id", rep.RunID), zap.String("scenario", sc.Name))
	r.enter(rep, PhaseInit)
	log.Info("Run started.", zap.String("target", rep.Target), zap.Int("steps", len(steps)))

	// 1. Acquire. Nothing exists to release if this fails.
	sess, err := r.sessions.Acquire(ctx)
	if err != nil {
		log.Error("Could not acquire a browser session.", zap.Error(err))
		rep.Reasons = append(rep.Reasons, err.Error())
		return r.finish(rep, log, true), nil
	}
	r.enter(rep, PhaseSessionAcquired)

	// 2-4. Everything after acquisition runs under a deferred release.
	aborted := func() bool {
		defer func() {
			r.sessions.Release(ctx, sess)
			r.enter(rep, PhaseReleased)
		}()
		return r.execute(ctx, sess, steps, rep, log)
	}()

	return r.finish(rep, log, aborted), nil
}

// execute runs navigate, the body, and capture. It reports whether the run aborted.
func (r *Runner) execute(ctx context.Context, sess *Session, steps []Step, rep *Report, log *zap.Logger) bool {
	nav := r.exec(ctx, sess, 0, steps[0], log)
	rep.Results = append(rep.Results, nav)
	if nav.Outcome != OutcomeOK {
		// No later step is attempted or recorded.
		rep.Reasons = append(rep.Reasons, nav.Err.Error())
		return true
	}
	r.enter(rep, PhaseNavigated)

	body := steps[1 : len(steps)-1]
	if len(body) > 0 {
		r.enter(rep, PhaseInteracting)
	}
	hardAt := -1
	for i, step := range body {
		idx := i + 1
		if hardAt < 0 && ctx.Err() != nil {
			hardAt = idx
			rep.Reasons = append(rep.Reasons, fmt.Sprintf("run canceled before step %d: %v", idx, ctx.Err()))
		}
		if hardAt >= 0 {
			rep.Results = append(rep.Results, r.skipped(idx, step, fmt.Sprintf("skipped after hard failure in step %d", hardAt)))
			continue
		}

		res := r.exec(ctx, sess, idx, step, log)
		rep.Results = append(rep.Results, res)
		if res.Err != nil {
			rep.Reasons = append(rep.Reasons, res.Err.Error())
		}
		if res.Outcome == OutcomeHardFail {
			hardAt = idx
		}
	}

	// Capture runs even when the run context is gone; the artifact is the
	// evidence a reviewer needs most when something went wrong.
	captureCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.timeoutFor(steps[len(steps)-1]))
	defer cancel()
	capture := r.exec(captureCtx, sess, len(steps)-1, steps[len(steps)-1], log)
	rep.Results = append(rep.Results, capture)
	if capture.Err != nil {
		rep.Reasons = append(rep.Reasons, capture.Err.Error())
	}
	r.enter(rep, PhaseCaptured)
	return false
}

// exec runs one step and converts its error, or a panic, into a result.
func (r *Runner) exec(ctx context.Context, sess *Session, idx int, step Step, log *zap.Logger) (res StepResult) {
	res = StepResult{Index: idx, Step: step, StartedAt: r.now()}
	timeout := r.opts.timeoutFor(step)
	fields := []zap.Field{
		zap.Int("step", idx),
		zap.String("kind", string(step.Kind)),
		zap.Stringer("locator", step.Locator),
		zap.Duration("timeout", timeout),
	}

	defer func() {
		if p := recover(); p != nil {
			res.Outcome = OutcomeHardFail
			res.Message = fmt.Sprintf("fault: %v", p)
			res.Err = r.stepError(idx, step, timeout, SeverityHard, fmt.Errorf("%w: %v", ErrFault, p))
			log.Error("Step panicked.", append(fields, zap.Any("panic", p), zap.Stack("stack"))...)
		}
		res.Duration = r.now().Sub(res.StartedAt)
	}()

	msg, severity, err := r.dispatch(ctx, sess, step, timeout, &res)
	if err == nil && step.Settle > 0 && !step.IsSettle() {
		err = Settle(ctx, step.Settle)
		severity = SeverityHard
	}

	if err == nil {
		res.Outcome = OutcomeOK
		res.Message = msg
		log.Info(fmt.Sprintf("%s: ok.", step.Describe()), fields...)
		return res
	}

	res.Err = r.stepError(idx, step, timeout, severity, err)
	res.Message = err.Error()
	if step.Message != "" {
		res.Message = step.Message
	}
	if severity == SeveritySoft {
		res.Outcome = OutcomeSoftFail
		log.Warn(firstNonEmpty(step.Message, step.Describe()+": soft failure."), append(fields, zap.Error(err))...)
	} else {
		res.Outcome = OutcomeHardFail
		log.Error(firstNonEmpty(step.Message, step.Describe()+": hard failure."), append(fields, zap.Error(err))...)
	}
	return res
}

// dispatch performs the step and reports which severity a failure carries.
func (r *Runner) dispatch(ctx context.Context, sess *Session, step Step, timeout time.Duration, res *StepResult) (string, Severity, error) {
	severity := SeverityHard
	if step.EffectivePolicy() == PolicyOptional {
		severity = SeveritySoft
	}

	switch step.Kind {
	case KindNavigate:
		nr := r.navigator.Navigate(ctx, sess, step.Value, timeout)
		if !nr.OK {
			return "", SeverityHard, nr.Err
		}
		return fmt.Sprintf("loaded %q", nr.Title), SeverityHard, nil

	case KindWait:
		if step.IsSettle() {
			d := step.Settle
			if d <= 0 {
				d = r.opts.Timeouts.Settle
			}
			res.Step.Settle = d
			return fmt.Sprintf("settled %v", d), SeverityHard, Settle(ctx, d)
		}
		retry := step.Retry
		if retry.Attempts == 0 {
			retry = r.opts.Retry
		}
		wr := r.waiter.WaitWithRetry(ctx, sess, step.Locator, step.State, timeout, step.EffectivePolicy(), retry)
		if wr.Err != nil {
			return "", severity, wr.Err
		}
		return fmt.Sprintf("%s after %d attempt(s)", stateOrVisible(step), wr.Attempts), severity, nil

	case KindFill:
		return "filled", SeverityHard, r.driver.fill(ctx, sess, step.Locator, step.Value, timeout)
	case KindClick:
		return "clicked", SeverityHard, r.driver.click(ctx, sess, step.Locator, timeout)
	case KindSelect:
		return fmt.Sprintf("selected %q", step.Value), SeverityHard, r.driver.selectOption(ctx, sess, step.Locator, step.Value, timeout)

	case KindAssert:
		var err error
		switch step.Assertion {
		case AssertVisible:
			err = r.reporter.assertVisibility(ctx, sess, step.Locator, true, timeout)
		case AssertHidden:
			err = r.reporter.assertVisibility(ctx, sess, step.Locator, false, timeout)
		case AssertValueContains:
			err = r.reporter.assertValueContains(ctx, sess, step.Locator, step.Value, timeout)
		case AssertTitleContains:
			err = r.reporter.assertTitleContains(ctx, sess, step.Value, timeout)
		default:
			err = fmt.Errorf("unknown assertion %q", step.Assertion)
		}
		return "passed", severity, err

	case KindCapture:
		path, err := r.reporter.Capture(ctx, sess, step.Value)
		if err != nil {
			return "", SeverityHard, err
		}
		res.Step.Value = path
		return "saved " + path, SeverityHard, nil
	}
	return "", SeverityHard, fmt.Errorf("unknown step kind %q", step.Kind)
}

func (r *Runner) skipped(idx int, step Step, why string) StepResult {
	return StepResult{Index: idx, Step: step, Outcome: OutcomeSkipped, Message: why, StartedAt: r.now()}
}

func stateOrVisible(s Step) string {
	if s.State == "" {
		return "visible"
	}
	return string(s.State)
}

func (r *Runner) stepError(idx int, step Step, timeout time.Duration, sev Severity, err error) *StepError {
	return &StepError{Index: idx, Kind: step.Kind, Locator: step.Locator, Timeout: timeout, Severity: sev, Err: err}
}

func (r *Runner) enter(rep *Report, p Phase) {
	rep.Phases = append(rep.Phases, PhaseTransition{Phase: p, At: r.now()})
}

// finish decides the verdict and seals the report.
func (r *Runner) finish(rep *Report, log *zap.Logger, aborted bool) *Report {
	switch {
	case aborted:
		rep.Verdict = VerdictAborted
		r.enter(rep, PhaseAborted)
	case len(rep.Reasons) > 0, rep.Count(OutcomeSoftFail)+rep.Count(OutcomeHardFail) > 0:
		rep.Verdict = VerdictFailed
		r.enter(rep, PhaseFailed)
	default:
		rep.Verdict = VerdictPassed
		r.enter(rep, PhasePassed)
	}
	for _, res := range rep.Results {
		if res.Step.Kind == KindCapture && res.Outcome == OutcomeOK {
			rep.Artifact = res.Step.Value
		}
	}
	rep.ExitCode = rep.Verdict.ExitCode()
	rep.FinishedAt = r.now()

	log.Info("Run finished.",
		zap.String("verdict", string(rep.Verdict)),
		zap.Int("ok", rep.Count(OutcomeOK)),
		zap.Int("soft_fail", rep.Count(OutcomeSoftFail)),
		zap.Int("hard_fail", rep.Count(OutcomeHardFail)),
		zap.Int("skipped", rep.Count(OutcomeSkipped)),
		zap.String("artifact", rep.Artifact),
	)
	return rep
}
