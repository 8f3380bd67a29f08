// File: internal/verify/runner_test.go
package verify

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiverify/internal/browser"
	"github.com/xkilldash9x/uiverify/internal/locator"
)

const baseURL = "http://localhost:3000"

func timedOut(what string) error {
	return fmt.Errorf("%s: %w", what, context.DeadlineExceeded)
}

func phasesOf(r *Report) []Phase {
	out := make([]Phase, len(r.Phases))
	for i, t := range r.Phases {
		out[i] = t.Phase
	}
	return out
}

// expectRenderInteractions sets up the fill and click of the render scenario.
func (h *harness) expectRenderInteractions() {
	h.page.On("WaitFor", mock.Anything, textarea, locator.StateVisible, 50*time.Millisecond).Return(nil).Once()
	h.page.On("Fill", mock.Anything, textarea, "graph TD\nA-->B").Return(nil).Once()
	h.page.On("WaitFor", mock.Anything, renderBtn, locator.StateVisible, 50*time.Millisecond).Return(nil).Once()
	h.page.On("Click", mock.Anything, renderBtn).Return(nil).Once()
}

func TestRunner_RenderSucceeds(t *testing.T) {
	h := newHarness(t)
	h.expectSession()
	h.expectNavigate(baseURL)
	h.expectRenderInteractions()
	h.page.On("WaitFor", mock.Anything, svgLoc, locator.StateVisible, 50*time.Millisecond).Return(nil).Once()
	h.expectScreenshot()

	rep, err := h.runner.Run(context.Background(), renderScenario())
	require.NoError(t, err)

	assert.Equal(t, VerdictPassed, rep.Verdict)
	assert.Equal(t, ExitPassed, rep.ExitCode)
	assert.Empty(t, rep.Reasons)
	assert.NotEmpty(t, rep.RunID)
	assert.Equal(t, baseURL, rep.Target)
	assert.Equal(t, []Outcome{OutcomeOK, OutcomeOK, OutcomeOK, OutcomeOK, OutcomeOK}, rep.Outcomes())

	wantPhases := []Phase{PhaseInit, PhaseSessionAcquired, PhaseNavigated, PhaseInteracting, PhaseCaptured, PhaseReleased, PhasePassed}
	if diff := cmp.Diff(wantPhases, phasesOf(rep)); diff != "" {
		t.Errorf("phases mismatch (-want +got):\n%s", diff)
	}

	// The screenshot exists and is non-empty.
	assert.Equal(t, "out/render.png", rep.Artifact)
	data, err := afero.ReadFile(h.fs, rep.Artifact)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, data)

	last := rep.Results[len(rep.Results)-1]
	assert.Equal(t, KindCapture, last.Step.Kind)
	h.assertExpectations(t)
}

func TestRunner_OptionalWaitTimesOut(t *testing.T) {
	h := newHarness(t)
	h.expectSession()
	h.expectNavigate(baseURL)
	h.expectRenderInteractions()
	h.page.On("WaitFor", mock.Anything, svgLoc, locator.StateVisible, 50*time.Millisecond).
		Return(timedOut("polling svg")).Once()
	h.expectScreenshot()

	rep, err := h.runner.Run(context.Background(), renderScenario())
	require.NoError(t, err)

	assert.Equal(t, []Outcome{OutcomeOK, OutcomeOK, OutcomeOK, OutcomeSoftFail, OutcomeOK}, rep.Outcomes())
	wait := rep.Results[3]
	assert.Equal(t, "SVG not found", wait.Message)
	assert.True(t, errors.Is(wait.Err, ErrStepFailed))
	assert.True(t, IsTimeout(wait.Err))
	assert.False(t, IsHard(wait.Err))

	// A soft failure downgrades the verdict but capture still happened.
	assert.Equal(t, VerdictFailed, rep.Verdict)
	assert.Equal(t, ExitFailed, rep.ExitCode)
	assert.True(t, rep.Reached(PhaseCaptured))
	assert.True(t, rep.Reached(PhaseReleased))
	exists, err := afero.Exists(h.fs, "out/render.png")
	require.NoError(t, err)
	assert.True(t, exists)
	h.assertExpectations(t)
}

func TestRunner_NavigationFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.expectSession()
	h.page.On("Goto", mock.Anything, baseURL, time.Second).Return(timedOut("navigate")).Once()

	rep, err := h.runner.Run(context.Background(), renderScenario())
	require.NoError(t, err)

	assert.Equal(t, VerdictAborted, rep.Verdict)
	assert.Equal(t, ExitAborted, rep.ExitCode)
	// Only the navigate step is reported; nothing after it was attempted.
	require.Len(t, rep.Results, 1)
	assert.Equal(t, KindNavigate, rep.Results[0].Step.Kind)
	assert.Equal(t, OutcomeHardFail, rep.Results[0].Outcome)
	assert.True(t, errors.Is(rep.Results[0].Err, ErrNavigation))
	assert.True(t, IsTimeout(rep.Results[0].Err))
	assert.Zero(t, rep.Count(OutcomeSkipped))

	// Release ran, capture did not.
	assert.True(t, rep.Reached(PhaseReleased))
	assert.False(t, rep.Reached(PhaseCaptured))
	assert.False(t, rep.Reached(PhaseInteracting))
	assert.Empty(t, rep.Artifact)
	exists, err := afero.Exists(h.fs, "out/render.png")
	require.NoError(t, err)
	assert.False(t, exists)

	h.page.AssertNotCalled(t, "Fill", mock.Anything, mock.Anything, mock.Anything)
	h.page.AssertNotCalled(t, "Screenshot", mock.Anything, mock.Anything)
	h.assertExpectations(t)
}

func TestRunner_LaunchFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.launcher.On("Launch", mock.Anything).Return(nil, errors.New("chrome not found")).Once()

	rep, err := h.runner.Run(context.Background(), renderScenario())
	require.NoError(t, err)

	assert.Equal(t, VerdictAborted, rep.Verdict)
	assert.Equal(t, ExitAborted, rep.ExitCode)
	assert.Empty(t, rep.Results, "no step may be reported after a launch failure")
	assert.Equal(t, []Phase{PhaseInit, PhaseAborted}, phasesOf(rep))
	require.Len(t, rep.Reasons, 1)
	assert.Contains(t, rep.Reasons[0], "chrome not found")
	assert.Empty(t, rep.Artifact)

	exists, err := afero.Exists(h.fs, "out/render.png")
	require.NoError(t, err)
	assert.False(t, exists)
	h.assertExpectations(t)
}

func TestRunner_HardFailSkipsRemainingSteps(t *testing.T) {
	h := newHarness(t)
	h.expectSession()
	h.expectNavigate(baseURL)
	h.page.On("WaitFor", mock.Anything, textarea, locator.StateVisible, 50*time.Millisecond).
		Return(timedOut("polling textarea")).Once()
	h.expectScreenshot()

	rep, err := h.runner.Run(context.Background(), renderScenario())
	require.NoError(t, err)

	assert.Equal(t, []Outcome{OutcomeOK, OutcomeHardFail, OutcomeSkipped, OutcomeSkipped, OutcomeOK}, rep.Outcomes())
	fill := rep.Results[1]
	assert.True(t, errors.Is(fill.Err, browser.ErrElementNotFound))
	assert.True(t, IsHard(fill.Err))

	var se *StepError
	require.True(t, errors.As(fill.Err, &se))
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, KindFill, se.Kind)
	assert.Equal(t, textarea, se.Locator)
	assert.Equal(t, 50*time.Millisecond, se.Timeout)

	assert.Equal(t, VerdictFailed, rep.Verdict)
	assert.Equal(t, "out/render.png", rep.Artifact)
	h.page.AssertNotCalled(t, "Click", mock.Anything, mock.Anything)
	h.assertExpectations(t)
}

func TestRunner_PanicIsRecordedAsFault(t *testing.T) {
	h := newHarness(t)
	h.expectSession()
	h.expectNavigate(baseURL)
	h.page.On("WaitFor", mock.Anything, textarea, locator.StateVisible, 50*time.Millisecond).Return(nil).Once()
	h.page.On("Fill", mock.Anything, textarea, mock.Anything).Run(func(mock.Arguments) {
		panic("renderer crashed")
	}).Once()
	h.expectScreenshot()

	rep, err := h.runner.Run(context.Background(), renderScenario())
	require.NoError(t, err)

	fill := rep.Results[1]
	assert.Equal(t, OutcomeHardFail, fill.Outcome)
	assert.True(t, errors.Is(fill.Err, ErrFault))
	assert.Contains(t, fill.Message, "renderer crashed")

	assert.True(t, rep.Reached(PhaseCaptured))
	assert.True(t, rep.Reached(PhaseReleased))
	assert.Equal(t, VerdictFailed, rep.Verdict)
	h.assertExpectations(t)
}

func TestRunner_SoftFailuresNeverAbort(t *testing.T) {
	h := newHarness(t)
	h.expectSession()
	h.expectNavigate(baseURL)
	h.page.On("IsVisible", mock.Anything, mock.Anything).Return(false, nil)
	h.expectScreenshot()

	links := []string{"About", "Privacy", "Terms"}
	sc := Scenario{Name: "links", Steps: []Step{{Kind: KindNavigate}}}
	for _, name := range links {
		sc.Steps = append(sc.Steps, Step{Kind: KindAssert, Assertion: AssertVisible, Locator: locator.Role("link", name)})
	}

	rep, err := h.runner.Run(context.Background(), sc)
	require.NoError(t, err)

	assert.Equal(t, len(links), rep.Count(OutcomeSoftFail))
	assert.Zero(t, rep.Count(OutcomeHardFail))
	assert.True(t, rep.Reached(PhaseCaptured))
	assert.True(t, rep.Reached(PhaseReleased))
	assert.Len(t, rep.Reasons, len(links))
	assert.Equal(t, VerdictFailed, rep.Verdict)
	h.assertExpectations(t)
}

func examplesScenario() Scenario {
	combobox := locator.Role("combobox", "Examples")
	return Scenario{
		Name: "examples",
		Steps: []Step{
			{Kind: KindNavigate, Value: "/edit"},
			{Kind: KindSelect, Locator: combobox, Value: "sequence"},
			{Kind: KindWait, Settle: 2 * time.Millisecond},
			{Kind: KindAssert, Assertion: AssertValueContains, Locator: textarea, Value: "sequenceDiagram"},
			{Kind: KindCapture, Value: "examples.png"},
		},
	}
}

func TestRunner_SelectThenAssertValue(t *testing.T) {
	combobox := locator.Role("combobox", "Examples")

	tests := []struct {
		name     string
		value    string
		want     []Outcome
		verdict  Verdict
		contains string
	}{
		{
			name:    "value updated",
			value:   "sequenceDiagram\n  Alice->>John: Hello",
			want:    []Outcome{OutcomeOK, OutcomeOK, OutcomeOK, OutcomeOK, OutcomeOK},
			verdict: VerdictPassed,
		},
		{
			name:     "value stale",
			value:    "graph TD\nA-->B",
			want:     []Outcome{OutcomeOK, OutcomeOK, OutcomeOK, OutcomeSoftFail, OutcomeOK},
			verdict:  VerdictFailed,
			contains: "does not contain \"sequenceDiagram\"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.expectSession()
			h.expectNavigate(baseURL + "/edit")
			h.page.On("WaitFor", mock.Anything, combobox, locator.StateVisible, 50*time.Millisecond).Return(nil).Once()
			h.page.On("SelectOption", mock.Anything, combobox, "sequence").Return(nil).Once()
			h.page.On("InputValue", mock.Anything, textarea).Return(tt.value, nil)
			h.expectScreenshot()

			rep, err := h.runner.Run(context.Background(), examplesScenario())
			require.NoError(t, err)

			assert.Equal(t, tt.want, rep.Outcomes())
			assert.Equal(t, tt.verdict, rep.Verdict)
			assert.Equal(t, 2*time.Millisecond, rep.Results[2].Step.Settle)
			if tt.contains != "" {
				assert.Contains(t, rep.Results[3].Message, tt.contains)
				assert.True(t, errors.Is(rep.Results[3].Err, ErrAssertion))
			}
			// The explicit capture step replaced the default one.
			assert.Equal(t, "out/examples.png", rep.Artifact)
			h.assertExpectations(t)
		})
	}
}

func TestRunner_SameInputsSameOutcomes(t *testing.T) {
	run := func() []Outcome {
		h := newHarness(t)
		h.expectSession()
		h.expectNavigate(baseURL)
		h.expectRenderInteractions()
		h.page.On("WaitFor", mock.Anything, svgLoc, locator.StateVisible, 50*time.Millisecond).
			Return(timedOut("polling svg")).Once()
		h.expectScreenshot()

		rep, err := h.runner.Run(context.Background(), renderScenario())
		require.NoError(t, err)
		return rep.Outcomes()
	}

	if diff := cmp.Diff(run(), run()); diff != "" {
		t.Errorf("outcome sequence changed between runs (-first +second):\n%s", diff)
	}
}

func TestRunner_CanceledContextStillCaptures(t *testing.T) {
	h := newHarness(t)
	h.expectSession()
	h.expectNavigate(baseURL)
	h.expectScreenshot()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep, err := h.runner.Run(ctx, renderScenario())
	require.NoError(t, err)

	assert.Equal(t, []Outcome{OutcomeOK, OutcomeSkipped, OutcomeSkipped, OutcomeSkipped, OutcomeOK}, rep.Outcomes())
	assert.Equal(t, VerdictFailed, rep.Verdict)
	require.NotEmpty(t, rep.Reasons)
	assert.Contains(t, rep.Reasons[0], "canceled")
	h.assertExpectations(t)
}

func TestRunner_InvalidScenarioIsNotRun(t *testing.T) {
	h := newHarness(t)

	_, err := h.runner.Run(context.Background(), Scenario{
		Name:  "broken",
		Steps: []Step{{Kind: KindClick, Locator: renderBtn}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidScenario))
	h.launcher.AssertNotCalled(t, "Launch", mock.Anything)
}

func TestRunner_ReleaseFailureDoesNotChangeVerdict(t *testing.T) {
	h := newHarness(t)
	h.launcher.On("Launch", mock.Anything).Return(h.browser, nil).Once()
	h.browser.On("NewPage", mock.Anything).Return(h.page, nil).Once()
	h.page.On("Close", mock.Anything).Return(errors.New("target already gone")).Once()
	h.browser.On("Close", mock.Anything).Return(nil).Once()
	h.expectNavigate(baseURL)
	h.expectScreenshot()

	rep, err := h.runner.Run(context.Background(), Scenario{Name: "smoke", Steps: []Step{{Kind: KindNavigate}}})
	require.NoError(t, err)

	assert.Equal(t, VerdictPassed, rep.Verdict)
	assert.Equal(t, []Outcome{OutcomeOK, OutcomeOK}, rep.Outcomes())
	assert.Equal(t, "out/"+DefaultScreenshot, rep.Artifact)
	h.assertExpectations(t)
}
