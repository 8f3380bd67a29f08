// File: internal/verify/plan_test.go
package verify

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/uiverify/internal/config"
	"github.com/xkilldash9x/uiverify/internal/locator"
)

func TestScenario_Validate(t *testing.T) {
	nav := Step{Kind: KindNavigate}
	tests := []struct {
		name    string
		steps   []Step
		wantErr string
	}{
		{"empty", nil, "has no steps"},
		{"must start with navigate", []Step{{Kind: KindClick, Locator: renderBtn}}, "first step must be navigate"},
		{"single navigate", []Step{nav, nav}, "only one navigate"},
		{"capture last", []Step{nav, {Kind: KindCapture}, {Kind: KindClick, Locator: renderBtn}}, "must be the last step"},
		{"no settle after capture", []Step{nav, {Kind: KindCapture, Settle: time.Second}}, "settle is not allowed on a capture step"},
		{"fill needs locator", []Step{nav, {Kind: KindFill, Value: "x"}}, "a locator is required"},
		{"select needs value", []Step{nav, {Kind: KindSelect, Locator: renderBtn}}, "an option value is required"},
		{"value assertion needs substring", []Step{nav, {Kind: KindAssert, Assertion: AssertValueContains, Locator: textarea}}, "expected substring"},
		{"unknown assertion", []Step{nav, {Kind: KindAssert, Assertion: "pixel_match", Locator: textarea}}, "unknown assertion"},
		{"unknown kind", []Step{nav, {Kind: "hover", Locator: textarea}}, "unknown step kind"},
		{"unknown policy", []Step{nav, {Kind: KindWait, Locator: svgLoc, Policy: "sometimes"}}, "unknown policy"},
		{"unknown state", []Step{nav, {Kind: KindWait, Locator: svgLoc, State: "focused"}}, "unknown element state"},
		{"negative timeout", []Step{nav, {Kind: KindClick, Locator: renderBtn, Timeout: -time.Second}}, "must not be negative"},
		{"bad locator", []Step{nav, {Kind: KindClick, Locator: locator.Locator{Strategy: "xpath", Selector: "//a"}}}, "unknown locator strategy"},
		{"valid", []Step{nav, {Kind: KindWait, Settle: time.Second}, {Kind: KindAssert, Assertion: AssertTitleContains, Value: "Mermaid"}}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Scenario{Name: tt.name, Steps: tt.steps}.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidScenario))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPlan(t *testing.T) {
	t.Run("appends capture and resolves URL", func(t *testing.T) {
		opts := testOptions()
		steps, err := Plan(renderScenario(), opts)
		require.NoError(t, err)

		require.Len(t, steps, 5)
		assert.Equal(t, baseURL, steps[0].Value)
		assert.Equal(t, KindCapture, steps[4].Kind)
		assert.Equal(t, "out/render.png", steps[4].Value)
	})

	t.Run("does not mutate the scenario", func(t *testing.T) {
		sc := renderScenario()
		_, err := Plan(sc, testOptions())
		require.NoError(t, err)
		assert.Empty(t, sc.Steps[0].Value)
		assert.Len(t, sc.Steps, 4)
	})

	t.Run("screenshot precedence", func(t *testing.T) {
		sc := renderScenario()
		opts := testOptions()
		opts.OutputDir = ""

		steps, err := Plan(sc, opts)
		require.NoError(t, err)
		assert.Equal(t, "render.png", steps[len(steps)-1].Value)

		opts.Screenshot = "/tmp/override.png"
		steps, err = Plan(sc, opts)
		require.NoError(t, err)
		assert.Equal(t, "/tmp/override.png", steps[len(steps)-1].Value)

		sc.Screenshot = ""
		opts.Screenshot = ""
		steps, err = Plan(sc, opts)
		require.NoError(t, err)
		assert.Equal(t, DefaultScreenshot, steps[len(steps)-1].Value)
	})

	t.Run("home-relative paths keep their tilde", func(t *testing.T) {
		sc := renderScenario()
		sc.Screenshot = "~/shots/render.png"
		steps, err := Plan(sc, testOptions())
		require.NoError(t, err)
		assert.Equal(t, "~/shots/render.png", steps[len(steps)-1].Value)
	})

	t.Run("URL resolution", func(t *testing.T) {
		tests := []struct {
			base, stepURL, scURL, want string
			wantErr                    bool
		}{
			{base: baseURL, want: baseURL},
			{base: baseURL, stepURL: "/edit#pako", want: baseURL + "/edit#pako"},
			{base: baseURL, scURL: "https://mermaid.live/", want: "https://mermaid.live/"},
			{base: baseURL, stepURL: "https://a.example/", scURL: "https://b.example/", want: "https://a.example/"},
			{stepURL: "/edit", wantErr: true},
			{wantErr: true},
		}
		for _, tt := range tests {
			opts := testOptions()
			opts.BaseURL = tt.base
			sc := Scenario{Name: "nav", URL: tt.scURL, Steps: []Step{{Kind: KindNavigate, Value: tt.stepURL}}}
			steps, err := Plan(sc, opts)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidScenario)
				continue
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, steps[0].Value)
		}
	})
}

func TestOptions_TimeoutFor(t *testing.T) {
	opts := testOptions()
	assert.Equal(t, time.Second, opts.timeoutFor(Step{Kind: KindNavigate}))
	assert.Equal(t, 50*time.Millisecond, opts.timeoutFor(Step{Kind: KindWait}))
	assert.Equal(t, 50*time.Millisecond, opts.timeoutFor(Step{Kind: KindSelect}))
	assert.Equal(t, 20*time.Millisecond, opts.timeoutFor(Step{Kind: KindAssert}))
	assert.Equal(t, time.Second, opts.timeoutFor(Step{Kind: KindCapture}))
	assert.Equal(t, 3*time.Second, opts.timeoutFor(Step{Kind: KindClick, Timeout: 3 * time.Second}))
}

func TestOptionsFromConfig_CaptureTimeout(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.TimeoutsCfg.Capture = 7 * time.Second

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 7*time.Second, opts.timeoutFor(Step{Kind: KindCapture}))
	assert.Equal(t, 2*time.Second, opts.timeoutFor(Step{Kind: KindCapture, Timeout: 2 * time.Second}))
}

func TestStep_Helpers(t *testing.T) {
	assert.Equal(t, PolicyOptional, Step{Kind: KindAssert}.EffectivePolicy())
	assert.Equal(t, PolicyRequired, Step{Kind: KindWait}.EffectivePolicy())
	assert.Equal(t, PolicyRequired, Step{Kind: KindAssert, Policy: PolicyRequired}.EffectivePolicy())

	assert.True(t, Step{Kind: KindWait}.IsSettle())
	assert.False(t, Step{Kind: KindWait, Locator: svgLoc}.IsSettle())

	assert.Equal(t, "click role=button[name=Render]", Step{Kind: KindClick, Locator: renderBtn}.Describe())
	assert.Equal(t, "Render diagram", Step{Name: "Render diagram", Kind: KindClick}.Describe())
	assert.Equal(t, `assert title contains "Mermaid"`, Step{Kind: KindAssert, Assertion: AssertTitleContains, Value: "Mermaid"}.Describe())
}

func TestVerdict_ExitCode(t *testing.T) {
	assert.Equal(t, 0, VerdictPassed.ExitCode())
	assert.Equal(t, 1, VerdictFailed.ExitCode())
	assert.Equal(t, 2, VerdictAborted.ExitCode())
	assert.Equal(t, 2, Verdict("").ExitCode())
}

func TestStepError(t *testing.T) {
	cause := timedOut("poll")
	err := &StepError{Index: 3, Kind: KindWait, Locator: svgLoc, Timeout: 20 * time.Second, Severity: SeveritySoft, Err: cause}

	assert.Equal(t, `soft failure in step 3 (wait css=svg[id^='mermaid-'], timeout 20s): poll: context deadline exceeded`, err.Error())
	assert.ErrorIs(t, err, ErrStepFailed)
	assert.True(t, IsTimeout(err))
	assert.False(t, IsHard(err))
	assert.False(t, IsHard(cause))
}
