// File: internal/scenario/builtin.go
// Package scenario provides the scenarios a run can execute: the built-in
// checks for the diagram editor and scenarios loaded from YAML files.
package scenario

import (
	"fmt"
	"sort"
	"time"

	"github.com/xkilldash9x/uiverify/internal/locator"
	"github.com/xkilldash9x/uiverify/internal/verify"
)

var builtins = map[string]func() verify.Scenario{
	"render":  Render,
	"changes": Changes,
}

// Names lists the built-in scenarios in sorted order.
func Names() []string {
	names := make([]string, 0, len(builtins))
	for n := range builtins {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Builtin returns a fresh copy of the named built-in scenario.
func Builtin(name string) (verify.Scenario, error) {
	fn, ok := builtins[name]
	if !ok {
		return verify.Scenario{}, fmt.Errorf("%w: no built-in scenario %q (have %v)", verify.ErrInvalidScenario, name, Names())
	}
	return fn(), nil
}

// Render types a small flowchart, asks the editor to render it and waits for
// the SVG output. The SVG appearing proves the renderer was loaded on demand.
func Render() verify.Scenario {
	return verify.Scenario{
		Name:        "render",
		Description: "Fill the editor, click Render and wait for the diagram SVG.",
		Screenshot:  "verification_4.png",
		Steps: []verify.Step{
			{Kind: verify.KindNavigate, Timeout: 60 * time.Second},
			{Kind: verify.KindFill, Locator: locator.CSS("textarea"), Value: "graph TD\nA-->B"},
			{Kind: verify.KindClick, Locator: locator.Role("button", "Render")},
			{
				Kind:    verify.KindWait,
				Name:    "wait for diagram SVG",
				Locator: locator.CSS("svg[id^='mermaid-']"),
				Timeout: 20 * time.Second,
				Policy:  verify.PolicyOptional,
				Message: "SVG not found",
			},
		},
	}
}

// Changes checks the page chrome and the examples picker.
func Changes() verify.Scenario {
	examples := locator.Role("combobox", "Examples")
	visible := func(l locator.Locator) verify.Step {
		return verify.Step{Kind: verify.KindAssert, Assertion: verify.AssertVisible, Locator: l}
	}

	return verify.Scenario{
		Name:        "changes",
		Description: "Verify footer links, toolbar controls, example selection and ad placeholders.",
		Screenshot:  "verification_screenshot.png",
		Steps: []verify.Step{
			{Kind: verify.KindNavigate},
			{Kind: verify.KindWait, Locator: locator.CSS("h1"), Policy: verify.PolicyRequired},
			visible(locator.Role("link", "About")),
			visible(locator.Role("link", "Privacy")),
			visible(locator.Role("link", "Terms")),
			visible(locator.Role("button", "Share")),
			visible(examples),
			{Kind: verify.KindSelect, Locator: examples, Value: "sequence"},
			{Kind: verify.KindWait, Name: "let the editor re-render", Settle: 2 * time.Second},
			{
				Kind:      verify.KindAssert,
				Assertion: verify.AssertValueContains,
				Locator:   locator.Role("textbox", ""),
				Value:     "sequenceDiagram",
				Message:   "Text area did not update",
			},
			visible(locator.Text("Advertisement")),
		},
	}
}
