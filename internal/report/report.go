// File: internal/report/report.go
// Package report renders a finished run: a JSON document for machines and a
// short console summary for the person who started the run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"

	"github.com/xkilldash9x/uiverify/internal/verify"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SchemaVersion is bumped whenever a field of Document changes meaning.
const SchemaVersion = 1

// Document is the serialized form of a run report. Durations are rendered as
// Go duration strings so the file stays readable.
type Document struct {
	SchemaVersion int       `json:"schema_version"`
	RunID         string    `json:"run_id"`
	Scenario      string    `json:"scenario"`
	Target        string    `json:"target"`
	Verdict       string    `json:"verdict"`
	ExitCode      int       `json:"exit_code"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Duration      string    `json:"duration"`
	Artifact      string    `json:"artifact,omitempty"`
	Reasons       []string  `json:"reasons,omitempty"`
	Counts        Counts    `json:"counts"`
	Phases        []Phase   `json:"phases"`
	Steps         []Step    `json:"steps"`
}

// Counts tallies step outcomes.
type Counts struct {
	OK       int `json:"ok"`
	SoftFail int `json:"soft_fail"`
	HardFail int `json:"hard_fail"`
	Skipped  int `json:"skipped"`
}

type Phase struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

// Step is one step result.
type Step struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Locator  string `json:"locator,omitempty"`
	Policy   string `json:"policy,omitempty"`
	Timeout  string `json:"timeout,omitempty"`
	Outcome  string `json:"outcome"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	Duration string `json:"duration"`
}

// FromReport converts an engine report into its document form.
func FromReport(r *verify.Report) Document {
	doc := Document{
		SchemaVersion: SchemaVersion,
		RunID:         r.RunID,
		Scenario:      r.Scenario,
		Target:        r.Target,
		Verdict:       string(r.Verdict),
		ExitCode:      r.ExitCode,
		StartedAt:     r.StartedAt,
		FinishedAt:    r.FinishedAt,
		Duration:      r.Duration().Round(time.Millisecond).String(),
		Artifact:      r.Artifact,
		Reasons:       r.Reasons,
		Counts: Counts{
			OK:       r.Count(verify.OutcomeOK),
			SoftFail: r.Count(verify.OutcomeSoftFail),
			HardFail: r.Count(verify.OutcomeHardFail),
			Skipped:  r.Count(verify.OutcomeSkipped),
		},
		Phases: make([]Phase, 0, len(r.Phases)),
		Steps:  make([]Step, 0, len(r.Results)),
	}
	for _, p := range r.Phases {
		doc.Phases = append(doc.Phases, Phase{Name: string(p.Phase), At: p.At})
	}
	for _, res := range r.Results {
		s := Step{
			Index:    res.Index,
			Name:     res.Step.Describe(),
			Kind:     string(res.Step.Kind),
			Locator:  res.Step.Locator.String(),
			Outcome:  string(res.Outcome),
			Message:  res.Message,
			Duration: res.Duration.Round(time.Millisecond).String(),
		}
		if res.Step.Kind == verify.KindWait || res.Step.Kind == verify.KindAssert {
			s.Policy = string(res.Step.EffectivePolicy())
		}
		if res.Step.Timeout > 0 {
			s.Timeout = res.Step.Timeout.String()
		}
		if res.Err != nil {
			s.Error = res.Err.Error()
		}
		doc.Steps = append(doc.Steps, s)
	}
	return doc
}

// Marshal encodes the report as indented JSON.
func Marshal(r *verify.Report) ([]byte, error) {
	data, err := json.MarshalIndent(FromReport(r), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding report: %w", err)
	}
	return append(data, '\n'), nil
}

// Write stores the JSON report at path, creating parent directories and
// replacing any previous report. It returns the path actually written.
func Write(fs afero.Fs, path string, r *verify.Report) (string, error) {
	resolved, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", path, err)
	}
	data, err := Marshal(r)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(resolved); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(fs, resolved, data, os.FileMode(0o644)); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return resolved, nil
}
