// File: internal/scenario/file.go
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/uiverify/internal/locator"
	"github.com/xkilldash9x/uiverify/internal/verify"
)

// fileScenario is the YAML shape of a scenario. Durations are Go duration
// strings ("20s", "500ms") and locators use the locator grammar.
type fileScenario struct {
	Name        string     `yaml:"name,omitempty"`
	Description string     `yaml:"description,omitempty"`
	URL         string     `yaml:"url,omitempty"`
	Screenshot  string     `yaml:"screenshot,omitempty"`
	Steps       []fileStep `yaml:"steps"`
}

type fileStep struct {
	Name      string     `yaml:"name,omitempty"`
	Kind      string     `yaml:"kind"`
	Locator   string     `yaml:"locator,omitempty"`
	Value     string     `yaml:"value,omitempty"`
	State     string     `yaml:"state,omitempty"`
	Assert    string     `yaml:"assert,omitempty"`
	Timeout   string     `yaml:"timeout,omitempty"`
	Policy    string     `yaml:"policy,omitempty"`
	Settle    string     `yaml:"settle,omitempty"`
	Message   string     `yaml:"message,omitempty"`
	Retry     *fileRetry `yaml:"retry,omitempty"`
	Mandatory *bool      `yaml:"required,omitempty"`
}

type fileRetry struct {
	Attempts int    `yaml:"attempts,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// LoadFile reads and validates a scenario file. A leading ~ in path is
// expanded to the home directory.
func LoadFile(fs afero.Fs, path string) (verify.Scenario, error) {
	resolved, err := homedir.Expand(path)
	if err != nil {
		return verify.Scenario{}, fmt.Errorf("expanding %q: %w", path, err)
	}
	data, err := afero.ReadFile(fs, resolved)
	if err != nil {
		return verify.Scenario{}, fmt.Errorf("reading scenario file: %w", err)
	}
	sc, err := Parse(data)
	if err != nil {
		return verify.Scenario{}, fmt.Errorf("%s: %w", resolved, err)
	}
	return sc, nil
}

// Parse decodes a YAML scenario. Unknown keys are rejected so typos do not
// silently drop a step setting.
func Parse(data []byte) (verify.Scenario, error) {
	var fsc fileScenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fsc); err != nil {
		if errors.Is(err, io.EOF) {
			return verify.Scenario{}, fmt.Errorf("%w: empty scenario file", verify.ErrInvalidScenario)
		}
		return verify.Scenario{}, fmt.Errorf("%w: %w", verify.ErrInvalidScenario, err)
	}

	sc := verify.Scenario{
		Name:        fsc.Name,
		Description: fsc.Description,
		URL:         fsc.URL,
		Screenshot:  fsc.Screenshot,
		Steps:       make([]verify.Step, 0, len(fsc.Steps)),
	}
	if sc.Name == "" {
		sc.Name = "custom"
	}
	for i, fst := range fsc.Steps {
		step, err := fst.toStep()
		if err != nil {
			return verify.Scenario{}, fmt.Errorf("%w: step %d: %w", verify.ErrInvalidScenario, i, err)
		}
		sc.Steps = append(sc.Steps, step)
	}
	if err := sc.Validate(); err != nil {
		return verify.Scenario{}, err
	}
	return sc, nil
}

func (f fileStep) toStep() (verify.Step, error) {
	s := verify.Step{
		Name:      f.Name,
		Kind:      verify.Kind(f.Kind),
		Value:     f.Value,
		Assertion: verify.Assertion(f.Assert),
		Policy:    verify.Policy(f.Policy),
		Message:   f.Message,
	}
	if f.Mandatory != nil {
		if s.Policy != "" {
			return s, fmt.Errorf("set either policy or required, not both")
		}
		s.Policy = verify.PolicyOptional
		if *f.Mandatory {
			s.Policy = verify.PolicyRequired
		}
	}

	var err error
	if f.Locator != "" {
		if s.Locator, err = locator.Parse(f.Locator); err != nil {
			return s, err
		}
	}
	if f.State != "" {
		if s.State, err = locator.ParseState(f.State); err != nil {
			return s, err
		}
	}
	if s.Timeout, err = parseDuration("timeout", f.Timeout); err != nil {
		return s, err
	}
	if s.Settle, err = parseDuration("settle", f.Settle); err != nil {
		return s, err
	}
	if f.Retry != nil {
		s.Retry.Attempts = f.Retry.Attempts
		if s.Retry.Interval, err = parseDuration("retry.interval", f.Retry.Interval); err != nil {
			return s, err
		}
	}
	return s, nil
}

func parseDuration(field, v string) (time.Duration, error) {
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

// Marshal renders sc in the file format Parse reads, so a built-in scenario
// can be exported and edited.
func Marshal(sc verify.Scenario) ([]byte, error) {
	fsc := fileScenario{
		Name:        sc.Name,
		Description: sc.Description,
		URL:         sc.URL,
		Screenshot:  sc.Screenshot,
		Steps:       make([]fileStep, 0, len(sc.Steps)),
	}
	for _, s := range sc.Steps {
		fst := fileStep{
			Name:    s.Name,
			Kind:    string(s.Kind),
			Value:   s.Value,
			State:   string(s.State),
			Assert:  string(s.Assertion),
			Policy:  string(s.Policy),
			Message: s.Message,
			Timeout: formatDuration(s.Timeout),
			Settle:  formatDuration(s.Settle),
		}
		if !s.Locator.IsZero() {
			fst.Locator = s.Locator.String()
		}
		if s.Retry.Attempts > 0 || s.Retry.Interval > 0 {
			fst.Retry = &fileRetry{Attempts: s.Retry.Attempts, Interval: formatDuration(s.Retry.Interval)}
		}
		fsc.Steps = append(fsc.Steps, fst)
	}
	return yaml.Marshal(fsc)
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return ""
	}
	return d.String()
}
