// File: internal/verify/reporter.go
package verify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/internal/locator"
)

// valuePreview is how much of an observed value a failed assertion reports.
const valuePreview = 50

// defaultPollInterval paces assertion re-checks within the grace period.
const defaultPollInterval = 100 * time.Millisecond

// checkSlack lets a query started near the end of the grace period finish.
const checkSlack = 250 * time.Millisecond

// ErrAssertion is wrapped by every failed check.
var ErrAssertion = errors.New("assertion failed")

// Reporter evaluates checks and captures the screenshot artifact. Checks
// never abort a run; the caller records their outcome.
type Reporter struct {
	fs           afero.Fs
	grace        time.Duration
	pollInterval time.Duration
	logger       *zap.Logger
}

// NewReporter creates a Reporter that writes artifacts to fs and lets each
// check settle for up to grace before failing it.
func NewReporter(fs afero.Fs, grace time.Duration, logger *zap.Logger) *Reporter {
	return &Reporter{
		fs:           fs,
		grace:        grace,
		pollInterval: defaultPollInterval,
		logger:       logger.Named("reporter"),
	}
}

// AssertVisible passes when loc resolves to a visible element.
func (r *Reporter) AssertVisible(ctx context.Context, s *Session, loc locator.Locator) error {
	return r.assertVisibility(ctx, s, loc, true, r.grace)
}

// AssertHidden passes when loc resolves to nothing visible.
func (r *Reporter) AssertHidden(ctx context.Context, s *Session, loc locator.Locator) error {
	return r.assertVisibility(ctx, s, loc, false, r.grace)
}

// AssertValueContains passes when the control's value contains substr.
func (r *Reporter) AssertValueContains(ctx context.Context, s *Session, loc locator.Locator, substr string) error {
	return r.assertValueContains(ctx, s, loc, substr, r.grace)
}

// AssertTitleContains passes when the document title contains substr.
func (r *Reporter) AssertTitleContains(ctx context.Context, s *Session, substr string) error {
	return r.assertTitleContains(ctx, s, substr, r.grace)
}

func (r *Reporter) assertVisibility(ctx context.Context, s *Session, loc locator.Locator, want bool, grace time.Duration) error {
	return r.eventually(ctx, grace, func(ctx context.Context) (string, error) {
		visible, err := s.Page.IsVisible(ctx, loc)
		if err != nil {
			return "", err
		}
		if visible == want {
			return "", nil
		}
		if want {
			return fmt.Sprintf("%s is not visible", loc), nil
		}
		return fmt.Sprintf("%s is visible", loc), nil
	})
}

func (r *Reporter) assertValueContains(ctx context.Context, s *Session, loc locator.Locator, substr string, grace time.Duration) error {
	var observed string
	err := r.eventually(ctx, grace, func(ctx context.Context) (string, error) {
		v, err := s.Page.InputValue(ctx, loc)
		if err != nil {
			return "", err
		}
		observed = v
		if strings.Contains(v, substr) {
			return "", nil
		}
		return fmt.Sprintf("value of %s does not contain %q (got %q)", loc, substr, preview(v)), nil
	})
	if err == nil {
		r.logger.Info("Value check passed.", zap.Stringer("locator", loc), zap.String("content", preview(observed)))
	}
	return err
}

func (r *Reporter) assertTitleContains(ctx context.Context, s *Session, substr string, grace time.Duration) error {
	return r.eventually(ctx, grace, func(ctx context.Context) (string, error) {
		title, err := s.Page.Title(ctx)
		if err != nil {
			return "", err
		}
		if strings.Contains(title, substr) {
			return "", nil
		}
		return fmt.Sprintf("title %q does not contain %q", title, substr), nil
	})
}

// eventually re-runs check until it reports no mismatch or grace runs out.
// check returns a mismatch description, or an error when the page could not
// be queried at all; both are retried. Each check is bounded by the
// remaining grace so a hung page cannot stall the run.
func (r *Reporter) eventually(ctx context.Context, grace time.Duration, check func(context.Context) (string, error)) error {
	deadline := time.Now().Add(grace)
	for {
		checkCtx, cancel := context.WithTimeout(ctx, time.Until(deadline)+checkSlack)
		mismatch, err := check(checkCtx)
		cancel()
		if err == nil && mismatch == "" {
			return nil
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			if err != nil {
				return fmt.Errorf("%w: %w", ErrAssertion, err)
			}
			return fmt.Errorf("%w: %s", ErrAssertion, mismatch)
		}
		// A canceled ctx is noticed on the next pass.
		_ = Settle(ctx, min(r.pollInterval, time.Until(deadline)+time.Millisecond))
	}
}

// Capture takes a full-page screenshot and writes it to path, replacing any
// previous file. It returns the path actually written.
func (r *Reporter) Capture(ctx context.Context, s *Session, path string) (string, error) {
	resolved, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("expanding %q: %w", path, err)
	}

	data, err := s.Page.Screenshot(ctx, true)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(resolved); dir != "." {
		if err := r.fs.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := afero.WriteFile(r.fs, resolved, data, os.FileMode(0o644)); err != nil {
		return "", fmt.Errorf("writing screenshot: %w", err)
	}

	r.logger.Info("Screenshot saved.", zap.String("path", resolved), zap.Int("bytes", len(data)))
	return resolved, nil
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) <= valuePreview {
		return s
	}
	return string(runes[:valuePreview]) + "..."
}
