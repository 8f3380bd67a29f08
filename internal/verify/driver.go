// File: internal/verify/driver.go
package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/internal/browser"
	"github.com/xkilldash9x/uiverify/internal/locator"
)

// Driver performs user actions. Each action first waits for its target to
// be visible, so a missing control surfaces as ErrElementNotFound instead of
// a bare timeout.
type Driver struct {
	actionTimeout time.Duration
	logger        *zap.Logger
}

// NewDriver creates a Driver whose implicit waits last actionTimeout.
func NewDriver(actionTimeout time.Duration, logger *zap.Logger) *Driver {
	return &Driver{actionTimeout: actionTimeout, logger: logger.Named("driver")}
}

// Fill replaces the content of an editable control with text.
func (d *Driver) Fill(ctx context.Context, s *Session, loc locator.Locator, text string) error {
	return d.fill(ctx, s, loc, text, d.actionTimeout)
}

// Click clicks a control.
func (d *Driver) Click(ctx context.Context, s *Session, loc locator.Locator) error {
	return d.click(ctx, s, loc, d.actionTimeout)
}

// SelectOption sets a selection control to the option matching value.
func (d *Driver) SelectOption(ctx context.Context, s *Session, loc locator.Locator, value string) error {
	return d.selectOption(ctx, s, loc, value, d.actionTimeout)
}

func (d *Driver) fill(ctx context.Context, s *Session, loc locator.Locator, text string, wait time.Duration) error {
	return d.perform(ctx, s, "fill", loc, wait, func(ctx context.Context) error {
		return s.Page.Fill(ctx, loc, text)
	})
}

func (d *Driver) click(ctx context.Context, s *Session, loc locator.Locator, wait time.Duration) error {
	return d.perform(ctx, s, "click", loc, wait, func(ctx context.Context) error {
		return s.Page.Click(ctx, loc)
	})
}

func (d *Driver) selectOption(ctx context.Context, s *Session, loc locator.Locator, value string, wait time.Duration) error {
	return d.perform(ctx, s, "select", loc, wait, func(ctx context.Context) error {
		return s.Page.SelectOption(ctx, loc, value)
	})
}

// perform runs the implicit visibility wait and then the action.
func (d *Driver) perform(ctx context.Context, s *Session, action string, loc locator.Locator, wait time.Duration, fn func(context.Context) error) error {
	if wait <= 0 {
		wait = d.actionTimeout
	}
	if err := s.Page.WaitFor(ctx, loc, locator.StateVisible, wait); err != nil {
		return fmt.Errorf("%s: %s not visible within %v: %w: %w", action, loc, wait, browser.ErrElementNotFound, err)
	}
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s %s: %w", action, loc, err)
	}
	d.logger.Debug("Action performed.", zap.String("action", action), zap.Stringer("locator", loc))
	return nil
}
