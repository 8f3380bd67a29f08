// Package browser defines the browser automation capability the verification
// engine consumes. The engine never talks to a browser directly; it goes
// through these interfaces, which keeps it testable with mocks and leaves the
// CDP wiring to the cdp subpackage.
package browser

import (
	"context"
	"time"

	"github.com/xkilldash9x/uiverify/internal/locator"
)

// Launcher starts a browser process.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Browser is a running browser process.
type Browser interface {
	// NewPage opens a fresh tab.
	NewPage(ctx context.Context) (Page, error)
	// Close terminates the process. Calling it more than once is a no-op.
	Close(ctx context.Context) error
}

// Page is a single tab. Every method that addresses an element resolves the
// locator against the current document at call time.
type Page interface {
	// Goto loads url and returns once the document has finished loading or
	// timeout has elapsed.
	Goto(ctx context.Context, url string, timeout time.Duration) error
	Title(ctx context.Context) (string, error)

	// WaitFor blocks until the element addressed by loc reaches state.
	WaitFor(ctx context.Context, loc locator.Locator, state locator.State, timeout time.Duration) error

	// Fill replaces the full content of an editable control.
	Fill(ctx context.Context, loc locator.Locator, text string) error
	Click(ctx context.Context, loc locator.Locator) error
	// SelectOption picks the option whose value or label equals value.
	SelectOption(ctx context.Context, loc locator.Locator, value string) error

	IsVisible(ctx context.Context, loc locator.Locator) (bool, error)
	// InputValue returns the current value of a form control.
	InputValue(ctx context.Context, loc locator.Locator) (string, error)

	// Screenshot returns PNG bytes. fullPage captures beyond the viewport.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// Close closes the tab. Calling it more than once is a no-op.
	Close(ctx context.Context) error
}
