// internal/browser/cdp/page.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/internal/browser"
	"github.com/xkilldash9x/uiverify/internal/locator"
)

// opTimeout bounds a single page query or element action.
const opTimeout = 15 * time.Second

// Page is one browser tab driven over CDP.
type Page struct {
	ctx    context.Context // tab context; carries the chromedp target
	cancel context.CancelFunc
	logger *zap.Logger

	// Seams so the page logic can be exercised without a browser.
	runActionsFunc func(ctx context.Context, actions ...chromedp.Action) error
	evaluateFunc   func(ctx context.Context, script string, res interface{}) error
	closeTarget    func() error
	newRef         func() string

	closeOnce sync.Once
	closeErr  error
}

var _ browser.Page = (*Page)(nil)

func newPage(tabCtx context.Context, cancel context.CancelFunc, logger *zap.Logger) *Page {
	p := &Page{
		ctx:    tabCtx,
		cancel: cancel,
		logger: logger.Named("page"),
		newRef: func() string { return uuid.NewString() },
	}
	p.runActionsFunc = p.runActions
	p.evaluateFunc = p.evaluate
	p.closeTarget = func() error { return chromedp.Cancel(tabCtx) }
	return p
}

// runActions runs actions against the tab, canceled by either the tab or ctx.
func (p *Page) runActions(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

func (p *Page) evaluate(ctx context.Context, script string, res interface{}) error {
	return p.runActionsFunc(ctx, chromedp.Evaluate(script, res, func(ep *runtime.EvaluateParams) *runtime.EvaluateParams {
		return ep.WithAwaitPromise(true).WithSilent(true)
	}))
}

// classify turns a failed operation into an error the engine can reason
// about: timeouts wrap context.DeadlineExceeded, a dead tab is ErrClosed.
func (p *Page) classify(op string, opCtx context.Context, timeout time.Duration, err error) error {
	switch {
	case p.ctx.Err() != nil:
		return fmt.Errorf("%s: %w", op, browser.ErrClosed)
	case errors.Is(err, chromedp.ErrPollingTimeout), errors.Is(opCtx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%s timed out after %v: %w", op, timeout, context.DeadlineExceeded)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s canceled: %w", op, err)
	}
	return fmt.Errorf("%s failed: %w", op, err)
}

// Goto loads url and waits for the load event.
func (p *Page) Goto(ctx context.Context, url string, timeout time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.logger.Debug("Navigating.", zap.String("url", url), zap.Duration("timeout", timeout))
	if err := p.runActionsFunc(opCtx, chromedp.Navigate(url)); err != nil {
		return p.classify("navigation to "+url, opCtx, timeout, err)
	}
	return nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var title string
	if err := p.runActionsFunc(opCtx, chromedp.Title(&title)); err != nil {
		return "", p.classify("reading page title", opCtx, opTimeout, err)
	}
	return title, nil
}

// WaitFor polls inside the page on animation frames until the locator reaches state.
func (p *Page) WaitFor(ctx context.Context, loc locator.Locator, state locator.State, timeout time.Duration) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	// The outer deadline only backs up the in-page polling timeout.
	opCtx, cancel := context.WithTimeout(ctx, timeout+time.Second)
	defer cancel()

	var ok bool
	err := p.runActionsFunc(opCtx, chromedp.PollFunction(stateFunction(loc, state), &ok,
		chromedp.WithPollingTimeout(timeout),
	))
	if err != nil {
		return p.classify(fmt.Sprintf("waiting for %s to be %s", loc, state), opCtx, timeout, err)
	}
	return nil
}

// resolve finds the element, tags it with a fresh reference when tag is
// true, and describes it.
func (p *Page) resolve(ctx context.Context, loc locator.Locator, tag bool) (probeResult, string, error) {
	if err := loc.Validate(); err != nil {
		return probeResult{}, "", err
	}
	var ref string
	if tag {
		ref = p.newRef()
	}
	var res probeResult
	if err := p.evaluateFunc(ctx, probeScript(loc, ref), &res); err != nil {
		return probeResult{}, "", fmt.Errorf("resolving %s: %w", loc, err)
	}
	if res.Error != "" {
		return probeResult{}, "", fmt.Errorf("resolving %s: %s", loc, res.Error)
	}
	if !res.Found {
		return res, "", fmt.Errorf("%s: %w", loc, browser.ErrElementNotFound)
	}
	return res, ref, nil
}

// Fill clears the control and inserts text as a single input event.
func (p *Page) Fill(ctx context.Context, loc locator.Locator, text string) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, ref, err := p.resolve(opCtx, loc, true)
	if err != nil {
		return err
	}
	if !res.Editable {
		return fmt.Errorf("%s (<%s>): %w", loc, res.Tag, browser.ErrNotEditable)
	}

	var cleared bool
	if err := p.evaluateFunc(opCtx, clearScript(ref), &cleared); err != nil {
		return p.classify("clearing "+loc.String(), opCtx, opTimeout, err)
	}
	if !cleared {
		return fmt.Errorf("%s detached before fill: %w", loc, browser.ErrElementNotFound)
	}
	if text == "" {
		return nil
	}
	if err := p.runActionsFunc(opCtx, input.InsertText(text)); err != nil {
		return p.classify("filling "+loc.String(), opCtx, opTimeout, err)
	}
	return nil
}

// Click scrolls the element into view and clicks its center.
func (p *Page) Click(ctx context.Context, loc locator.Locator) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, ref, err := p.resolve(opCtx, loc, true)
	if err != nil {
		return err
	}
	if res.Disabled {
		return fmt.Errorf("%s is disabled: %w", loc, browser.ErrNotClickable)
	}

	sel := refSelector(ref)
	err = p.runActionsFunc(opCtx,
		chromedp.ScrollIntoView(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
	if err != nil {
		return p.classify("click on "+loc.String(), opCtx, opTimeout, err)
	}
	return nil
}

// SelectOption picks an option of a native select by value or label.
func (p *Page) SelectOption(ctx context.Context, loc locator.Locator, value string) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var res selectResult
	if err := p.evaluateFunc(opCtx, selectScript(loc, value), &res); err != nil {
		return p.classify("selecting in "+loc.String(), opCtx, opTimeout, err)
	}
	switch {
	case res.Error != "":
		return fmt.Errorf("resolving %s: %s", loc, res.Error)
	case !res.Found:
		return fmt.Errorf("%s: %w", loc, browser.ErrElementNotFound)
	case !res.IsSelect:
		return fmt.Errorf("%s is <%s>, not a select: %w", loc, res.Tag, browser.ErrOptionNotFound)
	case !res.Option:
		return fmt.Errorf("%q in %s: %w", value, loc, browser.ErrOptionNotFound)
	}
	p.logger.Debug("Option selected.", zap.Stringer("locator", loc), zap.String("value", res.Selected))
	return nil
}

func (p *Page) IsVisible(ctx context.Context, loc locator.Locator) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, _, err := p.resolve(opCtx, loc, false)
	if errors.Is(err, browser.ErrElementNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.Visible, nil
}

func (p *Page) InputValue(ctx context.Context, loc locator.Locator) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, _, err := p.resolve(opCtx, loc, false)
	if err != nil {
		return "", err
	}
	return res.Value, nil
}

// Screenshot captures a PNG. A full-page capture at quality 100 is PNG encoded.
func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	var buf []byte
	action := chromedp.CaptureScreenshot(&buf)
	if fullPage {
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := p.runActionsFunc(ctx, action); err != nil {
		return nil, fmt.Errorf("capturing screenshot: %w", err)
	}
	if len(buf) == 0 {
		return nil, errors.New("capturing screenshot: browser returned no data")
	}
	return buf, nil
}

// Close closes the tab. Later calls return the first result.
func (p *Page) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- p.closeTarget() }()
		select {
		case p.closeErr = <-done:
		case <-ctx.Done():
			p.closeErr = fmt.Errorf("closing page: %w", ctx.Err())
		}
		p.cancel()
	})
	return p.closeErr
}
