// internal/browser/cdp/launcher.go
// Package cdp implements the browser capability on top of chromedp. One
// Launcher call starts one Chrome process; every Page is a tab in it.
package cdp

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/internal/browser"
	"github.com/xkilldash9x/uiverify/internal/config"
)

// Launcher starts headless Chrome through a chromedp exec allocator.
type Launcher struct {
	cfg    config.BrowserConfig
	logger *zap.Logger
}

var _ browser.Launcher = (*Launcher)(nil)

// NewLauncher creates a Launcher for the given browser settings.
func NewLauncher(cfg config.BrowserConfig, logger *zap.Logger) *Launcher {
	return &Launcher{cfg: cfg, logger: logger.Named("cdp")}
}

// AllocatorOptions builds the exec allocator flags for cfg.
func AllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := make([]chromedp.ExecAllocatorOption, 0, len(chromedp.DefaultExecAllocatorOptions)+8)
	for _, opt := range chromedp.DefaultExecAllocatorOptions {
		opts = append(opts, opt)
	}

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	if cfg.Viewport.Width > 0 && cfg.Viewport.Height > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height))
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts,
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.Flag("allow-insecure-localhost", true),
		)
	}
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	// Extra flags from config, "--name=value" or "--name".
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// Containers rarely allow the setuid sandbox.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.NoSandbox,
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// Launch starts the browser process and waits until it answers, bounded by
// browser.launch_timeout. The process is parented on a detached context:
// canceling ctx aborts the launch but does not kill an already running
// browser, which is torn down only by Close.
func (l *Launcher) Launch(ctx context.Context) (browser.Browser, error) {
	l.logger.Info("Launching browser.", zap.Bool("headless", l.cfg.Headless))

	allocCtx, allocCancel := chromedp.NewExecAllocator(Detach(ctx), AllocatorOptions(l.cfg)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(l.logger.Sugar().Debugf),
		chromedp.WithErrorf(l.logger.Sugar().Debugf),
	)
	abort := func() {
		browserCancel()
		allocCancel()
	}

	// The first Run allocates the process and must not carry a deadline,
	// otherwise the browser would die with it.
	if err := firstRun(ctx, browserCtx, l.cfg.LaunchTimeout); err != nil {
		abort()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	l.logger.Info("Browser launched.")
	return &Browser{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		viewport:    l.cfg.Viewport,
		logger:      l.logger,
	}, nil
}

// firstRun executes actions on a fresh chromedp context in a goroutine so the
// wait can be bounded without attaching a deadline to target.
func firstRun(ctx, target context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	errc := make(chan error, 1)
	go func() { errc <- chromedp.Run(target, actions...) }()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case err := <-errc:
		return err
	case <-expired:
		return fmt.Errorf("no response after %v: %w", timeout, context.DeadlineExceeded)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Browser is a running Chrome process.
type Browser struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	viewport    config.ViewportConfig
	logger      *zap.Logger

	closeOnce sync.Once
	closeErr  error
}

var _ browser.Browser = (*Browser)(nil)

// NewPage opens a tab and applies the configured viewport to it.
func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	if b.ctx.Err() != nil {
		return nil, browser.ErrClosed
	}
	tabCtx, tabCancel := chromedp.NewContext(b.ctx)

	var setup []chromedp.Action
	if b.viewport.Width > 0 && b.viewport.Height > 0 {
		setup = append(setup, emulation.SetDeviceMetricsOverride(int64(b.viewport.Width), int64(b.viewport.Height), 1, false))
	}
	if err := firstRun(ctx, tabCtx, 0, setup...); err != nil {
		tabCancel()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	b.logger.Debug("Page opened.")
	return newPage(tabCtx, tabCancel, b.logger), nil
}

// Close shuts the browser down gracefully and kills the process if that
// does not finish before ctx is done.
func (b *Browser) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		done := make(chan error, 1)
		go func() { done <- chromedp.Cancel(b.ctx) }()

		select {
		case err := <-done:
			b.closeErr = err
		case <-ctx.Done():
			b.closeErr = fmt.Errorf("graceful browser shutdown interrupted: %w", ctx.Err())
		}
		// Always release the allocator; this kills the process if it is still alive.
		b.cancel()
		b.allocCancel()
		b.logger.Info("Browser closed.")
	})
	return b.closeErr
}
