// internal/browser/cdp/launcher_test.go
package cdp

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/uiverify/internal/browser"
	"github.com/xkilldash9x/uiverify/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestAllocatorOptions(t *testing.T) {
	base := config.BrowserConfig{
		Headless:      true,
		Viewport:      config.ViewportConfig{Width: 1280, Height: 800},
		LaunchTimeout: time.Second,
	}

	t.Run("defaults are kept", func(t *testing.T) {
		opts := AllocatorOptions(base)
		assert.GreaterOrEqual(t, len(opts), len(chromedp.DefaultExecAllocatorOptions))
	})

	// Allocator options are opaque funcs, so the checks below compare counts.
	t.Run("tls errors add two flags", func(t *testing.T) {
		cfg := base
		cfg.IgnoreTLSErrors = true
		assert.Equal(t, len(AllocatorOptions(base))+2, len(AllocatorOptions(cfg)))
	})

	t.Run("custom args skip empty names", func(t *testing.T) {
		cfg := base
		cfg.Args = []string{"--lang=en-US", "--mute-audio", "--"}
		assert.Equal(t, len(AllocatorOptions(base))+2, len(AllocatorOptions(cfg)))
	})

	t.Run("window size", func(t *testing.T) {
		withSize := AllocatorOptions(base)

		cfg := base
		cfg.Viewport = config.ViewportConfig{}
		withoutSize := AllocatorOptions(cfg)

		assert.Equal(t, len(withoutSize)+1, len(withSize))
	})

	t.Run("exec path", func(t *testing.T) {
		cfg := base
		cfg.ExecPath = "/opt/chrome/chrome"
		assert.Equal(t, len(AllocatorOptions(base))+1, len(AllocatorOptions(cfg)))
	})
}

func TestFirstRun(t *testing.T) {
	t.Run("non-chromedp context is rejected", func(t *testing.T) {
		err := firstRun(context.Background(), context.Background(), time.Second)
		assert.ErrorIs(t, err, chromedp.ErrInvalidContext)
	})

	t.Run("canceled caller", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		// The chromedp error may win the race; either way the call returns promptly.
		err := firstRun(ctx, context.Background(), time.Second)
		assert.Error(t, err)
	})
}

func TestBrowserClosedRejectsPages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Browser{ctx: ctx, cancel: cancel, allocCancel: func() {}, logger: zaptest.NewLogger(t)}

	_, err := b.NewPage(context.Background())
	assert.ErrorIs(t, err, browser.ErrClosed)
}
