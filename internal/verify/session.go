// File: internal/verify/session.go
package verify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/uiverify/internal/browser"
)

// Session is the browser and page pair owned by one run.
type Session struct {
	Browser browser.Browser
	Page    browser.Page

	releaseOnce sync.Once
}

// SessionController acquires and releases sessions.
type SessionController struct {
	launcher       browser.Launcher
	releaseTimeout time.Duration
	logger         *zap.Logger
}

// NewSessionController creates a controller. releaseTimeout bounds teardown.
func NewSessionController(launcher browser.Launcher, releaseTimeout time.Duration, logger *zap.Logger) *SessionController {
	return &SessionController{
		launcher:       launcher,
		releaseTimeout: releaseTimeout,
		logger:         logger.Named("session"),
	}
}

// Acquire launches a browser and opens one page. If the page cannot be
// opened the browser is closed before the error is returned.
func (c *SessionController) Acquire(ctx context.Context) (*Session, error) {
	b, err := c.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	if b == nil {
		return nil, fmt.Errorf("%w: launcher returned no browser", ErrLaunch)
	}

	p, err := b.NewPage(ctx)
	if err != nil || p == nil {
		partial := &Session{Browser: b}
		c.Release(ctx, partial)
		if err == nil {
			err = fmt.Errorf("browser returned no page")
		}
		return nil, fmt.Errorf("%w: opening page: %w", ErrLaunch, err)
	}

	c.logger.Debug("Session acquired.")
	return &Session{Browser: b, Page: p}, nil
}

// Release closes the page and then the browser. It runs at most once per
// session, tolerates handles left nil by a partial acquisition, and never
// panics. Close errors are logged, not returned. Teardown uses a context
// detached from ctx so a canceled run still closes the browser.
func (c *SessionController) Release(ctx context.Context, s *Session) {
	if s == nil {
		return
	}
	s.releaseOnce.Do(func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.releaseTimeout)
		defer cancel()

		if s.Page != nil {
			c.closeQuietly(relCtx, "page", s.Page.Close)
		}
		if s.Browser != nil {
			c.closeQuietly(relCtx, "browser", s.Browser.Close)
		}
		c.logger.Debug("Session released.")
	})
}

func (c *SessionController) closeQuietly(ctx context.Context, what string, closeFn func(context.Context) error) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("Panic while closing.", zap.String("handle", what), zap.Any("panic", p))
		}
	}()
	if err := closeFn(ctx); err != nil {
		c.logger.Warn("Failed to close cleanly.", zap.String("handle", what), zap.Error(err))
	}
}
