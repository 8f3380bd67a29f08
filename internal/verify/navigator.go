package verify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// NavigateResult is the outcome of loading the target page.
type NavigateResult struct {
	URL string
	OK  bool
	// Title is read after load as a smoke signal. Empty if it could not be read.
	Title    string
	Duration time.Duration
	Err      error
}

// defaultTitleTimeout bounds the title read after a successful load.
const defaultTitleTimeout = 5 * time.Second

// Navigator loads the target page.
type Navigator struct {
	titleTimeout time.Duration
	logger       *zap.Logger
}

func NewNavigator(logger *zap.Logger) *Navigator {
	return &Navigator{titleTimeout: defaultTitleTimeout, logger: logger.Named("navigator")}
}

// Navigate loads url within timeout. A failure wraps ErrNavigation and is
// fatal for the run.
func (n *Navigator) Navigate(ctx context.Context, s *Session, url string, timeout time.Duration) NavigateResult {
	start := time.Now()
	res := NavigateResult{URL: url}

	n.logger.Info("Navigating...", zap.String("url", url), zap.Duration("timeout", timeout))
	if err := s.Page.Goto(ctx, url, timeout); err != nil {
		res.Duration = time.Since(start)
		res.Err = fmt.Errorf("%w: %w", ErrNavigation, err)
		n.logger.Error("Navigation failed.", zap.String("url", url), zap.Duration("timeout", timeout), zap.Error(err))
		return res
	}

	res.OK = true
	titleCtx, cancel := context.WithTimeout(ctx, n.titleTimeout)
	title, err := s.Page.Title(titleCtx)
	cancel()
	if err != nil {
		n.logger.Warn("Could not read page title.", zap.Error(err))
	}
	res.Title = title
	res.Duration = time.Since(start)
	n.logger.Info("Page loaded.", zap.String("title", title), zap.Duration("elapsed", res.Duration))
	return res
}
