// internal/capture/session.go
package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pagesnap/pagesnap-cli/internal/config"
)

// ErrAlreadyAttached reports a repeated Ensure on a live session. Callers
// treat it as the expected steady state, not a failure.
var ErrAlreadyAttached = errors.New("capture engine already present in page")

// Session owns one headless browser tab pointed at the target page and
// implements Evaluator on top of it.
type Session struct {
	id     string
	target string
	cfg    config.BrowserConfig
	logger *zap.Logger

	ctx     context.Context
	cancels []context.CancelFunc

	mu       sync.Mutex
	attached bool
}

// NewSession builds the allocator and tab contexts. The browser process is
// not launched until the first Ensure.
func NewSession(parent context.Context, target string, cfg config.BrowserConfig, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	sessionID := uuid.New().String()
	log := logger.Named("session").With(zap.String("session_id", sessionID))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(log.Sugar().Debugf),
		chromedp.WithErrorf(log.Sugar().Errorf),
	)

	// The capture runs unattended: dialogs are dismissed so evaluation never
	// blocks behind a modal, and page exceptions are logged rather than shown.
	chromedp.ListenTarget(tabCtx, func(ev any) {
		switch e := ev.(type) {
		case *page.EventJavascriptDialogOpening:
			go func() {
				if err := chromedp.Run(tabCtx, page.HandleJavaScriptDialog(false)); err != nil {
					log.Debug("Failed to dismiss page dialog.", zap.Error(err))
				}
			}()
		case *cdpruntime.EventExceptionThrown:
			log.Debug("Page threw an exception.", zap.String("detail", e.ExceptionDetails.Error()))
		}
	})

	return &Session{
		id:      sessionID,
		target:  target,
		cfg:     cfg,
		logger:  log,
		ctx:     tabCtx,
		cancels: []context.CancelFunc{tabCancel, allocCancel},
	}
}

// Ensure makes the capture engine present in the target page: the first call
// launches the browser, navigates and lets the page settle. Subsequent calls
// return ErrAlreadyAttached.
func (s *Session) Ensure(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.attached {
		return ErrAlreadyAttached
	}

	navCtx := s.ctx
	if s.cfg.NavigationTimeout > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(s.ctx, s.cfg.NavigationTimeout)
		defer cancel()
	}

	tasks := chromedp.Tasks{
		chromedp.Navigate(s.target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if s.cfg.StabilizeWait > 0 {
		tasks = append(tasks, chromedp.Sleep(s.cfg.StabilizeWait))
	}
	if err := chromedp.Run(navCtx, tasks); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("failed to navigate to %s: %w", s.target, err)
	}

	s.attached = true
	s.logger.Debug("Page ready for capture.", zap.String("target", s.target))
	return nil
}

// Evaluate implements Evaluator. The caller's deadline, if any, bounds the
// run against the tab context.
func (s *Session) Evaluate(ctx context.Context, expr string, out any) error {
	runCtx, cancel := s.boundedCtx(ctx)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Evaluate(expr, out))
}

// AwaitFunction implements Evaluator via CDP polling. The poll timeout also
// tears down the waiting function in the page, leaving no dangling wait.
func (s *Session) AwaitFunction(ctx context.Context, fn string, timeout time.Duration) error {
	runCtx, cancel := s.boundedCtx(ctx)
	defer cancel()

	var settled bool
	err := chromedp.Run(runCtx, chromedp.PollFunction(fn, &settled, chromedp.WithPollingTimeout(timeout)))
	if err != nil {
		if errors.Is(err, chromedp.ErrPollingTimeout) {
			return fmt.Errorf("wait timed out after %s: %w", timeout, err)
		}
		return err
	}
	return nil
}

func (s *Session) boundedCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok {
		return context.WithDeadline(s.ctx, deadline)
	}
	return context.WithCancel(s.ctx)
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	for _, cancel := range s.cancels {
		cancel()
	}
}
