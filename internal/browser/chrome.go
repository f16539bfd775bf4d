package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

// ChromeLauncher starts a fresh headless Chrome per session.
type ChromeLauncher struct {
	config *core.BrowserConfig
	logger *zap.Logger
}

func NewChromeLauncher(config *core.BrowserConfig, logger *zap.Logger) *ChromeLauncher {
	return &ChromeLauncher{
		config: config,
		logger: logger,
	}
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", l.config.Headless),
		chromedp.DisableGPU,
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("log-level", "3"),
		chromedp.WindowSize(l.config.WindowWidth, l.config.WindowHeight),
	)
	if l.config.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.config.ExecPath))
	}
	if l.config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.config.UserAgent))
	}
	if l.config.DisableSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// Launch starts Chrome and opens one tab. The browser outlives ctx and is
// only released by Session.Close.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	base := context.WithoutCancel(ctx)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(base, l.allocatorOptions()...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(l.logger.Sugar().Debugf))

	s := &chromeSession{
		ctx:          tabCtx,
		logger:       l.logger,
		pollInterval: l.config.PollInterval,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}

	// The first Run starts the browser process, and chromedp ties the process
	// and its event loops to the context of that call. It has to run on
	// s.ctx itself; cancelling s.ctx is the only way to abort it.
	var timedOut atomic.Bool
	var timer *time.Timer
	if l.config.LaunchTimeout > 0 {
		timer = time.AfterFunc(l.config.LaunchTimeout, func() {
			timedOut.Store(true)
			s.cancel()
		})
	}
	stop := context.AfterFunc(ctx, s.cancel)

	err := chromedp.Run(s.ctx)

	stop()
	if timer != nil {
		timer.Stop()
	}
	switch {
	case ctx.Err() != nil:
		err = ctx.Err()
	case timedOut.Load():
		err = fmt.Errorf("no response within %s", l.config.LaunchTimeout)
	}
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	l.logger.Debug("Browser session started")
	return s, nil
}

type chromeSession struct {
	ctx          context.Context
	cancel       func()
	logger       *zap.Logger
	pollInterval time.Duration

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// run executes actions on the tab and stops them when the caller's ctx ends.
// Only the launch Run may use s.ctx directly; later ones run on a child.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}

	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating", zap.String("url", url))
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	return Poll(ctx, timeout, s.pollInterval, func(ctx context.Context) (bool, error) {
		nodes, err := s.nodes(ctx, selector)
		if err != nil {
			return false, err
		}
		return len(nodes) > 0, nil
	})
}

func (s *chromeSession) nodes(ctx context.Context, selector string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := s.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

func (s *chromeSession) FindElements(ctx context.Context, selector string) ([]Element, error) {
	nodes, err := s.nodes(ctx, selector)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &chromeElement{session: s, node: n})
	}
	return elements, nil
}

func (s *chromeSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		// Cancel asks Chrome to shut down and waits for the process to exit.
		if cancelErr := chromedp.Cancel(s.ctx); cancelErr != nil && !errors.Is(cancelErr, context.Canceled) {
			err = cancelErr
		}
		s.cancel()
		s.logger.Debug("Browser session closed")
	})
	return err
}

type chromeElement struct {
	session *chromeSession
	node    *cdp.Node
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.session.run(ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *chromeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	value, ok := e.node.Attribute(name)
	return value, ok, nil
}
