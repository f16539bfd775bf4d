// Package browser abstracts the headless browser used to read rendered pages.
//
// Callers get a Session from a Launcher, drive it with Navigate/WaitFor/FindElements,
// and must Close it on every exit path.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by WaitFor when the selector did not match in time.
	ErrTimeout = errors.New("timed out waiting for element")
	// ErrClosed is returned by every Session method after Close.
	ErrClosed = errors.New("browser session closed")
)

// Launcher starts isolated browser sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is a single headless browser window.
type Session interface {
	// Navigate loads url and returns once the document has been requested.
	Navigate(ctx context.Context, url string) error
	// WaitFor blocks until selector matches at least one element or timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// FindElements returns every element matching selector, possibly none.
	FindElements(ctx context.Context, selector string) ([]Element, error)
	// Close releases the browser. It is safe to call more than once.
	Close() error
}

// Element is a DOM element captured by FindElements.
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute returns the attribute value and whether the attribute exists.
	Attribute(ctx context.Context, name string) (string, bool, error)
}

// Poll calls cond every interval until it reports true, it fails, ctx ends
// or timeout elapses. Timeouts are reported as ErrTimeout.
func Poll(ctx context.Context, timeout, interval time.Duration, cond func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return ErrTimeout
			}
			return ctx.Err()
		case <-deadline.C:
			return ErrTimeout
		case <-ticker.C:
		}
	}
}

// FirstText waits for selector and returns the text of its first match.
func FirstText(ctx context.Context, s Session, selector string, timeout time.Duration) (string, error) {
	if err := s.WaitFor(ctx, selector, timeout); err != nil {
		return "", err
	}
	elements, err := s.FindElements(ctx, selector)
	if err != nil {
		return "", err
	}
	if len(elements) == 0 {
		return "", ErrTimeout
	}
	return elements[0].Text(ctx)
}
