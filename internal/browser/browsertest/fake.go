// Package browsertest provides a scripted browser driver for tests.
//
// Pages are plain HTML documents keyed by URL and queried with CSS selectors
// through goquery. The Launcher counts every session it opens and closes so
// tests can assert that no session leaks.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/changkevin51/Music-Downloader/internal/browser"
)

// Page is one scripted document.
type Page struct {
	HTML string
	// RenderAfter hides every element until this long after navigation,
	// standing in for client-side rendering.
	RenderAfter time.Duration
	// NavigateErr makes Navigate fail.
	NavigateErr error
}

// Launcher is a fake browser.Launcher.
type Launcher struct {
	// Pages maps exact URLs to documents.
	Pages     map[string]Page
	LaunchErr error

	mu       sync.Mutex
	launched int
	closed   int
	open     int
	maxOpen  int
	visited  []string
	sessions []*Session
}

func NewLauncher(pages map[string]Page) *Launcher {
	if pages == nil {
		pages = map[string]Page{}
	}
	return &Launcher{Pages: pages}
}

func (l *Launcher) Launch(_ context.Context) (browser.Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}

	l.launched++
	l.open++
	if l.open > l.maxOpen {
		l.maxOpen = l.open
	}
	s := &Session{launcher: l}
	l.sessions = append(l.sessions, s)
	return s, nil
}

// Launched is the number of sessions opened so far.
func (l *Launcher) Launched() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launched
}

// Closed is the number of sessions closed so far. Repeated Close calls on one session count once.
func (l *Launcher) Closed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// MaxOpen is the largest number of sessions that were open at the same time.
func (l *Launcher) MaxOpen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.maxOpen
}

// Visited lists every URL navigated to, in order.
func (l *Launcher) Visited() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.visited...)
}

// CloseCalls returns how many times Close was called on each session.
func (l *Launcher) CloseCalls() []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	calls := make([]int, 0, len(l.sessions))
	for _, s := range l.sessions {
		calls = append(calls, s.closeCalls)
	}
	return calls
}

func (l *Launcher) page(url string) (Page, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.visited = append(l.visited, url)
	if p, ok := l.Pages[url]; ok {
		return p, true
	}
	return Page{}, false
}

// Session is a fake browser.Session.
type Session struct {
	launcher *Launcher

	mu          sync.Mutex
	doc         *goquery.Document
	page        Page
	navigatedAt time.Time
	closeCalls  int
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls > 0
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.isClosed() {
		return browser.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	page, ok := s.launcher.page(url)
	if !ok {
		page = Page{HTML: "<html><body><h2>404</h2></body></html>"}
	}
	if page.NavigateErr != nil {
		return page.NavigateErr
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return fmt.Errorf("parse scripted page %s: %w", url, err)
	}

	s.mu.Lock()
	s.doc = doc
	s.page = page
	s.navigatedAt = time.Now()
	s.mu.Unlock()
	return nil
}

func (s *Session) selection(selector string) *goquery.Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil || time.Since(s.navigatedAt) < s.page.RenderAfter {
		return nil
	}
	return s.doc.Find(selector)
}

func (s *Session) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if s.isClosed() {
		return browser.ErrClosed
	}
	return browser.Poll(ctx, timeout, 5*time.Millisecond, func(context.Context) (bool, error) {
		sel := s.selection(selector)
		return sel != nil && sel.Length() > 0, nil
	})
}

func (s *Session) FindElements(_ context.Context, selector string) ([]browser.Element, error) {
	if s.isClosed() {
		return nil, browser.ErrClosed
	}
	sel := s.selection(selector)
	if sel == nil {
		return nil, nil
	}
	elements := make([]browser.Element, 0, sel.Length())
	sel.Each(func(_ int, el *goquery.Selection) {
		elements = append(elements, &Element{sel: el})
	})
	return elements, nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closeCalls++
	first := s.closeCalls == 1
	s.mu.Unlock()

	if first {
		s.launcher.mu.Lock()
		s.launcher.closed++
		s.launcher.open--
		s.launcher.mu.Unlock()
	}
	return nil
}

// Element is a fake browser.Element.
type Element struct {
	sel *goquery.Selection
}

func (e *Element) Text(_ context.Context) (string, error) {
	return strings.TrimSpace(e.sel.Text()), nil
}

func (e *Element) Attribute(_ context.Context, name string) (string, bool, error) {
	value, ok := e.sel.Attr(name)
	return value, ok, nil
}

// ErrScripted is a convenience error for scripted failures.
var ErrScripted = errors.New("scripted browser failure")
