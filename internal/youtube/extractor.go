// Package youtube finds the video matching a track title on a video search page.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/changkevin51/Music-Downloader/internal/browser"
	"github.com/changkevin51/Music-Downloader/internal/core"
)

// ResultExtractor reads the top result link from a loaded search page.
// It is the only part of the locator that knows the page structure.
type ResultExtractor interface {
	// Extract returns the href of the first result as written in the page.
	Extract(ctx context.Context, session browser.Session, timeout time.Duration) (string, error)
}

// ThumbnailExtractor takes the link behind the first result thumbnail.
type ThumbnailExtractor struct {
	ResultSelector    string
	NoResultsSelector string
}

func NewThumbnailExtractor(config *core.YouTubeConfig) *ThumbnailExtractor {
	return &ThumbnailExtractor{
		ResultSelector:    config.ResultSelector,
		NoResultsSelector: config.NoResultsSelector,
	}
}

func (e *ThumbnailExtractor) Extract(ctx context.Context, session browser.Session, timeout time.Duration) (string, error) {
	selector := e.ResultSelector
	if e.NoResultsSelector != "" {
		selector += ", " + e.NoResultsSelector
	}

	err := session.WaitFor(ctx, selector, timeout)
	if errors.Is(err, browser.ErrTimeout) {
		return "", fmt.Errorf("%w: no element matched %q", core.ErrExtractionFailed, e.ResultSelector)
	}
	if err != nil {
		return "", err
	}

	results, err := session.FindElements(ctx, e.ResultSelector)
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		// Only the empty-results marker rendered.
		return "", fmt.Errorf("%w: search returned no videos", core.ErrNotFound)
	}

	href, ok, err := results[0].Attribute(ctx, "href")
	if err != nil {
		return "", err
	}
	href = strings.TrimSpace(href)
	if !ok || href == "" {
		return "", fmt.Errorf("%w: first result has no link", core.ErrExtractionFailed)
	}
	return href, nil
}
