package youtube

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/browser"
	"github.com/changkevin51/Music-Downloader/internal/core"
)

// Locator implements core.VideoLocator by driving a browser to the search page.
type Locator struct {
	launcher  browser.Launcher
	extractor ResultExtractor
	config    *core.YouTubeConfig
	browser   *core.BrowserConfig
	logger    *zap.Logger
}

func NewLocator(launcher browser.Launcher, extractor ResultExtractor, config *core.YouTubeConfig,
	browserConfig *core.BrowserConfig, logger *zap.Logger) *Locator {
	if extractor == nil {
		extractor = NewThumbnailExtractor(config)
	}
	return &Locator{
		launcher:  launcher,
		extractor: extractor,
		config:    config,
		browser:   browserConfig,
		logger:    logger,
	}
}

// Locate returns the absolute URL of the top search result for title.
func (l *Locator) Locate(ctx context.Context, title string) (string, error) {
	searchURL, err := SearchURL(l.config.SearchURL, title)
	if err != nil {
		return "", err
	}

	session, err := l.launcher.Launch(ctx)
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			l.logger.Warn("Failed to close browser session", zap.Error(err))
		}
	}()

	l.logger.Debug("Loading search page", zap.String("url", searchURL))
	if err := session.Navigate(ctx, searchURL); err != nil {
		return "", fmt.Errorf("open search page: %w", err)
	}

	href, err := l.extractor.Extract(ctx, session, l.browser.PageTimeout)
	if err != nil {
		return "", err
	}

	videoURL, err := resolveHref(searchURL, href)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrExtractionFailed, err)
	}

	l.logger.Info("Video located", zap.String("title", title), zap.String("video_url", videoURL))
	return videoURL, nil
}

// SearchURL appends the escaped title as the search_query parameter of base.
func SearchURL(base, title string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid search URL %q: %w", base, err)
	}
	q := u.Query()
	q.Set("search_query", title)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resolveHref(pageURL, href string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid result link %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
