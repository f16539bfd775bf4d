package spotify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/browser"
	"github.com/changkevin51/Music-Downloader/internal/core"
)

// TitleFetcher reads the track heading from a rendered track page.
type TitleFetcher struct {
	launcher browser.Launcher
	config   *core.SpotifyConfig
	browser  *core.BrowserConfig
	logger   *zap.Logger
}

func NewTitleFetcher(launcher browser.Launcher, config *core.SpotifyConfig, browserConfig *core.BrowserConfig, logger *zap.Logger) *TitleFetcher {
	return &TitleFetcher{
		launcher: launcher,
		config:   config,
		browser:  browserConfig,
		logger:   logger,
	}
}

// FetchTitle opens its own browser session, and always closes it before returning.
func (f *TitleFetcher) FetchTitle(ctx context.Context, canonicalURL string) (string, error) {
	session, err := f.launcher.Launch(ctx)
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			f.logger.Warn("Failed to close browser session", zap.Error(err))
		}
	}()

	f.logger.Debug("Loading track page", zap.String("url", canonicalURL))
	if err := session.Navigate(ctx, canonicalURL); err != nil {
		return "", fmt.Errorf("open track page: %w", err)
	}

	title, err := browser.FirstText(ctx, session, f.config.TitleSelector, f.browser.PageTimeout)
	switch {
	case errors.Is(err, browser.ErrTimeout):
		return "", fmt.Errorf("%w: no %q heading on %s", core.ErrExtractionFailed, f.config.TitleSelector, canonicalURL)
	case err != nil:
		return "", fmt.Errorf("read track heading: %w", err)
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return "", fmt.Errorf("%w: empty heading on %s", core.ErrExtractionFailed, canonicalURL)
	}

	f.logger.Info("Track title extracted", zap.String("url", canonicalURL), zap.String("title", title))
	return title, nil
}
