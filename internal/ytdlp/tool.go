// Package ytdlp downloads the best audio stream of a video with yt-dlp.
package ytdlp

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

// OutputTemplate names files after the video's own metadata.
const OutputTemplate = "%(title)s.%(ext)s"

// ToolResult is what the download tool reported.
type ToolResult struct {
	// Path is the final file path printed by the tool, empty if none was printed.
	Path string
	// Output is the tool's combined diagnostic output.
	Output string
}

// Tool runs one download of videoURL into destDir.
type Tool interface {
	Fetch(ctx context.Context, videoURL, destDir string) (*ToolResult, error)
}

// YtDlp drives the yt-dlp executable through go-ytdlp.
type YtDlp struct {
	config *core.DownloadConfig
	logger *zap.Logger

	installOnce sync.Once
	installErr  error
}

func NewYtDlp(config *core.DownloadConfig, logger *zap.Logger) *YtDlp {
	return &YtDlp{
		config: config,
		logger: logger,
	}
}

// Install downloads a yt-dlp binary when auto-install is enabled. It runs at most once.
func (y *YtDlp) Install(ctx context.Context) error {
	if !y.config.AutoInstall {
		return nil
	}
	y.installOnce.Do(func() {
		resolved, err := ytdlp.Install(ctx, nil)
		if err != nil {
			y.installErr = fmt.Errorf("install yt-dlp: %w", err)
			return
		}
		y.logger.Info("yt-dlp installed", zap.String("path", resolved.Executable), zap.String("version", resolved.Version))
	})
	return y.installErr
}

func (y *YtDlp) command(destDir string) *ytdlp.Command {
	dl := ytdlp.New().
		Format("bestaudio/best").
		NoPlaylist().
		Output(filepath.Join(destDir, OutputTemplate)).
		Print("after_move:filepath").
		NoSimulate()

	if y.config.YtDlpPath != "" && !y.config.AutoInstall {
		dl.SetExecutable(y.config.YtDlpPath)
	}
	return dl
}

func (y *YtDlp) Fetch(ctx context.Context, videoURL, destDir string) (*ToolResult, error) {
	if err := y.Install(ctx); err != nil {
		return nil, err
	}

	y.logger.Debug("Running yt-dlp", zap.String("url", videoURL), zap.String("dir", destDir))
	res, err := y.command(destDir).Run(ctx, videoURL)

	out := &ToolResult{}
	if res != nil {
		out.Path = lastLine(res.Stdout)
		out.Output = strings.TrimSpace(res.Stderr)
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out, fmt.Errorf("yt-dlp timed out: %w", ctx.Err())
		}
		return out, err
	}
	return out, nil
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
