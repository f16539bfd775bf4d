package ytdlp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/core"
	"github.com/changkevin51/Music-Downloader/pkg/fuzzy"
)

// Partial files yt-dlp leaves behind while or after downloading.
var partialSuffixes = []string{".part", ".ytdl", ".temp"}

// Retriever implements core.AudioRetriever.
type Retriever struct {
	tool       Tool
	normalizer *fuzzy.Normalizer
	logger     *zap.Logger
}

func NewRetriever(tool Tool, logger *zap.Logger) *Retriever {
	return &Retriever{
		tool:       tool,
		normalizer: fuzzy.NewNormalizer(),
		logger:     logger,
	}
}

// Download fetches videoURL into destDir and checks that the produced file belongs to expectedTitle.
func (r *Retriever) Download(ctx context.Context, videoURL, destDir, expectedTitle string) (*core.LocalAudioFile, error) {
	started := time.Now()
	res, err := r.tool.Fetch(ctx, videoURL, destDir)
	if err != nil {
		return nil, core.Fail(core.ErrDownloadFailed, toolMessage(res, err))
	}

	path, err := r.locate(destDir, expectedTitle, res.Path)
	if err != nil {
		return nil, err
	}

	r.logger.Info("Audio downloaded",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(started)))
	return &core.LocalAudioFile{
		Path:   path,
		Format: strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
	}, nil
}

// locate applies the post-download check. A path reported by the tool is
// authoritative; without one the directory is scanned.
func (r *Retriever) locate(destDir, expectedTitle, reported string) (string, error) {
	if reported != "" {
		if !isInside(destDir, reported) {
			return "", core.Fail(core.ErrDownloadFailed, fmt.Sprintf("tool wrote %s outside %s", reported, destDir))
		}
		if !isRegularFile(reported) {
			return "", core.Fail(core.ErrDownloadFailed, fmt.Sprintf("reported file %s does not exist", reported))
		}
		if !r.normalizer.FileMatchesTitle(reported, expectedTitle) {
			return "", core.Fail(core.ErrDownloadFailed,
				fmt.Sprintf("downloaded file %s does not match title %q", filepath.Base(reported), expectedTitle))
		}
		return reported, nil
	}

	path, err := r.newestMatch(destDir, expectedTitle)
	if err != nil {
		return "", core.Fail(core.ErrDownloadFailed, err.Error())
	}
	if path == "" {
		return "", core.Fail(core.ErrDownloadFailed, fmt.Sprintf("no file matching %q in %s", expectedTitle, destDir))
	}
	return path, nil
}

func (r *Retriever) newestMatch(destDir, expectedTitle string) (string, error) {
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return "", fmt.Errorf("read download directory: %w", err)
	}

	var (
		best     string
		bestTime time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || isPartial(entry.Name()) {
			continue
		}
		if !r.normalizer.FileMatchesTitle(entry.Name(), expectedTitle) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			best = filepath.Join(destDir, entry.Name())
			bestTime = info.ModTime()
		}
	}
	return best, nil
}

func toolMessage(res *ToolResult, err error) string {
	if res != nil && res.Output != "" {
		return res.Output
	}
	return err.Error()
}

func isPartial(name string) bool {
	for _, suffix := range partialSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

func isInside(dir, path string) bool {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	return err == nil && rel != "." && !strings.HasPrefix(rel, "..")
}

func isRegularFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
