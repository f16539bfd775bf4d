// Package ffmpeg converts downloaded audio with the ffmpeg command line tools.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

// ExitError carries the encoder's stderr.
type ExitError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%v: %v", core.ErrTranscodeFailed, e.Err)
}

func (e *ExitError) Unwrap() []error {
	return []error{core.ErrTranscodeFailed, e.Err}
}

// Detail is the message shown to the user.
func (e *ExitError) Detail() string {
	if e.Stderr != "" {
		return e.Stderr
	}
	return e.Err.Error()
}

// Transcoder implements core.Transcoder.
type Transcoder struct {
	binary string
	logger *zap.Logger
}

func NewTranscoder(config *core.TranscodeConfig, logger *zap.Logger) *Transcoder {
	binary := strings.TrimSpace(config.FFmpegPath)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Transcoder{
		binary: binary,
		logger: logger,
	}
}

// Args returns the encoder arguments for one conversion.
func Args(inputPath, outputPath string, bitrateKbps, sampleRateHz int) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-i", inputPath,
		"-vn",
		"-b:a", strconv.Itoa(bitrateKbps) + "k",
		"-ar", strconv.Itoa(sampleRateHz),
		"-y",
		outputPath,
	}
}

// Transcode encodes inputPath into outputPath. When both paths are the same
// file the result is written next to it first and renamed over the source.
func (t *Transcoder) Transcode(ctx context.Context, inputPath, outputPath string, bitrateKbps, sampleRateHz int) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		return &ExitError{Err: fmt.Errorf("input file: %w", err)}
	}
	if !info.Mode().IsRegular() {
		return &ExitError{Err: fmt.Errorf("input %s is not a regular file", inputPath)}
	}

	target := outputPath
	inPlace := samePath(inputPath, outputPath)
	if inPlace {
		ext := filepath.Ext(outputPath)
		target = strings.TrimSuffix(outputPath, ext) + ".transcoding" + ext
		defer os.Remove(target)
	}

	args := Args(inputPath, target, bitrateKbps, sampleRateHz)
	cmd := exec.CommandContext(ctx, t.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.logger.Debug("Running ffmpeg", zap.Strings("args", args))
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("encoder stopped: %w", ctxErr)
		}
		return &ExitError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	if err := checkOutput(target); err != nil {
		return &ExitError{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}

	if inPlace {
		if err := os.Rename(target, outputPath); err != nil {
			return &ExitError{Args: args, Err: fmt.Errorf("replace source: %w", err)}
		}
	}

	t.logger.Info("Audio transcoded",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int("bitrate_kbps", bitrateKbps),
		zap.Int("sample_rate_hz", sampleRateHz))
	return nil
}

func checkOutput(path string) error {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("encoder produced no file at %s", path)
	}
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("encoder produced an empty file at %s", path)
	}
	return nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
