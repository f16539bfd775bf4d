package ffmpeg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

type probeResult struct {
	Streams []probeStream `json:"streams"`
	Format  probeFormat   `json:"format"`
}

type probeStream struct {
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	BitRate    string `json:"bit_rate"`
	SampleRate string `json:"sample_rate"`
}

type probeFormat struct {
	Duration string `json:"duration"`
	BitRate  string `json:"bit_rate"`
}

// Prober implements core.Prober with ffprobe.
type Prober struct {
	binary string
}

func NewProber(config *core.TranscodeConfig) *Prober {
	binary := strings.TrimSpace(config.FFprobePath)
	if binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary}
}

func (p *Prober) Probe(ctx context.Context, path string) (*core.AudioInfo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("ffprobe: empty path")
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "error", "-hide_banner",
		"-print_format", "json", "-show_format", "-show_streams",
		"--", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("ffprobe: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, fmt.Errorf("ffprobe: %w", err)
	}

	return parseProbe(output)
}

func parseProbe(output []byte) (*core.AudioInfo, error) {
	var result probeResult
	if err := json.Unmarshal(output, &result); err != nil {
		return nil, fmt.Errorf("ffprobe parse: %w", err)
	}

	info := &core.AudioInfo{
		Duration: time.Duration(math.Round(parseFloat(result.Format.Duration) * float64(time.Second))),
	}
	bitrate := parseFloat(result.Format.BitRate)

	for _, stream := range result.Streams {
		if !strings.EqualFold(stream.CodecType, "audio") {
			continue
		}
		info.Codec = stream.CodecName
		info.SampleRateHz = int(parseFloat(stream.SampleRate))
		if rate := parseFloat(stream.BitRate); rate > 0 {
			bitrate = rate
		}
		break
	}

	info.BitrateKbps = int(math.Round(bitrate / 1000))
	return info, nil
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(parsed) || parsed < 0 {
		return 0
	}
	return parsed
}
