package ffmpeg

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/core"
)

// writeScript installs a fake encoder in a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("source audio"), 0o644))
	return path
}

const copyToLastArg = `for last; do :; done
printf 'encoded' > "$last"`

func TestArgs(t *testing.T) {
	got := Args("in.webm", "out.mp3", 320, 44100)
	want := []string{"-hide_banner", "-nostdin", "-i", "in.webm", "-vn", "-b:a", "320k", "-ar", "44100", "-y", "out.mp3"}
	assert.Equal(t, want, got)
}

func TestTranscoder_Transcode(t *testing.T) {
	tests := []struct {
		name       string
		script     string
		wantErr    bool
		wantDetail string
	}{
		{
			name:   "Encoder writes the output",
			script: copyToLastArg,
		},
		{
			name:       "Encoder exits non-zero",
			script:     `echo "in.webm: Invalid data found when processing input" >&2; exit 1`,
			wantErr:    true,
			wantDetail: "in.webm: Invalid data found when processing input",
		},
		{
			name:    "Encoder succeeds without output",
			script:  `exit 0`,
			wantErr: true,
		},
		{
			name: "Encoder writes an empty file",
			script: `for last; do :; done
: > "$last"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			input := writeInput(t, dir, "Song A.webm")
			output := filepath.Join(dir, "Song A.mp3")
			transcoder := NewTranscoder(&core.TranscodeConfig{FFmpegPath: writeScript(t, tt.script)}, zap.NewNop())

			err := transcoder.Transcode(context.Background(), input, output, 320, 44100)

			if !tt.wantErr {
				require.NoError(t, err)
				data, readErr := os.ReadFile(output)
				require.NoError(t, readErr)
				assert.Equal(t, "encoded", string(data))
				assert.FileExists(t, input)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrTranscodeFailed)
			assert.Equal(t, core.KindTranscodeFailed, core.Kind(err))
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, core.Detail(err))
			}
		})
	}
}

func TestTranscoder_SamePath(t *testing.T) {
	dir := t.TempDir()
	path := writeInput(t, dir, "Song A.mp3")
	transcoder := NewTranscoder(&core.TranscodeConfig{FFmpegPath: writeScript(t, copyToLastArg)}, zap.NewNop())

	require.NoError(t, transcoder.Transcode(context.Background(), path, path, 320, 44100))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "encoded", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file should be renamed away")
}

func TestTranscoder_MissingInput(t *testing.T) {
	transcoder := NewTranscoder(&core.TranscodeConfig{FFmpegPath: writeScript(t, copyToLastArg)}, zap.NewNop())
	err := transcoder.Transcode(context.Background(), filepath.Join(t.TempDir(), "nope.webm"), "out.mp3", 320, 44100)
	assert.ErrorIs(t, err, core.ErrTranscodeFailed)
}

func TestTranscoder_Timeout(t *testing.T) {
	dir := t.TempDir()
	input := writeInput(t, dir, "Song A.webm")
	transcoder := NewTranscoder(&core.TranscodeConfig{FFmpegPath: writeScript(t, "exec sleep 5")}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := transcoder.Transcode(ctx, input, filepath.Join(dir, "Song A.mp3"), 320, 44100)
	assert.ErrorIs(t, err, core.ErrTranscodeFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseProbe(t *testing.T) {
	output := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "mjpeg"},
			{"codec_type": "audio", "codec_name": "mp3", "sample_rate": "44100", "bit_rate": "320000"}
		],
		"format": {"duration": "183.456000", "bit_rate": "321234"}
	}`)

	info, err := parseProbe(output)
	require.NoError(t, err)
	assert.Equal(t, "mp3", info.Codec)
	assert.Equal(t, 44100, info.SampleRateHz)
	assert.Equal(t, 320, info.BitrateKbps)
	assert.Equal(t, 183456*time.Millisecond, info.Duration)

	_, err = parseProbe([]byte("not json"))
	assert.Error(t, err)
}

// TestTranscodeFixture runs the real tools on a generated tone.
func TestTranscodeFixture(t *testing.T) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		t.Skip("ffprobe not installed")
	}

	dir := t.TempDir()
	fixture := filepath.Join(dir, "Tone.wav")
	gen := exec.Command(ffmpegPath, "-hide_banner", "-nostdin", "-f", "lavfi",
		"-i", "sine=frequency=440:duration=3", "-ar", "48000", "-y", fixture)
	out, err := gen.CombinedOutput()
	require.NoError(t, err, string(out))

	config := &core.TranscodeConfig{FFmpegPath: ffmpegPath, FFprobePath: ffprobePath}
	prober := NewProber(config)
	ctx := context.Background()

	source, err := prober.Probe(ctx, fixture)
	require.NoError(t, err)

	output := core.OutputPath(fixture)
	require.NoError(t, NewTranscoder(config, zap.NewNop()).Transcode(ctx, fixture, output,
		core.DefaultBitrateKbps, core.DefaultSampleRateHz))

	info, err := prober.Probe(ctx, output)
	require.NoError(t, err)
	assert.Equal(t, "mp3", info.Codec)
	assert.Equal(t, core.DefaultSampleRateHz, info.SampleRateHz)
	assert.InDelta(t, core.DefaultBitrateKbps, info.BitrateKbps, 16)
	assert.InDelta(t, source.Duration.Seconds(), info.Duration.Seconds(), 0.15)
}

func TestExitError(t *testing.T) {
	err := &ExitError{Stderr: "boom", Err: errors.New("exit status 1")}
	assert.ErrorIs(t, err, core.ErrTranscodeFailed)
	assert.Equal(t, "boom", err.Detail())

	bare := &ExitError{Err: errors.New("exit status 1")}
	assert.Equal(t, "exit status 1", bare.Detail())
}
