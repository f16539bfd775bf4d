package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/changkevin51/Music-Downloader/internal/core"
	"github.com/changkevin51/Music-Downloader/internal/i18n"
)

func TestFlagToEnvVar(t *testing.T) {
	tests := map[string]string{
		"spotify-client-id":      "MUSICDL_SPOTIFY_CLIENT_ID",
		"server-port":            "MUSICDL_SERVER_PORT",
		"flood-limit-per-minute": "MUSICDL_FLOOD_LIMIT_PER_MINUTE",
	}
	for flag, want := range tests {
		if got := flagToEnvVar(flag); got != want {
			t.Errorf("flagToEnvVar(%q) = %q, expected %q", flag, got, want)
		}
	}
}

func TestGenerateEnvExampleContent(t *testing.T) {
	content := generateEnvExampleContent(rootCmd)

	for _, section := range flagSections {
		for _, name := range section.flags {
			if rootCmd.PersistentFlags().Lookup(name) == nil {
				t.Errorf("section %q lists unknown flag %q", section.title, name)
				continue
			}
			if !strings.Contains(content, flagToEnvVar(name)+"=") {
				t.Errorf(".env.example missing %s", flagToEnvVar(name))
			}
		}
	}
	for _, want := range []string{"MUSICDL_BITRATE_KBPS=320", "MUSICDL_SAMPLE_RATE_HZ=44100", "MUSICDL_FILE_TTL_MINS=60"} {
		if !strings.Contains(content, want) {
			t.Errorf(".env.example missing default %q", want)
		}
	}
}

func TestBuildConfig(t *testing.T) {
	t.Cleanup(viper.Reset)
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		t.Fatal(err)
	}
	viper.Set("spotify-client-id", "id")
	viper.Set("spotify-client-secret", "secret")
	viper.Set("download-timeout-mins", 2)
	viper.Set("file-ttl-mins", 0)
	viper.Set("language", "xx")

	cfg := buildConfig()

	if cfg.Spotify.ClientID != "id" || cfg.Spotify.ClientSecret != "secret" {
		t.Errorf("credentials not applied: %+v", cfg.Spotify)
	}
	if cfg.Download.Timeout != 2*time.Minute {
		t.Errorf("Download.Timeout = %v, expected 2m", cfg.Download.Timeout)
	}
	if cfg.Server.FileTTL != core.DefaultFileTTLMins*time.Minute {
		t.Errorf("non-positive TTL should fall back to the default, got %v", cfg.Server.FileTTL)
	}
	if cfg.App.Language != i18n.DefaultLanguage {
		t.Errorf("unsupported language should fall back, got %q", cfg.App.Language)
	}
	if cfg.Transcode.BitrateKbps != core.DefaultBitrateKbps || cfg.Transcode.SampleRateHz != core.DefaultSampleRateHz {
		t.Errorf("unexpected encoder profile %+v", cfg.Transcode)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

type scriptedRunner struct {
	statuses []core.Status
	err      error
}

func (r *scriptedRunner) Run(_ context.Context, _ core.Query, reporter core.Reporter) (*core.Result, error) {
	for _, s := range r.statuses {
		reporter.Report(s)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &core.Result{Output: core.LocalAudioFile{Path: "downloads/Song.mp3"}}, nil
}

func TestRunWithSpinner(t *testing.T) {
	runner := &scriptedRunner{statuses: []core.Status{
		{Step: core.StepResolve, Key: "status.resolving", Args: []any{"song"}},
		{Step: core.StepTranscode, Key: "status.done", Args: []any{"Song.mp3", "3:20"}},
	}}
	var out, errOut bytes.Buffer

	result, err := runWithSpinner(context.Background(), runner, "song", i18n.NewLocalizer("en"), &out, &errOut)
	if err != nil {
		t.Fatalf("runWithSpinner() error = %v", err)
	}
	if result.Output.Path != "downloads/Song.mp3" {
		t.Errorf("unexpected result %+v", result)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 status lines, got %q", out.String())
	}
	if !strings.Contains(lines[0], `Looking up "song" on Spotify`) || !strings.Contains(lines[1], "Done: Song.mp3 (3:20)") {
		t.Errorf("unexpected status lines %q", lines)
	}
}

func TestRunWithSpinner_Error(t *testing.T) {
	runner := &scriptedRunner{err: &core.StepError{Step: core.StepLocate, Err: core.ErrNotFound}}
	var out, errOut bytes.Buffer

	_, err := runWithSpinner(context.Background(), runner, "song", i18n.NewLocalizer("en"), &out, &errOut)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := i18n.NewLocalizer("en").Error(err); got != "No results found on YouTube." {
		t.Errorf("localized error = %q", got)
	}
}
