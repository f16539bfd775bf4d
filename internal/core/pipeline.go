package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// OutputExtension is the container every run produces.
const OutputExtension = ".mp3"

// Components groups the collaborators of a Pipeline.
type Components struct {
	Resolver   CatalogResolver
	Fetcher    TitleFetcher
	Locator    VideoLocator
	Retriever  AudioRetriever
	Transcoder Transcoder
	// Prober and Recorder are optional.
	Prober   Prober
	Recorder Recorder
}

// Pipeline runs the resolve → title → locate → download → transcode chain.
// Each run owns its state; the first failing step ends the run.
type Pipeline struct {
	config *Config
	logger *zap.Logger
	c      Components
}

func NewPipeline(config *Config, components Components, logger *zap.Logger) *Pipeline {
	if components.Recorder == nil {
		components.Recorder = nopRecorder{}
	}
	return &Pipeline{
		config: config,
		logger: logger,
		c:      components,
	}
}

// Run executes one request. reporter may be nil.
func (p *Pipeline) Run(ctx context.Context, query Query, reporter Reporter) (*Result, error) {
	if reporter == nil {
		reporter = discardReporter{}
	}
	started := time.Now()

	result, err := p.run(ctx, query, reporter)

	kind := Kind(err)
	p.c.Recorder.RecordRun(kind, time.Since(started))
	if err != nil {
		p.logger.Warn("Pipeline run failed",
			zap.String("query", query.String()),
			zap.String("kind", kind),
			zap.Error(err))
		return nil, err
	}

	result.Elapsed = time.Since(started)
	p.logger.Info("Pipeline run completed",
		zap.String("query", query.String()),
		zap.String("title", result.Track.Title),
		zap.String("output", result.Output.Path),
		zap.Duration("elapsed", result.Elapsed))
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, query Query, reporter Reporter) (*Result, error) {
	if query.IsEmpty() {
		return nil, ErrEmptyQuery
	}
	q := Query(strings.TrimSpace(query.String()))
	result := &Result{}

	reporter.Report(Status{Step: StepResolve, Key: "status.resolving", Args: []any{q.String()}})
	err := p.step(ctx, StepResolve, p.config.Spotify.Timeout, func(ctx context.Context) error {
		canonicalURL, err := p.c.Resolver.Resolve(ctx, q)
		result.Track.CanonicalURL = canonicalURL
		return err
	})
	if err != nil {
		return nil, err
	}
	reporter.Report(Status{Step: StepResolve, Key: "status.resolved", Args: []any{result.Track.CanonicalURL}})

	reporter.Report(Status{Step: StepTitle, Key: "status.fetching_title"})
	err = p.step(ctx, StepTitle, p.config.Browser.PageTimeout+p.config.Browser.LaunchTimeout, func(ctx context.Context) error {
		title, err := p.c.Fetcher.FetchTitle(ctx, result.Track.CanonicalURL)
		result.Track.Title = title
		return err
	})
	if err != nil {
		return nil, err
	}
	reporter.Report(Status{Step: StepTitle, Key: "status.title", Args: []any{result.Track.Title}})

	reporter.Report(Status{Step: StepLocate, Key: "status.locating"})
	err = p.step(ctx, StepLocate, p.config.Browser.PageTimeout+p.config.Browser.LaunchTimeout, func(ctx context.Context) error {
		videoURL, err := p.c.Locator.Locate(ctx, result.Track.Title)
		result.VideoURL = videoURL
		return err
	})
	if err != nil {
		return nil, err
	}
	reporter.Report(Status{Step: StepLocate, Key: "status.located", Args: []any{result.VideoURL}})

	reporter.Report(Status{Step: StepDownload, Key: "status.downloading"})
	err = p.step(ctx, StepDownload, p.config.Download.Timeout, func(ctx context.Context) error {
		if err := os.MkdirAll(p.config.Download.Dir, 0o755); err != nil {
			return Fail(ErrDownloadFailed, fmt.Sprintf("create download directory: %v", err))
		}
		file, err := p.c.Retriever.Download(ctx, result.VideoURL, p.config.Download.Dir, result.Track.Title)
		if file != nil {
			result.Source = *file
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	reporter.Report(Status{Step: StepDownload, Key: "status.downloaded", Args: []any{filepath.Base(result.Source.Path)}})

	outputPath := OutputPath(result.Source.Path)
	reporter.Report(Status{Step: StepTranscode, Key: "status.transcoding"})
	err = p.step(ctx, StepTranscode, p.config.Transcode.Timeout, func(ctx context.Context) error {
		return p.c.Transcoder.Transcode(ctx, result.Source.Path, outputPath,
			p.config.Transcode.BitrateKbps, p.config.Transcode.SampleRateHz)
	})
	if err != nil {
		return nil, err
	}
	result.Output = LocalAudioFile{Path: outputPath, Format: strings.TrimPrefix(OutputExtension, ".")}

	if !p.config.Transcode.KeepSource && result.Source.Path != result.Output.Path {
		if err := os.Remove(result.Source.Path); err != nil {
			p.logger.Warn("Failed to remove downloaded source", zap.String("path", result.Source.Path), zap.Error(err))
		}
	}

	p.probe(ctx, result)
	reporter.Report(Status{Step: StepTranscode, Key: "status.done", Args: []any{filepath.Base(result.Output.Path), formatDuration(result.Duration)}})

	return result, nil
}

// step runs fn under the step's own timeout and tags any failure with the step.
func (p *Pipeline) step(ctx context.Context, step Step, timeout time.Duration, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	p.logger.Debug("Step started", zap.String("step", string(step)), zap.Duration("timeout", timeout))
	started := time.Now()
	err := fn(stepCtx)
	elapsed := time.Since(started)

	p.c.Recorder.RecordStep(step, Kind(err), elapsed)
	if err != nil {
		return &StepError{Step: step, Err: err}
	}

	p.logger.Debug("Step finished", zap.String("step", string(step)), zap.Duration("elapsed", elapsed))
	return nil
}

func (p *Pipeline) probe(ctx context.Context, result *Result) {
	if p.c.Prober == nil {
		return
	}
	info, err := p.c.Prober.Probe(ctx, result.Output.Path)
	if err != nil {
		p.logger.Warn("Failed to probe output file", zap.String("path", result.Output.Path), zap.Error(err))
		return
	}
	result.Duration = info.Duration
	p.logger.Debug("Output file probed",
		zap.Duration("duration", info.Duration),
		zap.Int("bitrate_kbps", info.BitrateKbps),
		zap.Int("sample_rate_hz", info.SampleRateHz))
}

// OutputPath returns the transcoded sibling of a downloaded file.
func OutputPath(sourcePath string) string {
	return strings.TrimSuffix(sourcePath, filepath.Ext(sourcePath)) + OutputExtension
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "?"
	}
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
