package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound means the catalog or the video platform returned no match.
	ErrNotFound = errors.New("no results")
	// ErrExtractionFailed means a page did not have the expected structure.
	ErrExtractionFailed = errors.New("page structure changed")
	// ErrDownloadFailed means the download tool failed or produced no matching file.
	ErrDownloadFailed = errors.New("download failed")
	// ErrTranscodeFailed means the encoder failed or produced no output file.
	ErrTranscodeFailed = errors.New("transcode failed")
	// ErrBusy means another pipeline run is in flight.
	ErrBusy = errors.New("another download is in progress")
	// ErrEmptyQuery means the caller supplied no song name or URL.
	ErrEmptyQuery = errors.New("empty query")
)

// Error kinds as exposed to shells and metrics.
const (
	KindNotFound         = "not_found"
	KindExtractionFailed = "extraction_failed"
	KindDownloadFailed   = "download_failed"
	KindTranscodeFailed  = "transcode_failed"
	KindBusy             = "busy"
	KindInvalidQuery     = "invalid_query"
	KindInternal         = "internal"
)

// Kind maps err onto one of the Kind constants. A nil error has no kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrExtractionFailed):
		return KindExtractionFailed
	case errors.Is(err, ErrDownloadFailed):
		return KindDownloadFailed
	case errors.Is(err, ErrTranscodeFailed):
		return KindTranscodeFailed
	case errors.Is(err, ErrBusy):
		return KindBusy
	case errors.Is(err, ErrEmptyQuery):
		return KindInvalidQuery
	default:
		return KindInternal
	}
}

// Step identifies one stage of the pipeline.
type Step string

const (
	StepResolve   Step = "resolve"
	StepTitle     Step = "title"
	StepLocate    Step = "locate"
	StepDownload  Step = "download"
	StepTranscode Step = "transcode"
)

// StepError records which step aborted a run.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Query is the caller's input: free text or a catalog URL.
type Query string

func (q Query) String() string {
	return string(q)
}

// IsEmpty reports whether the query has no usable text.
func (q Query) IsEmpty() bool {
	return strings.TrimSpace(string(q)) == ""
}

// CatalogTrack is the top search match returned by the catalog.
type CatalogTrack struct {
	ID      string
	Name    string
	Artists []string
	URL     string
}

// ResolvedTrack is the canonical identity of the requested track.
type ResolvedTrack struct {
	CanonicalURL string
	Title        string
}

// LocalAudioFile is an audio file on local storage.
type LocalAudioFile struct {
	Path   string
	Format string
}

// Result is what a successful run hands back to the shell.
type Result struct {
	Track    ResolvedTrack
	VideoURL string
	Source   LocalAudioFile
	Output   LocalAudioFile
	Duration time.Duration
	Elapsed  time.Duration
}

// AudioInfo describes an encoded file.
type AudioInfo struct {
	Duration     time.Duration
	BitrateKbps  int
	SampleRateHz int
	Codec        string
}

// CatalogResolver turns a query into a canonical catalog URL.
type CatalogResolver interface {
	Resolve(ctx context.Context, query Query) (string, error)
}

// TitleFetcher reads the human-readable title from a canonical catalog page.
type TitleFetcher interface {
	FetchTitle(ctx context.Context, canonicalURL string) (string, error)
}

// VideoLocator finds a video for a track title.
type VideoLocator interface {
	Locate(ctx context.Context, title string) (string, error)
}

// AudioRetriever downloads the best audio stream of a video into destDir
// and checks that the file it produced belongs to expectedTitle.
type AudioRetriever interface {
	Download(ctx context.Context, videoURL, destDir, expectedTitle string) (*LocalAudioFile, error)
}

// Transcoder encodes inputPath into outputPath.
type Transcoder interface {
	Transcode(ctx context.Context, inputPath, outputPath string, bitrateKbps, sampleRateHz int) error
}

// Prober inspects an encoded file.
type Prober interface {
	Probe(ctx context.Context, path string) (*AudioInfo, error)
}

// Runner runs one pipeline; shells depend on this.
type Runner interface {
	Run(ctx context.Context, query Query, reporter Reporter) (*Result, error)
}

// Recorder observes step outcomes.
type Recorder interface {
	RecordStep(step Step, kind string, duration time.Duration)
	RecordRun(kind string, duration time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordStep(Step, string, time.Duration) {}
func (nopRecorder) RecordRun(string, time.Duration)        {}
