package core

import (
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultBitrateKbps is the target bitrate of every transcoded file.
	DefaultBitrateKbps = 320
	// DefaultSampleRateHz is the target sample rate of every transcoded file.
	DefaultSampleRateHz = 44100
	// DefaultDownloadDir is where downloaded and transcoded files are written.
	DefaultDownloadDir = "./downloads"
	// DefaultServerPort is the default HTTP port of the web shell.
	DefaultServerPort = 8080
	// DefaultLanguage is the default language of user-facing messages.
	DefaultLanguage = "en"
	// DefaultFloodLimitPerMinute is the default number of requests per chat user per minute.
	DefaultFloodLimitPerMinute = 3
	// DefaultFileTTLMins is how long a finished file stays retrievable through the web shell.
	DefaultFileTTLMins = 60

	// DefaultCatalogTimeout bounds the catalog search round-trip.
	DefaultCatalogTimeout = 15 * time.Second
	// DefaultPageTimeout bounds every browser wait for a rendered element.
	DefaultPageTimeout = 20 * time.Second
	// DefaultDownloadTimeout bounds the download tool run.
	DefaultDownloadTimeout = 10 * time.Minute
	// DefaultTranscodeTimeout bounds the encoder run.
	DefaultTranscodeTimeout = 5 * time.Minute
)

type Config struct {
	Spotify   SpotifyConfig
	Browser   BrowserConfig
	YouTube   YouTubeConfig
	Download  DownloadConfig
	Transcode TranscodeConfig
	Server    ServerConfig
	Telegram  TelegramConfig
	Log       LogConfig
	App       AppConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	// APIBaseURL and TokenURL are empty in production and point at a fake in tests.
	APIBaseURL    string
	TokenURL      string
	TitleSelector string
	Timeout       time.Duration
}

type BrowserConfig struct {
	Headless       bool
	ExecPath       string
	UserAgent      string
	WindowWidth    int
	WindowHeight   int
	PageTimeout    time.Duration
	LaunchTimeout  time.Duration
	PollInterval   time.Duration
	DisableSandbox bool
}

type YouTubeConfig struct {
	SearchURL         string
	ResultSelector    string
	NoResultsSelector string
}

type DownloadConfig struct {
	Dir         string
	YtDlpPath   string
	AutoInstall bool
	Timeout     time.Duration
}

type TranscodeConfig struct {
	FFmpegPath   string
	FFprobePath  string
	BitrateKbps  int
	SampleRateHz int
	KeepSource   bool
	Timeout      time.Duration
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	FileTTL      time.Duration
	MaxFiles     int
}

type TelegramConfig struct {
	Enabled             bool
	BotToken            string
	FloodLimitPerMinute int
}

type LogConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Language string
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			TitleSelector: "h1",
			Timeout:       DefaultCatalogTimeout,
		},
		Browser: BrowserConfig{
			Headless:      true,
			WindowWidth:   1920,
			WindowHeight:  1080,
			PageTimeout:   DefaultPageTimeout,
			LaunchTimeout: 30 * time.Second,
			PollInterval:  100 * time.Millisecond,
		},
		YouTube: YouTubeConfig{
			SearchURL:         "https://www.youtube.com/results",
			ResultSelector:    "#dismissible > ytd-thumbnail > a",
			NoResultsSelector: "ytd-background-promo-renderer",
		},
		Download: DownloadConfig{
			Dir:       DefaultDownloadDir,
			YtDlpPath: "yt-dlp",
			Timeout:   DefaultDownloadTimeout,
		},
		Transcode: TranscodeConfig{
			FFmpegPath:   "ffmpeg",
			FFprobePath:  "ffprobe",
			BitrateKbps:  DefaultBitrateKbps,
			SampleRateHz: DefaultSampleRateHz,
			KeepSource:   true,
			Timeout:      DefaultTranscodeTimeout,
		},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: DefaultServerPort,
			// The pipeline runs inside the request, so writes may take as long as a download.
			ReadTimeout:  10 * time.Second,
			WriteTimeout: DefaultDownloadTimeout + DefaultTranscodeTimeout + 2*time.Minute,
			FileTTL:      DefaultFileTTLMins * time.Minute,
			MaxFiles:     128,
		},
		Telegram: TelegramConfig{
			FloodLimitPerMinute: DefaultFloodLimitPerMinute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		App: AppConfig{
			Language: DefaultLanguage,
		},
	}
}

// Validate checks the settings every pipeline run depends on.
func (c *Config) Validate() error {
	var errs []error

	if c.Spotify.ClientID == "" {
		errs = append(errs, errors.New("spotify client ID is required"))
	}
	if c.Spotify.ClientSecret == "" {
		errs = append(errs, errors.New("spotify client secret is required"))
	}
	if c.Download.Dir == "" {
		errs = append(errs, errors.New("download directory is required"))
	}
	if c.Telegram.Enabled && c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("telegram bot token is required when Telegram is enabled"))
	}

	timeouts := []struct {
		name string
		d    time.Duration
	}{
		{"catalog", c.Spotify.Timeout},
		{"page", c.Browser.PageTimeout},
		{"download", c.Download.Timeout},
		{"transcode", c.Transcode.Timeout},
	}
	for _, timeout := range timeouts {
		if timeout.d <= 0 {
			errs = append(errs, fmt.Errorf("%s timeout must be positive, got %v", timeout.name, timeout.d))
		}
	}

	if c.Transcode.BitrateKbps <= 0 || c.Transcode.SampleRateHz <= 0 {
		errs = append(errs, fmt.Errorf("invalid encoder profile %dk/%dHz",
			c.Transcode.BitrateKbps, c.Transcode.SampleRateHz))
	}

	return errors.Join(errs...)
}
