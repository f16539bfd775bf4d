package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/changkevin51/Music-Downloader/internal/core"
	"github.com/changkevin51/Music-Downloader/internal/i18n"
)

const envPrefix = "MUSICDL"

// flagSections groups flags in the generated .env.example.
var flagSections = []struct {
	title string
	flags []string
}{
	{"Spotify (client credentials from https://developer.spotify.com/dashboard)",
		[]string{"spotify-client-id", "spotify-client-secret", "spotify-timeout-secs"}},
	{"Headless browser",
		[]string{"browser-headless", "browser-exec-path", "browser-user-agent", "browser-page-timeout-secs", "browser-no-sandbox"}},
	{"Download",
		[]string{"download-dir", "ytdlp-path", "ytdlp-auto-install", "download-timeout-mins"}},
	{"Transcoding",
		[]string{"ffmpeg-path", "ffprobe-path", "bitrate-kbps", "sample-rate-hz", "keep-source", "transcode-timeout-mins"}},
	{"Web server",
		[]string{"server-host", "server-port", "file-ttl-mins", "max-files"}},
	{"Telegram (optional)",
		[]string{"telegram-enabled", "telegram-bot-token", "flood-limit-per-minute"}},
	{"Application",
		[]string{"language", "log-level", "log-format"}},
}

func registerFlags(cmd *cobra.Command) {
	defaults := core.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.StringVar(&cfgFile, "config", "", "config file (default is .env)")
	flags.String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	flags.String("log-format", defaults.Log.Format, "log encoding (json, console)")
	supportedLangs := strings.Join(i18n.GetSupportedLanguages(), ", ")
	flags.String("language", defaults.App.Language, fmt.Sprintf("Message language (%s)", supportedLangs))

	flags.String("spotify-client-id", "", "Spotify client ID")
	flags.String("spotify-client-secret", "", "Spotify client secret")
	flags.Int("spotify-timeout-secs", int(defaults.Spotify.Timeout.Seconds()), "Spotify search timeout in seconds")

	flags.Bool("browser-headless", defaults.Browser.Headless, "Run the browser without a window")
	flags.String("browser-exec-path", "", "Chrome/Chromium executable (default: auto-detect)")
	flags.String("browser-user-agent", "", "User agent sent by the browser")
	flags.Int("browser-page-timeout-secs", int(defaults.Browser.PageTimeout.Seconds()), "Wait for page elements in seconds")
	flags.Bool("browser-no-sandbox", false, "Disable the Chrome sandbox (needed in some containers)")

	flags.String("download-dir", defaults.Download.Dir, "Directory for downloaded and converted files")
	flags.String("ytdlp-path", defaults.Download.YtDlpPath, "yt-dlp executable")
	flags.Bool("ytdlp-auto-install", false, "Download a yt-dlp binary on startup")
	flags.Int("download-timeout-mins", int(defaults.Download.Timeout.Minutes()), "Download timeout in minutes")

	flags.String("ffmpeg-path", defaults.Transcode.FFmpegPath, "ffmpeg executable")
	flags.String("ffprobe-path", defaults.Transcode.FFprobePath, "ffprobe executable")
	flags.Int("bitrate-kbps", defaults.Transcode.BitrateKbps, "MP3 bitrate in kbps")
	flags.Int("sample-rate-hz", defaults.Transcode.SampleRateHz, "MP3 sample rate in Hz")
	flags.Bool("keep-source", defaults.Transcode.KeepSource, "Keep the downloaded file next to the MP3")
	flags.Int("transcode-timeout-mins", int(defaults.Transcode.Timeout.Minutes()), "Conversion timeout in minutes")

	flags.String("server-host", defaults.Server.Host, "HTTP server host")
	flags.Int("server-port", defaults.Server.Port, "HTTP server port")
	flags.Int("file-ttl-mins", core.DefaultFileTTLMins, "How long download links stay valid in minutes")
	flags.Int("max-files", defaults.Server.MaxFiles, "Maximum number of live download links")

	flags.Bool("telegram-enabled", false, "Enable the Telegram bot")
	flags.String("telegram-bot-token", "", "Telegram bot token")
	flags.Int("flood-limit-per-minute", core.DefaultFloodLimitPerMinute, "Maximum requests per chat user per minute")

	flags.Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level, config.Log.Format)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureSpotify(cfg)
	configureBrowser(cfg)
	configureDownload(cfg)
	configureTranscode(cfg)
	configureServer(cfg)
	configureTelegram(cfg)
	configureApp(cfg)

	return cfg
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.Timeout = time.Duration(viper.GetInt("spotify-timeout-secs")) * time.Second
}

func configureBrowser(cfg *core.Config) {
	cfg.Browser.Headless = viper.GetBool("browser-headless")
	cfg.Browser.ExecPath = viper.GetString("browser-exec-path")
	cfg.Browser.UserAgent = viper.GetString("browser-user-agent")
	cfg.Browser.PageTimeout = time.Duration(viper.GetInt("browser-page-timeout-secs")) * time.Second
	cfg.Browser.DisableSandbox = viper.GetBool("browser-no-sandbox")
}

func configureDownload(cfg *core.Config) {
	cfg.Download.Dir = viper.GetString("download-dir")
	cfg.Download.YtDlpPath = viper.GetString("ytdlp-path")
	cfg.Download.AutoInstall = viper.GetBool("ytdlp-auto-install")
	cfg.Download.Timeout = time.Duration(viper.GetInt("download-timeout-mins")) * time.Minute
}

func configureTranscode(cfg *core.Config) {
	cfg.Transcode.FFmpegPath = viper.GetString("ffmpeg-path")
	cfg.Transcode.FFprobePath = viper.GetString("ffprobe-path")
	cfg.Transcode.BitrateKbps = viper.GetInt("bitrate-kbps")
	cfg.Transcode.SampleRateHz = viper.GetInt("sample-rate-hz")
	cfg.Transcode.KeepSource = viper.GetBool("keep-source")
	cfg.Transcode.Timeout = time.Duration(viper.GetInt("transcode-timeout-mins")) * time.Minute
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Server.MaxFiles = viper.GetInt("max-files")

	ttl := viper.GetInt("file-ttl-mins")
	if ttl <= 0 {
		ttl = core.DefaultFileTTLMins
	}
	cfg.Server.FileTTL = time.Duration(ttl) * time.Minute

	// Requests block for the whole run.
	cfg.Server.WriteTimeout = cfg.Download.Timeout + cfg.Transcode.Timeout + 2*time.Minute
}

func configureTelegram(cfg *core.Config) {
	cfg.Telegram.Enabled = viper.GetBool("telegram-enabled")
	cfg.Telegram.BotToken = viper.GetString("telegram-bot-token")
	cfg.Telegram.FloodLimitPerMinute = viper.GetInt("flood-limit-per-minute")
	if cfg.Telegram.FloodLimitPerMinute <= 0 {
		cfg.Telegram.FloodLimitPerMinute = core.DefaultFloodLimitPerMinute
	}
}

func configureApp(cfg *core.Config) {
	cfg.Log.Level = viper.GetString("log-level")
	cfg.Log.Format = viper.GetString("log-format")

	cfg.App.Language = viper.GetString("language")
	if cfg.App.Language == "" {
		cfg.App.Language = i18n.DefaultLanguage
	}
	if !i18n.IsSupported(cfg.App.Language) {
		fmt.Fprintf(os.Stderr, "Warning: Unsupported language '%s', falling back to '%s'. Supported languages: %s\n",
			cfg.App.Language, i18n.DefaultLanguage, strings.Join(i18n.GetSupportedLanguages(), ", "))
		cfg.App.Language = i18n.DefaultLanguage
	}
}

func buildLogger(level, format string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0o600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	content.WriteString("# =============================================================================\n")
	content.WriteString("# musicdl Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	fmt.Fprintf(&content, "# Format: %s_<SETTING>=value\n", envPrefix)
	content.WriteString("# CLI equivalent: --<setting>\n")
	content.WriteString("#\n\n")

	for _, section := range flagSections {
		content.WriteString("# -----------------------------------------------------------------------------\n")
		fmt.Fprintf(&content, "# %s\n", section.title)
		content.WriteString("# -----------------------------------------------------------------------------\n")
		for _, name := range section.flags {
			writeFlag(&content, cmd.PersistentFlags().Lookup(name))
		}
		content.WriteString("\n")
	}

	return content.String()
}

func writeFlag(content *strings.Builder, f *pflag.Flag) {
	if f == nil {
		return
	}
	fmt.Fprintf(content, "# %s\n", f.Usage)
	fmt.Fprintf(content, "%s=%s\n", flagToEnvVar(f.Name), f.DefValue)
}

func flagToEnvVar(flagName string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}
