// Package main provides the musicdl CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/changkevin51/Music-Downloader/internal/browser"
	"github.com/changkevin51/Music-Downloader/internal/chat"
	"github.com/changkevin51/Music-Downloader/internal/chat/telegram"
	"github.com/changkevin51/Music-Downloader/internal/core"
	"github.com/changkevin51/Music-Downloader/internal/ffmpeg"
	"github.com/changkevin51/Music-Downloader/internal/flood"
	httpserver "github.com/changkevin51/Music-Downloader/internal/http"
	"github.com/changkevin51/Music-Downloader/internal/i18n"
	"github.com/changkevin51/Music-Downloader/internal/spotify"
	"github.com/changkevin51/Music-Downloader/internal/youtube"
	"github.com/changkevin51/Music-Downloader/internal/ytdlp"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "musicdl",
	Short: "musicdl - Spotify track → MP3",
	Long: `musicdl turns a song name or Spotify track link into a local MP3. It resolves the
track on Spotify, finds the matching YouTube video, downloads its audio with yt-dlp
and converts it with ffmpeg. Without a subcommand it serves the web form.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	registerFlags(rootCmd)
	rootCmd.AddCommand(getCmd)

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting musicdl",
		zap.String("download_dir", config.Download.Dir),
		zap.Bool("telegram_enabled", config.Telegram.Enabled),
		zap.String("language", config.App.Language))

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	metrics := httpserver.NewMetrics()
	runner, err := buildRunner(ctx, metrics)
	if err != nil {
		return err
	}

	return runServices(ctx, runner, metrics)
}

// buildRunner wires the pipeline. A nil metrics disables recording.
func buildRunner(ctx context.Context, metrics *httpserver.Metrics) (*core.Exclusive, error) {
	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if err := spotifyClient.Authenticate(ctx); err != nil {
		return nil, fmt.Errorf("failed to authenticate with Spotify: %w", err)
	}

	tool := ytdlp.NewYtDlp(&config.Download, logger.Named("ytdlp"))
	if err := tool.Install(ctx); err != nil {
		return nil, err
	}

	launcher := browser.NewChromeLauncher(&config.Browser, logger.Named("browser"))

	components := core.Components{
		Resolver:   spotify.NewResolver(spotifyClient, logger.Named("spotify")),
		Fetcher:    spotify.NewTitleFetcher(launcher, &config.Spotify, &config.Browser, logger.Named("spotify")),
		Locator:    youtube.NewLocator(launcher, nil, &config.YouTube, &config.Browser, logger.Named("youtube")),
		Retriever:  ytdlp.NewRetriever(tool, logger.Named("ytdlp")),
		Transcoder: ffmpeg.NewTranscoder(&config.Transcode, logger.Named("ffmpeg")),
		Prober:     ffmpeg.NewProber(&config.Transcode),
	}
	if metrics != nil {
		components.Recorder = metrics
	}

	pipeline := core.NewPipeline(config, components, logger.Named("pipeline"))
	return core.NewExclusive(pipeline), nil
}

func runServices(ctx context.Context, runner core.Runner, metrics *httpserver.Metrics) error {
	localizer := i18n.NewLocalizer(config.App.Language)
	httpServer := httpserver.NewServer(&config.Server, runner, localizer, metrics, logger.Named("http"))

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return httpServer.Start(gCtx)
	})

	if config.Telegram.Enabled {
		frontend := telegram.NewFrontend(&config.Telegram, logger.Named("telegram"))
		dispatcher := chat.NewDispatcher(frontend, runner, localizer,
			flood.New(config.Telegram.FloodLimitPerMinute), metrics, logger.Named("telegram"))
		g.Go(func() error {
			return dispatcher.Run(gCtx)
		})
	}

	logger.Info("musicdl started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("musicdl stopped with error", zap.Error(err))
		return err
	}

	logger.Info("musicdl stopped gracefully")
	return nil
}
