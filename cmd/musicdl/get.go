package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/changkevin51/Music-Downloader/internal/core"
	"github.com/changkevin51/Music-Downloader/internal/i18n"
	"github.com/changkevin51/Music-Downloader/pkg/text"
)

const spinnerInterval = 120 * time.Millisecond

var getCmd = &cobra.Command{
	Use:   "get <song name or Spotify track link>",
	Short: "Download one song as MP3",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	// Keep the terminal readable unless a level was asked for.
	if !cmd.Flags().Changed("log-level") && os.Getenv(flagToEnvVar("log-level")) == "" {
		logger = buildLogger("warn", viper.GetString("log-format"))
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runner, err := buildRunner(ctx, nil)
	if err != nil {
		return err
	}

	localizer := i18n.NewLocalizer(config.App.Language)
	query := text.NewParser().ParseQuery(strings.Join(args, " "))

	result, err := runWithSpinner(ctx, runner, query, localizer, cmd.OutOrStdout(), cmd.ErrOrStderr())
	if err != nil {
		return errors.New(localizer.Error(err))
	}

	fmt.Fprintln(cmd.OutOrStdout(), localizer.T("cli.saved", result.Output.Path))
	return nil
}

// runWithSpinner prints every status on out while a spinner runs on errOut.
func runWithSpinner(ctx context.Context, runner core.Runner, query core.Query, localizer *i18n.Localizer,
	out, errOut io.Writer) (*core.Result, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(errOut),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetElapsedTime(true),
	)

	var mu sync.Mutex
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(spinnerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				mu.Lock()
				_ = bar.Add(1)
				mu.Unlock()
			}
		}
	}()

	reporter := core.ReporterFunc(func(status core.Status) {
		line := localizer.Status(status)
		mu.Lock()
		defer mu.Unlock()
		_ = bar.Clear()
		fmt.Fprintln(out, line)
		bar.Describe(line)
	})

	result, err := runner.Run(ctx, query, reporter)

	close(stop)
	<-done
	_ = bar.Finish()

	return result, err
}
