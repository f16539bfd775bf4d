package chat

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/core"
	"github.com/changkevin51/Music-Downloader/internal/flood"
	"github.com/changkevin51/Music-Downloader/internal/i18n"
	"github.com/changkevin51/Music-Downloader/pkg/text"
)

// RateLimitRecorder counts refused requests.
type RateLimitRecorder interface {
	RecordRateLimited()
}

// Dispatcher turns chat messages into pipeline runs and reports back.
type Dispatcher struct {
	frontend  Frontend
	runner    core.Runner
	parser    *text.Parser
	localizer *i18n.Localizer
	floodgate *flood.Floodgate
	limited   RateLimitRecorder
	logger    *zap.Logger
}

func NewDispatcher(frontend Frontend, runner core.Runner, localizer *i18n.Localizer,
	floodgate *flood.Floodgate, limited RateLimitRecorder, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		frontend:  frontend,
		runner:    runner,
		parser:    text.NewParser(),
		localizer: localizer,
		floodgate: floodgate,
		limited:   limited,
		logger:    logger,
	}
}

// Run starts the frontend and processes messages until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) error {
	if err := d.frontend.Start(ctx); err != nil {
		return err
	}
	return d.frontend.Listen(ctx, d.Handle)
}

// Handle processes one incoming message.
func (d *Dispatcher) Handle(ctx context.Context, msg *Message) {
	input := strings.TrimSpace(msg.Text)
	if input == "" {
		return
	}

	if isCommand(input, "start") || isCommand(input, "help") {
		d.reply(ctx, msg, d.localizer.T("bot.help"))
		return
	}

	if allowed, retryAfter := d.floodgate.Allow(flood.Key(msg.ChatID, msg.SenderID)); !allowed {
		d.logger.Info("Request rate limited",
			zap.Int64("chat_id", msg.ChatID),
			zap.Int64("sender_id", msg.SenderID),
			zap.Duration("retry_after", retryAfter))
		if d.limited != nil {
			d.limited.RecordRateLimited()
		}
		d.reply(ctx, msg, d.localizer.T("error.rate_limited", d.floodgate.Limit()))
		return
	}

	query := d.parser.ParseQuery(input)
	reporter := core.ReporterFunc(func(status core.Status) {
		d.reply(ctx, msg, d.localizer.Status(status))
	})

	d.logger.Info("Chat request",
		zap.Int64("chat_id", msg.ChatID),
		zap.String("sender", msg.SenderName),
		zap.String("query", query.String()))

	result, err := d.runner.Run(ctx, query, reporter)
	if err != nil {
		d.logger.Warn("Chat request failed", zap.String("query", query.String()), zap.Error(err))
		d.reply(ctx, msg, d.localizer.Error(err))
		return
	}

	audio := Audio{
		Path:     result.Output.Path,
		Title:    result.Track.Title,
		Caption:  d.localizer.T("bot.audio_caption", result.Track.Title),
		Duration: int(result.Duration.Round(time.Second).Seconds()),
	}
	if err := d.frontend.SendAudio(ctx, msg.ChatID, msg.ID, audio); err != nil {
		d.logger.Error("Failed to upload audio", zap.String("path", audio.Path), zap.Error(err))
		d.reply(ctx, msg, d.localizer.T("error.generic"))
	}
}

func (d *Dispatcher) reply(ctx context.Context, msg *Message, text string) {
	if _, err := d.frontend.SendText(ctx, msg.ChatID, msg.ID, text); err != nil {
		d.logger.Warn("Failed to send message", zap.Int64("chat_id", msg.ChatID), zap.Error(err))
	}
}

// isCommand matches /name and /name@botname, with or without arguments.
func isCommand(input, name string) bool {
	first, _, _ := strings.Cut(input, " ")
	first, _, _ = strings.Cut(first, "@")
	return strings.EqualFold(first, "/"+name)
}
