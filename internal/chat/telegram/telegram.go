// Package telegram provides Telegram Bot API integration using go-telegram/bot library.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/changkevin51/Music-Downloader/internal/chat"
	"github.com/changkevin51/Music-Downloader/internal/core"
)

// botAPI is the subset of *bot.Bot the frontend uses.
type botAPI interface {
	Start(ctx context.Context)
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendAudio(ctx context.Context, params *bot.SendAudioParams) (*models.Message, error)
}

var errDisabled = errors.New("telegram frontend is disabled")

// Frontend implements chat.Frontend for Telegram
type Frontend struct {
	config  *core.TelegramConfig
	logger  *zap.Logger
	bot     botAPI
	handler func(context.Context, *chat.Message)

	// newBot is replaced in tests.
	newBot func(token string, opts ...bot.Option) (botAPI, error)
}

// NewFrontend creates a new Telegram frontend
func NewFrontend(config *core.TelegramConfig, logger *zap.Logger) *Frontend {
	return &Frontend{
		config: config,
		logger: logger,
		newBot: func(token string, opts ...bot.Option) (botAPI, error) {
			b, err := bot.New(token, opts...)
			if err != nil {
				return nil, err
			}
			return b, nil
		},
	}
}

// Start creates the bot client
func (f *Frontend) Start(_ context.Context) error {
	if !f.config.Enabled {
		f.logger.Info("Telegram frontend is disabled, skipping initialization")
		return nil
	}

	f.logger.Info("Starting Telegram frontend")

	b, err := f.newBot(f.config.BotToken, bot.WithDefaultHandler(f.handleUpdate))
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}
	f.bot = b

	f.logger.Info("Telegram frontend started successfully")
	return nil
}

// Listen polls for updates until ctx is done
func (f *Frontend) Listen(ctx context.Context, handler func(context.Context, *chat.Message)) error {
	if !f.config.Enabled {
		return nil
	}
	if f.bot == nil {
		return errors.New("telegram frontend not started")
	}

	f.handler = handler
	f.bot.Start(ctx)
	return nil
}

// SendText sends a text message to the specified chat, optionally as a reply
func (f *Frontend) SendText(ctx context.Context, chatID int64, replyToID, text string) (string, error) {
	if f.bot == nil {
		return "", errDisabled
	}

	// Status lines carry Spotify and YouTube links; previews would flood the chat.
	disabled := true
	params := &bot.SendMessageParams{
		ChatID:             chatID,
		Text:               text,
		LinkPreviewOptions: &models.LinkPreviewOptions{IsDisabled: &disabled},
	}

	reply, err := replyParameters(replyToID)
	if err != nil {
		return "", err
	}
	params.ReplyParameters = reply

	msg, err := f.bot.SendMessage(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return strconv.Itoa(msg.ID), nil
}

// SendAudio uploads the finished file
func (f *Frontend) SendAudio(ctx context.Context, chatID int64, replyToID string, audio chat.Audio) error {
	if f.bot == nil {
		return errDisabled
	}

	file, err := os.Open(audio.Path)
	if err != nil {
		return fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	reply, err := replyParameters(replyToID)
	if err != nil {
		return err
	}

	f.logger.Debug("Uploading audio", zap.Int64("chat_id", chatID), zap.String("path", audio.Path))

	_, err = f.bot.SendAudio(ctx, &bot.SendAudioParams{
		ChatID:          chatID,
		Audio:           &models.InputFileUpload{Filename: filepath.Base(audio.Path), Data: file},
		Caption:         audio.Caption,
		Title:           audio.Title,
		Duration:        audio.Duration,
		ReplyParameters: reply,
	})
	if err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// handleUpdate processes incoming Telegram updates
func (f *Frontend) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	if msg := toMessage(update.Message); msg != nil && f.handler != nil {
		f.handler(ctx, msg)
	}
}

// toMessage converts a Telegram message, dropping bot and non-text messages.
func toMessage(msg *models.Message) *chat.Message {
	if msg.From == nil || msg.From.IsBot || msg.Text == "" {
		return nil
	}
	return &chat.Message{
		ID:         strconv.Itoa(msg.ID),
		ChatID:     msg.Chat.ID,
		SenderID:   msg.From.ID,
		SenderName: displayName(msg.From),
		Text:       msg.Text,
		Raw:        msg,
	}
}

func displayName(user *models.User) string {
	if user.Username != "" {
		return "@" + user.Username
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	return name
}

func replyParameters(replyToID string) (*models.ReplyParameters, error) {
	if replyToID == "" {
		return nil, nil
	}
	messageID, err := strconv.Atoi(replyToID)
	if err != nil {
		return nil, fmt.Errorf("invalid reply message ID: %w", err)
	}
	return &models.ReplyParameters{MessageID: messageID}, nil
}
