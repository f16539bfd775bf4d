// Package chat provides the download flow shared by chat frontends.
package chat

import (
	"context"
)

// Message represents a normalized chat message from any frontend
type Message struct {
	ID         string
	ChatID     int64
	SenderID   int64
	SenderName string
	Text       string
	Raw        any // underlying library message struct
}

// Audio is a finished file to upload.
type Audio struct {
	Path     string
	Title    string
	Caption  string
	Duration int // seconds, 0 if unknown
}

// Frontend defines what the dispatcher needs from a chat integration
type Frontend interface {
	// Start initializes the chat frontend
	Start(ctx context.Context) error

	// Listen starts listening for messages and calls the handler for each message
	Listen(ctx context.Context, handler func(context.Context, *Message)) error

	// SendText sends a text message to the specified chat, optionally as a reply
	SendText(ctx context.Context, chatID int64, replyToID, text string) (string, error)

	// SendAudio uploads a file to the chat as a reply to replyToID
	SendAudio(ctx context.Context, chatID int64, replyToID string, audio Audio) error
}
