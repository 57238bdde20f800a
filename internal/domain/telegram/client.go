package telegram

import "context"

// Client sends HTML-formatted text to a Telegram chat.
type Client interface {
	SendMessage(ctx context.Context, chatID int64, html string) error
}
