// Package transport defines the chat-transport boundary: the updates the
// core is driven by and the Adapter interface it sends through. Concrete
// transports (Telegram) live in subpackages; the core never imports them.
package transport

import "context"

type Update struct {
	Message *Message
}

type Message struct {
	ID      int
	ChatID  int64
	FromID  int64
	Text    string
	Command string // normalized command name ("help", "remind", ...) or ""
}

type ChatTarget struct {
	ChatID int64
}

type SendOptions struct {
	ParseMode string

	// ReplyKeyboard renders a one-time reply keyboard, one slice per row.
	// Empty means no keyboard.
	ReplyKeyboard [][]string
}

type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) error
}
