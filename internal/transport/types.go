// Package transport is the chat-platform surface lifepath depends on:
// receiving command messages, resolving the configured target chat and
// sending formatted text.
package transport

import (
	"context"
	"errors"
	"time"
)

// ErrChatNotFound wraps ResolveChat failures where the platform does not know
// the chat: a wrong id, the bot removed from a group, a deleted channel.
var ErrChatNotFound = errors.New("chat not found")

// ChatTarget addresses a chat and, in forum groups, one topic.
type ChatTarget struct {
	ChatID   int64
	ThreadID int
	Title    string // set by ResolveChat when known
}

// Private reports whether the chat is a one-to-one chat with a user.
// Telegram gives users positive ids and groups negative ones.
func (t ChatTarget) Private() bool { return t.ChatID > 0 }

// Message is an incoming text message.
type Message struct {
	ID           int
	Chat         ChatTarget
	FromID       int64
	FromUsername string
	Text         string
	Sent         time.Time
}

// MessageRef identifies a delivered message. Long texts are split and the
// ref points at the first part.
type MessageRef struct {
	Chat ChatTarget
	ID   int
}

type SendOptions struct {
	ParseMode      string // "HTML" or empty for plain text
	DisablePreview bool
}

type Sender interface {
	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
}

type Resolver interface {
	// ResolveChat fails with an error wrapping ErrChatNotFound when chatID is unknown.
	ResolveChat(ctx context.Context, chatID int64) (ChatTarget, error)
}

// MenuCommand is one entry of the client-side command menu.
type MenuCommand struct {
	Name        string
	Description string
}

// Client is a live chat-platform connection.
type Client interface {
	Sender
	Resolver

	// Start begins receiving messages into out. Ready is closed once the
	// bot is authenticated and receiving.
	Start(ctx context.Context, out chan<- Message) error
	Stop(ctx context.Context) error
	Ready() <-chan struct{}

	UpdateMenuCommands(ctx context.Context, cmds []MenuCommand) error
}
