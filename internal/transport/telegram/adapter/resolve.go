package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	kit "lifepath/internal/transport"
)

// ResolveChat looks chatID up with getChat.
func (c *Client) ResolveChat(ctx context.Context, chatID int64) (kit.ChatTarget, error) {
	if err := ctx.Err(); err != nil {
		return kit.ChatTarget{}, err
	}
	if chatID == 0 {
		return kit.ChatTarget{}, fmt.Errorf("no chat id: %w", kit.ErrChatNotFound)
	}
	chat, err := c.bot.ChatByID(chatID)
	if err != nil {
		return kit.ChatTarget{}, notFound(chatID, err)
	}
	to := kit.ChatTarget{ChatID: chat.ID, Title: chat.Title}
	if to.Title == "" {
		to.Title = strings.TrimSpace(chat.FirstName + " " + chat.LastName)
	}
	return to, nil
}

// notFound maps getChat and send failures that mean "this chat is gone for us"
// onto kit.ErrChatNotFound. 400 covers unknown ids, 403 kicked or blocked.
func notFound(chatID int64, err error) error {
	var apiErr *tele.Error
	gone := errors.Is(err, tele.ErrChatNotFound) ||
		(errors.As(err, &apiErr) && (apiErr.Code == 400 || apiErr.Code == 403))
	if gone {
		return fmt.Errorf("chat %d: %w (%w)", chatID, kit.ErrChatNotFound, err)
	}
	return fmt.Errorf("chat %d: %w", chatID, err)
}
