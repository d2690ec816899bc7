package adapter

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v4"

	kit "lifepath/internal/transport"
	logx "lifepath/pkg/logx"
)

// maxChunk stays under Telegram's 4096-character message limit.
const maxChunk = 4000

// SendText delivers text, split into several messages when too long.
// The returned ref is the first message.
func (c *Client) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	var so kit.SendOptions
	if opt != nil {
		so = *opt
	}
	ref := kit.MessageRef{Chat: to}
	for i, part := range chunks(text, maxChunk, strings.EqualFold(so.ParseMode, string(tele.ModeHTML))) {
		if err := ctx.Err(); err != nil {
			return ref, err
		}
		m, err := c.bot.Send(&tele.Chat{ID: to.ChatID}, part, &tele.SendOptions{
			ParseMode:             tele.ParseMode(so.ParseMode),
			DisableWebPagePreview: so.DisablePreview,
			ThreadID:              to.ThreadID,
		})
		if err != nil {
			return ref, notFound(to.ChatID, err)
		}
		if i == 0 {
			ref.ID = m.ID
		}
	}
	return ref, nil
}

// chunks cuts s into pieces of at most limit runes. A cut prefers the last
// newline in the back two thirds of a piece and, for HTML, never lands inside a tag.
func chunks(s string, limit int, html bool) []string {
	if utf8.RuneCountInString(s) <= limit {
		return []string{s}
	}
	rs := []rune(s)
	var out []string
	for len(rs) > 0 {
		if len(rs) <= limit {
			out = append(out, string(rs))
			break
		}
		cut := limit
		if nl := lastIndex(rs[limit/3:limit], '\n'); nl >= 0 {
			cut = limit/3 + nl + 1
		}
		if html {
			if lt := lastIndex(rs[:cut], '<'); lt > 0 && lt > lastIndex(rs[:cut], '>') {
				cut = lt
			}
		}
		out = append(out, strings.TrimRight(string(rs[:cut]), "\n"))
		rs = rs[cut:]
		for len(rs) > 0 && rs[0] == '\n' {
			rs = rs[1:]
		}
	}
	return out
}

func lastIndex(rs []rune, r rune) int {
	for i := len(rs) - 1; i >= 0; i-- {
		if rs[i] == r {
			return i
		}
	}
	return -1
}

// UpdateMenuCommands calls setMyCommands when the list differs from the last one sent.
func (c *Client) UpdateMenuCommands(ctx context.Context, cmds []kit.MenuCommand) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	list := make([]tele.Command, 0, len(cmds))
	h := fnv.New64a()
	for _, mc := range cmds {
		if mc.Name == "" {
			continue
		}
		list = append(list, tele.Command{Text: mc.Name, Description: mc.Description})
		fmt.Fprintf(h, "%s\x00%s\x00", mc.Name, mc.Description)
	}

	c.menuMu.Lock()
	defer c.menuMu.Unlock()
	if sum := h.Sum64(); sum != c.menuSum {
		if err := c.bot.SetCommands(list); err != nil {
			return fmt.Errorf("setMyCommands: %w", err)
		}
		c.menuSum = sum
		c.log.Info("command menu updated", logx.Int("commands", len(list)))
	}
	return nil
}
