package tgui

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "lifepath/internal/transport"
)

func TestBuilderHTMLEscapes(t *testing.T) {
	m := New().
		Title("", "Q&A — <today>").
		Line("note: a<b").
		Link("URL", "https://example.com/?a=1&b=2").
		Field("Life Path", "11 / 20").
		KV("zone", "America/Los_Angeles").
		Build()

	want := "<b>Q&amp;A — &lt;today&gt;</b>\n" +
		"note: a&lt;b\n" +
		`URL: <a href="https://example.com/?a=1&amp;b=2">https://example.com/?a=1&amp;b=2</a>` + "\n" +
		"Life Path: <b>11 / 20</b>\n" +
		"• <b>zone</b>: America/Los_Angeles"
	assert.Equal(t, want, m.Text)
	require.NotNil(t, m.Opt)
	assert.Equal(t, "HTML", m.Opt.ParseMode)
	assert.True(t, m.Opt.DisablePreview)
}

func TestBuilderPlain(t *testing.T) {
	m := Plain().
		Title("📅", "Daily").
		Blank().
		Link("URL", "https://example.com/?a=1&b=2").
		Field("Secondary energy", "3").
		KV("next", "").
		Code("/calc 08/21/2025").
		Build()
	assert.Equal(t, "📅 Daily\n\nURL: https://example.com/?a=1&b=2\nSecondary energy: 3\n• next\n/calc 08/21/2025", m.Text)
	assert.Empty(t, m.Opt.ParseMode)
}

func TestTitleSkipsBlank(t *testing.T) {
	assert.Equal(t, "x", New().Title("🔥", "  ").Line("x").Text())
}

type captureSender struct {
	to   kit.ChatTarget
	text string
	opt  *kit.SendOptions
}

func (c *captureSender) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	c.to, c.text, c.opt = to, text, opt
	return kit.MessageRef{Chat: to, ID: 7}, nil
}

func TestMessageSend(t *testing.T) {
	var s captureSender
	ref, err := Message{Text: "hi"}.Send(context.Background(), &s, kit.ChatTarget{ChatID: 9})
	require.NoError(t, err)
	assert.Equal(t, 7, ref.ID)
	assert.Equal(t, int64(9), s.to.ChatID)
	require.NotNil(t, s.opt)
}
