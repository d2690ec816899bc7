package tgui

import (
	"context"
	"strings"

	kit "lifepath/internal/transport"
)

// Message is a rendered text with the options it must be sent with.
type Message struct {
	Text string
	Opt  *kit.SendOptions
}

// Send delivers m to one chat.
func (m Message) Send(ctx context.Context, s kit.Sender, to kit.ChatTarget) (kit.MessageRef, error) {
	opt := m.Opt
	if opt == nil {
		opt = &kit.SendOptions{}
	}
	return s.SendText(ctx, to, m.Text, opt)
}

// Builder lays out a message line by line, either as Telegram HTML or as
// plain text. The same calls produce both, so a post renders identically in
// chat and on the terminal. Link previews are always off.
type Builder struct {
	html  bool
	lines []string
}

// New returns an HTML builder.
func New() *Builder { return &Builder{html: true} }

// Plain returns a builder for unformatted text.
func Plain() *Builder { return &Builder{} }

func (b *Builder) add(line string) *Builder {
	b.lines = append(b.lines, line)
	return b
}

func (b *Builder) text(s string) string {
	if b.html {
		return Esc(s).String()
	}
	return s
}

func (b *Builder) bold(s string) string {
	if b.html {
		return B(s).String()
	}
	return s
}

// Title adds a bold heading, optionally led by an emoji. A blank title adds nothing.
func (b *Builder) Title(emoji, title string) *Builder {
	title = strings.TrimSpace(title)
	if title == "" {
		return b
	}
	if emoji = strings.TrimSpace(emoji); emoji != "" {
		return b.add(emoji + " " + b.bold(title))
	}
	return b.add(b.bold(title))
}

// Line adds escaped text.
func (b *Builder) Line(s string) *Builder { return b.add(b.text(s)) }

// RawLine adds s as is. In HTML mode s must already be safe.
func (b *Builder) RawLine(s string) *Builder { return b.add(s) }

func (b *Builder) Blank() *Builder { return b.add("") }

// Field adds "key: value" with a bold value.
func (b *Builder) Field(key, value string) *Builder {
	return b.add(b.text(key) + ": " + b.bold(strings.TrimSpace(value)))
}

// KV adds a bullet row "• key: value" with a bold key.
func (b *Builder) KV(key, value string) *Builder {
	row := "• " + b.bold(key)
	if value = strings.TrimSpace(value); value != "" {
		row += ": " + b.text(value)
	}
	return b.add(row)
}

// Link adds "label: url", with the url as an anchor in HTML mode.
func (b *Builder) Link(label, url string) *Builder {
	if b.html {
		return b.add(Esc(label).String() + ": " + Link(url, url).String())
	}
	return b.add(label + ": " + url)
}

// Code adds a monospace line.
func (b *Builder) Code(s string) *Builder {
	if b.html {
		return b.add(Code(s).String())
	}
	return b.add(s)
}

// Text is the body with surrounding blank lines removed.
func (b *Builder) Text() string {
	return strings.Trim(strings.Join(b.lines, "\n"), "\n")
}

// Build returns the body with matching send options.
func (b *Builder) Build() Message {
	opt := &kit.SendOptions{DisablePreview: true}
	if b.html {
		opt.ParseMode = "HTML"
	}
	return Message{Text: b.Text(), Opt: opt}
}
