package tgui

import "html"

// H is text already safe for Telegram's HTML parse mode.
type H string

func (h H) String() string { return string(h) }

// Esc escapes s for HTML parse mode.
func Esc(s string) H { return H(html.EscapeString(s)) }

func tag(name string, s string) H { return H("<" + name + ">" + html.EscapeString(s) + "</" + name + ">") }

func B(s string) H    { return tag("b", s) }
func Code(s string) H { return tag("code", s) }

// Link is an anchor showing text and pointing at href.
func Link(text, href string) H {
	return H(`<a href="` + html.EscapeString(href) + `">` + html.EscapeString(text) + "</a>")
}
