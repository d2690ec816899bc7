// Package tgui builds Telegram message bodies.
//
// A Builder renders either HTML (ParseMode="HTML", auto escaped) or plain
// text from the same sequence of calls, so one layout serves both the chat
// and the terminal.
package tgui
