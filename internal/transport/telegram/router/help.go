package router

import (
	"strings"

	"lifepath/pkg/tgui"
)

// helpText lists every command, or details one when args names it.
func helpText(reg *registry, prefix string, args []string) string {
	if len(args) == 0 {
		b := tgui.New().Title("📚", "Commands")
		for _, c := range reg.order {
			line := tgui.Code(prefix + c.Name).String()
			if c.Description != "" {
				line += " — " + tgui.Esc(c.Description).String()
			}
			b.RawLine("• " + line)
		}
		return b.Blank().RawLine("Details: " + tgui.Code(prefix+"help <command>").String()).Text()
	}

	name := strings.ToLower(strings.TrimPrefix(args[0], prefix))
	c := reg.byName[name]
	if c == nil {
		return tgui.New().
			Title("❓", "No such command: "+name).
			RawLine("See " + tgui.Code(prefix+"help").String()).
			Text()
	}
	b := tgui.New().Title("📚", prefix+c.Name)
	if c.Description != "" {
		b.Line(c.Description)
	}
	if c.Usage != "" {
		usage := c.Usage
		if prefix != "/" {
			usage = prefix + strings.TrimPrefix(usage, "/")
		}
		b.Blank().RawLine(tgui.B("Usage").String()).Code(usage)
	}
	if len(c.Aliases) > 0 {
		aka := make([]string, len(c.Aliases))
		for i, a := range c.Aliases {
			aka[i] = tgui.Code(prefix + a).String()
		}
		b.RawLine(tgui.B("Also").String() + " " + strings.Join(aka, ", "))
	}
	return b.Text()
}
