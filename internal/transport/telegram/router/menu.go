package router

import (
	"strings"

	kit "lifepath/internal/transport"
)

// Telegram bot command limits.
const (
	menuNameMax  = 32
	menuDescMax  = 256
	menuEntryMax = 100
)

// menuName lowercases s and keeps [a-z0-9_], turning runs of separators into
// one underscore. Names must start with a letter, so a leading digit gets "cmd_".
func menuName(s string) string {
	var b strings.Builder
	gap := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if gap && b.Len() > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
			gap = false
		default:
			gap = true
		}
	}
	name := b.String()
	if name != "" && name[0] <= '9' {
		name = "cmd_" + name
	}
	if len(name) > menuNameMax {
		name = strings.TrimRight(name[:menuNameMax], "_")
	}
	return name
}

func menuEntries(cmds []*Command) []kit.MenuCommand {
	var out []kit.MenuCommand
	seen := map[string]bool{}
	for _, c := range cmds {
		name := menuName(c.Name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		desc := strings.Join(strings.Fields(c.Description), " ")
		if desc == "" {
			desc = name
		}
		if len(desc) > menuDescMax {
			desc = desc[:menuDescMax]
		}
		out = append(out, kit.MenuCommand{Name: name, Description: desc})
		if len(out) == menuEntryMax {
			break
		}
	}
	return out
}
