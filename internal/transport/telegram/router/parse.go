package router

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

type invocation struct {
	name      string
	args      []string
	addressed bool // written as name@thisbot
}

// parseInvocation reads "<prefix>name[@bot] args...". It fails for text
// without the prefix and for commands addressed to a different bot.
func parseInvocation(text, prefix, botUser string) (invocation, bool) {
	rest, found := strings.CutPrefix(strings.TrimSpace(text), prefix)
	fields := strings.Fields(rest)
	if !found || len(fields) == 0 {
		return invocation{}, false
	}
	name, bot, addressed := strings.Cut(fields[0], "@")
	if addressed && botUser != "" && !strings.EqualFold(bot, botUser) {
		return invocation{}, false
	}
	if name == "" {
		return invocation{}, false
	}
	return invocation{name: strings.ToLower(name), args: fields[1:], addressed: addressed}, true
}

// newReqID returns a short random id tying a command's log lines together.
func newReqID() string {
	return strconv.FormatUint(rand.Uint64()>>20, 36)
}
