package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	kit "lifepath/internal/transport"
)

const (
	forwardQueue  = 128
	forwardMaxLen = 3500
	forwardValLen = 600
)

// forwarder is a zerolog.LevelWriter relaying records to the log chat.
// Writes never block: records beyond the rate limit or a full queue are dropped.
type forwarder struct {
	sender kit.Sender
	queue  chan forwarded

	mu       sync.Mutex
	target   kit.ChatTarget
	topic    int // configured thread, used when the target has none
	minLevel zerolog.Level
	limiter  *rate.Limiter

	once   sync.Once
	cancel context.CancelFunc
	done   chan struct{}
}

type forwarded struct {
	to   kit.ChatTarget
	text string
}

func newForwarder(sender kit.Sender) *forwarder {
	return &forwarder{
		sender:   sender,
		queue:    make(chan forwarded, forwardQueue),
		minLevel: zerolog.WarnLevel,
		limiter:  rate.NewLimiter(1, 1),
	}
}

func (f *forwarder) usable() bool { return f.sender != nil }

func (f *forwarder) hasTarget() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.target.ChatID != 0
}

func (f *forwarder) setTarget(chatID int64, threadID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.target.ChatID = chatID
	if threadID != 0 {
		f.target.ThreadID = threadID
	} else {
		f.target.ThreadID = f.topic
	}
}

func (f *forwarder) configure(tc TelegramConfig) {
	perSec := max(tc.RatePerSec, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minLevel = parseLevel(tc.MinLevel, zerolog.WarnLevel)
	if f.limiter.Burst() != perSec {
		f.limiter = rate.NewLimiter(rate.Limit(perSec), perSec)
	}
	if tc.ThreadID != 0 {
		f.topic = tc.ThreadID
		f.target.ThreadID = tc.ThreadID
	}
}

func (f *forwarder) ensureRunning() {
	f.once.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		f.mu.Lock()
		f.cancel = cancel
		f.done = make(chan struct{})
		done := f.done
		f.mu.Unlock()
		go func() {
			defer close(done)
			f.run(ctx)
		}()
	})
}

func (f *forwarder) run(ctx context.Context) {
	opts := &kit.SendOptions{DisablePreview: true}
	for {
		select {
		case <-ctx.Done():
			return
		case it := <-f.queue:
			_, _ = f.sender.SendText(ctx, it.to, it.text, opts)
		}
	}
}

func (f *forwarder) close() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel = nil
	f.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (f *forwarder) Write(p []byte) (int, error) { return f.WriteLevel(zerolog.NoLevel, p) }

func (f *forwarder) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	f.mu.Lock()
	to, minLevel, lim := f.target, f.minLevel, f.limiter
	f.mu.Unlock()

	if to.ChatID == 0 || level < minLevel || level == zerolog.NoLevel || !lim.Allow() {
		return len(p), nil
	}
	if text := renderRecord(p); text != "" {
		select {
		case f.queue <- forwarded{to: to, text: text}:
		default:
		}
	}
	return len(p), nil
}

// renderRecord turns one JSON record into
//
//	[LEVEL] comp: message
//	- key=value
//
// with remaining keys sorted. Non-JSON input is passed through.
func renderRecord(p []byte) string {
	raw := strings.TrimSpace(string(p))
	var rec map[string]any
	if json.Unmarshal([]byte(raw), &rec) != nil {
		return clip(raw, forwardMaxLen)
	}
	take := func(k string) string {
		v, _ := rec[k].(string)
		delete(rec, k)
		return v
	}
	delete(rec, zerolog.TimestampFieldName)
	level, comp, msg := take(zerolog.LevelFieldName), take(KeyComp), take(zerolog.MessageFieldName)

	var b strings.Builder
	if level != "" {
		fmt.Fprintf(&b, "[%s] ", strings.ToUpper(level))
	}
	if comp != "" {
		b.WriteString(comp + ": ")
	}
	b.WriteString(msg)

	keys := make([]string, 0, len(rec))
	for k := range rec {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n- %s=%s", k, clip(fmt.Sprint(rec[k]), forwardValLen))
	}
	return clip(b.String(), forwardMaxLen)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
