// Package adapter connects lifepath to the Telegram Bot API through telebot.
package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
	tele "gopkg.in/telebot.v4"

	"lifepath/internal/runtime/supervisor"
	kit "lifepath/internal/transport"
	logx "lifepath/pkg/logx"
)

type Config struct {
	Token       string
	PollTimeout time.Duration
}

const defaultPollTimeout = 10 * time.Second

// Client is the Telegram transport.Client.
type Client struct {
	log logx.Logger
	bot *tele.Bot

	ready chan struct{}

	inbox   atomic.Pointer[chan<- kit.Message]
	dropped atomic.Uint64
	dropLog rate.Sometimes

	mu  sync.Mutex
	sup *supervisor.Supervisor // non-nil while started

	menuMu  sync.Mutex
	menuSum uint64
}

var _ kit.Client = (*Client)(nil)

// New logs in with getMe and returns a client that is not yet polling.
func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	c := &Client{
		log:     log,
		ready:   make(chan struct{}),
		dropLog: rate.Sometimes{Interval: 5 * time.Second},
	}
	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		Poller:  &readyPoller{inner: &tele.LongPoller{Timeout: cfg.PollTimeout}, ready: c.ready},
		OnError: func(err error, _ tele.Context) { log.Warn("telebot", logx.Err(err)) },
	})
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	c.bot = bot
	bot.Handle(tele.OnText, c.onText)
	return c, nil
}

// readyPoller closes ready when telebot first hands it the update channel,
// which happens only after bot.Start is running.
type readyPoller struct {
	inner tele.Poller
	ready chan struct{}
	once  sync.Once
}

func (p *readyPoller) Poll(b *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	p.once.Do(func() { close(p.ready) })
	p.inner.Poll(b, dest, stop)
}

// Username is the bot's @username as reported at login.
func (c *Client) Username() string {
	if c.bot == nil || c.bot.Me == nil {
		return ""
	}
	return c.bot.Me.Username
}

// Ready is closed once the long poll is running.
func (c *Client) Ready() <-chan struct{} { return c.ready }

func (c *Client) onText(tc tele.Context) error {
	m := tc.Message()
	if m == nil || m.Chat == nil {
		return nil
	}
	out := c.inbox.Load()
	if out == nil {
		return nil
	}
	msg := kit.Message{
		ID:   m.ID,
		Chat: kit.ChatTarget{ChatID: m.Chat.ID, ThreadID: m.ThreadID},
		Text: m.Text,
		Sent: m.Time(),
	}
	if m.Sender != nil {
		msg.FromID, msg.FromUsername = m.Sender.ID, m.Sender.Username
	}
	select {
	case *out <- msg:
	default:
		n := c.dropped.Add(1)
		c.dropLog.Do(func() {
			c.log.Warn("inbox full, messages dropped", logx.Uint64("total", n), logx.Int("cap", cap(*out)))
		})
	}
	return nil
}

// Start polls getUpdates in the background and delivers text messages to out
// without blocking; messages arriving while out is full are dropped.
func (c *Client) Start(ctx context.Context, out chan<- kit.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sup != nil {
		return nil
	}
	c.inbox.Store(&out)
	c.sup = supervisor.New(ctx, supervisor.WithLogger(c.log))
	c.sup.Loop("telebot.poll", 500*time.Millisecond, 10*time.Second, c.poll)
	return nil
}

// poll runs one bot.Start until it returns or ctx ends. bot.Stop blocks
// unless Start is running, so it is only called here.
func (c *Client) poll(ctx context.Context) error {
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		c.bot.Start()
	}()
	c.log.Info("polling", logx.String("bot", c.Username()))
	select {
	case <-exited:
		return errors.New("telebot poller exited")
	case <-ctx.Done():
		c.bot.Stop()
		<-exited
		return ctx.Err()
	}
}

// Stop ends polling and waits at most two seconds (or ctx) for the long poll to return.
func (c *Client) Stop(ctx context.Context) error {
	c.mu.Lock()
	sup := c.sup
	c.sup = nil
	c.inbox.Store(nil)
	c.mu.Unlock()
	if sup == nil {
		return nil
	}

	wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := sup.Stop(wctx); err != nil && wctx.Err() != nil {
		c.log.Warn("poller did not stop in time", logx.Err(err))
	}
	c.log.Info("stopped")
	return nil
}
