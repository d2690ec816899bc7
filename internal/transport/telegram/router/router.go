// Package router turns chat messages into command invocations.
//
// Each invocation runs as its own supervisor Fire, so a slow or failing
// command never delays or breaks another one.
package router

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"lifepath/internal/runtime/supervisor"
	kit "lifepath/internal/transport"
	logx "lifepath/pkg/logx"
)

// HandlerFunc serves one invocation.
type HandlerFunc func(ctx context.Context, req *Request) error

type Command struct {
	Name        string
	Aliases     []string
	Description string
	Usage       string        // shown by help, written with a "/" prefix
	Timeout     time.Duration // 0 means no deadline beyond shutdown
	Handle      HandlerFunc
}

// Request is one invocation of a command.
type Request struct {
	Message kit.Message
	Chat    kit.ChatTarget // where replies go: the chat and topic of the message
	Prefix  string         // active command prefix, for usage hints
	Command string
	Args    []string
	ReqID   string

	Sender kit.Sender
	Logger logx.Logger
}

// Reply sends HTML text into the chat and topic the request came from.
func (r *Request) Reply(ctx context.Context, html string) error {
	_, err := r.Sender.SendText(ctx, r.Chat, html, &kit.SendOptions{ParseMode: "HTML", DisablePreview: true})
	return err
}

// slowRequest promotes the request log line from debug to info.
const slowRequest = 750 * time.Millisecond

type registry struct {
	byName map[string]*Command // names and aliases
	order  []*Command
}

type Router struct {
	log    logx.Logger
	sender kit.Sender
	sup    *supervisor.Supervisor

	prefix  atomic.Pointer[string]
	botUser atomic.Pointer[string]
	reg     atomic.Pointer[registry]
}

// New returns a router with an empty command set. A nil sup gets a private supervisor.
func New(log logx.Logger, sender kit.Sender, sup *supervisor.Supervisor, prefix string) *Router {
	if sup == nil {
		sup = supervisor.New(context.Background(), supervisor.WithLogger(log))
	}
	r := &Router{log: log, sender: sender, sup: sup}
	r.SetPrefix(prefix)
	r.SetBotUsername("")
	r.SetCommands(nil)
	return r
}

// SetPrefix changes the command prefix; empty means "/".
func (r *Router) SetPrefix(prefix string) {
	if prefix == "" {
		prefix = "/"
	}
	r.prefix.Store(&prefix)
}

// SetBotUsername makes "/cmd@name" count as addressed to us and "/cmd@other" as foreign.
func (r *Router) SetBotUsername(name string) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "@")
	r.botUser.Store(&name)
}

// SetCommands replaces the command set. help (alias start) is always appended.
// Names and aliases are case-insensitive; an alias never shadows a name.
func (r *Router) SetCommands(cmds []Command) {
	reg := &registry{byName: map[string]*Command{}}
	all := append(append([]Command(nil), cmds...), Command{
		Name:        "help",
		Aliases:     []string{"start"},
		Description: "show available commands",
		Usage:       "/help [command]",
		Handle: func(ctx context.Context, req *Request) error {
			return req.Reply(ctx, helpText(r.reg.Load(), req.Prefix, req.Args))
		},
	})
	for i := range all {
		c := &all[i]
		c.Name = strings.ToLower(strings.TrimSpace(c.Name))
		if c.Name == "" || c.Handle == nil {
			continue
		}
		reg.byName[c.Name] = c
		reg.order = append(reg.order, c)
	}
	for _, c := range reg.order {
		for _, a := range c.Aliases {
			a = strings.ToLower(strings.TrimSpace(a))
			if _, taken := reg.byName[a]; a != "" && !taken {
				reg.byName[a] = c
			}
		}
	}
	r.reg.Store(reg)
}

// MenuCommands is the command set in registration order, shaped for the client menu.
func (r *Router) MenuCommands() []kit.MenuCommand {
	return menuEntries(r.reg.Load().order)
}

// Run routes messages until ctx ends or in is closed.
func (r *Router) Run(ctx context.Context, in <-chan kit.Message) error {
	r.log.Info("routing commands", logx.String("prefix", *r.prefix.Load()))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			r.Route(ctx, msg)
		}
	}
}

// Route dispatches one message. Non-commands and commands for other bots are ignored.
// Unknown commands get a hint only in private chats or when addressed to this bot.
func (r *Router) Route(ctx context.Context, msg kit.Message) {
	prefix := *r.prefix.Load()
	inv, ok := parseInvocation(msg.Text, prefix, *r.botUser.Load())
	if !ok {
		return
	}
	cmd := r.reg.Load().byName[inv.name]
	if cmd == nil {
		if inv.addressed || msg.Chat.Private() {
			_, _ = r.sender.SendText(ctx, msg.Chat, "Unknown command. Try "+prefix+"help", nil)
		}
		return
	}

	id := newReqID()
	req := &Request{
		Message: msg,
		Chat:    kit.ChatTarget{ChatID: msg.Chat.ChatID, ThreadID: msg.Chat.ThreadID},
		Prefix:  prefix,
		Command: cmd.Name,
		Args:    inv.args,
		ReqID:   id,
		Sender:  r.sender,
		Logger: r.log.With(
			logx.ReqID(id),
			logx.String("cmd", cmd.Name),
			logx.Chat(msg.Chat),
			logx.Int64("from_id", msg.FromID),
		),
	}
	r.sup.Fire("command."+cmd.Name, cmd.Timeout, func(ctx context.Context) error {
		return serve(ctx, cmd.Handle, req)
	})
}

func serve(ctx context.Context, h HandlerFunc, req *Request) error {
	began := time.Now()
	err := h(ctx, req)
	took := time.Since(began)
	switch {
	case err != nil:
		req.Logger.Warn("command failed", logx.Duration("took", took), logx.Err(err))
	case took >= slowRequest:
		req.Logger.Info("command served", logx.Duration("took", took))
	default:
		req.Logger.Debug("command served", logx.Duration("took", took))
	}
	return err
}
