package daily

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"lifepath/internal/metrics"
	"lifepath/internal/numerology"
	"lifepath/internal/transport/telegram/router"
	"lifepath/pkg/tgui"
)

const (
	todayAck   = "Posted today's Life Path above ☝️"
	maxNextRun = 10
)

// Commands returns the chat commands backed by s.
func (s *Service) Commands() []router.Command {
	return []router.Command{
		{
			Name:        "today",
			Description: "post today's Life Path to the channel",
			Usage:       "/today",
			Timeout:     s.Settings().Timeout,
			Handle:      s.handleToday,
		},
		{
			Name:        "calc",
			Description: "calculate the Life Path for any date",
			Usage:       "/calc MM/DD/YYYY",
			Timeout:     s.Settings().Timeout,
			Handle:      s.handleCalc,
		},
		{
			Name:        "next",
			Aliases:     []string{"schedule"},
			Description: "show upcoming daily posts",
			Usage:       "/next [count]",
			Handle:      s.handleNext,
		},
	}
}

func (s *Service) handleToday(ctx context.Context, req *router.Request) error {
	if err := s.PostToday(ctx, metrics.TriggerToday); err != nil {
		msg := "Couldn't post today's Life Path, please try again later."
		if errors.Is(err, ErrTargetUnresolved) {
			msg = "Couldn't post today's Life Path: the target chat is not reachable."
		}
		_ = req.Reply(ctx, tgui.Esc(msg).String())
		return err
	}
	return req.Reply(ctx, todayAck)
}

func (s *Service) handleCalc(ctx context.Context, req *router.Request) error {
	input := strings.Join(req.Args, " ")
	d, err := numerology.ParseDate(input)
	if len(req.Args) != 1 || err != nil {
		if err == nil {
			err = numerology.ErrInvalidDate
		}
		s.reject(input, err)
		return req.Reply(ctx, calcUsage(req))
	}
	return s.PostDate(ctx, metrics.TriggerCalc, d, req.Chat)
}

func calcUsage(req *router.Request) string {
	return "Use MM/DD/YYYY, e.g. " + tgui.Code(req.Prefix+"calc 08/21/2025").String()
}

func (s *Service) handleNext(ctx context.Context, req *router.Request) error {
	n := 3
	if len(req.Args) > 0 {
		v, err := strconv.Atoi(req.Args[0])
		if err != nil || v < 1 {
			return req.Reply(ctx, "Count must be a positive number.")
		}
		n = min(v, maxNextRun)
	}

	runs, err := s.NextFires(n)
	if err != nil {
		return req.Reply(ctx, "The daily post is not scheduled right now.")
	}
	st := s.Settings()
	b := tgui.New().Title("🗓", "Upcoming daily posts")
	for _, t := range runs {
		d := numerology.DateOf(t)
		r := numerology.Reduce(d)
		b.KV(t.Format("Mon Jan 02 2006 15:04 MST"), "Life Path "+strconv.Itoa(r.Primary)+" / "+strconv.Itoa(r.DigitTotal))
	}
	if st.TargetChatID != 0 {
		b.Blank().Line("Target chat: " + strconv.FormatInt(st.TargetChatID, 10))
	}
	return req.Reply(ctx, b.Text())
}
