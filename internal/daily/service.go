// Package daily posts the Life Path numbers to a chat, once a day on a fixed
// wall-clock schedule and on demand.
package daily

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"lifepath/internal/config"
	"lifepath/internal/eventbus"
	"lifepath/internal/metrics"
	"lifepath/internal/numerology"
	"lifepath/internal/task/scheduler"
	kit "lifepath/internal/transport"
	logx "lifepath/pkg/logx"
)

// JobName is the scheduler entry owned by the dispatcher.
const JobName = "daily-post"

// ErrTargetUnresolved means the target chat could not be looked up at dispatch time.
var ErrTargetUnresolved = errors.New("target chat unresolved")

// ErrNotArmed is returned by NextFires while no daily trigger is registered.
var ErrNotArmed = errors.New("daily post not scheduled")

// State of the recurring trigger.
type State int32

const (
	StateIdle State = iota
	StateArmed
	StateFiring
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateFiring:
		return "firing"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Sink is where posts go. The telegram adapter satisfies it.
type Sink interface {
	kit.Sender
	ResolveChat(ctx context.Context, chatID int64) (kit.ChatTarget, error)
}

// Settings is the hot-reloadable part of the dispatcher.
type Settings struct {
	TargetChatID   int64
	TargetThreadID int

	Enabled bool
	At      string // "HH:MM" in the scheduler zone
	Timeout time.Duration

	Post PostSettings
}

// SettingsFromConfig maps a validated config onto Settings.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	loc, err := cfg.Location()
	if err != nil {
		return Settings{}, err
	}
	h, m, err := scheduler.ParseHHMM(cfg.Schedule.At)
	if err != nil {
		return Settings{}, fmt.Errorf("schedule.at: %w", err)
	}
	timeout := cfg.PostTimeout()
	return Settings{
		TargetChatID:   cfg.Telegram.TargetChatID,
		TargetThreadID: cfg.Telegram.TargetThreadID,
		Enabled:        cfg.Schedule.IsEnabled(),
		At:             cfg.Schedule.At,
		Timeout:        timeout,
		Post: PostSettings{
			Title:    cfg.Post.Title,
			URLHost:  cfg.Post.URLHost,
			TZLabel:  cfg.Post.TZLabel,
			Location: loc,
			Hour:     h,
			Minute:   m,
		},
	}, nil
}

// Posted is the Data of eventbus.KindPosted.
type Posted struct {
	Trigger string
	Date    numerology.CalendarDate
	Chat    kit.ChatTarget
	Message kit.MessageRef
}

// Abandoned is the Data of eventbus.KindAbandoned.
type Abandoned struct {
	Trigger string
	Date    numerology.CalendarDate
	Reason  string
	Err     error
}

// Rejected is the Data of eventbus.KindRejected.
type Rejected struct {
	Input string
	Err   error
}

type Deps struct {
	Sink      Sink
	Scheduler *scheduler.Service
	Log       logx.Logger
	Bus       eventbus.Bus
	Metrics   *metrics.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Service is the dispatcher. Idle until Arm; each scheduled fire moves it
// through Firing and back to Armed. On-demand posts ignore the state.
type Service struct {
	mu       sync.RWMutex
	settings Settings

	state  atomic.Int32
	active atomic.Bool

	sink  Sink
	sched *scheduler.Service
	log   logx.Logger
	bus   eventbus.Bus
	m     *metrics.Metrics
	now   func() time.Time
}

func New(settings Settings, deps Deps) *Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Service{
		settings: settings,
		sink:     deps.Sink,
		sched:    deps.Scheduler,
		log:      deps.Log.With(logx.Comp("daily")),
		bus:      deps.Bus,
		m:        deps.Metrics,
		now:      deps.Now,
	}
}

func (s *Service) State() State { return State(s.state.Load()) }

// Settings returns a copy of the active settings.
func (s *Service) Settings() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Arm registers the daily trigger, normally once the chat client is ready.
// A disabled schedule leaves the service Idle until a reload enables it.
func (s *Service) Arm() error {
	s.active.Store(true)
	return s.rearm()
}

// Disarm removes the trigger. In-flight fires finish and do not re-arm.
func (s *Service) Disarm() {
	s.active.Store(false)
	s.unschedule()
}

// Apply swaps in new settings. While active the trigger is re-registered so
// a new fire time or enabled flag takes effect without a restart.
func (s *Service) Apply(st Settings) error {
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()

	if !s.active.Load() {
		return nil
	}
	return s.rearm()
}

func (s *Service) rearm() error {
	st := s.Settings()
	if !st.Enabled {
		s.unschedule()
		s.log.Info("daily schedule disabled")
		return nil
	}
	if err := s.sched.AddDaily(JobName, st.At, st.Timeout, s.fire); err != nil {
		return fmt.Errorf("arm daily post: %w", err)
	}
	s.state.CompareAndSwap(int32(StateIdle), int32(StateArmed))

	fields := []logx.Field{logx.String("at", st.At), logx.String("tz", s.sched.Location().String())}
	if next, err := s.sched.Next(JobName, 1); err == nil && len(next) == 1 {
		fields = append(fields, logx.Time("next", next[0]))
	}
	s.log.Info("daily post armed", fields...)
	return nil
}

func (s *Service) unschedule() {
	if s.sched.Remove(JobName) {
		s.log.Info("daily post disarmed")
	}
	s.state.Store(int32(StateIdle))
}

// NextFires lists the upcoming n fire times.
func (s *Service) NextFires(n int) ([]time.Time, error) {
	if s.State() == StateIdle {
		return nil, ErrNotArmed
	}
	return s.sched.Next(JobName, n)
}

func (s *Service) fire(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(StateArmed), int32(StateFiring)) {
		s.log.Warn("fire skipped", logx.String("state", s.State().String()))
		return nil
	}
	defer s.state.CompareAndSwap(int32(StateFiring), int32(StateArmed))
	return s.PostToday(ctx, metrics.TriggerSchedule)
}

// Today is the civil date in the post zone right now.
func (s *Service) Today() numerology.CalendarDate {
	loc := s.Settings().Post.Location
	if loc == nil {
		loc = time.UTC
	}
	return numerology.DateOf(s.now().In(loc))
}

// PostToday posts today's numbers to the configured target chat.
func (s *Service) PostToday(ctx context.Context, trigger string) error {
	st := s.Settings()
	d := s.Today()

	start := time.Now()
	to, err := s.sink.ResolveChat(ctx, st.TargetChatID)
	if err != nil {
		s.m.ObserveDelivery(trigger, time.Since(start))
		err = fmt.Errorf("%w: chat %d: %w", ErrTargetUnresolved, st.TargetChatID, err)
		s.abandon(trigger, d, metrics.ReasonUnresolved, err)
		return err
	}
	if st.TargetThreadID != 0 {
		to.ThreadID = st.TargetThreadID
	}
	return s.send(ctx, trigger, d, to, st.Post, start)
}

// PostDate posts the numbers for d into the given chat.
func (s *Service) PostDate(ctx context.Context, trigger string, d numerology.CalendarDate, to kit.ChatTarget) error {
	return s.send(ctx, trigger, d, to, s.Settings().Post, time.Now())
}

func (s *Service) send(ctx context.Context, trigger string, d numerology.CalendarDate, to kit.ChatTarget, ps PostSettings, start time.Time) error {
	post := Render(ps, d)
	ref, err := post.Message().Send(ctx, s.sink, to)
	s.m.ObserveDelivery(trigger, time.Since(start))
	if err != nil {
		err = fmt.Errorf("send to chat %d: %w", to.ChatID, err)
		s.abandon(trigger, d, metrics.ReasonSendFailed, err)
		return err
	}

	s.m.IncPosted(trigger)
	s.log.Info("life path posted",
		logx.Trigger(trigger),
		logx.Date(d),
		logx.Chat(to),
		logx.Int("primary", post.Result.Primary),
		logx.Int("digit_total", post.Result.DigitTotal),
		logx.Int("secondary", post.Result.SecondaryEnergy),
	)
	s.publish(eventbus.KindPosted, Posted{Trigger: trigger, Date: d, Chat: to, Message: ref})
	return nil
}

func (s *Service) abandon(trigger string, d numerology.CalendarDate, reason string, err error) {
	s.m.IncAbandoned(trigger, reason)
	s.log.Error("dispatch abandoned",
		logx.Trigger(trigger),
		logx.Date(d),
		logx.String("reason", reason),
		logx.Err(err),
	)
	s.publish(eventbus.KindAbandoned, Abandoned{Trigger: trigger, Date: d, Reason: reason, Err: err})
}

// reject records a malformed calc input. Nothing is computed or sent.
func (s *Service) reject(input string, err error) {
	s.m.IncCalcRejected()
	s.log.Debug("calc input rejected", logx.String("input", input), logx.Err(err))
	s.publish(eventbus.KindRejected, Rejected{Input: input, Err: err})
}

func (s *Service) publish(kind eventbus.Kind, data any) {
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Kind: kind, At: s.now(), Data: data})
	}
}
