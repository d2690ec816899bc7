package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	_ "time/tzdata" // zones must resolve on hosts without a tz database

	"github.com/robfig/cron/v3"

	"lifepath/internal/eventbus"
	"lifepath/internal/runtime/supervisor"
	logx "lifepath/pkg/logx"
)

// specParser accepts 5-field specs, 6-field specs with seconds and descriptors like @daily.
var specParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

type entry struct {
	spec    string
	sched   cron.Schedule
	timeout time.Duration
	job     Job
	id      cron.EntryID // 0 while not registered with a running cron
}

type Service struct {
	log logx.Logger
	bus eventbus.Bus
	sup *supervisor.Supervisor

	mu      sync.Mutex
	tz      string
	loc     *time.Location
	now     func() time.Time
	cron    *cron.Cron // nil when stopped
	entries map[string]*entry
}

// New returns a stopped scheduler. Occurrences run under sup; nil gets a private supervisor.
func New(cfg Config, sup *supervisor.Supervisor, log logx.Logger, bus eventbus.Bus) *Service {
	if sup == nil {
		sup = supervisor.New(context.Background(), supervisor.WithLogger(log))
	}
	s := &Service{
		log:     log,
		bus:     bus,
		sup:     sup,
		now:     time.Now,
		entries: map[string]*entry{},
	}
	s.tz, s.loc = s.zone(cfg.Timezone)
	return s
}

func (s *Service) zone(tz string) (string, *time.Location) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return "", time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("unknown timezone, using host zone", logx.String("tz", tz), logx.Err(err))
		return tz, time.Local
	}
	return tz, loc
}

// SetClock replaces the clock used by Next and Snapshot.
func (s *Service) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now == nil {
		now = time.Now
	}
	s.now = now
}

func (s *Service) Location() *time.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loc
}

func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// Apply switches the zone. A running cron is rebuilt so every entry fires in the new zone.
func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(cfg.Timezone) == s.tz {
		return
	}
	s.tz, s.loc = s.zone(cfg.Timezone)
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.launchLocked()
	s.log.Info("zone changed, cron rebuilt", logx.String("tz", s.loc.String()), logx.Int("entries", len(s.entries)))
}

// Start begins firing. Entries added before Start are registered now.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	s.launchLocked()
	s.log.Info("started", logx.String("tz", s.loc.String()), logx.Int("entries", len(s.entries)))
}

func (s *Service) launchLocked() {
	s.cron = cron.New(
		cron.WithParser(specParser),
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLog{s.log}),
	)
	for name, e := range s.entries {
		s.registerLocked(name, e)
	}
	s.cron.Start()
}

func (s *Service) registerLocked(name string, e *entry) {
	timeout, job := e.timeout, e.job
	e.id = s.cron.Schedule(e.sched, cron.FuncJob(func() { s.fire(name, timeout, job) }))
}

// Stop halts firing and waits for cron to settle or ctx to end. Running
// occurrences finish under the supervisor. Entries are kept for a later Start.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	for _, e := range s.entries {
		e.id = 0
	}
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	s.log.Info("stopped")
}

// Add registers job under name with a cron spec, replacing any entry of that name.
func (s *Service) Add(name, spec string, timeout time.Duration, job Job) error {
	name = strings.TrimSpace(name)
	switch {
	case name == "":
		return errors.New("schedule name is empty")
	case job == nil:
		return fmt.Errorf("schedule %q: nil job", name)
	}
	sched, err := specParser.Parse(spec)
	if err != nil {
		return fmt.Errorf("schedule %q: bad spec %q: %w", name, spec, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(name)
	e := &entry{spec: spec, sched: sched, timeout: timeout, job: job}
	s.entries[name] = e
	if s.cron != nil {
		s.registerLocked(name, e)
		s.log.Debug("entry registered", logx.String("name", name), logx.String("spec", spec), logx.Time("next", s.cron.Entry(e.id).Next))
	}
	return nil
}

// AddDaily registers job at the "HH:MM" wall-clock time every day in the scheduler zone.
func (s *Service) AddDaily(name, at string, timeout time.Duration, job Job) error {
	hour, minute, err := ParseHHMM(at)
	if err != nil {
		return err
	}
	return s.Add(name, DailySpec(hour, minute), timeout, job)
}

// DailySpec is the cron spec firing once a day at hour:minute.
func DailySpec(hour, minute int) string { return fmt.Sprintf("%d %d * * *", minute, hour) }

// ParseHHMM parses a 24h wall-clock time such as "08:00" or "7:05".
func ParseHHMM(at string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return 0, 0, fmt.Errorf("time %q is not HH:MM", at)
	}
	return t.Hour(), t.Minute(), nil
}

// Remove deletes name and reports whether it existed.
func (s *Service) Remove(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropLocked(strings.TrimSpace(name))
}

func (s *Service) dropLocked(name string) bool {
	e, ok := s.entries[name]
	if !ok {
		return false
	}
	if s.cron != nil && e.id != 0 {
		s.cron.Remove(e.id)
	}
	delete(s.entries, name)
	return true
}

// Next lists the next n occurrences of name after the scheduler clock, in the scheduler zone.
// The service does not need to be started.
func (s *Service) Next(name string, n int) ([]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("schedule %q not found", name)
	}
	out := make([]time.Time, 0, max(n, 0))
	for t := s.now().In(s.loc); len(out) < n; {
		t = e.sched.Next(t)
		if t.IsZero() {
			break
		}
		out = append(out, t)
	}
	return out, nil
}

// Snapshot reports every entry sorted by name.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{Running: s.cron != nil, Timezone: s.loc.String()}
	for name, e := range s.entries {
		it := Info{Name: name, Spec: e.spec, Timeout: e.timeout}
		if s.cron != nil && e.id != 0 {
			ce := s.cron.Entry(e.id)
			it.Next, it.Prev = ce.Next, ce.Prev
		} else {
			it.Next = e.sched.Next(s.now().In(s.loc))
		}
		snap.Schedules = append(snap.Schedules, it)
	}
	slices.SortFunc(snap.Schedules, func(a, b Info) int { return strings.Compare(a.Name, b.Name) })
	return snap
}

// fire is called from cron's goroutine and must not take s.mu:
// Apply holds it while waiting for cron to stop.
func (s *Service) fire(name string, timeout time.Duration, job Job) {
	at := time.Now()
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Kind: eventbus.KindScheduleFired, At: at, Data: FiredEvent{Name: name, At: at}})
	}
	if !s.sup.Fire("schedule."+name, timeout, job) {
		s.log.Warn("occurrence skipped, shutting down", logx.String("name", name))
	}
}

// cronLog sends robfig/cron's own logging to logx. Info is very chatty and kept at trace.
type cronLog struct{ log logx.Logger }

func (l cronLog) Info(msg string, kv ...any) {
	if l.log.Enabled(logx.LevelTrace) {
		l.log.Debug("cron "+msg, pairs(kv)...)
	}
}

func (l cronLog) Error(err error, msg string, kv ...any) {
	l.log.Error("cron "+msg, append(pairs(kv), logx.Err(err))...)
}

func pairs(kv []any) []logx.Field {
	var out []logx.Field
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			out = append(out, logx.Any(k, kv[i+1]))
		}
	}
	return out
}
