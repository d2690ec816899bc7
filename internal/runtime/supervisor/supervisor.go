// Package supervisor runs lifepath's goroutines under one cancelable context.
//
// Three shapes are supported: long-lived services (Go), one-shot
// occurrences such as a scheduled post or a chat command (Fire), and
// self-healing loops such as the Telegram poller (Loop). Every shape
// recovers panics and is joined by Wait.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"time"

	logx "lifepath/pkg/logx"
)

type Supervisor struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    logx.Logger
	fatal  bool

	wg sync.WaitGroup

	mu    sync.Mutex
	first error
}

type Option func(*Supervisor)

func WithLogger(log logx.Logger) Option { return func(s *Supervisor) { s.log = log } }

// FailFast makes the first error of a Go service cancel every sibling.
// Fire and Loop errors are never fatal.
func FailFast() Option { return func(s *Supervisor) { s.fatal = true } }

func New(parent context.Context, opts ...Option) *Supervisor {
	ctx, cancel := context.WithCancel(parent)
	s := &Supervisor{ctx: ctx, cancel: cancel}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Supervisor) Context() context.Context { return s.ctx }

// Cancel stops handing out work and cancels running goroutines without waiting.
func (s *Supervisor) Cancel() { s.cancel() }

// Err is the first error recorded by a Go service, if any.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.first
}

func (s *Supervisor) record(err error) {
	s.mu.Lock()
	if s.first == nil {
		s.first = err
	}
	s.mu.Unlock()
	if s.fatal {
		s.cancel()
	}
}

// spawn starts body unless the supervisor is already canceled.
func (s *Supervisor) spawn(body func()) bool {
	if s.ctx.Err() != nil {
		return false
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		body()
	}()
	return true
}

// guard calls fn and turns a panic into an error.
func (s *Supervisor) guard(name string, ctx context.Context, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic recovered",
				logx.String("task", name),
				logx.Any("panic", r),
				logx.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("%s panicked: %v", name, r)
		}
	}()
	return fn(ctx)
}

// Go runs a long-lived service. A non-cancellation error or panic is recorded
// and, with FailFast, cancels the supervisor.
func (s *Supervisor) Go(name string, fn func(ctx context.Context) error) {
	s.spawn(func() {
		err := s.guard(name, s.ctx, fn)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.record(fmt.Errorf("%s: %w", name, err))
		}
	})
}

// Fire runs a single occurrence with an optional deadline. Its outcome is
// logged and never affects siblings. It reports false when the supervisor
// is already stopping and fn was not started.
func (s *Supervisor) Fire(name string, timeout time.Duration, fn func(ctx context.Context) error) bool {
	return s.spawn(func() {
		ctx := s.ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		if err := s.guard(name, ctx, fn); err != nil {
			s.log.Warn("occurrence failed", logx.String("task", name), logx.Duration("took", time.Since(start)), logx.Err(err))
			return
		}
		s.log.Debug("occurrence done", logx.String("task", name), logx.Duration("took", time.Since(start)))
	})
}

// Loop keeps fn running until the supervisor is canceled, waiting an
// exponentially growing, jittered delay between runs. A run that lasted
// longer than ceiling resets the delay to floor.
func (s *Supervisor) Loop(name string, floor, ceiling time.Duration, fn func(ctx context.Context) error) {
	if ceiling < floor {
		ceiling = floor
	}
	s.spawn(func() {
		delay := floor
		for s.ctx.Err() == nil {
			began := time.Now()
			err := s.guard(name, s.ctx, fn)
			if s.ctx.Err() != nil {
				return
			}
			if time.Since(began) > ceiling {
				delay = floor
			}
			pause := delay + rand.N(delay/4+1)
			s.log.Warn("restarting", logx.String("task", name), logx.Duration("in", pause), logx.Err(err))
			t := time.NewTimer(pause)
			select {
			case <-s.ctx.Done():
				t.Stop()
				return
			case <-t.C:
			}
			delay = min(delay*2, ceiling)
		}
	})
}

// Stop cancels and waits.
func (s *Supervisor) Stop(ctx context.Context) error {
	s.cancel()
	return s.Wait(ctx)
}

// Wait blocks until all goroutines return or ctx ends. It returns Err on a clean join.
func (s *Supervisor) Wait(ctx context.Context) error {
	joined := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(joined)
	}()
	select {
	case <-joined:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
