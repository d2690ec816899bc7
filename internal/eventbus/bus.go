// Package eventbus fans dispatcher and scheduler events out to in-process
// listeners. Publish never blocks: a listener whose buffer is full misses the event.
package eventbus

import (
	"slices"
	"sync"
	"time"
)

type Kind string

const (
	KindScheduleFired Kind = "schedule.fired"
	KindPosted        Kind = "daily.posted"
	KindAbandoned     Kind = "daily.abandoned"
	KindRejected      Kind = "daily.rejected"
)

type Event struct {
	Kind Kind
	At   time.Time // set by Publish when zero
	Data any
}

type Bus interface {
	Publish(e Event)
	// Subscribe returns a channel of events of the given kinds (all kinds when
	// none are given) and a function that detaches and closes it.
	Subscribe(buffer int, kinds ...Kind) (<-chan Event, func())
}

type listener struct {
	ch    chan Event
	kinds []Kind
}

func (l *listener) wants(k Kind) bool { return len(l.kinds) == 0 || slices.Contains(l.kinds, k) }

type bus struct {
	mu        sync.RWMutex
	listeners []*listener
}

func New() Bus { return &bus{} }

func (b *bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	// the read lock keeps a concurrent unsubscribe from closing ch mid-send
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, l := range b.listeners {
		if !l.wants(e.Kind) {
			continue
		}
		select {
		case l.ch <- e:
		default:
		}
	}
}

func (b *bus) Subscribe(buffer int, kinds ...Kind) (<-chan Event, func()) {
	l := &listener{ch: make(chan Event, max(buffer, 1)), kinds: kinds}
	b.mu.Lock()
	b.listeners = append(b.listeners, l)
	b.mu.Unlock()

	var once sync.Once
	return l.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.listeners = slices.DeleteFunc(b.listeners, func(x *listener) bool { return x == l })
			close(l.ch)
		})
	}
}
