package scheduler

import (
	"context"
	"time"
)

// Config controls the scheduler service.
type Config struct {
	Timezone string // IANA zone, empty for the host zone
}

// Job is the work of one occurrence. ctx carries the entry timeout.
type Job func(ctx context.Context) error

// Info describes one entry.
type Info struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Next    time.Time
	Prev    time.Time
}

type Snapshot struct {
	Running   bool
	Timezone  string
	Schedules []Info
}

// FiredEvent is the Data of an eventbus.KindScheduleFired event.
type FiredEvent struct {
	Name string
	At   time.Time
}
