// Package scheduler fires named recurring jobs in one configured time zone.
//
// Entries are keyed by name; adding a name that exists replaces it, so
// re-arming after a reconnect or a reload never produces a second job.
// Each occurrence runs as a supervisor Fire: it gets its own goroutine and
// deadline, and a failure is logged without touching later occurrences.
// Occurrences missed while the process was down are not replayed.
package scheduler
