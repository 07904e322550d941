// Package generator produces synthetic traces and logs on a schedule.
package generator

import (
	"time"
)

// CancelHandle stops a scheduled call. Cancel is idempotent and safe to call
// after the call has already run.
type CancelHandle interface {
	Cancel()
}

// Scheduler runs fn once after delay.
type Scheduler func(delay time.Duration, fn func()) CancelHandle

type timerHandle struct{ t *time.Timer }

func (h timerHandle) Cancel() { h.t.Stop() }

// Schedule is the default Scheduler, backed by time.AfterFunc.
func Schedule(delay time.Duration, fn func()) CancelHandle {
	return timerHandle{t: time.AfterFunc(delay, fn)}
}
