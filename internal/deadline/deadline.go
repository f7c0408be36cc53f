// Package deadline provides a per-call cancellation token armed with a timer.
//
// A Deadline owns a derived context and one scheduled expiry. When the expiry
// fires the context is cancelled with ErrExpired as its cause, which lets the
// caller tell its own timeout apart from a parent cancellation or a plain
// transport failure.
package deadline

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrExpired is the cancellation cause recorded when the timer fires.
var ErrExpired = errors.New("deadline expired")

// Timer is a scheduled expiry that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules the expiry callback.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// System is the wall-clock Clock backed by time.AfterFunc.
var System Clock = systemClock{}

// Deadline is a cancellation token plus its expiry timer.
type Deadline struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	timer   Timer
	timeout time.Duration
	release sync.Once
}

// Arm derives a cancellable context from parent and schedules its expiry after
// timeout. A nil clock means System. timeout <= 0 schedules nothing.
func Arm(parent context.Context, timeout time.Duration, clock Clock) *Deadline {
	if clock == nil {
		clock = System
	}
	ctx, cancel := context.WithCancelCause(parent)
	d := &Deadline{ctx: ctx, cancel: cancel, timeout: timeout}
	if timeout > 0 {
		d.timer = clock.AfterFunc(timeout, func() { cancel(ErrExpired) })
	}
	return d
}

// Context returns the context to hand to the transport.
func (d *Deadline) Context() context.Context { return d.ctx }

// Timeout returns the armed duration.
func (d *Deadline) Timeout() time.Duration { return d.timeout }

// Expired reports whether this deadline's own timer cancelled the context.
// A cancelled parent does not count.
func (d *Deadline) Expired() bool {
	return errors.Is(context.Cause(d.ctx), ErrExpired)
}

// Release stops the timer and frees the context. Safe to call more than once;
// the timer is stopped exactly once.
func (d *Deadline) Release() {
	d.release.Do(func() {
		if d.timer != nil {
			d.timer.Stop()
		}
		d.cancel(context.Canceled)
	})
}
