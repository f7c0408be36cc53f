package deadline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// manualClock captures the scheduled callback so tests decide when it fires.
type manualClock struct {
	mu       sync.Mutex
	fn       func()
	after    time.Duration
	timers   []*manualTimer
	schedule int
}

type manualTimer struct {
	mu    sync.Mutex
	stops int
}

func (t *manualTimer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stops++
	return t.stops == 1
}

func (t *manualTimer) stopCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stops
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fn = f
	c.after = d
	c.schedule++
	t := &manualTimer{}
	c.timers = append(c.timers, t)
	return t
}

func (c *manualClock) fire() {
	c.mu.Lock()
	fn := c.fn
	c.mu.Unlock()
	fn()
}

func TestArm_SchedulesTimeout(t *testing.T) {
	clock := &manualClock{}
	d := Arm(context.Background(), 250*time.Millisecond, clock)
	defer d.Release()

	if clock.schedule != 1 {
		t.Fatalf("scheduled %d timers, want 1", clock.schedule)
	}
	if clock.after != 250*time.Millisecond {
		t.Errorf("after = %v, want 250ms", clock.after)
	}
	if d.Timeout() != 250*time.Millisecond {
		t.Errorf("Timeout() = %v, want 250ms", d.Timeout())
	}
	if d.Expired() {
		t.Error("fresh deadline reports expired")
	}
	if d.Context().Err() != nil {
		t.Errorf("fresh context err = %v", d.Context().Err())
	}
}

func TestDeadline_Fire(t *testing.T) {
	clock := &manualClock{}
	d := Arm(context.Background(), time.Second, clock)

	clock.fire()

	if !d.Expired() {
		t.Fatal("expected Expired after fire")
	}
	if !errors.Is(d.Context().Err(), context.Canceled) {
		t.Errorf("ctx err = %v, want context.Canceled", d.Context().Err())
	}
	if !errors.Is(context.Cause(d.Context()), ErrExpired) {
		t.Errorf("cause = %v, want ErrExpired", context.Cause(d.Context()))
	}

	d.Release()
	if !d.Expired() {
		t.Error("Release must not clear the expiry cause")
	}
	if got := clock.timers[0].stopCount(); got != 1 {
		t.Errorf("timer stopped %d times, want 1", got)
	}
}

func TestDeadline_ReleaseBeforeFire(t *testing.T) {
	clock := &manualClock{}
	d := Arm(context.Background(), time.Second, clock)

	d.Release()
	d.Release()
	d.Release()

	if got := clock.timers[0].stopCount(); got != 1 {
		t.Errorf("timer stopped %d times, want 1", got)
	}
	if d.Expired() {
		t.Error("released deadline reports expired")
	}
	if d.Context().Err() == nil {
		t.Error("released context should be done")
	}
}

func TestDeadline_ParentCancelIsNotExpiry(t *testing.T) {
	clock := &manualClock{}
	parent, cancel := context.WithCancel(context.Background())
	d := Arm(parent, time.Second, clock)
	defer d.Release()

	cancel()

	if d.Context().Err() == nil {
		t.Fatal("child context should follow parent cancellation")
	}
	if d.Expired() {
		t.Error("parent cancellation must not count as expiry")
	}
}

func TestArm_ZeroTimeoutSchedulesNothing(t *testing.T) {
	clock := &manualClock{}
	d := Arm(context.Background(), 0, clock)

	if clock.schedule != 0 {
		t.Errorf("scheduled %d timers, want 0", clock.schedule)
	}
	d.Release()
	if d.Expired() {
		t.Error("zero deadline reports expired")
	}
}

func TestArm_SystemClock(t *testing.T) {
	d := Arm(context.Background(), 10*time.Millisecond, nil)
	defer d.Release()

	select {
	case <-d.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("system clock deadline never fired")
	}
	if !d.Expired() {
		t.Error("expected Expired with system clock")
	}
}
