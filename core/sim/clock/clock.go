package clock

import (
	"context"
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// Waiter blocks for the simulated duration of a step.
type Waiter interface {
	Wait(ctx context.Context, d time.Duration) error
}

type system struct{}

func System() Clock { return system{} }

func (system) Now() time.Time { return time.Now() }

type sleeper struct{}

// Sleeper waits on the real timer and gives up when ctx is done.
func Sleeper() Waiter { return sleeper{} }

func (sleeper) Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fake is a manual clock. Waiting on it advances time instantly, which keeps
// runs deterministic in tests and in dry-run mode.
type Fake struct {
	mu    sync.Mutex
	now   time.Time
	waits []time.Duration
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *Fake) Wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	f.waits = append(f.waits, d)
	return nil
}

// Waits returns every duration passed to Wait, in order.
func (f *Fake) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.waits...)
}
