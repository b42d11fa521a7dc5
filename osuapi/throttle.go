package osuapi

import (
	"context"
	"sync"
	"time"
)

// throttle allows at most rate requests per window and at most concurrent
// requests in flight.
type throttle struct {
	rate   int
	window time.Duration
	now    func() time.Time

	mu       sync.Mutex
	attempts []time.Time

	slots chan struct{}
}

func newThrottle(rate int, window time.Duration, concurrent int) *throttle {
	if rate <= 0 {
		rate = 1
	}
	if concurrent <= 0 {
		concurrent = 1
	}
	t := &throttle{
		rate:   rate,
		window: window,
		now:    time.Now,
		slots:  make(chan struct{}, concurrent),
	}
	for i := 0; i < concurrent; i++ {
		t.slots <- struct{}{}
	}
	return t
}

// acquire blocks until a request may start. The returned func frees the
// concurrency slot.
func (t *throttle) acquire(ctx context.Context) (func(), error) {
	select {
	case <-t.slots:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	release := func() { t.slots <- struct{}{} }

	for {
		wait := t.reserve()
		if wait <= 0 {
			return release, nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			release()
			return nil, ctx.Err()
		}
	}
}

// reserve records an attempt and returns 0, or returns how long to wait
// before the oldest attempt leaves the window.
func (t *throttle) reserve() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	att := t.attempts
	if len(att) < t.rate || now.Sub(att[0]) > t.window {
		att = append(att, now)
		if len(att) > t.rate {
			att = att[1:]
		}
		t.attempts = att
		return 0
	}
	return att[0].Add(t.window).Sub(now) + time.Millisecond
}
