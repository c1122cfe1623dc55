// Package timing holds the rest timer and metronome state machines and the
// clock abstraction that drives them.
package timing

import (
	"sort"
	"sync"
	"time"
)

// Clock tells time and schedules repeating callbacks.
type Clock interface {
	Now() time.Time
	// Every calls f every d until cancel is called. cancel is idempotent,
	// never blocks, and may be called from inside f.
	Every(d time.Duration, f func()) (cancel func())
}

// SystemClock is the wall clock. Each Every runs its own ticker goroutine.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Every(d time.Duration, f func()) func() {
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				f()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// ManualClock only moves when Advance is called. Tests use it to drive
// timers deterministically.
type ManualClock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	tickers []*manualTicker
}

type manualTicker struct {
	seq      int
	interval time.Duration
	next     time.Time
	f        func()
	stopped  bool
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Every(d time.Duration, f func()) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &manualTicker{seq: c.seq, interval: d, next: c.now.Add(d), f: f}
	c.tickers = append(c.tickers, t)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		t.stopped = true
	}
}

// Advance moves the clock forward by d, firing every tick that falls due in
// time order. Ticks at the same instant fire in registration order.
// Callbacks run without the clock lock held.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		t := c.nextDue(target)
		if t == nil {
			break
		}
		c.now = t.next
		t.next = t.next.Add(t.interval)
		c.mu.Unlock()
		t.f()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// Pending returns the number of live tickers.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prune()
	return len(c.tickers)
}

func (c *ManualClock) nextDue(target time.Time) *manualTicker {
	c.prune()
	sort.SliceStable(c.tickers, func(i, j int) bool {
		a, b := c.tickers[i], c.tickers[j]
		if !a.next.Equal(b.next) {
			return a.next.Before(b.next)
		}
		return a.seq < b.seq
	})
	if len(c.tickers) == 0 || c.tickers[0].next.After(target) {
		return nil
	}
	return c.tickers[0]
}

func (c *ManualClock) prune() {
	live := c.tickers[:0]
	for _, t := range c.tickers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	c.tickers = live
}
