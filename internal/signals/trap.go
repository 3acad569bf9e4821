package signals

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/firefly-engineering/fragile/internal/logging"
)

// maxRetained bounds the event history of a long-lived trap.
const maxRetained = 1024

// bufferPerSignal sizes the delivery channel. signal.Notify drops a signal
// rather than block when the channel is full.
const bufferPerSignal = 64

// ErrOverlap is returned when a signal is already intercepted by another
// active trap in this process.
var ErrOverlap = errors.New("signal already trapped")

// Event is one delivery of a trapped signal.
type Event struct {
	Signal syscall.Signal
	At     time.Time
}

// Trap intercepts a fixed set of signals. While a trap is active the
// default disposition of its signals is suppressed and every delivery is
// recorded as an Event.
//
// Active traps must be disjoint in signal numbers; New enforces this
// process-wide.
type Trap struct {
	signals []syscall.Signal
	ch      chan os.Signal

	mu     sync.Mutex
	events []Event
	base   uint64 // sequence number of events[0]
	wake   chan struct{}

	closeOnce sync.Once
	done      chan struct{}
}

var (
	registryMu sync.Mutex
	registry   = make(map[syscall.Signal]*Trap)
)

// New installs a trap for the given signals.
func New(sigs ...syscall.Signal) (*Trap, error) {
	if len(sigs) == 0 {
		return nil, fmt.Errorf("trap needs at least one signal")
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	seen := make(map[syscall.Signal]bool, len(sigs))
	var unique []syscall.Signal
	for _, s := range sigs {
		if seen[s] {
			continue
		}
		if registry[s] != nil {
			return nil, fmt.Errorf("%w: %s", ErrOverlap, s)
		}
		seen[s] = true
		unique = append(unique, s)
	}

	t := &Trap{
		signals: unique,
		ch:      make(chan os.Signal, bufferPerSignal*len(unique)),
		wake:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	osSigs := make([]os.Signal, len(unique))
	for i, s := range unique {
		registry[s] = t
		osSigs[i] = s
	}

	signal.Notify(t.ch, osSigs...)
	go t.loop()

	logging.Debug("signal trap installed", "signals", unique)
	return t, nil
}

var (
	childOnce sync.Once
	childTrap *Trap
	childErr  error
)

// Child returns the process-wide SIGCHLD trap, installing it on first use.
// It is never closed.
func Child() (*Trap, error) {
	childOnce.Do(func() {
		childTrap, childErr = New(syscall.SIGCHLD)
	})
	return childTrap, childErr
}

func (t *Trap) loop() {
	defer close(t.done)
	for sig := range t.ch {
		s, ok := sig.(syscall.Signal)
		if !ok {
			continue
		}
		t.record(Event{Signal: s, At: time.Now()})
	}
}

func (t *Trap) record(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.events = append(t.events, ev)
	if len(t.events) > maxRetained {
		drop := len(t.events) - maxRetained
		t.events = append([]Event(nil), t.events[drop:]...)
		t.base += uint64(drop)
	}
	close(t.wake)
	t.wake = make(chan struct{})
}

// Signals returns the trapped signal numbers.
func (t *Trap) Signals() []syscall.Signal {
	return append([]syscall.Signal(nil), t.signals...)
}

// Since reports the earliest event delivered at or after the given time.
// It never blocks.
func (t *Trap) Since(at time.Time) (Event, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ev := range t.events {
		if !ev.At.Before(at) {
			return ev, true
		}
	}
	return Event{}, false
}

// Wait blocks until an event delivered at or after the given time is
// available, or ctx is done. Events delivered before that time are ignored.
func (t *Trap) Wait(ctx context.Context, since time.Time) (Event, error) {
	return t.CursorSince(since).Next(ctx)
}

// Cursor returns a cursor that only sees events delivered from now on.
func (t *Trap) Cursor() *Cursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Cursor{t: t, next: t.base + uint64(len(t.events))}
}

// CursorSince returns a cursor positioned at the first event delivered at
// or after the given time.
func (t *Trap) CursorSince(at time.Time) *Cursor {
	t.mu.Lock()
	defer t.mu.Unlock()
	next := t.base + uint64(len(t.events))
	for i, ev := range t.events {
		if !ev.At.Before(at) {
			next = t.base + uint64(i)
			break
		}
	}
	return &Cursor{t: t, next: next}
}

// Close stops interception and restores default delivery for the trap's
// signals. It is safe to call more than once.
func (t *Trap) Close() {
	t.closeOnce.Do(func() {
		signal.Stop(t.ch)
		// No further sends happen after Stop returns.
		close(t.ch)
		<-t.done

		registryMu.Lock()
		for _, s := range t.signals {
			if registry[s] == t {
				delete(registry, s)
			}
		}
		registryMu.Unlock()
		logging.Debug("signal trap removed", "signals", t.signals)
	})
}

// Cursor iterates a trap's events. Each consumer owns its cursor, so
// several consumers can observe the same trap independently.
type Cursor struct {
	t    *Trap
	next uint64
}

var closedChan = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// Peek returns the next unread event without consuming it.
func (c *Cursor) Peek() (Event, bool) {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	if c.next < c.t.base {
		c.next = c.t.base
	}
	idx := c.next - c.t.base
	if idx >= uint64(len(c.t.events)) {
		return Event{}, false
	}
	return c.t.events[idx], true
}

// Poll consumes and returns the next unread event, if any.
func (c *Cursor) Poll() (Event, bool) {
	ev, ok := c.Peek()
	if ok {
		c.next++
	}
	return ev, ok
}

// Ready returns a channel that is closed once an unread event may be
// available. Callers re-check with Poll after it fires.
func (c *Cursor) Ready() <-chan struct{} {
	c.t.mu.Lock()
	defer c.t.mu.Unlock()
	if c.next < c.t.base || c.next-c.t.base < uint64(len(c.t.events)) {
		return closedChan
	}
	return c.t.wake
}

// Next blocks until the next event arrives or ctx is done.
func (c *Cursor) Next(ctx context.Context) (Event, error) {
	for {
		ready := c.Ready()
		if ev, ok := c.Poll(); ok {
			return ev, nil
		}
		select {
		case <-ready:
		case <-ctx.Done():
			return Event{}, ctx.Err()
		}
	}
}
