package signals

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"
)

func raise(t *testing.T, sig syscall.Signal) {
	t.Helper()
	if err := syscall.Kill(syscall.Getpid(), sig); err != nil {
		t.Fatalf("kill: %v", err)
	}
}

func TestNew_RequiresSignals(t *testing.T) {
	if _, err := New(); err == nil {
		t.Error("New() with no signals should fail")
	}
}

func TestNew_RejectsOverlap(t *testing.T) {
	trap, err := New(syscall.SIGUSR1, syscall.SIGUSR2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := New(syscall.SIGUSR2); !errors.Is(err, ErrOverlap) {
		t.Errorf("New(SIGUSR2) error = %v, want ErrOverlap", err)
	}

	trap.Close()

	again, err := New(syscall.SIGUSR2)
	if err != nil {
		t.Fatalf("New after Close failed: %v", err)
	}
	again.Close()
}

func TestNew_DeduplicatesSignals(t *testing.T) {
	trap, err := New(syscall.SIGUSR1, syscall.SIGUSR1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer trap.Close()

	if got := trap.Signals(); len(got) != 1 || got[0] != syscall.SIGUSR1 {
		t.Errorf("Signals() = %v, want [SIGUSR1]", got)
	}
	if got := cap(trap.ch); got != bufferPerSignal {
		t.Errorf("channel capacity = %d, want %d", got, bufferPerSignal)
	}
}

func TestTrap_WaitReceivesSignal(t *testing.T) {
	trap, err := New(syscall.SIGUSR1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer trap.Close()

	start := time.Now()
	raise(t, syscall.SIGUSR1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ev, err := trap.Wait(ctx, start)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if ev.Signal != syscall.SIGUSR1 {
		t.Errorf("Signal = %v, want SIGUSR1", ev.Signal)
	}
	if ev.At.Before(start) {
		t.Errorf("event time %v before start %v", ev.At, start)
	}
}

func TestTrap_SinceIgnoresEarlierEvents(t *testing.T) {
	trap, err := New(syscall.SIGUSR1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer trap.Close()

	raise(t, syscall.SIGUSR1)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := trap.Wait(ctx, time.Time{}); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	after := time.Now()
	if ev, ok := trap.Since(after); ok {
		t.Errorf("Since(after) = %v, want no event", ev)
	}
	if _, ok := trap.Since(time.Time{}); !ok {
		t.Error("Since(zero) should report the earlier event")
	}
}

func TestCursor_IndependentConsumers(t *testing.T) {
	trap, err := New(syscall.SIGUSR2)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer trap.Close()

	a := trap.Cursor()
	b := trap.Cursor()

	raise(t, syscall.SIGUSR2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for name, c := range map[string]*Cursor{"a": a, "b": b} {
		ev, err := c.Next(ctx)
		if err != nil {
			t.Fatalf("cursor %s: Next failed: %v", name, err)
		}
		if ev.Signal != syscall.SIGUSR2 {
			t.Errorf("cursor %s: Signal = %v, want SIGUSR2", name, ev.Signal)
		}
		if _, ok := c.Poll(); ok {
			t.Errorf("cursor %s: unexpected second event", name)
		}
	}
}

func TestCursor_NextHonoursContext(t *testing.T) {
	trap, err := New(syscall.SIGUSR1)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer trap.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := trap.Cursor().Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Next error = %v, want DeadlineExceeded", err)
	}
}

func TestTrap_RetentionIsBounded(t *testing.T) {
	trap := &Trap{wake: make(chan struct{})}
	c := trap.Cursor()

	for i := 0; i < maxRetained+10; i++ {
		trap.record(Event{Signal: syscall.SIGUSR1, At: time.Now()})
	}

	if len(trap.events) != maxRetained {
		t.Errorf("retained %d events, want %d", len(trap.events), maxRetained)
	}

	// A cursor that fell behind skips to the oldest retained event.
	count := 0
	for {
		if _, ok := c.Poll(); !ok {
			break
		}
		count++
	}
	if count != maxRetained {
		t.Errorf("cursor saw %d events, want %d", count, maxRetained)
	}
}

func TestChild_IsSingleton(t *testing.T) {
	a, err := Child()
	if err != nil {
		t.Fatalf("Child failed: %v", err)
	}
	b, err := Child()
	if err != nil {
		t.Fatalf("Child failed: %v", err)
	}
	if a != b {
		t.Error("Child() should return the same trap")
	}
	if _, err := New(syscall.SIGCHLD); !errors.Is(err, ErrOverlap) {
		t.Errorf("New(SIGCHLD) error = %v, want ErrOverlap", err)
	}
}
