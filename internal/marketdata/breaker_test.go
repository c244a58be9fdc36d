package marketdata

import (
	"errors"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(max int, reset time.Duration) (*Breaker, *clock) {
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(max, reset)
	b.now = c.now
	return b, c
}

func TestBreaker_StartsClosed(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)
	if b.CurrentState() != StateClosed {
		t.Errorf("expected Closed, got %v", b.CurrentState())
	}
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	b, _ := newTestBreaker(3, time.Second)
	errFail := errors.New("fail")

	for i := 0; i < 3; i++ {
		if err := b.Execute(func() error { return errFail }); err != errFail {
			t.Fatalf("expected errFail, got %v", err)
		}
	}
	if b.CurrentState() != StateOpen {
		t.Fatalf("expected Open after 3 failures, got %v", b.CurrentState())
	}

	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	b, c := newTestBreaker(2, time.Second)
	errFail := errors.New("fail")
	for i := 0; i < 2; i++ {
		_ = b.Execute(func() error { return errFail })
	}

	c.advance(time.Second)
	if err := b.Execute(func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if b.CurrentState() != StateClosed {
		t.Errorf("expected Closed after successful probe, got %v", b.CurrentState())
	}
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b, c := newTestBreaker(1, time.Second)
	errFail := errors.New("fail")
	_ = b.Execute(func() error { return errFail })

	c.advance(2 * time.Second)
	_ = b.Execute(func() error { return errFail })
	if b.CurrentState() != StateOpen {
		t.Fatalf("expected Open after failed probe, got %v", b.CurrentState())
	}
	if err := b.Execute(func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen right after reopening, got %v", err)
	}
}

func TestBreaker_SuccessResetsCount(t *testing.T) {
	b, _ := newTestBreaker(2, time.Second)
	errFail := errors.New("fail")
	_ = b.Execute(func() error { return errFail })
	_ = b.Execute(func() error { return nil })
	_ = b.Execute(func() error { return errFail })
	if b.CurrentState() != StateClosed {
		t.Errorf("non-consecutive failures must not trip, got %v", b.CurrentState())
	}
}

func TestBreaker_CallerErrorsDoNotTrip(t *testing.T) {
	b, _ := newTestBreaker(1, time.Second)
	_ = b.Execute(func() error { return ErrUnsupported })
	if b.CurrentState() != StateClosed {
		t.Errorf("ErrUnsupported tripped the breaker")
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	b, c := newTestBreaker(1, time.Second)
	var seen []State
	b.OnStateChange = func(_, to State) { seen = append(seen, to) }

	_ = b.Execute(func() error { return errors.New("x") })
	c.advance(time.Second)
	_ = b.Execute(func() error { return nil })

	want := []State{StateOpen, StateHalfOpen, StateClosed}
	if len(seen) != len(want) {
		t.Fatalf("transitions = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, seen[i], want[i])
		}
	}
}
