package timer

import (
	"sync/atomic"
	"testing"
	"time"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestSlot_ArmReplacesPending(t *testing.T) {
	clk := NewFake(epoch)
	s := NewSlot(clk)

	var fired []string
	s.Arm(100*time.Millisecond, func() { fired = append(fired, "first") })
	s.Arm(100*time.Millisecond, func() { fired = append(fired, "second") })

	clk.Advance(time.Second)
	if len(fired) != 1 || fired[0] != "second" {
		t.Fatalf("fired=%v want [second]", fired)
	}
	if s.Pending() {
		t.Fatalf("slot still pending after firing")
	}
}

func TestSlot_Cancel(t *testing.T) {
	clk := NewFake(epoch)
	s := NewSlot(clk)

	var n int
	s.Arm(time.Second, func() { n++ })
	if !s.Cancel() {
		t.Fatalf("Cancel should report a pending timer")
	}
	if s.Cancel() {
		t.Fatalf("second Cancel should report nothing pending")
	}
	clk.Advance(2 * time.Second)
	if n != 0 {
		t.Fatalf("cancelled timer fired")
	}
	if clk.Pending() != 0 {
		t.Fatalf("fake clock still holds %d timers", clk.Pending())
	}
}

func TestSlot_StaleCallbackIsNoop(t *testing.T) {
	// a stopper that cannot stop, like a time.Timer whose func already started
	clk := &leakyClock{}
	s := NewSlot(clk)

	var n int
	s.Arm(time.Second, func() { n++ })
	s.Cancel()
	clk.fire()
	if n != 0 {
		t.Fatalf("stale callback ran")
	}
}

type leakyClock struct{ fns []func() }

func (c *leakyClock) Now() time.Time { return epoch }
func (c *leakyClock) AfterFunc(_ time.Duration, f func()) Stopper {
	c.fns = append(c.fns, f)
	return noStop{}
}
func (c *leakyClock) fire() {
	for _, f := range c.fns {
		f()
	}
}

type noStop struct{}

func (noStop) Stop() bool { return false }

func TestDebouncer_TrailingEdgeLastArgWins(t *testing.T) {
	clk := NewFake(epoch)
	var got []string
	var at []time.Duration
	d := NewDebouncer(clk, 600*time.Millisecond, func(s string) {
		got = append(got, s)
		at = append(at, clk.Now().Sub(epoch))
	})

	d.Call("a")
	clk.Advance(100 * time.Millisecond)
	d.Call("ab")
	clk.Advance(100 * time.Millisecond)
	d.Call("abc")

	clk.Advance(599 * time.Millisecond)
	if len(got) != 0 {
		t.Fatalf("fired early: %v", got)
	}
	clk.Advance(time.Millisecond)
	if len(got) != 1 || got[0] != "abc" {
		t.Fatalf("got %v want [abc]", got)
	}
	if at[0] != 800*time.Millisecond {
		t.Fatalf("fired at %v want 800ms", at[0])
	}
}

func TestDebouncer_RealClock(t *testing.T) {
	var n atomic.Int32
	done := make(chan struct{})
	d := NewDebouncer(Real(), 10*time.Millisecond, func(int) {
		if n.Add(1) == 1 {
			close(done)
		}
	})
	for i := range 5 {
		d.Call(i)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced call never fired")
	}
	time.Sleep(30 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Fatalf("fired %d times want 1", got)
	}
}
