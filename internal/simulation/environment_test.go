package simulation

import (
	"context"
	"testing"
	"time"
)

// stubEvent records its execution through a callback.
type stubEvent struct {
	at int64
	fn func(env *Environment)
}

func (e *stubEvent) At() int64 { return e.at }

func (e *stubEvent) Execute(env *Environment) {
	if e.fn != nil {
		e.fn(env)
	}
}

// stubProcess schedules a single event on admission.
type stubProcess struct {
	started bool
	event   Event
}

func (p *stubProcess) Start(env *Environment) {
	p.started = true
	if p.event != nil {
		env.Schedule(p.event)
	}
}

func newTestEnvironment() *Environment {
	return NewEnvironment(Options{Realtime: false})
}

func TestRun_ExecutesEventsInTimeOrder(t *testing.T) {
	env := newTestEnvironment()

	var order []int64
	record := func(env *Environment) {
		order = append(order, env.Now())
	}

	// Schedule out of order; execution must be time-sorted.
	env.Schedule(&stubEvent{at: 30, fn: record})
	env.Schedule(&stubEvent{at: 10, fn: record})
	env.Schedule(&stubEvent{at: 20, fn: record})

	if err := env.Run(context.Background(), NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := []int64{10, 20, 30}
	if len(order) != len(want) {
		t.Fatalf("executed %d events, want %d", len(order), len(want))
	}
	for i, at := range want {
		if order[i] != at {
			t.Errorf("execution %d at clock %d, want %d", i, order[i], at)
		}
	}

	if env.Now() != 30 {
		t.Errorf("Now() = %d, want 30", env.Now())
	}
}

func TestRun_SameTimestampFiresInScheduleOrder(t *testing.T) {
	env := newTestEnvironment()

	var order []string
	for _, name := range []string{"a", "b", "c"} {
		name := name
		env.Schedule(&stubEvent{at: 5, fn: func(*Environment) {
			order = append(order, name)
		}})
	}

	if err := env.Run(context.Background(), NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("execution order = %v, want [a b c]", order)
	}
}

func TestRun_StopsAtBound(t *testing.T) {
	env := newTestEnvironment()

	executed := 0
	env.Schedule(&stubEvent{at: 5, fn: func(*Environment) { executed++ }})
	env.Schedule(&stubEvent{at: 50, fn: func(*Environment) { executed++ }})

	if err := env.Run(context.Background(), 10); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if executed != 1 {
		t.Errorf("executed %d events, want 1", executed)
	}

	// The clock lands exactly on the bound even though no event fired there.
	if env.Now() != 10 {
		t.Errorf("Now() = %d, want 10", env.Now())
	}

	// The late event survives for a later run.
	if env.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", env.Pending())
	}
}

func TestRun_ClockPersistsAcrossRuns(t *testing.T) {
	env := newTestEnvironment()

	env.Schedule(&stubEvent{at: 5})
	env.Schedule(&stubEvent{at: 15})

	if err := env.Run(context.Background(), 10); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if env.Now() != 10 {
		t.Fatalf("Now() after first run = %d, want 10", env.Now())
	}

	if err := env.Run(context.Background(), NoLimit); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if env.Now() != 15 {
		t.Errorf("Now() after second run = %d, want 15", env.Now())
	}
}

func TestRun_CancelledContextStopsBetweenEvents(t *testing.T) {
	env := newTestEnvironment()

	ctx, cancel := context.WithCancel(context.Background())

	executed := 0
	env.Schedule(&stubEvent{at: 1, fn: func(*Environment) {
		executed++
		cancel()
	}})
	env.Schedule(&stubEvent{at: 2, fn: func(*Environment) { executed++ }})

	err := env.Run(ctx, NoLimit)
	if err != context.Canceled {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}

	if executed != 1 {
		t.Errorf("executed %d events, want 1 (cancellation fires between events)", executed)
	}
}

func TestRun_AdmitsProcessBeforeRun(t *testing.T) {
	env := newTestEnvironment()

	fired := false
	p := &stubProcess{event: &stubEvent{at: 3, fn: func(*Environment) { fired = true }}}
	env.Admit(p)

	if err := env.Run(context.Background(), NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !p.started {
		t.Error("process was not started at run start")
	}
	if !fired {
		t.Error("admitted process's event did not fire")
	}
}

func TestRun_AdmitsProcessMidRun(t *testing.T) {
	env := newTestEnvironment()

	late := &stubProcess{event: &stubEvent{at: 7}}

	env.Schedule(&stubEvent{at: 1, fn: func(env *Environment) {
		env.Admit(late)
	}})
	env.Schedule(&stubEvent{at: 10})

	if err := env.Run(context.Background(), NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !late.started {
		t.Error("process admitted mid-run was not started")
	}
	if env.Now() != 10 {
		t.Errorf("Now() = %d, want 10", env.Now())
	}
}

func TestRun_RealtimePacesToWallClock(t *testing.T) {
	env := NewEnvironment(Options{Realtime: true})

	env.Schedule(&stubEvent{at: 1})

	start := time.Now()
	if err := env.Run(context.Background(), NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 900*time.Millisecond {
		t.Errorf("realtime run finished in %v, want roughly one second", elapsed)
	}
}

func TestRun_RealtimeCancelInterruptsWait(t *testing.T) {
	env := NewEnvironment(Options{Realtime: true})

	env.Schedule(&stubEvent{at: 3600})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := env.Run(ctx, NoLimit)
	if err != context.Canceled {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("cancellation did not interrupt the realtime wait")
	}
}

func TestSchedule_PastEventStillFires(t *testing.T) {
	env := newTestEnvironment()

	env.Schedule(&stubEvent{at: 10})
	if err := env.Run(context.Background(), NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	fired := false
	env.Schedule(&stubEvent{at: 2, fn: func(*Environment) { fired = true }})
	if err := env.Run(context.Background(), NoLimit); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !fired {
		t.Error("event timestamped before the clock never fired")
	}

	// The clock never rewinds to the stale timestamp.
	if env.Now() != 10 {
		t.Errorf("Now() = %d, want 10", env.Now())
	}
}
