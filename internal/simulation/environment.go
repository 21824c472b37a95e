package simulation

import (
	"context"
	"sync"
	"time"

	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
)

// NoLimit runs the event loop until the queue drains or the context is
// cancelled.
const NoLimit int64 = -1

// Options configures an Environment.
type Options struct {
	// Realtime paces the loop so one simulated second takes one
	// wall-clock second.
	Realtime bool

	Logger *logging.Logger
}

// Environment owns the simulation clock and the time-ordered event queue.
//
// Thread Safety:
//   - Admit is safe from any goroutine.
//   - All other methods must only be called from the goroutine running
//     Run, or while no run is active.
type Environment struct {
	clock    int64
	queue    eventQueue
	realtime bool
	log      *logging.Logger

	// pending holds processes awaiting admission. It is unbounded so
	// Admit never blocks the dispatcher, however many devices are
	// spawned between runs.
	pendingMu sync.Mutex
	pending   []Process
	wake      chan struct{}
}

// NewEnvironment creates an empty environment with the clock at zero.
func NewEnvironment(opts Options) *Environment {
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}

	return &Environment{
		realtime: opts.Realtime,
		wake:     make(chan struct{}, 1),
		log:      log.With("component", "simulation"),
	}
}

// Now returns the current simulation time in seconds.
func (env *Environment) Now() int64 {
	return env.clock
}

// Pending returns the number of events waiting in the queue.
func (env *Environment) Pending() int {
	return env.queue.Len()
}

// Schedule adds an event to the queue.
//
// Events timestamped before the current clock are still accepted; they
// fire immediately on the next loop iteration. This only happens when a
// producer mis-computes a delay, so it is logged.
func (env *Environment) Schedule(ev Event) {
	if ev.At() < env.clock {
		env.log.Warn("event scheduled in the past",
			"event_at", ev.At(),
			"clock", env.clock,
		)
	}
	env.queue.push(ev)
}

// Admit hands a process to the engine from any goroutine. It never
// blocks.
//
// If a run is in progress the process is started between events and its
// initial events join the live queue. Otherwise it is started at the top
// of the next run.
func (env *Environment) Admit(p Process) {
	env.pendingMu.Lock()
	env.pending = append(env.pending, p)
	env.pendingMu.Unlock()

	select {
	case env.wake <- struct{}{}:
	default:
	}
}

// Run executes events in time order until the queue drains, the clock
// reaches until (pass NoLimit for no bound), or ctx is cancelled.
//
// The wall-clock anchor for realtime pacing is re-established at the
// start of every run: the first pending event fires relative to now, not
// relative to when the previous run stopped.
//
// Returns:
//   - error: ctx.Err() when cancelled, nil on queue drain or bound reached
func (env *Environment) Run(ctx context.Context, until int64) error {
	anchor := time.Now()
	base := env.clock

	env.log.Info("run starting", "clock", base, "until", until, "realtime", env.realtime)

	for {
		env.drainPending()

		if env.queue.Len() == 0 {
			env.log.Info("event queue drained", "clock", env.clock)
			return nil
		}

		at := env.queue.peek().At()
		if until != NoLimit && at > until {
			env.clock = until
			env.log.Info("run bound reached", "clock", env.clock)
			return nil
		}

		if env.realtime {
			target := anchor.Add(time.Duration(at-base) * time.Second)
			if wait := time.Until(target); wait > 0 {
				if done, admitted := env.wait(ctx, wait); done {
					return ctx.Err()
				} else if admitted {
					// A new process may have scheduled an
					// earlier event; re-evaluate the queue.
					continue
				}
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		ev := env.queue.pop()
		// The clock never moves backwards, even for a mis-scheduled
		// past event.
		if at := ev.At(); at > env.clock {
			env.clock = at
		}
		ev.Execute(env)
	}
}

// wait sleeps for d while remaining responsive to cancellation and
// admissions. It reports whether the context finished and whether a
// process was admitted during the wait.
func (env *Environment) wait(ctx context.Context, d time.Duration) (done, admitted bool) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true, false
	case <-env.wake:
		env.drainPending()
		return false, true
	case <-timer.C:
		return false, false
	}
}

// drainPending starts every process waiting for admission.
func (env *Environment) drainPending() {
	env.pendingMu.Lock()
	waiting := env.pending
	env.pending = nil
	env.pendingMu.Unlock()

	for _, p := range waiting {
		p.Start(env)
	}
}
