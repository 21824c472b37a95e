package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
	"github.com/guardiansim/ges-core/internal/simulation"
)

// State is the runner's lifecycle position.
type State string

const (
	// StateIdle means no run has happened yet.
	StateIdle State = "idle"

	// StateRunning means a worker goroutine is executing the event loop.
	StateRunning State = "running"

	// StateStopped means the last run finished, naturally or by kill.
	StateStopped State = "stopped"
)

// Lifecycle transition reasons.
const (
	ReasonStarted   = "started"
	ReasonCompleted = "completed"
	ReasonKilled    = "killed"
)

// LifecycleEvent reports one runner state transition.
type LifecycleEvent struct {
	From   State
	To     State
	Reason string
	Clock  int64
	At     time.Time
}

// lifecycleBuffer bounds the outbound event channel; transitions beyond
// it are dropped with a warning rather than stalling the runner.
const lifecycleBuffer = 16

// Runner supervises the simulation worker.
//
// One worker goroutine exists at a time. Run refuses while one is
// active; Kill cancels the worker's context, which the engine honours
// between events — a hard stop with no graceful drain.
//
// Thread Safety:
//   - Run, Kill and State are safe from any goroutine, though in
//     practice only the dispatcher calls Run and Kill.
type Runner struct {
	env *simulation.Environment
	log *logging.Logger

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	done   chan struct{}

	events chan LifecycleEvent
}

// NewRunner creates an idle runner over the given environment.
func NewRunner(env *simulation.Environment, log *logging.Logger) *Runner {
	if log == nil {
		log = logging.Default()
	}

	return &Runner{
		env:    env,
		log:    log.With("component", "runner"),
		state:  StateIdle,
		events: make(chan LifecycleEvent, lifecycleBuffer),
	}
}

// State returns the current lifecycle state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Events returns the outbound lifecycle channel. The daemon consumes it
// for logging, history and the uplink.
func (r *Runner) Events() <-chan LifecycleEvent {
	return r.events
}

// Admit hands a device to the engine; if a run is active it joins the
// live simulation between events.
func (r *Runner) Admit(p simulation.Process) {
	r.env.Admit(p)
}

// Run starts a worker for the event loop, bounded at until
// (simulation.NoLimit for unbounded).
//
// Each run re-anchors the engine's wall-clock pacing, so simulated time
// never races to catch up with real time spent stopped.
//
// Returns:
//   - error: ErrAlreadyRunning when a worker is active, nil otherwise
func (r *Runner) Run(until int64) error {
	r.mu.Lock()
	if r.state == StateRunning {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	from := r.state
	r.state = StateRunning
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	r.emit(LifecycleEvent{From: from, To: StateRunning, Reason: ReasonStarted, Clock: r.env.Now(), At: time.Now().UTC()})

	go func() {
		err := r.env.Run(ctx, until)
		cancel()

		// Read the clock before publishing Stopped: once another Run
		// may start, only its worker owns the clock.
		stopClock := r.env.Now()

		reason := ReasonCompleted
		if errors.Is(err, context.Canceled) {
			reason = ReasonKilled
		}

		r.mu.Lock()
		r.state = StateStopped
		r.mu.Unlock()

		r.emit(LifecycleEvent{From: StateRunning, To: StateStopped, Reason: reason, Clock: stopClock, At: time.Now().UTC()})
		close(done)
	}()

	return nil
}

// Kill cancels the active worker and waits for it to exit.
//
// The engine observes cancellation between events, so Kill returns as
// soon as the in-flight event (if any) completes. In-memory state is
// abandoned where it stands.
//
// Returns:
//   - error: ErrNotRunning when no worker is active, nil otherwise
func (r *Runner) Kill() error {
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		return ErrNotRunning
	}
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	cancel()
	<-done

	return nil
}

// emit publishes a transition without ever blocking the runner.
func (r *Runner) emit(ev LifecycleEvent) {
	select {
	case r.events <- ev:
	default:
		r.log.Warn("lifecycle event dropped, consumer lagging",
			"from", string(ev.From),
			"to", string(ev.To),
			"reason", ev.Reason,
		)
	}
}
