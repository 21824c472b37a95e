// Package simulation provides the discrete-event engine that drives
// device behaviour.
//
// The engine is a time-ordered event queue with a logical clock measured
// in whole seconds. Events are scheduled at absolute simulation times and
// executed in order; executing an event advances the clock to the event's
// timestamp and may schedule further events.
//
// # Realtime pacing
//
// When realtime pacing is enabled the run loop sleeps between events so
// one simulated second takes one wall-clock second. The wall-clock anchor
// is re-established at the top of every run, so time spent idle between
// runs is never "caught up" in a burst.
//
// # Admission
//
// The run loop is single-threaded: only the running goroutine touches the
// clock and queue. Other goroutines hand new processes to the engine
// through Admit; the loop starts them between events. Processes admitted
// while no run is active are started when the next run begins.
//
// # Usage
//
//	env := simulation.NewEnvironment(simulation.Options{Realtime: true, Logger: logger})
//	env.Admit(device)
//	err := env.Run(ctx, simulation.NoLimit)
package simulation
