// Package control implements the daemon's command plane.
//
// A Listener reads JSON datagrams from the UDP socket and hands them,
// one at a time, to the Controller. ParseCommand decodes each payload
// into a closed set of typed commands; anything that fails validation is
// logged with a named protocol error and dropped without side effects.
//
// The Controller dispatches valid commands against the device registry
// and the Runner. The Runner owns the simulation lifecycle: it moves
// between Idle, Running and Stopped, supervises the engine goroutine,
// kills it through context cancellation, and reports every transition on
// an outbound event channel.
//
// Protocol asymmetry is deliberate: only spawn answers the sender, with
// a single {"devices": [...]} datagram. Every other command reports
// through the daemon's log.
package control
