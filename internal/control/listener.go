package control

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/guardiansim/ges-core/internal/infrastructure/config"
	"github.com/guardiansim/ges-core/internal/infrastructure/logging"
)

// MaxDatagramSize is the largest command payload the listener accepts.
// Anything longer is truncated by the read, which the decoder then
// rejects as malformed.
const MaxDatagramSize = 1024

// MaxResponseSize is the largest spawn response the daemon sends. The
// response carries one metadata entry per spawned device in a single
// datagram, so it gets the full room a UDP payload allows rather than
// the command limit.
const MaxResponseSize = 65507

// DatagramHandler consumes one received datagram. The listener calls it
// synchronously: a datagram is fully handled before the next read.
type DatagramHandler interface {
	HandleDatagram(payload []byte, sender *net.UDPAddr)
}

// Listener owns the daemon's UDP command socket.
type Listener struct {
	conn    *net.UDPConn
	handler DatagramHandler
	log     *logging.Logger
}

// NewListener binds the command socket.
//
// Parameters:
//   - cfg: Listener address, typically 127.0.0.1:7700
//   - log: Daemon logger
//
// Returns:
//   - *Listener: Bound listener, not yet serving
//   - error: If the IP does not parse or the bind fails
func NewListener(cfg config.ListenerConfig, log *logging.Logger) (*Listener, error) {
	if log == nil {
		log = logging.Default()
	}

	ip := net.ParseIP(cfg.IP)
	if ip == nil {
		return nil, fmt.Errorf("parsing listener ip %q", cfg.IP)
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: ip, Port: cfg.Port})
	if err != nil {
		return nil, fmt.Errorf("binding udp listener: %w", err)
	}

	return &Listener{
		conn: conn,
		log:  log.With("component", "listener"),
	}, nil
}

// SetHandler installs the datagram handler. Must be called before Serve.
func (l *Listener) SetHandler(h DatagramHandler) {
	l.handler = h
}

// Addr returns the bound socket address.
func (l *Listener) Addr() net.Addr {
	return l.conn.LocalAddr()
}

// Respond sends a payload back to a command sender. Implements the
// controller's Responder.
func (l *Listener) Respond(addr *net.UDPAddr, payload []byte) error {
	if _, err := l.conn.WriteToUDP(payload, addr); err != nil {
		return fmt.Errorf("sending response: %w", err)
	}
	return nil
}

// Serve reads datagrams until ctx is cancelled.
//
// Each datagram is logged with its size and sender before decoding, then
// handed to the handler. Dispatch is strictly sequential.
//
// Returns:
//   - error: nil on cancellation, otherwise the socket error
func (l *Listener) Serve(ctx context.Context) error {
	// Closing the socket is what unblocks the read on cancellation.
	stop := context.AfterFunc(ctx, func() {
		l.conn.Close()
	})
	defer stop()

	l.log.Info("listening for commands", "addr", l.conn.LocalAddr().String())

	buf := make([]byte, MaxDatagramSize)
	for {
		n, sender, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.log.Info("listener stopped")
				return nil
			}
			return fmt.Errorf("reading datagram: %w", err)
		}

		l.log.Info("datagram received",
			"bytes", n,
			"sender", sender.String(),
		)

		payload := make([]byte, n)
		copy(payload, buf[:n])
		l.handler.HandleDatagram(payload, sender)
	}
}

// Close releases the socket. Safe to call after Serve has returned.
func (l *Listener) Close() error {
	return l.conn.Close()
}
