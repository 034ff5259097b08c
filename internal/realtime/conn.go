package realtime

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ConnState tracks where a connection is in its lifecycle.
type ConnState int32

const (
	// StatePending means the transport handshake has not completed yet.
	StatePending ConnState = iota
	// StateOpen means the connection accepts outbound payloads.
	StateOpen
	// StateClosed is terminal; a closed connection never reopens.
	StateClosed
)

var (
	// ErrConnClosed is returned when a payload is offered to a connection
	// that already left the OPEN state. Callers must discard the handle.
	ErrConnClosed = errors.New("connection closed")
	// ErrSlowConsumer is returned when the outbound buffer is full. The
	// dispatcher treats it like any other delivery failure: the connection
	// is detached and closed rather than blocking the fan-out.
	ErrSlowConsumer = errors.New("outbound buffer full")
	// ErrNotPending is returned by Open on a connection that was already
	// opened or closed.
	ErrNotPending = errors.New("connection not pending")
)

const outboundBuffer = 32

// Conn is one live bidirectional session. The registry owns it while it is
// attached; the transport layer owns the underlying socket and drains
// Outbox into it.
type Conn struct {
	id string

	mu      sync.Mutex
	state   ConnState
	out     chan []byte
	onClose []func(*Conn)
}

// NewConn constructs a pending connection with a fresh identity.
func NewConn() *Conn {
	return &Conn{
		id:    uuid.NewString(),
		state: StatePending,
		out:   make(chan []byte, outboundBuffer),
	}
}

// ID returns the connection's unique identity.
func (c *Conn) ID() string { return c.id }

// State reports the current lifecycle state.
func (c *Conn) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Open moves the connection from PENDING to OPEN after a successful
// transport handshake.
func (c *Conn) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePending {
		return ErrNotPending
	}
	c.state = StateOpen
	return nil
}

// Send queues a payload for the transport write loop. It never blocks: a
// full buffer means the consumer is not keeping up and the send fails.
func (c *Conn) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen {
		return ErrConnClosed
	}
	select {
	case c.out <- payload:
		return nil
	default:
		return ErrSlowConsumer
	}
}

// Outbox exposes the queued payloads for the transport write loop.
func (c *Conn) Outbox() <-chan []byte { return c.out }

// OnClose registers a hook that runs when the connection closes. Hooks
// registered after close run immediately.
func (c *Conn) OnClose(fn func(*Conn)) {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		fn(c)
		return
	}
	c.onClose = append(c.onClose, fn)
	c.mu.Unlock()
}

// Close transitions to CLOSED and runs the registered hooks. It is safe to
// call any number of times from any goroutine; only the first call does
// anything, so disconnect/error races cannot double-invoke cleanup.
func (c *Conn) Close() {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return
	}
	c.state = StateClosed
	hooks := c.onClose
	c.onClose = nil
	close(c.out)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn(c)
	}
}
