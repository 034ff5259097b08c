package realtime

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Registry maps topic keys to the set of live connections subscribed to
// them. One instance is created per topic family (a chat room space, a
// per-user notification space, a fixed global channel); the key type is
// whatever identifies a topic in that family.
//
// All access goes through the registry's own lock. Broadcast snapshots the
// subscriber set under the lock and sends after releasing it, so a send to
// a slow transport never blocks attach/detach on unrelated connections.
type Registry[K comparable] struct {
	name string
	log  *zerolog.Logger

	mu     sync.RWMutex
	topics map[K]map[*Conn]struct{}
}

// NewRegistry builds an empty registry. The name only shows up in logs.
func NewRegistry[K comparable](name string, logger *zerolog.Logger) *Registry[K] {
	return &Registry[K]{
		name:   name,
		log:    logger,
		topics: make(map[K]map[*Conn]struct{}),
	}
}

// Attach registers the connection under key. Attaching the same connection
// to the same key twice is a no-op, so a topic never delivers one broadcast
// to the same connection more than once. Attaching a closed connection
// fails with ErrConnClosed.
func (r *Registry[K]) Attach(key K, c *Conn) error {
	if c.State() == StateClosed {
		return fmt.Errorf("attach %v: %w", key, ErrConnClosed)
	}

	r.mu.Lock()
	subs := r.topics[key]
	if subs == nil {
		subs = make(map[*Conn]struct{})
		r.topics[key] = subs
	}
	if _, exists := subs[c]; exists {
		r.mu.Unlock()
		return nil
	}
	subs[c] = struct{}{}
	r.mu.Unlock()

	// A connection closed between the state check and here is caught by
	// the hook running immediately.
	c.OnClose(func(closed *Conn) {
		r.Detach(key, closed)
	})
	return nil
}

// Detach removes the connection from key's entry. Detaching a connection
// that is not present is a no-op; disconnect races are expected. Entries
// left without subscribers are dropped so the key space cannot grow
// without bound.
func (r *Registry[K]) Detach(key K, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	subs, ok := r.topics[key]
	if !ok {
		return
	}
	delete(subs, c)
	if len(subs) == 0 {
		delete(r.topics, key)
	}
}

// SubscriberCount returns the number of connections currently attached to
// key. Unknown keys have zero subscribers, never an error.
func (r *Registry[K]) SubscriberCount(key K) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.topics[key])
}

// Broadcast delivers payload to every connection attached to key and
// returns how many deliveries succeeded. A connection that fails to take
// the payload is closed and detached; the remaining fan-out continues.
// Publishing to a key with no subscribers delivers to nobody and is fine.
func (r *Registry[K]) Broadcast(key K, payload []byte) int {
	r.mu.RLock()
	subs := r.topics[key]
	snapshot := make([]*Conn, 0, len(subs))
	for c := range subs {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range snapshot {
		if err := c.Send(payload); err != nil {
			r.log.Warn().
				Err(err).
				Str("registry", r.name).
				Str("conn_id", c.ID()).
				Msg("dropping subscriber after failed delivery")
			c.Close()
			continue
		}
		delivered++
	}
	return delivered
}
