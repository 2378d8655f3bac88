package server

import (
	"sync"
	"time"

	"github.com/leapstack-labs/leapcalc/internal/state"
	"github.com/leapstack-labs/leapcalc/pkg/formula"
)

// client is the evaluation state of one browser or API consumer.
type client struct {
	id string

	mu       sync.Mutex // guards everything below
	env      *formula.Environment
	session  *state.Session
	sequence uint64
	lastSeen time.Time
}

// clientRegistry maps client IDs to their environments.
type clientRegistry struct {
	mu      sync.Mutex
	clients map[string]*client
	newEnv  func() (*formula.Environment, error)
	now     func() time.Time
}

func newClientRegistry(newEnv func() (*formula.Environment, error)) *clientRegistry {
	return &clientRegistry{
		clients: make(map[string]*client),
		newEnv:  newEnv,
		now:     time.Now,
	}
}

// get returns the client with id, creating it with a fresh environment.
func (r *clientRegistry) get(id string) (*client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[id]; ok {
		return c, nil
	}
	env, err := r.newEnv()
	if err != nil {
		return nil, err
	}
	c := &client{id: id, env: env, lastSeen: r.now()}
	r.clients[id] = c
	return c, nil
}

// touch records activity of c. c.mu must be held.
func (r *clientRegistry) touch(c *client) {
	c.lastSeen = r.now()
}

// reset replaces the environment of c with a fresh one. c.mu must be held.
func (r *clientRegistry) reset(c *client) error {
	env, err := r.newEnv()
	if err != nil {
		return err
	}
	c.env = env
	return nil
}

// sweep drops clients idle for longer than ttl and returns how many were
// removed.
func (r *clientRegistry) sweep(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.clients {
		c.mu.Lock()
		idle := c.lastSeen.Before(cutoff)
		c.mu.Unlock()
		if idle {
			delete(r.clients, id)
			removed++
		}
	}
	return removed
}

// len returns the number of live clients.
func (r *clientRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}
