package camera

import "sync"

// Shared hands out a single Manager to multiple clients with explicit
// ownership handles. The manager is built on the first acquire and torn
// down when the last outstanding client releases; no ambient global is
// involved.
type Shared struct {
	build func() *Manager

	mu      sync.Mutex
	mgr     *Manager
	clients map[*Client]struct{}
}

// Client is one handle on the shared manager. Release it when done;
// releasing twice is harmless.
type Client struct {
	shared   *Shared
	released bool
}

// NewShared creates a shared-manager arena. build is invoked whenever a
// first client acquires after the manager was torn down.
func NewShared(build func() *Manager) *Shared {
	return &Shared{
		build:   build,
		clients: make(map[*Client]struct{}),
	}
}

// Acquire returns a new client handle and the shared manager,
// constructing the manager if no client currently holds it.
func (s *Shared) Acquire() (*Client, *Manager) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mgr == nil {
		s.mgr = s.build()
	}
	c := &Client{shared: s}
	s.clients[c] = struct{}{}
	return c, s.mgr
}

// Clients returns the number of outstanding handles.
func (s *Shared) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Release returns this client's handle. When the last handle is
// released the shared manager is shut down, closing any sessions still
// open. Release is idempotent per client.
func (c *Client) Release() {
	s := c.shared
	s.mu.Lock()
	if c.released {
		s.mu.Unlock()
		return
	}
	c.released = true
	delete(s.clients, c)
	var mgr *Manager
	if len(s.clients) == 0 {
		mgr = s.mgr
		s.mgr = nil
	}
	s.mu.Unlock()

	if mgr != nil {
		mgr.Shutdown()
	}
}
