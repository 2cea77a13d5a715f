package camera

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/dmtar/camgate/internal/devices"
	"github.com/dmtar/camgate/internal/dispatch"
	"github.com/dmtar/camgate/internal/events"
	"github.com/dmtar/camgate/internal/logging"
	"github.com/dmtar/camgate/internal/worker"
)

// OpenResult is the single tagged variant delivered through open and
// reconnect forwarders: either a usable Proxy or a typed Err.
type OpenResult struct {
	DeviceID int
	Proxy    *Proxy
	Err      *Error
}

// Manager owns the at-most-one-open-session-per-device registry and
// mediates open races. Its registry map is the only core state touched
// by arbitrary caller goroutines; everything device-side is serialized
// on per-device worker loops.
type Manager struct {
	backend  Backend
	registry devices.Registry
	bus      *events.Bus
	logger   logging.Logger

	mu         sync.Mutex
	proxies    map[int]*Proxy
	defaultExc *dispatch.Forwarder[error]
	closed     bool
}

// NewManager creates a device manager over the given backend and
// device-info registry.
func NewManager(backend Backend, registry devices.Registry, bus *events.Bus) *Manager {
	return &Manager{
		backend:  backend,
		registry: registry,
		bus:      bus,
		logger:   logging.GetLogger("camera"),
		proxies:  make(map[int]*Proxy),
	}
}

// SetDefaultExceptionCallback registers the fallback handler for worker
// faults on sessions that never registered their own. One registration
// per manager; later calls replace earlier ones.
func (m *Manager) SetDefaultExceptionCallback(fwd *dispatch.Forwarder[error]) {
	m.mu.Lock()
	m.defaultExc = fwd
	m.mu.Unlock()
}

func (m *Manager) defaultException() *dispatch.Forwarder[error] {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.defaultExc
}

// Open acquires device id asynchronously. The result, a Proxy on
// success or a typed error otherwise, is delivered through fwd on the
// caller's chosen context. Open never blocks on hardware and never
// fails synchronously: a second open of a busy id resolves with
// DeviceOpenedAlready rather than waiting for the first to finish.
func (m *Manager) Open(id int, fwd *dispatch.Forwarder[OpenResult]) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		fwd.Forward(OpenResult{DeviceID: id, Err: NewError(ErrCodeOpenFailure,
			"manager has been shut down", nil)})
		return
	}
	if _, busy := m.proxies[id]; busy {
		m.mu.Unlock()
		fwd.Forward(OpenResult{DeviceID: id, Err: NewError(ErrCodeOpenedAlready,
			fmt.Sprintf("device %d already has an open session", id), nil)})
		return
	}

	info, err := m.registry.Info(id)
	if err != nil {
		m.mu.Unlock()
		fwd.Forward(OpenResult{DeviceID: id, Err: NewError(ErrCodeOpenFailure,
			"device is not in the registry", err)})
		return
	}
	if info.Disabled {
		m.mu.Unlock()
		fwd.Forward(OpenResult{DeviceID: id, Err: NewError(ErrCodeDisabled,
			fmt.Sprintf("device %d is disabled by policy", id), nil)})
		return
	}

	// Reserve the id before touching hardware so a racing open fails
	// immediately instead of producing a second handle.
	p := &Proxy{
		id:     id,
		info:   info,
		mgr:    m,
		state:  StateOpening,
		logger: logging.GetLogger("camera").With("device_id", id),
	}
	p.loop = worker.NewLoop("device-"+strconv.Itoa(id), p.logger, p.handleFault)
	m.proxies[id] = p
	m.mu.Unlock()

	_ = p.loop.Submit("open", func() { m.runOpen(p, fwd) })
}

// runOpen executes on the new session's worker loop.
func (m *Manager) runOpen(p *Proxy, fwd *dispatch.Forwarder[OpenResult]) {
	h, err := m.backend.Open(p.id)
	if err != nil {
		m.remove(p)
		p.mu.Lock()
		p.state = StateClosed
		p.mu.Unlock()
		go p.loop.Shutdown(false)
		fwd.Forward(OpenResult{DeviceID: p.id, Err: NewError(ErrCodeOpenFailure,
			"hardware refused to open", err)})
		return
	}

	settings, serr := h.ReadSettings()
	if serr != nil {
		settings = DefaultSettings()
		p.logger.Warn("Failed to read initial settings, using defaults", "error", serr)
	}

	p.mu.Lock()
	p.handle = h
	p.settings = settings
	p.dirty = false
	closing := p.state != StateOpening
	if !closing {
		p.state = StateOpened
	}
	p.mu.Unlock()

	if closing {
		// A close raced the open; the queued close command releases the
		// handle we just stored.
		return
	}

	m.publish(events.DeviceOpenedEvent{DeviceID: p.id, Name: p.info.Name, Timestamp: timestamp()})
	p.logger.Info("Device session opened", "device", p.info.Name)
	fwd.Forward(OpenResult{DeviceID: p.id, Proxy: p})
}

// Proxy returns the open session for id, if any.
func (m *Manager) Proxy(id int) (*Proxy, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.proxies[id]
	return p, ok
}

// Proxies returns every open session, ordered by device id.
func (m *Manager) Proxies() []*Proxy {
	m.mu.Lock()
	open := make([]*Proxy, 0, len(m.proxies))
	for _, p := range m.proxies {
		open = append(open, p)
	}
	m.mu.Unlock()

	sort.Slice(open, func(i, j int) bool { return open[i].id < open[j].id })
	return open
}

// Close tears down one session. Once it completes the device id is
// immediately available for a fresh open.
func (m *Manager) Close(p *Proxy, sync bool) {
	if p == nil {
		return
	}
	p.Close(sync)
}

// CloseAll closes every open session.
func (m *Manager) CloseAll(sync bool) {
	m.mu.Lock()
	open := make([]*Proxy, 0, len(m.proxies))
	for _, p := range m.proxies {
		open = append(open, p)
	}
	m.mu.Unlock()

	for _, p := range open {
		p.Close(sync)
	}
}

// Shutdown closes all sessions and marks the manager unusable. It is
// idempotent; further opens resolve with DeviceOpenFailure.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.CloseAll(true)
	m.logger.Info("Camera manager shut down")
}

// remove drops a session from the registry, freeing its id.
func (m *Manager) remove(p *Proxy) {
	m.mu.Lock()
	if current, ok := m.proxies[p.id]; ok && current == p {
		delete(m.proxies, p.id)
	}
	m.mu.Unlock()
}

func (m *Manager) publish(ev events.Event) {
	if m.bus != nil {
		m.bus.Publish(ev)
	}
}
