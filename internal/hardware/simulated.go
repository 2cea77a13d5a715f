// Package hardware provides camera.Backend implementations. The
// simulated backend stands in for a real driver: it enforces exclusive
// ownership, persists per-device settings across sessions, and produces
// synthetic capture payloads.
package hardware

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmtar/camgate/internal/camera"
)

// jpegStub is a syntactically valid minimal JPEG payload (SOI + EOI)
// used as the simulated capture output.
var jpegStub = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

// Simulated is an in-process camera.Backend. Safe for concurrent use.
type Simulated struct {
	latency time.Duration

	mu       sync.Mutex
	open     map[int]bool
	settings map[int]camera.Settings
}

// Option configures the simulated backend.
type Option func(*Simulated)

// WithLatency makes every device operation take d, approximating slow
// hardware for timeout testing and demos.
func WithLatency(d time.Duration) Option {
	return func(s *Simulated) { s.latency = d }
}

// NewSimulated creates a simulated backend.
func NewSimulated(opts ...Option) *Simulated {
	s := &Simulated{
		open:     make(map[int]bool),
		settings: make(map[int]camera.Settings),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open implements camera.Backend.
func (s *Simulated) Open(id int) (camera.Handle, error) {
	s.work()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open[id] {
		return nil, fmt.Errorf("hardware: device %d is held by another owner", id)
	}
	s.open[id] = true
	if _, ok := s.settings[id]; !ok {
		s.settings[id] = camera.DefaultSettings()
	}
	return &simHandle{backend: s, id: id}, nil
}

func (s *Simulated) work() {
	if s.latency > 0 {
		time.Sleep(s.latency)
	}
}

func (s *Simulated) release(id int) {
	s.mu.Lock()
	delete(s.open, id)
	s.mu.Unlock()
}

// simHandle is one exclusive simulated session. The worker loop
// serializes all calls, so no internal locking beyond the backend's.
type simHandle struct {
	backend    *Simulated
	id         int
	closed     bool
	previewing bool
}

func (h *simHandle) guard() error {
	if h.closed {
		return fmt.Errorf("hardware: device %d handle already released", h.id)
	}
	return nil
}

func (h *simHandle) StartPreview() error {
	if err := h.guard(); err != nil {
		return err
	}
	h.backend.work()
	h.previewing = true
	return nil
}

func (h *simHandle) StopPreview() error {
	if err := h.guard(); err != nil {
		return err
	}
	h.backend.work()
	h.previewing = false
	return nil
}

func (h *simHandle) AutoFocus() (bool, error) {
	if err := h.guard(); err != nil {
		return false, err
	}
	h.backend.work()
	return true, nil
}

func (h *simHandle) CancelAutoFocus() {}

func (h *simHandle) TakePicture() (camera.Picture, error) {
	if err := h.guard(); err != nil {
		return camera.Picture{}, err
	}
	h.backend.work()
	jpeg := make([]byte, len(jpegStub))
	copy(jpeg, jpegStub)
	return camera.Picture{JPEG: jpeg}, nil
}

func (h *simHandle) ReadSettings() (camera.Settings, error) {
	if err := h.guard(); err != nil {
		return camera.Settings{}, err
	}
	h.backend.work()
	h.backend.mu.Lock()
	defer h.backend.mu.Unlock()
	return h.backend.settings[h.id], nil
}

func (h *simHandle) WriteSettings(s camera.Settings) error {
	if err := h.guard(); err != nil {
		return err
	}
	h.backend.work()
	if err := validateSettings(s); err != nil {
		// Rejected whole; prior configuration stays in place.
		return err
	}
	h.backend.mu.Lock()
	h.backend.settings[h.id] = s
	h.backend.mu.Unlock()
	return nil
}

func (h *simHandle) EnableShutterSound(enabled bool) error {
	if err := h.guard(); err != nil {
		return err
	}
	h.backend.mu.Lock()
	s := h.backend.settings[h.id]
	s.ShutterSound = enabled
	h.backend.settings[h.id] = s
	h.backend.mu.Unlock()
	return nil
}

func (h *simHandle) Reconnect() error {
	if err := h.guard(); err != nil {
		return err
	}
	h.backend.work()
	return nil
}

func (h *simHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.backend.release(h.id)
	return nil
}

func validateSettings(s camera.Settings) error {
	if s.JPEGQuality < 1 || s.JPEGQuality > 100 {
		return fmt.Errorf("hardware: jpeg quality %d out of range [1,100]", s.JPEGQuality)
	}
	if s.PreviewSize.Width <= 0 || s.PreviewSize.Height <= 0 {
		return fmt.Errorf("hardware: invalid preview size %dx%d", s.PreviewSize.Width, s.PreviewSize.Height)
	}
	if s.PictureSize.Width <= 0 || s.PictureSize.Height <= 0 {
		return fmt.Errorf("hardware: invalid picture size %dx%d", s.PictureSize.Width, s.PictureSize.Height)
	}
	switch s.FocusMode {
	case camera.FocusAuto, camera.FocusContinuous, camera.FocusFixed:
	default:
		return fmt.Errorf("hardware: unknown focus mode %q", s.FocusMode)
	}
	switch s.FlashMode {
	case camera.FlashOff, camera.FlashOn, camera.FlashAuto:
	default:
		return fmt.Errorf("hardware: unknown flash mode %q", s.FlashMode)
	}
	return nil
}
