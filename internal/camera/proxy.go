// Package camera implements the exclusive-device command dispatch core:
// a Manager holding at most one open Proxy per device id, a worker loop
// per open device, and forwarder-based callback delivery so results
// always land on a caller-chosen execution context.
package camera

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmtar/camgate/internal/devices"
	"github.com/dmtar/camgate/internal/dispatch"
	"github.com/dmtar/camgate/internal/events"
	"github.com/dmtar/camgate/internal/logging"
	"github.com/dmtar/camgate/internal/metrics"
	"github.com/dmtar/camgate/internal/worker"
)

// State describes the lifecycle of a device session.
type State string

// Session states. Closed and Error are terminal; the only way forward
// is a fresh open through the Manager, which builds a new Proxy.
const (
	StateOpening State = "opening"
	StateOpened  State = "opened"
	StateClosing State = "closing"
	StateClosed  State = "closed"
	StateError   State = "error"
)

// FocusResult reports the outcome of an auto-focus request.
type FocusResult struct {
	Focused bool
	Err     error
}

// PictureCallbacks carries the optional capture callbacks. Each
// forwarder has its own target context; nil entries are skipped. When a
// capture succeeds the callbacks fire in the fixed order
// shutter, raw, postview, jpeg.
type PictureCallbacks struct {
	Shutter  *dispatch.Forwarder[struct{}]
	Raw      *dispatch.Forwarder[[]byte]
	Postview *dispatch.Forwarder[[]byte]
	JPEG     *dispatch.Forwarder[[]byte]
}

// Proxy is the per-open-session handle for one exclusively owned
// device. Every device-touching method turns into a command on the
// session's worker loop; only the documented synchronous methods block
// the caller, and then only up to a bounded timeout.
type Proxy struct {
	id     int
	info   devices.Info
	mgr    *Manager
	loop   *worker.Loop
	logger logging.Logger

	mu         sync.Mutex
	state      State
	handle     Handle
	settings   Settings
	dirty      bool
	previewing bool
	focusSeq   uint64
	exception  *dispatch.Forwarder[error]
}

// ID returns the device id this session owns.
func (p *Proxy) ID() int { return p.id }

// Info returns the registry metadata the session was opened against.
func (p *Proxy) Info() devices.Info { return p.info }

// Capabilities returns the device's static capability snapshot.
func (p *Proxy) Capabilities() devices.Capabilities { return p.info.Caps }

// State returns the session's current lifecycle state.
func (p *Proxy) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Previewing reports whether the preview stream is running.
func (p *Proxy) Previewing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.previewing
}

// SetExceptionCallback registers the handler for uncaught worker faults
// on this session. Without one (and without a manager-level default) a
// fault is logged and the session still lands in its terminal error
// state.
func (p *Proxy) SetExceptionCallback(fwd *dispatch.Forwarder[error]) {
	p.mu.Lock()
	p.exception = fwd
	p.mu.Unlock()
}

// terminalErr returns the fail-fast error for submissions to a session
// that no longer accepts work. Caller holds p.mu.
func (p *Proxy) terminalErrLocked() *Error {
	return NewError(ErrCodeClosed,
		fmt.Sprintf("device %d session is %s", p.id, p.state), nil)
}

// submit enqueues a fire-and-forget command, failing fast when the
// session is not open.
func (p *Proxy) submit(op string, fn func()) error {
	p.mu.Lock()
	if p.state != StateOpened {
		err := p.terminalErrLocked()
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	if err := p.loop.Submit(op, p.instrument(op, fn)); err != nil {
		return NewError(ErrCodeClosed, "worker loop stopped", err)
	}
	return nil
}

// submitWait enqueues a command and blocks until it completes or the
// timeout expires. The command is never aborted mid-flight; a timeout
// abandons only the wait.
func (p *Proxy) submitWait(op string, fn func(), timeout time.Duration) error {
	p.mu.Lock()
	if p.state != StateOpened {
		err := p.terminalErrLocked()
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()

	err := p.loop.SubmitWait(op, p.instrument(op, fn), timeout)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, worker.ErrWaitTimeout):
		metrics.WaitTimedOut(p.id, op)
		return NewError(ErrCodeTimeout,
			fmt.Sprintf("%s did not complete within %v", op, timeout), err)
	default:
		return NewError(ErrCodeClosed, "worker loop stopped", err)
	}
}

func (p *Proxy) instrument(op string, fn func()) func() {
	return func() {
		fn()
		metrics.CommandExecuted(p.id, op)
	}
}

// StartPreview asks the device to start streaming preview data. Errors
// on the worker surface as a session fault.
func (p *Proxy) StartPreview() error {
	return p.submit("start-preview", func() {
		p.runStartPreview(nil)
	})
}

// StartPreviewWithCallback starts the preview and forwards nil once
// preview data is actually flowing, or the error that prevented it.
func (p *Proxy) StartPreviewWithCallback(fwd *dispatch.Forwarder[error]) error {
	return p.submit("start-preview", func() {
		p.runStartPreview(fwd)
	})
}

// runStartPreview executes on the worker loop.
func (p *Proxy) runStartPreview(fwd *dispatch.Forwarder[error]) {
	if err := p.handle.StartPreview(); err != nil {
		if fwd != nil {
			fwd.Forward(NewError(ErrCodeRuntimeFault, "preview failed to start", err))
			return
		}
		// No callback to carry the failure; it is a session fault.
		panic(err)
	}
	p.mu.Lock()
	p.previewing = true
	p.mu.Unlock()
	p.mgr.publish(events.PreviewStartedEvent{DeviceID: p.id, Timestamp: timestamp()})
	fwd.Forward(nil)
}

// StopPreview stops the preview and blocks until the device has
// actually stopped, so callers may free preview resources immediately
// after it returns.
func (p *Proxy) StopPreview() error {
	return p.submitWait("stop-preview", func() {
		if err := p.handle.StopPreview(); err != nil {
			panic(err)
		}
		p.mu.Lock()
		p.previewing = false
		p.mu.Unlock()
		p.mgr.publish(events.PreviewStoppedEvent{DeviceID: p.id, Timestamp: timestamp()})
	}, DefaultOperationTimeout)
}

// AutoFocus requests a focus sweep. A second request made before the
// first completes supersedes it, and only the latest request's callback
// ever fires. Latest intent wins.
func (p *Proxy) AutoFocus(fwd *dispatch.Forwarder[FocusResult]) error {
	p.mu.Lock()
	if p.state != StateOpened {
		err := p.terminalErrLocked()
		p.mu.Unlock()
		return err
	}
	p.focusSeq++
	seq := p.focusSeq
	p.mu.Unlock()

	err := p.loop.Submit("auto-focus", p.instrument("auto-focus", func() {
		if p.focusSuperseded(seq) {
			return
		}
		focused, err := p.handle.AutoFocus()
		// The sweep may have been superseded while the hardware ran;
		// a stale result must never double-fire.
		if p.focusSuperseded(seq) {
			return
		}
		fwd.Forward(FocusResult{Focused: focused, Err: err})
	}))
	if err != nil {
		return NewError(ErrCodeClosed, "worker loop stopped", err)
	}
	return nil
}

// CancelAutoFocus cancels any pending or in-flight focus request. A
// canceled request's callback never fires.
func (p *Proxy) CancelAutoFocus() error {
	p.mu.Lock()
	if p.state != StateOpened {
		err := p.terminalErrLocked()
		p.mu.Unlock()
		return err
	}
	p.focusSeq++
	p.mu.Unlock()

	return p.submit("cancel-auto-focus", func() {
		p.handle.CancelAutoFocus()
	})
}

func (p *Proxy) focusSuperseded(seq uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return seq != p.focusSeq
}

// TakePicture captures a still image. All callbacks are optional; the
// ones supplied fire in the order shutter, raw, postview, jpeg, each on
// its own target context. A capture failure is a session fault.
func (p *Proxy) TakePicture(cbs PictureCallbacks) error {
	return p.submit("take-picture", func() {
		pic, err := p.handle.TakePicture()
		if err != nil {
			panic(err)
		}
		cbs.Shutter.Forward(struct{}{})
		cbs.Raw.Forward(pic.Raw)
		cbs.Postview.Forward(pic.Postview)
		cbs.JPEG.Forward(pic.JPEG)
		p.mgr.publish(events.PictureTakenEvent{
			DeviceID:  p.id,
			JPEGBytes: len(pic.JPEG),
			Timestamp: timestamp(),
		})
	})
}

// Settings returns the current settings snapshot. The cached copy is
// returned when it is known-good; otherwise the call blocks on a
// refresh against the device.
func (p *Proxy) Settings() (Settings, error) {
	p.mu.Lock()
	if p.state != StateOpened {
		err := p.terminalErrLocked()
		p.mu.Unlock()
		return Settings{}, err
	}
	if !p.dirty {
		s := p.settings
		p.mu.Unlock()
		return s, nil
	}
	p.mu.Unlock()

	if err := p.refreshWait(); err != nil {
		return Settings{}, err
	}
	p.mu.Lock()
	s := p.settings
	p.mu.Unlock()
	return s, nil
}

// ApplySettings applies a snapshot atomically and blocks until the
// device has accepted or rejected it. On success the cache holds the
// new snapshot; on failure the device's prior configuration and the
// cache are left intact.
func (p *Proxy) ApplySettings(s Settings) error {
	p.mu.Lock()
	if p.state != StateOpened {
		err := p.terminalErrLocked()
		p.mu.Unlock()
		return err
	}
	// Mutation requested but not yet confirmed applied.
	p.dirty = true
	p.mu.Unlock()

	var applyErr error
	err := p.submitWait("apply-settings", func() {
		applyErr = p.handle.WriteSettings(s)
		p.mu.Lock()
		if applyErr == nil {
			p.settings = s
		}
		// Rejected applies leave the device untouched, so the cached
		// snapshot is authoritative either way.
		p.dirty = false
		p.mu.Unlock()
	}, DefaultOperationTimeout)
	if err != nil {
		return err
	}
	if applyErr != nil {
		return fmt.Errorf("settings rejected by device %d: %w", p.id, applyErr)
	}
	p.mgr.publish(events.SettingsAppliedEvent{DeviceID: p.id, Timestamp: timestamp()})
	return nil
}

// RefreshSettings re-reads the device configuration regardless of the
// dirty bit. The refresh happens asynchronously on the worker.
func (p *Proxy) RefreshSettings() error {
	return p.submit("refresh-settings", func() { p.runRefresh() })
}

// refreshWait is the blocking variant used by Settings.
func (p *Proxy) refreshWait() error {
	return p.submitWait("refresh-settings", func() { p.runRefresh() }, DefaultOperationTimeout)
}

// runRefresh executes on the worker loop.
func (p *Proxy) runRefresh() {
	s, err := p.handle.ReadSettings()
	if err != nil {
		panic(err)
	}
	p.mu.Lock()
	p.settings = s
	p.dirty = false
	p.mu.Unlock()
}

// EnableShutterSound toggles the capture sound asynchronously.
func (p *Proxy) EnableShutterSound(enabled bool) error {
	return p.submit("enable-shutter-sound", func() {
		if err := p.handle.EnableShutterSound(enabled); err != nil {
			panic(err)
		}
		p.mu.Lock()
		p.settings.ShutterSound = enabled
		p.mu.Unlock()
	})
}

// Reconnect re-establishes the hardware handle after an external owner
// released the device. Failure is reported as a ReconnectionFailure
// through the open-result forwarder, never through the exception
// handler.
func (p *Proxy) Reconnect(fwd *dispatch.Forwarder[OpenResult]) error {
	return p.submit("reconnect", func() {
		if err := p.handle.Reconnect(); err != nil {
			fwd.Forward(OpenResult{
				DeviceID: p.id,
				Err:      NewError(ErrCodeReconnection, "device did not come back", err),
			})
			return
		}
		fwd.Forward(OpenResult{DeviceID: p.id, Proxy: p})
	})
}

// Close transitions the session to CLOSING, lets all queued commands
// drain, releases the hardware handle, and tears down the worker loop.
// With sync set the call blocks until the session is fully CLOSED.
func (p *Proxy) Close(sync bool) {
	p.mu.Lock()
	if p.state != StateOpening && p.state != StateOpened {
		p.mu.Unlock()
		return
	}
	p.state = StateClosing
	p.mu.Unlock()

	// Bypasses submit: intake is otherwise closed for CLOSING sessions.
	_ = p.loop.Submit("close", func() { p.runClose() })

	if sync {
		p.loop.Shutdown(true)
		return
	}
	go p.loop.Shutdown(true)
}

// runClose executes on the worker loop as the session's last command.
func (p *Proxy) runClose() {
	p.mu.Lock()
	h := p.handle
	previewing := p.previewing
	p.handle = nil
	p.previewing = false
	p.mu.Unlock()

	if h != nil {
		if previewing {
			if err := h.StopPreview(); err != nil {
				p.logger.Warn("Failed to stop preview during close", "device_id", p.id, "error", err)
			}
		}
		if err := h.Close(); err != nil {
			p.logger.Warn("Failed to release device handle", "device_id", p.id, "error", err)
		}
	}

	p.mu.Lock()
	p.state = StateClosed
	p.mu.Unlock()

	p.mgr.remove(p)
	p.mgr.publish(events.DeviceClosedEvent{DeviceID: p.id, Timestamp: timestamp()})
	p.logger.Info("Device session closed", "device_id", p.id)
}

// handleFault runs on the worker goroutine when a command panics. The
// loop has already stopped; the session becomes terminal, the handle is
// released best-effort, and the fault goes to the registered exception
// forwarder, exactly once.
func (p *Proxy) handleFault(fault error) {
	p.mu.Lock()
	prior := p.state
	p.state = StateError
	h := p.handle
	p.handle = nil
	exc := p.exception
	p.mu.Unlock()

	if h != nil {
		if err := h.Close(); err != nil {
			p.logger.Warn("Failed to release handle after fault", "device_id", p.id, "error", err)
		}
	}

	p.mgr.remove(p)
	if prior == StateOpened {
		p.mgr.publish(events.DeviceFaultEvent{
			DeviceID:  p.id,
			Error:     fault.Error(),
			Timestamp: timestamp(),
		})
	}

	if exc == nil {
		exc = p.mgr.defaultException()
	}
	ferr := NewError(ErrCodeRuntimeFault, fmt.Sprintf("device %d worker fault", p.id), fault)
	if exc != nil {
		exc.Forward(ferr)
		return
	}
	p.logger.Error("Unhandled device fault", "device_id", p.id, "error", fault)
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
