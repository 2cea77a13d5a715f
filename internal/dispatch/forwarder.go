package dispatch

import "errors"

// ErrIncompleteForwarder is returned when a forwarder is constructed
// without a target context or without a callback.
var ErrIncompleteForwarder = errors.New("dispatch: forwarder requires a context and a callback")

// Forwarder binds a callback to the Context it must run on. Forward may
// be called from any goroutine, typically a device worker; the callback
// body always executes on the target context with the payload exactly
// as produced.
type Forwarder[T any] struct {
	target Context
	fn     func(T)
}

// NewForwarder builds a forwarder for fn on target. Both parts are
// required; a half-wired forwarder is never constructed.
func NewForwarder[T any](target Context, fn func(T)) (*Forwarder[T], error) {
	if target == nil || fn == nil {
		return nil, ErrIncompleteForwarder
	}
	return &Forwarder[T]{target: target, fn: fn}, nil
}

// Forward schedules the callback on the target context with v. Calling
// Forward on a nil forwarder is a no-op, which lets optional callbacks
// be skipped without nil checks at every call site. If the target
// context has shut down the delivery is silently dropped.
func (f *Forwarder[T]) Forward(v T) {
	if f == nil {
		return
	}
	f.target.Post(func() { f.fn(v) })
}
