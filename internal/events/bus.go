package events

import (
	"github.com/kelindar/event"
)

// Bus wraps the kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(DeviceOpenedEvent{...})
func (b *Bus) Publish(ev Event) {
	// The generic Publish needs the concrete type, hence the switch.
	switch e := ev.(type) {
	case DeviceOpenedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceClosedEvent:
		event.Publish(b.dispatcher, e)
	case DeviceFaultEvent:
		event.Publish(b.dispatcher, e)
	case PreviewStartedEvent:
		event.Publish(b.dispatcher, e)
	case PreviewStoppedEvent:
		event.Publish(b.dispatcher, e)
	case PictureTakenEvent:
		event.Publish(b.dispatcher, e)
	case SettingsAppliedEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe registers a handler function; the handler's parameter type
// selects which events it receives. Returns an unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e DeviceOpenedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(DeviceOpenedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceClosedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceFaultEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PreviewStartedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PreviewStoppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(PictureTakenEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(SettingsAppliedEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		// Unknown handler signature; nothing to subscribe.
		return func() {}
	}
}
