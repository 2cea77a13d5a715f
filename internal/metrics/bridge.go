package metrics

import (
	"log/slog"
	"strconv"

	"github.com/dmtar/camgate/internal/events"
)

// Bridge subscribes to the event bus and keeps the session-level
// instruments (open-device gauge, picture and fault counters) current.
type Bridge struct {
	bus    *events.Bus
	unsubs []func()
	logger *slog.Logger
}

// NewBridge creates a metrics bridge over the given bus.
func NewBridge(bus *events.Bus, logger *slog.Logger) *Bridge {
	return &Bridge{bus: bus, logger: logger}
}

// Start subscribes to the device lifecycle events.
func (b *Bridge) Start() {
	b.unsubs = append(b.unsubs,
		b.bus.Subscribe(func(events.DeviceOpenedEvent) {
			openDevices.Inc()
		}),
		b.bus.Subscribe(func(events.DeviceClosedEvent) {
			openDevices.Dec()
		}),
		b.bus.Subscribe(func(e events.DeviceFaultEvent) {
			// A faulted session is no longer open.
			openDevices.Dec()
			faultsTotal.WithLabelValues(strconv.Itoa(e.DeviceID)).Inc()
		}),
		b.bus.Subscribe(func(e events.PictureTakenEvent) {
			picturesTotal.WithLabelValues(strconv.Itoa(e.DeviceID)).Inc()
		}),
	)
	b.logger.Info("Metrics bridge started")
}

// Stop unsubscribes from the bus.
func (b *Bridge) Stop() {
	for _, unsub := range b.unsubs {
		unsub()
	}
	b.unsubs = nil
	b.logger.Info("Metrics bridge stopped")
}
