package events

// Event type constants for kelindar/event.
const (
	TypeDeviceOpened uint32 = iota + 1
	TypeDeviceClosed
	TypeDeviceFault
	TypePreviewStarted
	TypePreviewStopped
	TypePictureTaken
	TypeSettingsApplied
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DeviceOpenedEvent is published once a device session reaches OPENED.
type DeviceOpenedEvent struct {
	DeviceID  int    `json:"device_id" example:"0" doc:"Device identifier"`
	Name      string `json:"name" example:"integrated" doc:"Device name from the registry"`
	Timestamp string `json:"timestamp" example:"2026-08-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceOpenedEvent.
func (e DeviceOpenedEvent) Type() uint32 { return TypeDeviceOpened }

// DeviceClosedEvent is published when a device session is fully closed.
type DeviceClosedEvent struct {
	DeviceID  int    `json:"device_id" example:"0" doc:"Device identifier"`
	Timestamp string `json:"timestamp" example:"2026-08-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceClosedEvent.
func (e DeviceClosedEvent) Type() uint32 { return TypeDeviceClosed }

// DeviceFaultEvent is published when a worker fault forces a session
// into its terminal error state.
type DeviceFaultEvent struct {
	DeviceID  int    `json:"device_id" example:"0" doc:"Device identifier"`
	Error     string `json:"error" doc:"Fault description"`
	Timestamp string `json:"timestamp" example:"2026-08-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for DeviceFaultEvent.
func (e DeviceFaultEvent) Type() uint32 { return TypeDeviceFault }

// PreviewStartedEvent is published once preview data is actually flowing.
type PreviewStartedEvent struct {
	DeviceID  int    `json:"device_id" example:"0" doc:"Device identifier"`
	Timestamp string `json:"timestamp" example:"2026-08-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PreviewStartedEvent.
func (e PreviewStartedEvent) Type() uint32 { return TypePreviewStarted }

// PreviewStoppedEvent is published after a synchronous preview stop.
type PreviewStoppedEvent struct {
	DeviceID  int    `json:"device_id" example:"0" doc:"Device identifier"`
	Timestamp string `json:"timestamp" example:"2026-08-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PreviewStoppedEvent.
func (e PreviewStoppedEvent) Type() uint32 { return TypePreviewStopped }

// PictureTakenEvent is published after a capture completes.
type PictureTakenEvent struct {
	DeviceID  int    `json:"device_id" example:"0" doc:"Device identifier"`
	JPEGBytes int    `json:"jpeg_bytes" example:"245760" doc:"Size of the JPEG payload"`
	Timestamp string `json:"timestamp" example:"2026-08-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for PictureTakenEvent.
func (e PictureTakenEvent) Type() uint32 { return TypePictureTaken }

// SettingsAppliedEvent is published when a settings snapshot is applied
// atomically to the device.
type SettingsAppliedEvent struct {
	DeviceID  int    `json:"device_id" example:"0" doc:"Device identifier"`
	Timestamp string `json:"timestamp" example:"2026-08-27T10:30:00Z" doc:"Event timestamp"`
}

// Type returns the event type identifier for SettingsAppliedEvent.
func (e SettingsAppliedEvent) Type() uint32 { return TypeSettingsApplied }
