package camera

import (
	"time"

	"github.com/dmtar/camgate/internal/devices"
)

// DefaultOperationTimeout bounds every synchronous wait on a device
// worker unless a caller overrides it per call.
const DefaultOperationTimeout = 2500 * time.Millisecond

// Focus modes.
const (
	FocusAuto       = "auto"
	FocusContinuous = "continuous"
	FocusFixed      = "fixed"
)

// Flash modes.
const (
	FlashOff  = "off"
	FlashOn   = "on"
	FlashAuto = "auto"
)

// Settings is an immutable snapshot of device configuration. It is a
// comparable value object: snapshots are exchanged whole and compared
// with ==, never partially updated across the boundary.
type Settings struct {
	PreviewSize          devices.Size
	PictureSize          devices.Size
	FocusMode            string
	FlashMode            string
	ExposureCompensation int
	JPEGQuality          int
	ShutterSound         bool
}

// DefaultSettings is the configuration a simulated or freshly-opened
// device starts out with when the hardware reports nothing better.
func DefaultSettings() Settings {
	return Settings{
		PreviewSize:  devices.Size{Width: 1280, Height: 720},
		PictureSize:  devices.Size{Width: 1920, Height: 1080},
		FocusMode:    FocusAuto,
		FlashMode:    FlashOff,
		JPEGQuality:  90,
		ShutterSound: true,
	}
}
