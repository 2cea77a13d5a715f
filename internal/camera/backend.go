package camera

// Backend acquires exclusive hardware handles. Implementations wrap a
// real driver or a simulated device; the core only ever touches a
// Handle from the device's own worker loop.
type Backend interface {
	// Open acquires exclusive ownership of the device. It may block on
	// hardware and is always called from the device's worker loop.
	Open(id int) (Handle, error)
}

// Picture is the payload produced by a capture. Planes the hardware
// does not produce are nil.
type Picture struct {
	Raw      []byte
	Postview []byte
	JPEG     []byte
}

// Handle is an open, exclusively-owned hardware session. None of its
// methods are safe for concurrent use; the worker loop serializes all
// access.
type Handle interface {
	StartPreview() error
	StopPreview() error

	// AutoFocus runs one focus sweep and reports whether it locked.
	AutoFocus() (bool, error)
	CancelAutoFocus()

	TakePicture() (Picture, error)

	ReadSettings() (Settings, error)

	// WriteSettings applies the snapshot atomically: on error the
	// device's prior configuration is intact.
	WriteSettings(Settings) error

	EnableShutterSound(enabled bool) error

	// Reconnect re-establishes the handle after an external caller took
	// exclusive control of the device and released it.
	Reconnect() error

	Close() error
}
