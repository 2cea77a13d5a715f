// Package models holds the request and response shapes for the HTTP
// API. Body wrapper structs follow the huma v2 convention.
package models

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"1.2.0" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"a1b2c3d" doc:"Git commit hash"`
	BuildDate string `json:"build_date" example:"2026-08-01T12:00:00Z" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.11" doc:"Go toolchain version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Target platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Device models
type SizeData struct {
	Width  int `json:"width" example:"1920" doc:"Width in pixels"`
	Height int `json:"height" example:"1080" doc:"Height in pixels"`
}

type CapabilitiesData struct {
	CanFocus        bool     `json:"can_focus" example:"true" doc:"Whether the device supports auto-focus"`
	HasFlash        bool     `json:"has_flash" example:"false" doc:"Whether the device has a flash unit"`
	HasShutterSound bool     `json:"has_shutter_sound" example:"true" doc:"Whether the shutter sound can be toggled"`
	MaxPictureSize  SizeData `json:"max_picture_size" doc:"Largest supported still size"`
	MaxPreviewSize  SizeData `json:"max_preview_size" doc:"Largest supported preview size"`
}

type DeviceInfo struct {
	ID       int              `json:"id" example:"0" doc:"Device identifier"`
	Name     string           `json:"name" example:"Front Camera" doc:"Human-readable device name"`
	Path     string           `json:"path" example:"/dev/video0" doc:"Device node path"`
	Facing   string           `json:"facing" example:"front" doc:"Sensor orientation"`
	Disabled bool             `json:"disabled" example:"false" doc:"Whether the device is administratively disabled"`
	State    string           `json:"state,omitempty" example:"opened" doc:"Session state if the device is open"`
	Caps     CapabilitiesData `json:"caps" doc:"Static device capabilities"`
}

type DeviceListData struct {
	Devices []DeviceInfo `json:"devices" doc:"Known devices"`
	Count   int          `json:"count" example:"2" doc:"Number of devices"`
}

type DeviceListResponse struct {
	Body DeviceListData
}

type DeviceResponse struct {
	Body DeviceInfo
}

// Camera session models
type SessionData struct {
	DeviceID   int    `json:"device_id" example:"0" doc:"Device identifier"`
	Name       string `json:"name" example:"Front Camera" doc:"Device name"`
	State      string `json:"state" example:"opened" doc:"Session lifecycle state"`
	Previewing bool   `json:"previewing" example:"false" doc:"Whether preview is running"`
}

type SessionResponse struct {
	Body SessionData
}

type SessionListData struct {
	Sessions []SessionData `json:"sessions" doc:"Open device sessions"`
	Count    int           `json:"count" example:"1" doc:"Number of open sessions"`
}

type SessionListResponse struct {
	Body SessionListData
}

// Settings models
type SettingsData struct {
	PreviewSize          SizeData `json:"preview_size" doc:"Preview frame size"`
	PictureSize          SizeData `json:"picture_size" doc:"Still capture size"`
	FocusMode            string   `json:"focus_mode" enum:"auto,continuous,fixed" example:"auto" doc:"Focus mode"`
	FlashMode            string   `json:"flash_mode" enum:"off,on,auto" example:"off" doc:"Flash mode"`
	ExposureCompensation int      `json:"exposure_compensation" example:"0" doc:"Exposure compensation steps"`
	JPEGQuality          int      `json:"jpeg_quality" minimum:"1" maximum:"100" example:"90" doc:"JPEG quality percentage"`
	ShutterSound         bool     `json:"shutter_sound" example:"true" doc:"Whether the shutter sound plays on capture"`
}

type SettingsResponse struct {
	Body SettingsData
}

type SettingsRequest struct {
	Body SettingsData
}

// Focus models
type FocusData struct {
	Focused bool   `json:"focused" example:"true" doc:"Whether focus converged"`
	Message string `json:"message,omitempty" doc:"Failure detail if focus did not converge"`
}

type FocusResponse struct {
	Body FocusData
}

// Picture models
type PictureData struct {
	DeviceID  int    `json:"device_id" example:"0" doc:"Device identifier"`
	JPEG      string `json:"jpeg" doc:"Base64-encoded JPEG payload"`
	SizeBytes int    `json:"size_bytes" example:"51200" doc:"Decoded payload size"`
	Timestamp string `json:"timestamp" example:"2026-08-01T12:00:00Z" doc:"Capture time"`
}

type PictureResponse struct {
	Body PictureData
}

// Shutter sound models
type ShutterSoundBody struct {
	Enabled bool `json:"enabled" example:"false" doc:"Whether the shutter sound should play"`
}

// Status acknowledgements for fire-and-forget operations
type StatusData struct {
	Status  string `json:"status" example:"ok" doc:"Operation status"`
	Message string `json:"message,omitempty" doc:"Additional detail"`
}

type StatusResponse struct {
	Body StatusData
}

// Log history models
type LogEntry struct {
	Timestamp  string         `json:"timestamp" doc:"Entry time, RFC 3339"`
	Level      string         `json:"level" example:"info" doc:"Log level"`
	Module     string         `json:"module" example:"camera" doc:"Originating module"`
	Message    string         `json:"message" doc:"Log message"`
	Attributes map[string]any `json:"attributes,omitempty" doc:"Structured attributes"`
}

type LogsData struct {
	Entries []LogEntry `json:"entries" doc:"Recent log entries, oldest first"`
	Count   int        `json:"count" example:"120" doc:"Number of entries returned"`
}

type LogsResponse struct {
	Body LogsData
}
