// Package devices holds the read-only device-info registry. The camera
// core queries it by id before opening a device; it never writes back.
package devices

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// ErrUnknownDevice is returned for ids the registry has never seen.
var ErrUnknownDevice = errors.New("devices: unknown device id")

// Size is a pixel dimension pair.
type Size struct {
	Width  int `toml:"width" json:"width"`
	Height int `toml:"height" json:"height"`
}

// Capabilities is the static per-device capability metadata.
type Capabilities struct {
	CanFocus        bool `toml:"can_focus" json:"can_focus"`
	HasFlash        bool `toml:"has_flash" json:"has_flash"`
	HasShutterSound bool `toml:"has_shutter_sound" json:"has_shutter_sound"`
	MaxPictureSize  Size `toml:"max_picture_size" json:"max_picture_size"`
	MaxPreviewSize  Size `toml:"max_preview_size" json:"max_preview_size"`
}

// Info describes one device known to the registry.
type Info struct {
	ID       int          `toml:"id" json:"id"`
	Name     string       `toml:"name" json:"name"`
	Path     string       `toml:"path" json:"path"`
	Facing   string       `toml:"facing" json:"facing"` // front, back, external
	Disabled bool         `toml:"disabled" json:"disabled"`
	Caps     Capabilities `toml:"caps" json:"caps"`
}

// Registry answers device-info queries by id.
type Registry interface {
	// Info returns metadata for id, or ErrUnknownDevice.
	Info(id int) (Info, error)

	// List returns all known devices ordered by id.
	List() []Info
}

// TableRegistry is an in-memory Registry whose contents can be swapped
// wholesale, typically from a watched TOML file.
type TableRegistry struct {
	mu      sync.RWMutex
	entries map[int]Info
}

// NewTableRegistry builds a registry from an initial device set.
func NewTableRegistry(infos []Info) *TableRegistry {
	r := &TableRegistry{}
	r.Replace(infos)
	return r
}

// Info implements Registry.
func (r *TableRegistry) Info(id int) (Info, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.entries[id]
	if !ok {
		return Info{}, fmt.Errorf("%w: %d", ErrUnknownDevice, id)
	}
	return info, nil
}

// List implements Registry.
func (r *TableRegistry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()
	infos := make([]Info, 0, len(r.entries))
	for _, info := range r.entries {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Replace swaps the full device table. Used by the config watcher so
// the disabled policy can change without a restart.
func (r *TableRegistry) Replace(infos []Info) {
	entries := make(map[int]Info, len(infos))
	for _, info := range infos {
		entries[info.ID] = info
	}
	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
}

// fileSchema is the on-disk layout of a device registry file.
type fileSchema struct {
	Devices []Info `toml:"devices"`
}

// LoadFile reads a TOML device registry file.
func LoadFile(path string) ([]Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read device registry: %w", err)
	}
	var file fileSchema
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse device registry: %w", err)
	}
	return file.Devices, nil
}
