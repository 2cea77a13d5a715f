package devices

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTableRegistryLookup(t *testing.T) {
	r := NewTableRegistry([]Info{
		{ID: 0, Name: "back", Facing: "back"},
		{ID: 1, Name: "front", Facing: "front", Disabled: true},
	})

	info, err := r.Info(1)
	if err != nil {
		t.Fatalf("Info(1): %v", err)
	}
	if !info.Disabled {
		t.Error("expected device 1 to be disabled")
	}

	if _, err := r.Info(7); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("expected ErrUnknownDevice, got %v", err)
	}
}

func TestTableRegistryListOrdered(t *testing.T) {
	r := NewTableRegistry([]Info{{ID: 3}, {ID: 1}, {ID: 2}})

	list := r.List()
	if len(list) != 3 {
		t.Fatalf("expected 3 devices, got %d", len(list))
	}
	for i, info := range list {
		if info.ID != i+1 {
			t.Errorf("expected id %d at position %d, got %d", i+1, i, info.ID)
		}
	}
}

func TestTableRegistryReplace(t *testing.T) {
	r := NewTableRegistry([]Info{{ID: 0, Disabled: false}})

	r.Replace([]Info{{ID: 0, Disabled: true}, {ID: 5}})

	info, err := r.Info(0)
	if err != nil {
		t.Fatalf("Info(0): %v", err)
	}
	if !info.Disabled {
		t.Error("expected replacement table to take effect")
	}
	if _, err := r.Info(5); err != nil {
		t.Errorf("expected device 5 after replace, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.toml")
	content := `
[[devices]]
id = 0
name = "integrated"
path = "/dev/video0"
facing = "back"

[devices.caps]
can_focus = true
has_flash = false

[devices.caps.max_picture_size]
width = 4032
height = 3024

[[devices]]
id = 1
name = "usb"
path = "/dev/video2"
facing = "external"
disabled = true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	infos, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(infos))
	}
	if !infos[0].Caps.CanFocus {
		t.Error("expected device 0 to support focus")
	}
	if infos[0].Caps.MaxPictureSize.Width != 4032 {
		t.Errorf("expected picture width 4032, got %d", infos[0].Caps.MaxPictureSize.Width)
	}
	if !infos[1].Disabled {
		t.Error("expected device 1 to be disabled")
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing file")
	}
}
