package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"
)

type testOptions struct {
	Config string

	Host     string   `toml:"server.host" env:"HOST"`
	Port     int      `toml:"server.port" env:"PORT"`
	Debug    bool     `toml:"server.debug" env:"DEBUG"`
	Backends []string `toml:"server.backends" env:"BACKENDS"`
}

func writeTempTOML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeTempTOML(t, `
[server]
host = "cam.local"
port = 9000
debug = true
backends = ["simulated", "v4l2"]
`)

	opts := &testOptions{Config: path, Host: "default", Port: 8080}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if opts.Host != "cam.local" {
		t.Errorf("Host = %q, want %q", opts.Host, "cam.local")
	}
	if opts.Port != 9000 {
		t.Errorf("Port = %d, want 9000", opts.Port)
	}
	if !opts.Debug {
		t.Error("Debug = false, want true")
	}
	if want := []string{"simulated", "v4l2"}; !reflect.DeepEqual(opts.Backends, want) {
		t.Errorf("Backends = %v, want %v", opts.Backends, want)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeTempTOML(t, "[server]\nhost = \"from-file\"\nport = 9000\n")

	t.Setenv(EnvPrefix+"HOST", "from-env")
	t.Setenv(EnvPrefix+"PORT", "9100")

	opts := &testOptions{Config: path}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if opts.Host != "from-env" {
		t.Errorf("Host = %q, want env value", opts.Host)
	}
	if opts.Port != 9100 {
		t.Errorf("Port = %d, want 9100", opts.Port)
	}
}

func TestLoadCLIBeatsEverything(t *testing.T) {
	path := writeTempTOML(t, "[server]\nhost = \"from-file\"\n")
	t.Setenv(EnvPrefix+"HOST", "from-env")

	cmd := &cobra.Command{}
	cmd.Flags().String("host", "", "")
	if err := cmd.Flags().Set("host", "from-cli"); err != nil {
		t.Fatal(err)
	}

	opts := &testOptions{Config: path, Host: "from-cli"}
	if err := Load(opts, cmd); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if opts.Host != "from-cli" {
		t.Errorf("Host = %q, want CLI value preserved", opts.Host)
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	opts := &testOptions{Config: "/nonexistent/config.toml", Host: "default"}
	if err := Load(opts, nil); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.Host != "default" {
		t.Errorf("Host = %q, want default kept", opts.Host)
	}
}

func TestLoadMalformedTOML(t *testing.T) {
	path := writeTempTOML(t, "[server\nhost = ")
	opts := &testOptions{Config: path}
	if err := Load(opts, nil); err == nil {
		t.Error("expected parse error for malformed TOML")
	}
}

func TestFlagName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Port", "port"},
		{"OperationTimeout", "operation-timeout"},
		{"DevicesFile", "devices-file"},
	}
	for _, tt := range tests {
		if got := flagName(tt.in); got != tt.want {
			t.Errorf("flagName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadLogging(t *testing.T) {
	path := writeTempTOML(t, `
[logging]
level = "debug"
format = "json"
camera = "warn"
worker = "error"
`)

	cfg := LoadLogging(path)
	if cfg.Level != "debug" || cfg.Format != "json" {
		t.Errorf("got level=%q format=%q", cfg.Level, cfg.Format)
	}
	if cfg.Modules["camera"] != "warn" || cfg.Modules["worker"] != "error" {
		t.Errorf("module overrides = %v", cfg.Modules)
	}
}

func TestLoadLoggingDefaults(t *testing.T) {
	cfg := LoadLogging("/nonexistent/config.toml")
	if cfg.Level != "info" || cfg.Format != "text" {
		t.Errorf("got level=%q format=%q, want defaults", cfg.Level, cfg.Format)
	}
}
