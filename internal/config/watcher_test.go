package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type watchedFile struct {
	Name string `toml:"name"`
}

func loadWatchedFile(path string) (watchedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return watchedFile{}, err
	}
	var f watchedFile
	err = toml.Unmarshal(data, &f)
	return f, err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherReloadsOnWrite(t *testing.T) {
	tmp, err := os.CreateTemp("", "watched_*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("name = \"initial\"\n")
	tmp.Close()

	received := make(chan watchedFile, 4)
	w := NewWatcher(tmp.Name(), loadWatchedFile, discardLogger(),
		WithDebounce[watchedFile](50*time.Millisecond))
	w.OnReload(func(f watchedFile) { received <- f })

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(tmp.Name(), []byte("name = \"updated\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case f := <-received:
		if f.Name != "updated" {
			t.Errorf("Name = %q, want %q", f.Name, "updated")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no reload within 2s")
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	tmp, err := os.CreateTemp("", "watched_*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("name = \"initial\"\n")
	tmp.Close()

	var reloads atomic.Int32
	w := NewWatcher(tmp.Name(), loadWatchedFile, discardLogger(),
		WithDebounce[watchedFile](100*time.Millisecond))
	w.OnReload(func(watchedFile) { reloads.Add(1) })

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		os.WriteFile(tmp.Name(), []byte("name = \"burst\"\n"), 0o644)
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)
	if n := reloads.Load(); n != 1 {
		t.Errorf("reloads = %d, want 1", n)
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	tmp, err := os.CreateTemp("", "watched_*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("name = \"initial\"\n")
	tmp.Close()

	loadErr := errors.New("boom")
	gotErr := make(chan error, 1)
	w := NewWatcher(tmp.Name(),
		func(string) (watchedFile, error) { return watchedFile{}, loadErr },
		discardLogger(),
		WithDebounce[watchedFile](50*time.Millisecond),
		WithErrorHandler[watchedFile](func(err error) { gotErr <- err }))

	called := false
	w.OnReload(func(watchedFile) { called = true })

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	os.WriteFile(tmp.Name(), []byte("name = \"changed\"\n"), 0o644)

	select {
	case err := <-gotErr:
		if !errors.Is(err, loadErr) {
			t.Errorf("error = %v, want %v", err, loadErr)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("error handler not called within 2s")
	}
	if called {
		t.Error("reload handler ran despite load failure")
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	tmp, err := os.CreateTemp("", "watched_*.toml")
	if err != nil {
		t.Fatal(err)
	}
	defer os.Remove(tmp.Name())
	tmp.WriteString("name = \"initial\"\n")
	tmp.Close()

	var reloads atomic.Int32
	w := NewWatcher(tmp.Name(), loadWatchedFile, discardLogger(),
		WithDebounce[watchedFile](50*time.Millisecond))
	unsubscribe := w.OnReload(func(watchedFile) { reloads.Add(1) })
	unsubscribe()

	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	os.WriteFile(tmp.Name(), []byte("name = \"changed\"\n"), 0o644)
	time.Sleep(300 * time.Millisecond)

	if n := reloads.Load(); n != 0 {
		t.Errorf("reloads = %d, want 0 after unsubscribe", n)
	}
}

func TestWatcherStartMissingFile(t *testing.T) {
	w := NewWatcher("/nonexistent/file.toml", loadWatchedFile, discardLogger())
	if err := w.Start(); err == nil {
		w.Stop()
		t.Error("expected error watching missing file")
	}
}
