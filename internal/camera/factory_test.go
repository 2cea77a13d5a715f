package camera

import (
	"testing"

	"github.com/dmtar/camgate/internal/dispatch"
)

func newTestShared() (*Shared, *fakeBackend) {
	backend := newFakeBackend()
	shared := NewShared(func() *Manager {
		return NewManager(backend, testRegistry(), nil)
	})
	return shared, backend
}

func TestSharedHandsOutOneManager(t *testing.T) {
	shared, _ := newTestShared()

	c1, m1 := shared.Acquire()
	c2, m2 := shared.Acquire()
	defer c1.Release()
	defer c2.Release()

	if m1 != m2 {
		t.Error("two acquires returned different managers")
	}
	if got := shared.Clients(); got != 2 {
		t.Errorf("Clients() = %d, want 2", got)
	}
}

func TestLastReleaseShutsManagerDown(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	shared, backend := newTestShared()

	c1, m := shared.Acquire()
	c2, _ := shared.Acquire()

	mustOpen(t, m, q, 0)

	c1.Release()
	if !backend.isHeld(0) {
		t.Fatal("session closed while a client still holds the manager")
	}

	c2.Release()
	if backend.isHeld(0) {
		t.Error("last release did not close open sessions")
	}

	r := openSync(t, m, q, 1)
	if r.Err == nil || r.Err.Code != ErrCodeOpenFailure {
		t.Errorf("open on torn-down manager: %v, want %s", r.Err, ErrCodeOpenFailure)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	shared, _ := newTestShared()

	c1, _ := shared.Acquire()
	c2, _ := shared.Acquire()

	c1.Release()
	c1.Release()

	if got := shared.Clients(); got != 1 {
		t.Errorf("Clients() = %d, want 1 after double release of one handle", got)
	}
	c2.Release()
}

func TestReacquireBuildsFreshManager(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	shared, _ := newTestShared()

	c1, m1 := shared.Acquire()
	c1.Release()

	c2, m2 := shared.Acquire()
	defer c2.Release()

	if m1 == m2 {
		t.Fatal("reacquire returned the shut-down manager")
	}
	mustOpen(t, m2, q, 0)
}
