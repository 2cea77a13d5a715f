package camera

import (
	"sync"
	"testing"
	"time"

	"github.com/dmtar/camgate/internal/dispatch"
)

func TestOpenDeliversProxy(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	backend := newFakeBackend()
	m := NewManager(backend, testRegistry(), nil)
	defer m.Shutdown()

	p := mustOpen(t, m, q, 0)
	if p.ID() != 0 {
		t.Errorf("ID = %d, want 0", p.ID())
	}
	if got := p.State(); got != StateOpened {
		t.Errorf("state = %s, want %s", got, StateOpened)
	}
	if !backend.isHeld(0) {
		t.Error("backend does not hold device 0 after open")
	}
	if got, ok := m.Proxy(0); !ok || got != p {
		t.Error("manager does not track the open session")
	}
}

func TestOpenUnknownDevice(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	m := NewManager(newFakeBackend(), testRegistry(), nil)
	defer m.Shutdown()

	r := openSync(t, m, q, 42)
	if r.Err == nil || r.Err.Code != ErrCodeOpenFailure {
		t.Fatalf("err = %v, want %s", r.Err, ErrCodeOpenFailure)
	}
	if r.Proxy != nil {
		t.Error("got a proxy for an unknown device")
	}
}

func TestOpenDisabledDevice(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	backend := newFakeBackend()
	m := NewManager(backend, testRegistry(), nil)
	defer m.Shutdown()

	r := openSync(t, m, q, 7)
	if r.Err == nil || r.Err.Code != ErrCodeDisabled {
		t.Fatalf("err = %v, want %s", r.Err, ErrCodeDisabled)
	}
	if backend.openCount() != 0 {
		t.Error("hardware open attempted for a disabled device")
	}
}

func TestSecondOpenResolvesBusy(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	m := NewManager(newFakeBackend(), testRegistry(), nil)
	defer m.Shutdown()

	mustOpen(t, m, q, 0)

	r := openSync(t, m, q, 0)
	if r.Err == nil || r.Err.Code != ErrCodeOpenedAlready {
		t.Fatalf("err = %v, want %s", r.Err, ErrCodeOpenedAlready)
	}
}

func TestConcurrentOpensExactlyOneWins(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	backend := newFakeBackend()
	m := NewManager(backend, testRegistry(), nil)
	defer m.Shutdown()

	const racers = 16
	results := make(chan OpenResult, racers)
	fwd, err := dispatch.NewForwarder(q, func(r OpenResult) { results <- r })
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Open(1, fwd)
		}()
	}
	wg.Wait()

	var wins, busy int
	for i := 0; i < racers; i++ {
		select {
		case r := <-results:
			switch {
			case r.Err == nil:
				wins++
			case r.Err.Code == ErrCodeOpenedAlready:
				busy++
			default:
				t.Errorf("unexpected error: %v", r.Err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("open results did not all resolve")
		}
	}
	if wins != 1 {
		t.Errorf("wins = %d, want exactly 1", wins)
	}
	if busy != racers-1 {
		t.Errorf("busy = %d, want %d", busy, racers-1)
	}
	if backend.openCount() != 1 {
		t.Errorf("hardware opens = %d, want 1", backend.openCount())
	}
}

func TestReopenAfterClose(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	backend := newFakeBackend()
	m := NewManager(backend, testRegistry(), nil)
	defer m.Shutdown()

	p := mustOpen(t, m, q, 0)
	p.Close(true)

	if got := p.State(); got != StateClosed {
		t.Fatalf("state after sync close = %s, want %s", got, StateClosed)
	}
	if backend.isHeld(0) {
		t.Fatal("backend still holds device after close")
	}
	if _, ok := m.Proxy(0); ok {
		t.Fatal("closed session still tracked by manager")
	}

	p2 := mustOpen(t, m, q, 0)
	if p2 == p {
		t.Error("reopen returned the old session")
	}
}

func TestOpenFailureReleasesID(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	backend := newFakeBackend()
	backend.openErr = errLocked
	m := NewManager(backend, testRegistry(), nil)
	defer m.Shutdown()

	r := openSync(t, m, q, 0)
	if r.Err == nil || r.Err.Code != ErrCodeOpenFailure {
		t.Fatalf("err = %v, want %s", r.Err, ErrCodeOpenFailure)
	}

	backend.mu.Lock()
	backend.openErr = nil
	backend.mu.Unlock()

	mustOpen(t, m, q, 0)
}

func TestCloseDuringOpenReleasesHandle(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	backend := newFakeBackend()
	gate := make(chan struct{})
	backend.gate = gate
	m := NewManager(backend, testRegistry(), nil)
	defer m.Shutdown()

	delivered := make(chan OpenResult, 1)
	fwd, err := dispatch.NewForwarder(q, func(r OpenResult) { delivered <- r })
	if err != nil {
		t.Fatal(err)
	}
	m.Open(0, fwd)

	p, ok := m.Proxy(0)
	if !ok {
		t.Fatal("opening session not tracked")
	}
	if got := p.State(); got != StateOpening {
		t.Fatalf("state = %s, want %s", got, StateOpening)
	}

	// Close races the still-blocked hardware open.
	go p.Close(false)
	for p.State() != StateClosing {
		time.Sleep(time.Millisecond)
	}
	close(gate)

	deadline := time.After(2 * time.Second)
	for backend.isHeld(0) {
		select {
		case <-deadline:
			t.Fatal("handle not released after close raced open")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	select {
	case r := <-delivered:
		t.Errorf("open callback fired despite racing close: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestShutdownClosesEverything(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	backend := newFakeBackend()
	m := NewManager(backend, testRegistry(), nil)

	mustOpen(t, m, q, 0)
	mustOpen(t, m, q, 1)

	m.Shutdown()
	m.Shutdown() // idempotent

	if backend.isHeld(0) || backend.isHeld(1) {
		t.Error("backend still holds devices after shutdown")
	}

	r := openSync(t, m, q, 0)
	if r.Err == nil || r.Err.Code != ErrCodeOpenFailure {
		t.Errorf("open after shutdown: err = %v, want %s", r.Err, ErrCodeOpenFailure)
	}
}

func TestProxiesOrderedByID(t *testing.T) {
	q := dispatch.NewQueue("test")
	defer q.Close()
	m := NewManager(newFakeBackend(), testRegistry(), nil)
	defer m.Shutdown()

	mustOpen(t, m, q, 1)
	mustOpen(t, m, q, 0)

	open := m.Proxies()
	if len(open) != 2 {
		t.Fatalf("len = %d, want 2", len(open))
	}
	if open[0].ID() != 0 || open[1].ID() != 1 {
		t.Errorf("order = [%d %d], want [0 1]", open[0].ID(), open[1].ID())
	}
}
