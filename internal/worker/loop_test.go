package worker

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

func loopTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoopExecutesInSubmissionOrder(t *testing.T) {
	l := NewLoop("test", loopTestLogger(), nil)
	defer l.Shutdown(true)

	const n = 300
	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		i := i
		if err := l.Submit("op", func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
			wg.Done()
		}); err != nil {
			t.Fatalf("Submit: %v", err)
		}
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i {
			t.Fatalf("execution order diverged at %d: got %d", i, v)
		}
	}
}

func TestSubmitWaitCompletes(t *testing.T) {
	l := NewLoop("test", loopTestLogger(), nil)
	defer l.Shutdown(true)

	ran := false
	if err := l.SubmitWait("op", func() { ran = true }, time.Second); err != nil {
		t.Fatalf("SubmitWait: %v", err)
	}
	if !ran {
		t.Error("expected command to have run before SubmitWait returned")
	}
}

func TestSubmitWaitTimeoutLeavesCommandRunning(t *testing.T) {
	l := NewLoop("test", loopTestLogger(), nil)
	defer l.Shutdown(true)

	release := make(chan struct{})
	completed := make(chan struct{})

	err := l.SubmitWait("slow-op", func() {
		<-release
		close(completed)
	}, 30*time.Millisecond)
	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}

	// The command was not dropped: it finishes once unblocked.
	close(release)
	select {
	case <-completed:
	case <-time.After(2 * time.Second):
		t.Fatal("command was dropped after wait timeout")
	}
}

func TestShutdownDrainRunsQueuedCommands(t *testing.T) {
	l := NewLoop("test", loopTestLogger(), nil)

	gate := make(chan struct{})
	_ = l.Submit("blocker", func() { <-gate })

	var mu sync.Mutex
	count := 0
	for i := 0; i < 10; i++ {
		_ = l.Submit("op", func() {
			mu.Lock()
			count++
			mu.Unlock()
		})
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(gate)
	}()
	l.Shutdown(true)

	mu.Lock()
	defer mu.Unlock()
	if count != 10 {
		t.Errorf("expected all 10 queued commands to drain, got %d", count)
	}
	if got := l.State(); got != StateStopped {
		t.Errorf("expected StateStopped, got %v", got)
	}
}

func TestShutdownCancelDropsQueuedCommands(t *testing.T) {
	l := NewLoop("test", loopTestLogger(), nil)

	started := make(chan struct{})
	gate := make(chan struct{})
	_ = l.Submit("blocker", func() {
		close(started)
		<-gate
	})
	<-started

	ran := make(chan struct{}, 1)
	waitErr := make(chan error, 1)
	_ = l.Submit("queued", func() { ran <- struct{}{} })
	go func() {
		waitErr <- l.SubmitWait("queued-wait", func() { ran <- struct{}{} }, time.Second)
	}()

	// Give the waiter a moment to enqueue, then cancel.
	time.Sleep(20 * time.Millisecond)
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(gate)
	}()
	l.Shutdown(false)

	select {
	case err := <-waitErr:
		if !errors.Is(err, ErrCanceled) {
			t.Errorf("expected ErrCanceled for queued waiter, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("queued waiter left hanging after cancel shutdown")
	}

	select {
	case <-ran:
		t.Error("canceled command still executed")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	l := NewLoop("test", loopTestLogger(), nil)
	l.Shutdown(true)

	if err := l.Submit("op", func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := l.SubmitWait("op", func() {}, time.Second); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	// Shutdown is idempotent.
	l.Shutdown(false)
}

func TestFaultStopsLoopAndNotifiesOnce(t *testing.T) {
	var mu sync.Mutex
	var faults []error
	l := NewLoop("test", loopTestLogger(), func(err error) {
		mu.Lock()
		faults = append(faults, err)
		mu.Unlock()
	})

	_ = l.Submit("boom", func() { panic(errors.New("sensor wedged")) })

	// Commands queued behind the fault are canceled, waiters released.
	err := l.SubmitWait("after", func() {}, time.Second)
	if err != nil && !errors.Is(err, ErrCanceled) && !errors.Is(err, ErrClosed) {
		t.Errorf("expected cancellation or closed error, got %v", err)
	}

	deadline := time.After(2 * time.Second)
	for l.State() != StateFaulted {
		select {
		case <-deadline:
			t.Fatal("loop never reached StateFaulted")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if err := l.Submit("late", func() {}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after fault, got %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(faults) != 1 {
		t.Fatalf("expected exactly one fault notification, got %d", len(faults))
	}
	if faults[0] == nil || !strings.Contains(faults[0].Error(), "sensor wedged") {
		t.Errorf("unexpected fault error: %v", faults[0])
	}
}
