package tola

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerActivePreemptsBackgroundScenarioS7(t *testing.T) {
	var started int32
	var mu sync.Mutex
	var order []string

	block := make(chan struct{})
	var once sync.Once

	compile := func(source string) error {
		atomic.AddInt32(&started, 1)
		if source == "background-0" {
			<-block // hold the first background item in flight
		}
		mu.Lock()
		order = append(order, source)
		mu.Unlock()
		return nil
	}

	s := NewScheduler(1, compile)

	files := make([]string, 100)
	for i := range files {
		files[i] = "background-item"
	}
	files[0] = "background-0"
	s.SubmitBackground(files)

	// give the single worker a chance to pick up background-0 and block on it
	time.Sleep(20 * time.Millisecond)

	done := make(chan error, 1)
	go func() {
		done <- s.SubmitActive("active-file")
	}()

	time.Sleep(20 * time.Millisecond)
	once.Do(func() { close(block) })

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("active item did not complete in time")
	}

	mu.Lock()
	defer mu.Unlock()
	foundActiveBeforeAllBackground := false
	for _, o := range order {
		if o == "active-file" {
			foundActiveBeforeAllBackground = true
			break
		}
		if o != "background-0" {
			// another background item ran before the active one completed
			t.Fatalf("background item %q ran before active item, order=%v", o, order)
		}
	}
	if !foundActiveBeforeAllBackground {
		t.Fatalf("active item never ran, order=%v", order)
	}
	s.Shutdown()
}

func TestSchedulerPerSourceDeduplication(t *testing.T) {
	var calls int32
	compile := func(source string) error {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return nil
	}
	s := NewScheduler(2, compile)
	s.SubmitBackground([]string{"same.typ", "same.typ"})
	s.WaitAll()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 compile call for duplicate source, got %d", got)
	}
	s.Shutdown()
}
