package pipeline

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// =============================================================================
// Queue Tests
// =============================================================================

func TestQueue_Order(t *testing.T) {
	q := NewQueue(4)
	defer q.Close()

	var got []int
	for i := range 100 {
		if err := q.Enqueue(func() { got = append(got, i) }); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	if err := q.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if len(got) != 100 {
		t.Fatalf("ran %d commands, want 100", len(got))
	}
	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, want %d", i, v, i)
		}
	}
}

func TestQueue_SingleGoroutine(t *testing.T) {
	q := NewQueue(0)
	defer q.Close()

	var running, overlap atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = q.Enqueue(func() {
					if running.Add(1) > 1 {
						overlap.Add(1)
					}
					running.Add(-1)
				})
			}
		}()
	}
	wg.Wait()
	_ = q.Flush()

	if overlap.Load() != 0 {
		t.Errorf("%d commands overlapped", overlap.Load())
	}
}

func TestQueue_Do(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()

	want := errors.New("boom")
	if err := q.Do(func() error { return want }); !errors.Is(err, want) {
		t.Errorf("Do error = %v, want %v", err, want)
	}
	if err := q.Do(func() error { return nil }); err != nil {
		t.Errorf("Do error = %v, want nil", err)
	}
}

func TestQueue_DoRecoversPanic(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()

	if err := q.Do(func() error { panic("bad command") }); err == nil {
		t.Error("Do should report a panicking command")
	}
	// The render goroutine survives.
	if err := q.Flush(); err != nil {
		t.Errorf("Flush after panic: %v", err)
	}
}

func TestQueue_Close(t *testing.T) {
	q := NewQueue(8)

	var ran atomic.Int32
	for range 5 {
		_ = q.Enqueue(func() { ran.Add(1) })
	}
	q.Close()

	if ran.Load() != 5 {
		t.Errorf("Close ran %d pending commands, want 5", ran.Load())
	}
	if err := q.Enqueue(func() {}); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Enqueue after Close = %v, want ErrQueueClosed", err)
	}
	if err := q.Flush(); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("Flush after Close = %v, want ErrQueueClosed", err)
	}
	q.Close()
}

func TestQueue_NilCommand(t *testing.T) {
	q := NewQueue(1)
	defer q.Close()
	if err := q.Enqueue(nil); err != nil {
		t.Errorf("Enqueue(nil) = %v", err)
	}
}

// =============================================================================
// Scheduler Tests
// =============================================================================

func TestNewScheduler_DefaultDepth(t *testing.T) {
	if got := NewScheduler(0).Depth(); got != DefaultDepth {
		t.Errorf("Depth() = %d, want %d", got, DefaultDepth)
	}
	if got := NewScheduler(3).Depth(); got != 3 {
		t.Errorf("Depth() = %d, want 3", got)
	}
}

func TestScheduler_BoundsInFlight(t *testing.T) {
	tests := []struct {
		depth, jobs int
	}{
		{1, 10},
		{4, 3},
		{4, 40},
		{16, 100},
	}
	for _, tt := range tests {
		s := NewScheduler(tt.depth)
		issued, read := 0, 0
		var order []int

		for i := range tt.jobs {
			err := s.Submit(func() (ReadCommand, error) {
				if issued-read >= tt.depth {
					t.Fatalf("depth %d: issuing job %d with %d unread", tt.depth, i, issued-read)
				}
				issued++
				return func() {
					read++
					order = append(order, i)
				}, nil
			})
			if err != nil {
				t.Fatalf("Submit: %v", err)
			}
			if s.Pending() > tt.depth {
				t.Fatalf("Pending() = %d exceeds depth %d", s.Pending(), tt.depth)
			}
		}
		s.Flush()

		if read != tt.jobs {
			t.Errorf("depth %d: read %d of %d", tt.depth, read, tt.jobs)
		}
		if s.Pending() != 0 {
			t.Errorf("Pending() after Flush = %d", s.Pending())
		}
		if want := min(tt.depth, tt.jobs); s.MaxPending() != want {
			t.Errorf("depth %d jobs %d: MaxPending() = %d, want %d", tt.depth, tt.jobs, s.MaxPending(), want)
		}
		for i, v := range order {
			if v != i {
				t.Fatalf("depth %d: read order[%d] = %d, want %d", tt.depth, i, v, i)
			}
		}
	}
}

func TestScheduler_ReadsOldestFirst(t *testing.T) {
	s := NewScheduler(2)
	var log []string
	submit := func(name string) {
		_ = s.Submit(func() (ReadCommand, error) {
			log = append(log, "issue "+name)
			return func() { log = append(log, "read "+name) }, nil
		})
	}
	submit("a")
	submit("b")
	submit("c")
	s.Flush()

	want := []string{"issue a", "issue b", "read a", "issue c", "read b", "read c"}
	if len(log) != len(want) {
		t.Fatalf("log = %v, want %v", log, want)
	}
	for i := range want {
		if log[i] != want[i] {
			t.Fatalf("log = %v, want %v", log, want)
		}
	}
}

func TestScheduler_IssueError(t *testing.T) {
	s := NewScheduler(2)
	want := errors.New("device lost")

	if err := s.Submit(func() (ReadCommand, error) { return nil, want }); !errors.Is(err, want) {
		t.Fatalf("Submit error = %v, want %v", err, want)
	}
	if s.Pending() != 0 || s.Submitted() != 0 {
		t.Errorf("failed submission counted: pending %d submitted %d", s.Pending(), s.Submitted())
	}

	ran := false
	_ = s.Submit(func() (ReadCommand, error) { return func() { ran = true }, nil })
	s.Flush()
	if !ran {
		t.Error("read command after failed submission did not run")
	}
}

func TestScheduler_NilReadCommand(t *testing.T) {
	s := NewScheduler(2)
	for range 5 {
		_ = s.Submit(func() (ReadCommand, error) { return nil, nil })
	}
	if s.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", s.Pending())
	}
	if s.Submitted() != 5 {
		t.Errorf("Submitted() = %d, want 5", s.Submitted())
	}
}
