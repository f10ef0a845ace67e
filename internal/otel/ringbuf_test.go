package otel

import (
	"sync"
	"testing"
)

func TestPushAndSnapshot(t *testing.T) {
	r := NewRingBuffer(8)
	for i := 0; i < 5; i++ {
		r.Push(Event{Kind: KindFetchStart, Count: i})
	}

	snap := r.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("expected 5 events, got %d", len(snap))
	}
	for i, e := range snap {
		if e.Count != i {
			t.Errorf("snap[%d].Count=%d, want %d", i, e.Count, i)
		}
	}
}

func TestWrapAround(t *testing.T) {
	r := NewRingBuffer(4)
	for i := 0; i < 10; i++ {
		r.Push(Event{Kind: KindStageEnter, Count: i})
	}

	snap := r.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("expected 4 events, got %d", len(snap))
	}
	for i, e := range snap {
		if want := i + 6; e.Count != want {
			t.Errorf("snap[%d].Count=%d, want %d", i, e.Count, want)
		}
	}
}

func TestLast(t *testing.T) {
	r := NewRingBuffer(8)
	for i := 0; i < 8; i++ {
		r.Push(Event{Kind: KindFetchStart, Count: i})
	}

	last3 := r.Last(3)
	if len(last3) != 3 {
		t.Fatalf("expected 3, got %d", len(last3))
	}
	for i, e := range last3 {
		if want := i + 5; e.Count != want {
			t.Errorf("last3[%d].Count=%d, want %d", i, e.Count, want)
		}
	}

	if got := r.Last(0); got != nil {
		t.Errorf("Last(0) = %v, want nil", got)
	}
	if got := r.Last(100); len(got) != 8 {
		t.Errorf("Last(100) returned %d, want 8", len(got))
	}
	if got := NewRingBuffer(4).Last(2); got != nil {
		t.Errorf("empty Last = %v, want nil", got)
	}
}

func TestForRunAndStats(t *testing.T) {
	r := NewRingBuffer(16)
	r.Push(Event{Kind: KindStageEnter, RunID: "a"})
	r.Push(Event{Kind: KindStageEnter, RunID: "b"})
	r.Push(Event{Kind: KindRunComplete, RunID: "a"})

	if got := r.ForRun("a"); len(got) != 2 {
		t.Errorf("ForRun(a) = %d events, want 2", len(got))
	}

	stats := r.Stats()
	if stats[KindStageEnter] != 2 || stats[KindRunComplete] != 1 {
		t.Errorf("Stats = %v", stats)
	}
}

func TestPushCopiesExtra(t *testing.T) {
	r := NewRingBuffer(2)
	extra := map[string]any{"k": 1}
	r.Push(Event{Kind: KindCacheHit, Extra: extra})
	extra["k"] = 2

	if got := r.Snapshot()[0].Extra["k"]; got != 1 {
		t.Errorf("Extra aliased: got %v, want 1", got)
	}
}

func TestConcurrentPush(t *testing.T) {
	r := NewRingBuffer(64)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Push(Event{Kind: KindStageEnter})
				_ = r.Last(5)
			}
		}()
	}
	wg.Wait()

	if r.Len() != 64 {
		t.Errorf("Len = %d, want 64", r.Len())
	}
}
