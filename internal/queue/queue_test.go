package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"entitystore/pkg/entity"
)

func form(id int) *entity.Form { return &entity.Form{Name: "f", ID: id} }

func TestSubmitRejectsWhenFull(t *testing.T) {
	q := New(2, 0)
	for i := 0; i < 2; i++ {
		if !q.Submit(Task{Kind: KindPersist, Entity: form(i)}) {
			t.Fatalf("submit %d should be accepted", i)
		}
	}
	if q.Submit(Task{Kind: KindPersist, Entity: form(2)}) {
		t.Fatalf("expected full queue to reject")
	}
	if q.Len() != 2 || q.Cap() != 2 {
		t.Fatalf("unexpected len/cap %d/%d", q.Len(), q.Cap())
	}
}

func TestSubmitWaitsForSpace(t *testing.T) {
	q := New(1, time.Second)
	q.Submit(Task{Kind: KindDelete, Entity: form(1)})
	go func() {
		time.Sleep(20 * time.Millisecond)
		q.Poll(context.Background(), time.Second)
	}()
	if !q.Submit(Task{Kind: KindDelete, Entity: form(2)}) {
		t.Fatalf("expected submit to succeed once space frees up")
	}

	short := New(1, 10*time.Millisecond)
	short.Submit(Task{Kind: KindDelete})
	start := time.Now()
	if short.Submit(Task{Kind: KindDelete}) {
		t.Fatalf("expected timeout rejection")
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("submit returned before its timeout")
	}
}

func TestPollPreservesOrder(t *testing.T) {
	q := New(0, 0)
	if q.Cap() != DefaultCapacity {
		t.Fatalf("expected default capacity, got %d", q.Cap())
	}
	for i := 0; i < 100; i++ {
		q.Submit(Task{Kind: KindPersist, Entity: form(i)})
	}
	for i := 0; i < 100; i++ {
		task, ok := q.Poll(context.Background(), time.Millisecond)
		if !ok {
			t.Fatalf("poll %d timed out", i)
		}
		if got := task.Entity.EntityID(); got != i {
			t.Fatalf("expected id %d, got %d", i, got)
		}
		if task.Enqueued.IsZero() {
			t.Fatalf("expected enqueue time to be stamped")
		}
	}
}

func TestPollTimesOutAndHonoursContext(t *testing.T) {
	q := New(1, 0)
	start := time.Now()
	if _, ok := q.Poll(context.Background(), 15*time.Millisecond); ok {
		t.Fatalf("expected empty poll to time out")
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Fatalf("poll returned before its timeout")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, ok := q.Poll(ctx, time.Hour); ok {
		t.Fatalf("expected canceled context to end poll")
	}
}

func TestDrainReturnsRemainingTasks(t *testing.T) {
	q := New(4, 0)
	q.Submit(Task{Kind: KindPersist, Entity: form(1)})
	q.Submit(Task{Kind: KindWrite, Destination: "x.xml"})
	drained := q.Drain()
	if len(drained) != 2 || drained[1].Kind != KindWrite {
		t.Fatalf("unexpected drain result: %+v", drained)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue after drain")
	}
}

func TestCompleteNeverBlocks(t *testing.T) {
	done := make(chan error, 1)
	task := Task{Kind: KindPersist, Done: done}
	task.Complete(errors.New("first"))
	task.Complete(errors.New("second"))
	if err := <-done; err == nil || err.Error() != "first" {
		t.Fatalf("expected first result, got %v", err)
	}
	Task{}.Complete(nil)
}

func TestConcurrentProducers(t *testing.T) {
	q := New(1000, 0)
	var wg sync.WaitGroup
	for p := 0; p < 10; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if !q.Submit(Task{Kind: KindPersist, Entity: form(p*100 + i)}) {
					t.Errorf("unexpected rejection")
				}
			}
		}(p)
	}
	wg.Wait()
	if q.Len() != 1000 {
		t.Fatalf("expected 1000 queued tasks, got %d", q.Len())
	}
}

func TestKindString(t *testing.T) {
	for kind, want := range map[Kind]string{KindPersist: "persist", KindDelete: "delete", KindWrite: "write", KindRename: "rename", Kind(0): "unknown"} {
		if kind.String() != want {
			t.Fatalf("kind %d: expected %s, got %s", int(kind), want, kind.String())
		}
	}
}
