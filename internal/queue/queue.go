// Package queue provides the bounded FIFO that hands mutation tasks from
// producers to the single persistence worker.
package queue

import (
	"context"
	"time"

	"entitystore/pkg/entity"
)

// DefaultCapacity bounds the queue when no capacity is configured.
const DefaultCapacity = 1024

// Kind tags the operation a Task carries.
type Kind int

const (
	KindPersist Kind = iota + 1
	KindDelete
	KindWrite
	KindRename
)

func (k Kind) String() string {
	switch k {
	case KindPersist:
		return "persist"
	case KindDelete:
		return "delete"
	case KindWrite:
		return "write"
	case KindRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Task is one unit of work for the worker. Persist, Delete and Rename carry
// Entity; Write carries Payload and Destination; Rename also carries NewName.
// When Done is non-nil the worker sends exactly one result on it, so it must
// be buffered.
type Task struct {
	Kind        Kind
	Entity      entity.Entity
	Payload     any
	Destination string
	NewName     string
	Done        chan<- error
	Enqueued    time.Time
}

// Complete reports the task outcome to a waiting submitter, if any.
func (t Task) Complete(err error) {
	if t.Done == nil {
		return
	}
	select {
	case t.Done <- err:
	default:
	}
}

// Queue is a bounded, multi-producer, single-consumer FIFO.
type Queue struct {
	ch            chan Task
	submitTimeout time.Duration
}

// New returns a queue holding at most capacity tasks. A non-positive
// capacity selects DefaultCapacity. Submit blocks for at most submitTimeout
// when the queue is full; zero makes it fail immediately.
func New(capacity int, submitTimeout time.Duration) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if submitTimeout < 0 {
		submitTimeout = 0
	}
	return &Queue{ch: make(chan Task, capacity), submitTimeout: submitTimeout}
}

// Submit enqueues t and reports whether it was accepted. Accepted tasks are
// never dropped by the queue.
func (q *Queue) Submit(t Task) bool {
	if t.Enqueued.IsZero() {
		t.Enqueued = time.Now()
	}
	select {
	case q.ch <- t:
		return true
	default:
	}
	if q.submitTimeout == 0 {
		return false
	}
	timer := time.NewTimer(q.submitTimeout)
	defer timer.Stop()
	select {
	case q.ch <- t:
		return true
	case <-timer.C:
		return false
	}
}

// Poll waits up to timeout for the next task. It returns false on timeout
// or when ctx is done.
func (q *Queue) Poll(ctx context.Context, timeout time.Duration) (Task, bool) {
	select {
	case t := <-q.ch:
		return t, true
	default:
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case t := <-q.ch:
		return t, true
	case <-timer.C:
		return Task{}, false
	case <-ctx.Done():
		return Task{}, false
	}
}

// Drain removes and returns every task currently queued, oldest first.
func (q *Queue) Drain() []Task {
	var out []Task
	for {
		select {
		case t := <-q.ch:
			out = append(out, t)
		default:
			return out
		}
	}
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue) Cap() int { return cap(q.ch) }
