package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"entitystore/internal/blob"
	"entitystore/internal/queue"
	"entitystore/pkg/entity"
)

// run is the worker loop. It is the only writer of the index and the backing
// store. Cancelling ctx stops it once the task in hand is complete.
func (s *Service) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)
	// tasks in hand always run to completion
	taskCtx := context.WithoutCancel(ctx)
	for {
		if ctx.Err() != nil {
			s.abandon()
			s.retire()
			return
		}
		t, ok := s.queue.Poll(ctx, s.opts.pollInterval)
		if !ok {
			continue
		}
		s.process(taskCtx, t)
	}
}

func (s *Service) abandon() {
	pending := s.queue.Drain()
	for _, t := range pending {
		t.Complete(ErrAbandoned)
	}
	s.opts.metrics.Abandoned(len(pending))
	s.opts.metrics.SetQueueDepth(s.queue.Len())
	if len(pending) > 0 {
		s.opts.logger.Warn("abandoned queued tasks at shutdown", "count", len(pending))
	}
}

// retire discards the index and codec so direct reads stop serving a view
// nothing keeps current.
func (s *Service) retire() {
	s.index.Store(nil)
	s.codec.Store(nil)
	s.opts.metrics.SetIndexSize(0)
}

func (s *Service) process(ctx context.Context, t queue.Task) {
	kind := t.Kind.String()
	start := time.Now()
	err := s.apply(ctx, t)
	s.opts.metrics.ObserveTask(kind, start, err)
	s.opts.metrics.SetQueueDepth(s.queue.Len())
	if idx := s.index.Load(); idx != nil {
		s.opts.metrics.SetIndexSize(idx.Len())
	}
	if err != nil {
		s.opts.logger.Error("persistence task failed", "kind", kind, "error", err)
	} else {
		s.opts.logger.Debug("persistence task done", "kind", kind, "queued_for", start.Sub(t.Enqueued).String())
	}
	t.Complete(err)
}

func (s *Service) apply(ctx context.Context, t queue.Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s task panicked: %v", t.Kind, r)
		}
	}()
	switch t.Kind {
	case queue.KindPersist:
		return s.persist(ctx, t.Entity)
	case queue.KindDelete:
		return s.delete(ctx, t.Entity)
	case queue.KindWrite:
		return s.write(ctx, t.Payload, s.opts.prefix+t.Destination)
	case queue.KindRename:
		return s.rename(ctx, t.Entity, t.NewName)
	default:
		return fmt.Errorf("unknown task kind %d", int(t.Kind))
	}
}

func (s *Service) persist(ctx context.Context, e entity.Entity) error {
	id := e.EntityID()
	key := s.keyFor(e.EntityName(), id)
	if err := s.write(ctx, e, key); err != nil {
		return err
	}
	idx := s.index.Load()
	previous, replaced := idx.Put(id, key)
	if replaced && previous != key {
		// the entity was stored under another name before
		if _, err := s.store.Delete(ctx, previous); err != nil {
			return &StorageError{Op: "delete", Key: previous, Err: err}
		}
	}
	return nil
}

func (s *Service) delete(ctx context.Context, e entity.Entity) error {
	id := e.EntityID()
	idx := s.index.Load()
	key, ok := idx.Get(id)
	if !ok {
		key = s.keyFor(e.EntityName(), id)
	}
	if _, err := s.store.Delete(ctx, key); err != nil {
		return &StorageError{Op: "delete", Key: key, Err: err}
	}
	idx.Remove(id)
	return nil
}

func (s *Service) write(ctx context.Context, v any, key string) error {
	c := s.codec.Load()
	b, err := c.Encode(v)
	if err != nil {
		return err
	}
	opts := blob.PutOptions{ContentType: c.Format().ContentType()}
	if name, ok := c.TypeName(v); ok {
		opts.Metadata = map[string]string{"type": name}
	}
	if _, err := s.store.Put(ctx, key, bytes.NewReader(b), opts); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	return nil
}

func (s *Service) rename(ctx context.Context, e entity.Entity, newName string) error {
	id := e.EntityID()
	idx := s.index.Load()
	oldKey, ok := idx.Get(id)
	if !ok {
		s.opts.logger.Debug("rename of unstored entity ignored", "id", id)
		return nil
	}
	newKey := s.keyFor(newName, id)
	if newKey == oldKey {
		return nil
	}
	info, rc, err := s.store.Get(ctx, oldKey)
	if err != nil {
		return &StorageError{Op: "get", Key: oldKey, Err: err}
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return &StorageError{Op: "get", Key: oldKey, Err: err}
	}
	opts := blob.PutOptions{ContentType: info.ContentType, Metadata: info.Metadata}
	if _, err := s.store.Put(ctx, newKey, bytes.NewReader(body), opts); err != nil {
		return &StorageError{Op: "put", Key: newKey, Err: err}
	}
	idx.Put(id, newKey)
	if _, err := s.store.Delete(ctx, oldKey); err != nil {
		return &StorageError{Op: "delete", Key: oldKey, Err: err}
	}
	return nil
}
