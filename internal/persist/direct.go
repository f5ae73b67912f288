package persist

import (
	"context"
	"errors"
	"fmt"
	"io"

	"entitystore/internal/blob"
	"entitystore/internal/codec"
	"entitystore/pkg/entity"
)

// Load returns the stored entity with the given id. It reads the backing
// store directly and does not wait for queued mutations of the same id.
// found is false when the id is not indexed.
func (s *Service) Load(ctx context.Context, id int) (e entity.Entity, found bool, err error) {
	idx := s.index.Load()
	if idx == nil {
		return nil, false, ErrNotRunning
	}
	c := s.codec.Load()
	if c == nil {
		return nil, false, ErrNotRunning
	}
	key, ok := idx.Get(id)
	if !ok {
		return nil, false, nil
	}
	e, err = s.loadEntity(ctx, c, key)
	if errors.Is(err, blob.ErrNotFound) {
		// removed between the index lookup and the read
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// LoadKey decodes the entity stored at key, relative to the configured prefix.
func (s *Service) LoadKey(ctx context.Context, key string) (entity.Entity, error) {
	c := s.codec.Load()
	if c == nil {
		return nil, ErrNotRunning
	}
	return s.loadEntity(ctx, c, s.opts.prefix+key)
}

// LoadAll loads every indexed entity in id order. Entities that fail to load
// are left out and their errors joined into the returned error.
func (s *Service) LoadAll(ctx context.Context) ([]entity.Entity, error) {
	idx, c := s.index.Load(), s.codec.Load()
	if idx == nil || c == nil {
		return nil, ErrNotRunning
	}
	var (
		out  []entity.Entity
		errs []error
	)
	for _, id := range idx.IDs() {
		key, ok := idx.Get(id)
		if !ok {
			continue
		}
		e, err := s.loadEntity(ctx, c, key)
		if errors.Is(err, blob.ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("load id %d: %w", id, err))
			continue
		}
		out = append(out, e)
	}
	return out, errors.Join(errs...)
}

// Read decodes the record stored at destination, relative to the configured
// prefix, whatever registered type it holds.
func (s *Service) Read(ctx context.Context, destination string) (any, error) {
	c := s.codec.Load()
	if c == nil {
		return nil, ErrNotRunning
	}
	v, err := s.decode(ctx, c, s.opts.prefix+destination)
	s.opts.metrics.DirectRead(err)
	return v, err
}

// FindAll is not supported and always fails.
func (s *Service) FindAll(destination, pattern string) ([]entity.Entry, error) {
	return nil, &UnsupportedOperationError{Op: "find all"}
}

// Replace is not supported and always fails.
func (s *Service) Replace(destination, pattern, value string) error {
	return &UnsupportedOperationError{Op: "replace"}
}

// ReaderType names the format Read understands.
func (s *Service) ReaderType() string { return s.opts.format.Name() }

// WriterType names the format Write produces.
func (s *Service) WriterType() string { return s.opts.format.Name() }

// IDs returns the indexed entity ids in ascending order.
func (s *Service) IDs() []int {
	idx := s.index.Load()
	if idx == nil {
		return nil
	}
	return idx.IDs()
}

// Locate returns the full storage key currently indexed for id.
func (s *Service) Locate(id int) (string, bool) {
	idx := s.index.Load()
	if idx == nil {
		return "", false
	}
	return idx.Get(id)
}

func (s *Service) loadEntity(ctx context.Context, c *codec.Context, key string) (entity.Entity, error) {
	v, err := s.decode(ctx, c, key)
	s.opts.metrics.DirectRead(err)
	if err != nil {
		return nil, err
	}
	e, ok := v.(entity.Entity)
	if !ok {
		return nil, fmt.Errorf("record at %s holds %T, which is not an entity", key, v)
	}
	return e, nil
}

func (s *Service) decode(ctx context.Context, c *codec.Context, key string) (any, error) {
	_, rc, err := s.store.Get(ctx, key)
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, &StorageError{Op: "get", Key: key, Err: err}
	}
	return c.Decode(b, "")
}
