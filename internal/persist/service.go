// Package persist implements the asynchronous entity persistence service.
//
// Mutations are queued and applied by a single worker goroutine in
// submission order. Loads and reads run synchronously on the caller and do
// not wait for queued work, so a Load issued right after Persist may still
// observe the previous stored state.
package persist

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"entitystore/internal/blob"
	"entitystore/internal/codec"
	"entitystore/internal/index"
	"entitystore/internal/metrics"
	"entitystore/internal/queue"
	"entitystore/pkg/entity"
)

// Defaults applied when the corresponding option is not set.
const (
	DefaultPollInterval     = 2 * time.Second
	DefaultStopPollInterval = time.Second
	DefaultStopTimeout      = 60 * time.Second
	DefaultQueueCapacity    = queue.DefaultCapacity
)

// State is the lifecycle state of a Service.
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "running"
	}
	return "stopped"
}

// Option configures a Service.
type Option func(*options)

type options struct {
	logger           Logger
	metrics          *metrics.Metrics
	format           codec.Format
	prefix           string
	queueCapacity    int
	submitTimeout    time.Duration
	pollInterval     time.Duration
	stopPollInterval time.Duration
}

// WithLogger overrides the default no-op logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records queue and worker activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithFormat selects the wire format of stored records. XML is the default.
func WithFormat(f codec.Format) Option {
	return func(o *options) {
		if f != nil {
			o.format = f
		}
	}
}

// WithPrefix places every key under prefix, e.g. "tenant-a/".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithQueueCapacity bounds the number of pending tasks.
func WithQueueCapacity(n int) Option {
	return func(o *options) { o.queueCapacity = n }
}

// WithSubmitTimeout lets submissions wait up to d for queue space instead of
// failing immediately.
func WithSubmitTimeout(d time.Duration) Option {
	return func(o *options) { o.submitTimeout = d }
}

// WithPollInterval sets how long the idle worker waits for a task before
// re-checking the stop signal.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithStopPollInterval sets how often Stop logs while waiting for the worker.
func WithStopPollInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.stopPollInterval = d
		}
	}
}

// Service accepts persistence requests and applies them in order on a single
// worker goroutine.
type Service struct {
	store    blob.Store
	registry *codec.Registry
	queue    *queue.Queue
	opts     options

	// lifecycle transitions
	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	done    chan struct{}

	// gate orders submissions against the stop signal. submit holds it
	// shared across the running check and the enqueue.
	gate sync.RWMutex

	codec atomic.Pointer[codec.Context]
	index atomic.Pointer[index.Index]
}

// New constructs a stopped service backed by store.
func New(store blob.Store, opts ...Option) *Service {
	o := options{
		logger:           noopLogger{},
		format:           codec.XML,
		pollInterval:     DefaultPollInterval,
		stopPollInterval: DefaultStopPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Service{
		store:    store,
		registry: codec.NewRegistry(),
		queue:    queue.New(o.queueCapacity, o.submitTimeout),
		opts:     o,
	}
}

// Register adds a persistable type. It must be called before Start.
func (s *Service) Register(d codec.Descriptor) error {
	return s.registry.Register(d)
}

// RegisterProvider adds every type contributed by p. It must be called before Start.
func (s *Service) RegisterProvider(p codec.Provider) error {
	return s.registry.RegisterProvider(p)
}

// State reports whether the worker is accepting work.
func (s *Service) State() State {
	if s.running.Load() {
		return StateRunning
	}
	return StateStopped
}

// Start builds the codec, rebuilds the storage index from the backing store
// and launches the worker. A schema problem in the registered types is
// returned as *codec.SchemaError and leaves the service stopped.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrAlreadyStarted
	}
	if s.done != nil {
		select {
		case <-s.done:
		default:
			return fmt.Errorf("%w: previous worker has not exited", ErrAlreadyStarted)
		}
	}

	c, err := codec.Build(s.registry, s.opts.format)
	if err != nil {
		s.opts.logger.Error("entity codec rejected registered types", "error", err)
		return err
	}
	idx, stats, err := index.Rebuild(ctx, s.store, s.opts.prefix, c.Format().Extension())
	if err != nil {
		return &StorageError{Op: "scan", Key: s.opts.prefix, Err: err}
	}
	for _, key := range stats.Duplicates {
		s.opts.logger.Warn("duplicate entity id in store, key ignored", "key", key)
	}
	s.codec.Store(c)
	s.index.Store(idx)
	s.opts.metrics.SetIndexSize(idx.Len())

	workerCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.gate.Lock()
	s.running.Store(true)
	s.gate.Unlock()
	go s.run(workerCtx, s.done)

	s.opts.logger.Info("entity service started",
		"driver", string(s.store.Driver()),
		"format", c.Format().Name(),
		"types", len(c.Types()),
		"entities", stats.Matched,
		"ignored", stats.Skipped,
	)
	return nil
}

// Stop signals the worker and waits up to maxWait for it to exit. The task in
// hand is allowed to finish; tasks still queued are abandoned and their
// waiters receive ErrAbandoned. When the worker outlives maxWait, Stop returns
// ErrStopTimeout and leaves it to finish on its own. Stop is idempotent.
func (s *Service) Stop(maxWait time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		return nil
	}
	s.gate.Lock()
	if s.running.Swap(false) {
		s.cancel()
		s.opts.logger.Info("entity service stopping", "pending", s.queue.Len())
	}
	s.gate.Unlock()

	deadline := time.NewTimer(maxWait)
	defer deadline.Stop()
	tick := time.NewTicker(s.opts.stopPollInterval)
	defer tick.Stop()
	started := time.Now()
	for {
		select {
		case <-s.done:
			s.opts.logger.Info("entity service stopped", "waited", time.Since(started).String())
			return nil
		case <-tick.C:
			s.opts.logger.Info("waiting for entity worker to exit", "waited", time.Since(started).String())
		case <-deadline.C:
			s.opts.logger.Warn("entity worker did not exit in time", "max_wait", maxWait.String())
			return ErrStopTimeout
		}
	}
}

// Persist queues e to be written under its derived key, replacing any stored
// version. It reports whether the request was accepted.
func (s *Service) Persist(e entity.Entity) bool {
	return s.submit(queue.Task{Kind: queue.KindPersist, Entity: e}) == nil
}

// Update is Persist.
func (s *Service) Update(e entity.Entity) bool {
	return s.Persist(e)
}

// Delete queues removal of the stored version of e. Deleting an entity that
// was never stored succeeds without effect.
func (s *Service) Delete(e entity.Entity) bool {
	return s.submit(queue.Task{Kind: queue.KindDelete, Entity: e}) == nil
}

// Rename queues a move of the stored version of e to the key derived from
// newName. The stored record itself is not rewritten.
func (s *Service) Rename(e entity.Entity, newName string) bool {
	return s.submit(queue.Task{Kind: queue.KindRename, Entity: e, NewName: newName}) == nil
}

// Write queues payload, which must be of a registered type, to be stored at
// destination. The index is not touched.
func (s *Service) Write(payload any, destination string) bool {
	return s.submit(queue.Task{Kind: queue.KindWrite, Payload: payload, Destination: destination}) == nil
}

// PersistAndWait is Persist followed by waiting for the worker's result.
func (s *Service) PersistAndWait(ctx context.Context, e entity.Entity) error {
	return s.submitAndWait(ctx, queue.Task{Kind: queue.KindPersist, Entity: e})
}

// DeleteAndWait is Delete followed by waiting for the worker's result.
func (s *Service) DeleteAndWait(ctx context.Context, e entity.Entity) error {
	return s.submitAndWait(ctx, queue.Task{Kind: queue.KindDelete, Entity: e})
}

// RenameAndWait is Rename followed by waiting for the worker's result.
func (s *Service) RenameAndWait(ctx context.Context, e entity.Entity, newName string) error {
	return s.submitAndWait(ctx, queue.Task{Kind: queue.KindRename, Entity: e, NewName: newName})
}

// WriteAndWait is Write followed by waiting for the worker's result.
func (s *Service) WriteAndWait(ctx context.Context, payload any, destination string) error {
	return s.submitAndWait(ctx, queue.Task{Kind: queue.KindWrite, Payload: payload, Destination: destination})
}

func (s *Service) submitAndWait(ctx context.Context, t queue.Task) error {
	done := make(chan error, 1)
	t.Done = done
	if err := s.submit(t); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) submit(t queue.Task) error {
	kind := t.Kind.String()
	if err := validate(t); err != nil {
		s.opts.logger.Warn("invalid submission", "kind", kind, "error", err)
		s.opts.metrics.Rejected(kind)
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	s.gate.RLock()
	if !s.running.Load() {
		s.gate.RUnlock()
		s.opts.logger.Warn("submission while stopped", "kind", kind)
		s.opts.metrics.Rejected(kind)
		return ErrNotRunning
	}
	accepted := s.queue.Submit(t)
	s.gate.RUnlock()
	if !accepted {
		s.opts.logger.Warn("task queue full, submission rejected", "kind", kind, "capacity", s.queue.Cap())
		s.opts.metrics.Rejected(kind)
		return ErrRejected
	}
	s.opts.metrics.Submitted(kind)
	s.opts.metrics.SetQueueDepth(s.queue.Len())
	return nil
}

func validate(t queue.Task) error {
	switch t.Kind {
	case queue.KindPersist, queue.KindDelete, queue.KindRename:
		return entity.Validate(t.Entity)
	case queue.KindWrite:
		if t.Payload == nil {
			return errors.New("payload is nil")
		}
		if t.Destination == "" {
			return errors.New("destination is empty")
		}
		return nil
	default:
		return fmt.Errorf("unknown task kind %d", int(t.Kind))
	}
}

// keyFor returns the full storage key of the entity (name, id).
func (s *Service) keyFor(name string, id int) string {
	return s.opts.prefix + index.Key(name, id, s.opts.format.Extension())
}
