package codec

import (
	"fmt"
	"reflect"
	"sync"
)

// Descriptor names a concrete type and tells the codec how to construct an
// empty instance of it. New must return a non-nil pointer.
type Descriptor struct {
	Name string
	New  func() any
}

// For describes T under name, or under T's own type name when name is empty.
func For[T any](name string) Descriptor {
	if name == "" {
		name = reflect.TypeFor[T]().Name()
	}
	return Descriptor{Name: name, New: func() any { return new(T) }}
}

// Provider contributes a batch of descriptors, typically one per module of
// persistable types.
type Provider interface {
	ProviderName() string
	Descriptors() []Descriptor
}

// Registry accumulates descriptors before the codec is built. It is
// append-only and becomes read-only once Build seals it.
type Registry struct {
	mu        sync.Mutex
	descs     []Descriptor
	providers []string
	sealed    bool
}

// NewRegistry constructs an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a descriptor. Registering after Build is a configuration error.
func (r *Registry) Register(d Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return &ConfigError{Op: fmt.Sprintf("register %q", d.Name), Err: ErrRegistrySealed}
	}
	r.descs = append(r.descs, d)
	return nil
}

// RegisterProvider registers every descriptor contributed by p, in order.
func (r *Registry) RegisterProvider(p Provider) error {
	if p == nil {
		return &ConfigError{Op: "register provider", Err: fmt.Errorf("provider cannot be nil")}
	}
	descs := p.Descriptors()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sealed {
		return &ConfigError{Op: fmt.Sprintf("register provider %q", p.ProviderName()), Err: ErrRegistrySealed}
	}
	r.descs = append(r.descs, descs...)
	r.providers = append(r.providers, p.ProviderName())
	return nil
}

// Descriptors returns a copy of the registered descriptors in registration order.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Descriptor(nil), r.descs...)
}

// Providers returns the names of registered providers in registration order.
func (r *Registry) Providers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.providers...)
}

// Sealed reports whether the registry has been consumed by Build.
func (r *Registry) Sealed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sealed
}

func (r *Registry) seal() []Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
	return append([]Descriptor(nil), r.descs...)
}
