// Package entity defines the contract persisted records satisfy and the
// generic Form payload that every codec understands without registration.
package entity

import (
	"fmt"
	"reflect"
)

// Entity is a named, identified record the persistence service can store.
// Only the name and id are interpreted: together they determine the storage
// key. Ids must be non-negative.
type Entity interface {
	EntityName() string
	EntityID() int
}

// Entry is a single named value inside a Form.
type Entry struct {
	Name        string `xml:"name,attr" json:"name" yaml:"name"`
	Value       string `xml:"value,attr" json:"value" yaml:"value"`
	Description string `xml:"description,omitempty" json:"description,omitempty" yaml:"description,omitempty"`
}

// Form is a flat, self-describing document. It is always registered with
// the codec and is the payload shape used by the direct read/write surface.
type Form struct {
	Name        string  `xml:"name,attr" json:"name" yaml:"name"`
	ID          int     `xml:"id,attr" json:"id" yaml:"id"`
	Description string  `xml:"description,omitempty" json:"description,omitempty" yaml:"description,omitempty"`
	Entries     []Entry `xml:"entry" json:"entries,omitempty" yaml:"entries,omitempty"`
}

// EntityName implements Entity.
func (f *Form) EntityName() string { return f.Name }

// EntityID implements Entity.
func (f *Form) EntityID() int { return f.ID }

// Lookup returns the value of the first entry with the given name.
func (f *Form) Lookup(name string) (string, bool) {
	for _, e := range f.Entries {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// Validate reports whether e can be submitted for persistence.
func Validate(e Entity) error {
	if e == nil {
		return fmt.Errorf("entity is nil")
	}
	if v := reflect.ValueOf(e); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Errorf("entity is a nil %T", e)
	}
	if e.EntityID() < 0 {
		return fmt.Errorf("entity %q has negative id %d", e.EntityName(), e.EntityID())
	}
	return nil
}
