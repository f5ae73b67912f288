// Package codec turns registered Go types into self-describing stored records.
//
// Types are accumulated in a Registry during configuration. Build seals the
// registry and produces an immutable Context that encodes and decodes those
// types in the selected Format.
package codec

import (
	"fmt"
	"reflect"
	"sort"

	"entitystore/pkg/entity"
)

// implicit types are always available, whether or not anything registers them.
var implicit = []Descriptor{
	For[entity.Form]("Form"),
}

// Context is the immutable serializer table produced by Build. It is safe for
// concurrent use.
type Context struct {
	format Format
	byName map[string]Descriptor
	byType map[reflect.Type]string
	names  []string
}

// Build seals reg and validates every registered descriptor plus the
// implicit types. All problems are collected into a single *SchemaError.
func Build(reg *Registry, format Format) (*Context, error) {
	if reg == nil {
		reg = NewRegistry()
	}
	if format == nil {
		format = XML
	}
	descs := append(append([]Descriptor(nil), implicit...), reg.seal()...)

	c := &Context{
		format: format,
		byName: make(map[string]Descriptor, len(descs)),
		byType: make(map[reflect.Type]string, len(descs)),
	}
	var problems []string
	for _, d := range descs {
		if err := c.add(d); err != nil {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return nil, &SchemaError{Problems: problems}
	}
	sort.Strings(c.names)
	return c, nil
}

func (c *Context) add(d Descriptor) error {
	if d.Name == "" {
		return fmt.Errorf("descriptor with empty name")
	}
	if d.New == nil {
		return fmt.Errorf("%s: constructor is nil", d.Name)
	}
	sample := d.New()
	rv := reflect.ValueOf(sample)
	if !rv.IsValid() || rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%s: constructor must return a non-nil pointer, got %T", d.Name, sample)
	}
	typ := rv.Type()
	if prev, ok := c.byName[d.Name]; ok {
		if reflect.TypeOf(prev.New()) == typ {
			// same type registered again under the same name
			return nil
		}
		return fmt.Errorf("%s: name already registered for %T", d.Name, prev.New())
	}
	if other, ok := c.byType[typ]; ok {
		return fmt.Errorf("%s: type %s already registered as %s", d.Name, typ, other)
	}
	if _, err := c.format.wrap(d.Name, sample); err != nil {
		return fmt.Errorf("%s: not encodable as %s: %v", d.Name, c.format.Name(), err)
	}
	c.byName[d.Name] = d
	c.byType[typ] = d.Name
	c.names = append(c.names, d.Name)
	return nil
}

// Format returns the wire format the context was built for.
func (c *Context) Format() Format { return c.format }

// Types returns the registered type names in sorted order.
func (c *Context) Types() []string {
	return append([]string(nil), c.names...)
}

// TypeName returns the registered name for v. Both the registered pointer
// type and its element type are accepted.
func (c *Context) TypeName(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	t := reflect.TypeOf(v)
	if name, ok := c.byType[t]; ok {
		return name, true
	}
	if t.Kind() != reflect.Pointer {
		name, ok := c.byType[reflect.PointerTo(t)]
		return name, ok
	}
	return "", false
}

// Encode serializes v inside a typed envelope.
func (c *Context) Encode(v any) ([]byte, error) {
	name, ok := c.TypeName(v)
	if !ok {
		return nil, &EncodeError{Type: fmt.Sprintf("%T", v), Err: ErrUnknownType}
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, &EncodeError{Type: name, Err: fmt.Errorf("nil value")}
	}
	b, err := c.format.wrap(name, v)
	if err != nil {
		return nil, &EncodeError{Type: name, Err: err}
	}
	return b, nil
}

// Decode reads a record produced by Encode and returns a freshly constructed
// pointer to the registered type. When expected is non-empty the record must
// carry that type name.
func (c *Context) Decode(b []byte, expected string) (any, error) {
	name, body, err := c.format.unwrap(b)
	if err != nil {
		return nil, &DecodeError{Expected: expected, Err: err}
	}
	if expected != "" && name != expected {
		return nil, &DecodeError{Expected: expected, Found: name, Err: fmt.Errorf("type mismatch")}
	}
	d, ok := c.byName[name]
	if !ok {
		return nil, &DecodeError{Expected: expected, Found: name, Err: ErrUnknownType}
	}
	v := d.New()
	if err := c.format.unmarshal(body, v); err != nil {
		return nil, &DecodeError{Expected: expected, Found: name, Err: err}
	}
	return v, nil
}
