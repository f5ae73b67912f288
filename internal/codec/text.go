package codec

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

// textRules describes which strings a format stores without alteration.
// Both encoders silently substitute U+FFFD for text they cannot carry, so
// such values are refused before marshaling.
type textRules struct {
	tag         string
	bytesAsText bool
	allowed     func(r rune) bool
}

var (
	xmlText  = textRules{tag: "xml", bytesAsText: true, allowed: isXMLChar}
	jsonText = textRules{tag: "json"}
)

// isXMLChar reports whether r is in the XML 1.0 Char production.
func isXMLChar(r rune) bool {
	return r == 0x09 ||
		r == 0x0A ||
		r == 0x0D ||
		r >= 0x20 && r <= 0xD7FF ||
		r >= 0xE000 && r <= 0xFFFD ||
		r >= 0x10000 && r <= 0x10FFFF
}

func (tr textRules) check(v any) error {
	return tr.walk(reflect.ValueOf(v), "", make(map[uintptr]struct{}))
}

func (tr textRules) walk(v reflect.Value, path string, seen map[uintptr]struct{}) error {
	switch v.Kind() {
	case reflect.Invalid:
		return nil
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return tr.walk(v.Elem(), path, seen)
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		if _, ok := seen[v.Pointer()]; ok {
			return nil
		}
		seen[v.Pointer()] = struct{}{}
		return tr.walk(v.Elem(), path, seen)
	case reflect.String:
		return tr.text(v.String(), path)
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			if !tr.bytesAsText || v.Kind() == reflect.Array {
				return nil
			}
			return tr.text(string(v.Bytes()), path)
		}
		for i := 0; i < v.Len(); i++ {
			if err := tr.walk(v.Index(i), fmt.Sprintf("%s[%d]", path, i), seen); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			elem := fmt.Sprintf("%s[%v]", path, iter.Key())
			if err := tr.walk(iter.Key(), elem, seen); err != nil {
				return err
			}
			if err := tr.walk(iter.Value(), elem, seen); err != nil {
				return err
			}
		}
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if !f.IsExported() || f.Tag.Get(tr.tag) == "-" {
				continue
			}
			name := f.Name
			if path != "" {
				name = path + "." + f.Name
			}
			if err := tr.walk(v.Field(i), name, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

func (tr textRules) text(s, path string) error {
	if path == "" {
		path = "value"
	}
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return fmt.Errorf("%s: invalid UTF-8 at byte %d", path, i)
		}
		if tr.allowed != nil && !tr.allowed(r) {
			return fmt.Errorf("%s: character %U cannot be stored as %s", path, r, strings.ToUpper(tr.tag))
		}
		i += size
	}
	return nil
}
