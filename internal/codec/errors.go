package codec

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration is matched by every error that must abort start-up.
	ErrConfiguration = errors.New("codec: configuration error")
	// ErrRegistrySealed is returned when types are registered after the codec was built.
	ErrRegistrySealed = errors.New("codec: type registry sealed")
	// ErrUnknownType is returned when a value or record names an unregistered type.
	ErrUnknownType = errors.New("codec: type not registered")
)

// ConfigError reports a registration made at the wrong time or with bad input.
type ConfigError struct {
	Op  string
	Err error
}

func (e *ConfigError) Error() string { return fmt.Sprintf("codec: %s: %v", e.Op, e.Err) }

func (e *ConfigError) Unwrap() error { return e.Err }

// Is lets callers match any configuration failure with ErrConfiguration.
func (e *ConfigError) Is(target error) bool { return target == ErrConfiguration }

// SchemaError lists every problem found while building a Context.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "codec: invalid schema: " + strings.Join(e.Problems, "; ")
}

// Is lets callers match schema failures with ErrConfiguration.
func (e *SchemaError) Is(target error) bool { return target == ErrConfiguration }

// EncodeError reports a value that could not be serialized.
type EncodeError struct {
	Type string
	Err  error
}

func (e *EncodeError) Error() string { return fmt.Sprintf("codec: encode %s: %v", e.Type, e.Err) }

func (e *EncodeError) Unwrap() error { return e.Err }

// DecodeError reports bytes that could not be turned back into a registered type.
type DecodeError struct {
	Expected string
	Found    string
	Err      error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Expected != "" && e.Found != "" && e.Expected != e.Found:
		return fmt.Sprintf("codec: decode: expected %s, found %s: %v", e.Expected, e.Found, e.Err)
	case e.Found != "":
		return fmt.Sprintf("codec: decode %s: %v", e.Found, e.Err)
	default:
		return fmt.Sprintf("codec: decode: %v", e.Err)
	}
}

func (e *DecodeError) Unwrap() error { return e.Err }
