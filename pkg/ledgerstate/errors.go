package ledgerstate

import "fmt"

// ValidationError is returned when an entity or key is constructed from
// missing or malformed identity components.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Msg
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// SerializationError is returned when an entity's fields cannot be encoded.
type SerializationError struct {
	Class string
	Err   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Class, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError is returned for malformed, truncated or tampered
// buffers, and for buffers missing mandatory fields.
type DeserializationError struct {
	Msg string
	Err error
}

func (e *DeserializationError) Error() string {
	if e.Err == nil {
		return "deserialize: " + e.Msg
	}
	return fmt.Sprintf("deserialize: %s: %v", e.Msg, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// TypeMismatchError is returned when a buffer carries a different type tag
// than the caller expected.
type TypeMismatchError struct {
	Want string
	Got  string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: want %q, got %q", e.Want, e.Got)
}

// IllegalTransitionError is returned by guarded lifecycle transitions.
type IllegalTransitionError struct {
	From string
	To   string
	Msg  string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s: %s", e.From, e.To, e.Msg)
}
