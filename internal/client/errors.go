package client

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Failure classes returned by the client. Match them with errors.Is.
var (
	ErrNetwork            = errors.New("catalog API unreachable")
	ErrServer             = errors.New("catalog API server error")
	ErrValidationRejected = errors.New("catalog API rejected the product")
	ErrNotFound           = errors.New("product not found")
)

// Error describes a failed call to the catalog API.
type Error struct {
	// Kind is one of ErrNetwork, ErrServer, ErrValidationRejected or ErrNotFound.
	Kind error
	// Op names the client operation, e.g. "update product 7".
	Op string
	// Status is the HTTP status, zero for transport failures.
	Status int
	// Message is the backend-provided error text, if any.
	Message string
	// Fields holds backend field violations for ErrValidationRejected.
	Fields map[string]string
	// Err is the underlying transport or decoding error.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.Error())
	if e.Status != 0 {
		b.WriteString(fmt.Sprintf(" (status %d)", e.Status))
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if len(e.Fields) > 0 {
		keys := slices.Sorted(maps.Keys(e.Fields))
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("; %s: %s", k, e.Fields[k]))
		}
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Is makes errors.Is(err, ErrNotFound) and friends work on *Error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsNetworkOrServer reports whether err is a failure the backend did not answer meaningfully.
func IsNetworkOrServer(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}
