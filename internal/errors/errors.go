// Package errors provides the error model of the OAuth 2.0 provider.
//
// OAuth2Error is the closed protocol taxonomy rendered to callers of the
// token endpoint. DomainError tags infrastructure failures (stores,
// configuration, codecs) with the subsystem and operation that produced
// them; it is logged, never rendered as a protocol error.
package errors

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap/zapcore"
)

// Failure categories carried in DomainError.Kind.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInternal     = errors.New("internal error")
	// ErrConflict is a write that collided with an existing record, such as
	// a reused authorization code.
	ErrConflict = errors.New("conflict")
)

// DomainError is a failure in one subsystem of the provider. errors.Is
// matches both Kind and the wrapped cause.
type DomainError struct {
	Domain  string
	Op      string
	Kind    error
	Err     error
	Context map[string]any
}

// New creates a DomainError. err may be nil.
func New(domain, op string, kind, err error) *DomainError {
	return &DomainError{Domain: domain, Op: op, Kind: kind, Err: err}
}

func (e *DomainError) Error() string {
	msg := e.Domain + "." + e.Op + ": " + fmt.Sprint(e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DomainError) Unwrap() error { return e.Err }

func (e *DomainError) Is(target error) bool {
	return (e.Kind != nil && errors.Is(e.Kind, target)) ||
		(e.Err != nil && errors.Is(e.Err, target))
}

// WithContext attaches a debugging value and returns e for chaining.
func (e *DomainError) WithContext(key string, value any) *DomainError {
	if e.Context == nil {
		e.Context = make(map[string]any, 1)
	}
	e.Context[key] = value
	return e
}

// MarshalLogObject lets zap.Object render the error with its context keys
// in sorted order.
func (e *DomainError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("domain", e.Domain)
	enc.AddString("op", e.Op)
	if e.Kind != nil {
		enc.AddString("kind", e.Kind.Error())
	}
	if e.Err != nil {
		enc.AddString("cause", e.Err.Error())
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := enc.AddReflected(k, e.Context[k]); err != nil {
			return err
		}
	}
	return nil
}

// IsDomain reports whether err's chain holds a DomainError from domain.
func IsDomain(err error, domain string) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Domain == domain
}

// AsDomain returns the first DomainError in err's chain.
func AsDomain(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}
