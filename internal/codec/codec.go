// Package codec converts access tokens and OAuth2 errors to and from their
// wire encodings (JSON, XML and form) and selects an encoding by content
// negotiation.
package codec

import (
	"errors"
	"io"
	"mime"
	"strings"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
)

// Domain identifier for codec errors.
const domainCodec = "codec"

var (
	// ErrNotAcceptable indicates no registered codec can write any of the
	// media types the caller accepts.
	ErrNotAcceptable = errors.New("not acceptable")

	// ErrUnreadable indicates a payload could not be decoded.
	ErrUnreadable = errors.New("unreadable message")
)

// Codec converts values of type T to and from one wire format.
type Codec[T any] interface {
	// MediaTypes lists the concrete media types the codec handles, preferred
	// type first.
	MediaTypes() []string

	// CanRead reports whether payloads of mediaType can be decoded. An empty
	// media type is accepted.
	CanRead(mediaType string) bool

	// CanWrite reports whether the codec can produce mediaType, which may be
	// a wildcard range such as "*/*" or "application/*".
	CanWrite(mediaType string) bool

	// Read decodes one value.
	Read(r io.Reader) (T, error)

	// Write encodes v.
	Write(w io.Writer, v T) error
}

// mediaTypes implements the capability checks shared by every codec.
type mediaTypes []string

func (m mediaTypes) MediaTypes() []string {
	out := make([]string, len(m))
	copy(out, m)
	return out
}

func (m mediaTypes) CanRead(mediaType string) bool {
	if strings.TrimSpace(mediaType) == "" {
		return true
	}
	return m.resolve(mediaType) != ""
}

func (m mediaTypes) CanWrite(mediaType string) bool {
	return m.resolve(mediaType) != ""
}

// resolve returns the first supported concrete type within the requested
// range, or "" when there is none.
func (m mediaTypes) resolve(mediaType string) string {
	requested := baseType(mediaType)
	if requested == "" {
		return ""
	}
	for _, supported := range m {
		if includes(requested, supported) {
			return supported
		}
	}
	return ""
}

// baseType strips parameters and lowercases a media type. Malformed values
// yield "".
func baseType(mediaType string) string {
	t, _, err := mime.ParseMediaType(strings.TrimSpace(mediaType))
	if err != nil {
		return ""
	}
	return t
}

// includes reports whether the media range pattern covers the concrete type.
func includes(pattern, concrete string) bool {
	if pattern == "*/*" || pattern == "*" {
		return true
	}
	if pattern == concrete {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		return strings.HasPrefix(concrete, strings.TrimSuffix(pattern, "*"))
	}
	return false
}

// unreadable wraps a decode failure so callers can match ErrUnreadable.
func unreadable(op string, err error) error {
	return ierrors.New(domainCodec, op, ErrUnreadable, err)
}
