package codec

import (
	"fmt"
	"io"
	"mime"
	"sort"
	"strconv"
	"strings"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
)

// Composite tries its delegates in registration order. Earlier codecs shadow
// later ones for overlapping media types. A Composite is immutable after
// construction and safe for concurrent use.
type Composite[T any] struct {
	codecs []Codec[T]
}

// NewComposite creates a composite over codecs, in the given order.
func NewComposite[T any](codecs ...Codec[T]) *Composite[T] {
	cs := make([]Codec[T], len(codecs))
	copy(cs, codecs)
	return &Composite[T]{codecs: cs}
}

// MediaTypes returns every media type handled by a delegate, in order,
// without duplicates.
func (c *Composite[T]) MediaTypes() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, codec := range c.codecs {
		for _, mt := range codec.MediaTypes() {
			if _, ok := seen[mt]; ok {
				continue
			}
			seen[mt] = struct{}{}
			out = append(out, mt)
		}
	}
	return out
}

// CanRead reports whether any delegate can read mediaType.
func (c *Composite[T]) CanRead(mediaType string) bool {
	for _, codec := range c.codecs {
		if codec.CanRead(mediaType) {
			return true
		}
	}
	return false
}

// CanWrite reports whether any delegate can write mediaType.
func (c *Composite[T]) CanWrite(mediaType string) bool {
	for _, codec := range c.codecs {
		if codec.CanWrite(mediaType) {
			return true
		}
	}
	return false
}

// Read decodes r with the first delegate that can read contentType.
func (c *Composite[T]) Read(r io.Reader, contentType string) (T, error) {
	for _, codec := range c.codecs {
		if codec.CanRead(contentType) {
			return codec.Read(r)
		}
	}
	var zero T
	return zero, ierrors.New(domainCodec, "Read", ErrUnreadable,
		fmt.Errorf("no codec reads %q", contentType))
}

// Negotiate picks the codec for an Accept header value. Media ranges are
// visited by descending quality; for each range the first delegate that can
// write it wins. The returned media type is concrete. An empty Accept value
// is treated as "*/*".
func (c *Composite[T]) Negotiate(accept string) (Codec[T], string, error) {
	for _, rng := range ParseAccept(accept) {
		for _, codec := range c.codecs {
			if !codec.CanWrite(rng) {
				continue
			}
			for _, mt := range codec.MediaTypes() {
				if includes(rng, mt) {
					return codec, mt, nil
				}
			}
		}
	}
	return nil, "", ierrors.New(domainCodec, "Negotiate", ErrNotAcceptable,
		fmt.Errorf("no codec writes %q", accept))
}

// Write negotiates a codec for accept, encodes v and returns the media type
// that was written.
func (c *Composite[T]) Write(w io.Writer, v T, accept string) (string, error) {
	codec, mediaType, err := c.Negotiate(accept)
	if err != nil {
		return "", err
	}
	if err := codec.Write(w, v); err != nil {
		return "", err
	}
	return mediaType, nil
}

type acceptRange struct {
	mediaType string
	quality   float64
}

// ParseAccept returns the media ranges of an Accept header value ordered by
// descending quality, keeping header order for ties. Ranges with q=0 and
// malformed entries are dropped.
func ParseAccept(accept string) []string {
	if strings.TrimSpace(accept) == "" {
		return []string{"*/*"}
	}

	var ranges []acceptRange
	for _, part := range strings.Split(accept, ",") {
		mt, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		q := 1.0
		if raw, ok := params["q"]; ok {
			parsed, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				continue
			}
			q = parsed
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, acceptRange{mediaType: mt, quality: q})
	}

	sort.SliceStable(ranges, func(i, j int) bool {
		return ranges[i].quality > ranges[j].quality
	})

	out := make([]string, len(ranges))
	for i, r := range ranges {
		out[i] = r.mediaType
	}
	return out
}
