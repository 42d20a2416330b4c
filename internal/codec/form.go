package codec

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonboulle/clockwork"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/token"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// maxFormBytes bounds form payloads read by the form codecs.
const maxFormBytes = 1 << 20

// FormTokenCodec encodes access tokens as application/x-www-form-urlencoded
// using the JSON field names.
type FormTokenCodec struct {
	mediaTypes
	clock clockwork.Clock
}

// NewFormTokenCodec creates a form token codec.
func NewFormTokenCodec(clock clockwork.Clock) *FormTokenCodec {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FormTokenCodec{
		mediaTypes: mediaTypes{pkgoauth.ContentTypeFormURLEncoded},
		clock:      clock,
	}
}

// Write encodes t.
func (c *FormTokenCodec) Write(w io.Writer, t *token.AccessToken) error {
	if t == nil {
		return errors.New("cannot encode nil token")
	}
	scope, err := token.FormatScope(t.Scope)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	fields := []ierrors.Field{
		{Key: pkgoauth.FieldAccessToken, Value: t.Value},
		{Key: pkgoauth.FieldTokenType, Value: t.TokenType},
	}
	if rt := t.RefreshValue(); rt != "" {
		fields = append(fields, ierrors.Field{Key: pkgoauth.FieldRefreshToken, Value: rt})
	}
	if secs, ok := t.ExpiresIn(c.clock.Now()); ok {
		fields = append(fields, ierrors.Field{Key: pkgoauth.FieldExpiresIn, Value: strconv.FormatInt(secs, 10)})
	}
	if scope != "" {
		fields = append(fields, ierrors.Field{Key: pkgoauth.FieldScope, Value: scope})
	}

	_, err = io.WriteString(w, encodeForm(fields))
	return err
}

// Read decodes a form token response. Unknown keys are ignored.
func (c *FormTokenCodec) Read(r io.Reader) (*token.AccessToken, error) {
	fields, err := readForm(r, "ReadToken")
	if err != nil {
		return nil, err
	}

	values := make(map[string]string, len(fields))
	for _, f := range fields {
		if _, ok := values[f.Key]; !ok {
			values[f.Key] = f.Value
		}
	}

	value := values[pkgoauth.FieldAccessToken]
	if value == "" {
		return nil, unreadable("ReadToken", errors.New("access_token is required"))
	}

	t := token.New(value)
	if tt := values[pkgoauth.FieldTokenType]; tt != "" {
		t.TokenType = tt
	}
	if rt := values[pkgoauth.FieldRefreshToken]; rt != "" {
		t.RefreshToken = token.NewRefreshToken(rt)
	}
	if raw := values[pkgoauth.FieldExpiresIn]; raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, unreadable("ReadToken", fmt.Errorf("expires_in: %w", err))
		}
		t.SetExpiresIn(c.clock.Now(), secs)
	}
	t.Scope = token.ParseScope(values[pkgoauth.FieldScope])

	return t, nil
}

// FormErrorCodec encodes OAuth2 errors as form fields in wire order.
type FormErrorCodec struct {
	mediaTypes
}

// NewFormErrorCodec creates a form error codec.
func NewFormErrorCodec() *FormErrorCodec {
	return &FormErrorCodec{mediaTypes: mediaTypes{pkgoauth.ContentTypeFormURLEncoded}}
}

// Write encodes e.
func (c *FormErrorCodec) Write(w io.Writer, e *ierrors.OAuth2Error) error {
	if e == nil {
		return errors.New("cannot encode nil error")
	}
	_, err := io.WriteString(w, encodeForm(e.Fields()))
	return err
}

// Read decodes a form error payload, keeping field order.
func (c *FormErrorCodec) Read(r io.Reader) (*ierrors.OAuth2Error, error) {
	fields, err := readForm(r, "ReadError")
	if err != nil {
		return nil, err
	}
	return ierrors.FromFields(fields), nil
}

// encodeForm is url.Values.Encode without the key sort.
func encodeForm(fields []ierrors.Field) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(f.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.Value))
	}
	return b.String()
}

// readForm parses a form payload into fields in document order.
func readForm(r io.Reader, op string) ([]ierrors.Field, error) {
	raw, err := io.ReadAll(io.LimitReader(r, maxFormBytes))
	if err != nil {
		return nil, unreadable(op, err)
	}

	var fields []ierrors.Field
	for _, pair := range strings.Split(strings.TrimSpace(string(raw)), "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, unreadable(op, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, unreadable(op, err)
		}
		fields = append(fields, ierrors.Field{Key: key, Value: value})
	}
	return fields, nil
}
