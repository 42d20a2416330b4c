package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jonboulle/clockwork"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/token"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// tokenJSON is the RFC 6749 Section 5.1 response body. expires_in is a
// json.Number on input so quoted numbers from lenient servers still decode.
type tokenJSON struct {
	AccessToken  string       `json:"access_token"`
	TokenType    string       `json:"token_type,omitempty"`
	RefreshToken string       `json:"refresh_token,omitempty"`
	ExpiresIn    *json.Number `json:"expires_in,omitempty"`
	Scope        string       `json:"scope,omitempty"`
}

// JSONTokenCodec encodes access tokens as JSON. Decoding is strict: any
// field other than the five defined ones is rejected.
type JSONTokenCodec struct {
	mediaTypes
	clock clockwork.Clock
}

// NewJSONTokenCodec creates a JSON token codec. expires_in is computed from
// clock on every write.
func NewJSONTokenCodec(clock clockwork.Clock) *JSONTokenCodec {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &JSONTokenCodec{
		mediaTypes: mediaTypes{pkgoauth.ContentTypeJSON},
		clock:      clock,
	}
}

// Write encodes t. It fails with token.ErrInvalidScope when a scope entry is
// empty.
func (c *JSONTokenCodec) Write(w io.Writer, t *token.AccessToken) error {
	if t == nil {
		return errors.New("cannot encode nil token")
	}
	scope, err := token.FormatScope(t.Scope)
	if err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	body := tokenJSON{
		AccessToken:  t.Value,
		TokenType:    t.TokenType,
		RefreshToken: t.RefreshValue(),
		Scope:        scope,
	}
	if secs, ok := t.ExpiresIn(c.clock.Now()); ok {
		n := json.Number(strconv.FormatInt(secs, 10))
		body.ExpiresIn = &n
	}

	return json.NewEncoder(w).Encode(body)
}

// Read decodes a token response.
func (c *JSONTokenCodec) Read(r io.Reader) (*token.AccessToken, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var body tokenJSON
	if err := dec.Decode(&body); err != nil {
		return nil, unreadable("ReadToken", err)
	}
	if body.AccessToken == "" {
		return nil, unreadable("ReadToken", errors.New("access_token is required"))
	}

	t := token.New(body.AccessToken)
	if body.TokenType != "" {
		t.TokenType = body.TokenType
	}
	if body.RefreshToken != "" {
		t.RefreshToken = token.NewRefreshToken(body.RefreshToken)
	}
	if body.ExpiresIn != nil {
		secs, err := body.ExpiresIn.Int64()
		if err != nil {
			return nil, unreadable("ReadToken", fmt.Errorf("expires_in: %w", err))
		}
		t.SetExpiresIn(c.clock.Now(), secs)
	}
	t.Scope = token.ParseScope(body.Scope)

	return t, nil
}

// JSONErrorCodec encodes OAuth2 errors as a flat JSON object: error,
// error_description and every additional information entry as siblings.
type JSONErrorCodec struct {
	mediaTypes
}

// NewJSONErrorCodec creates a JSON error codec.
func NewJSONErrorCodec() *JSONErrorCodec {
	return &JSONErrorCodec{mediaTypes: mediaTypes{pkgoauth.ContentTypeJSON}}
}

// Write encodes e, keeping the additional information order.
func (c *JSONErrorCodec) Write(w io.Writer, e *ierrors.OAuth2Error) error {
	if e == nil {
		return errors.New("cannot encode nil error")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range e.Fields() {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteString("}\n")

	_, err := w.Write(buf.Bytes())
	return err
}

// Read decodes an error object. Fields are visited in document order so the
// additional information order survives a round trip. Non-string values are
// kept in their JSON text form.
func (c *JSONErrorCodec) Read(r io.Reader) (*ierrors.OAuth2Error, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, unreadable("ReadError", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, unreadable("ReadError", errors.New("expected JSON object"))
	}

	var fields []ierrors.Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, unreadable("ReadError", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, unreadable("ReadError", errors.New("expected object key"))
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, unreadable("ReadError", err)
		}
		value, err := jsonText(raw)
		if err != nil {
			return nil, unreadable("ReadError", err)
		}
		fields = append(fields, ierrors.Field{Key: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, unreadable("ReadError", err)
	}

	return ierrors.FromFields(fields), nil
}

// jsonText renders a raw JSON value as a string field value.
func jsonText(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return "", nil
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return "", err
		}
		return s, nil
	default:
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return "", err
		}
		return compact.String(), nil
	}
}
