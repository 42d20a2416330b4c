package codec

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/jonboulle/clockwork"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/token"
	pkgoauth "github.com/jamesprial/oauth2-provider/pkg/oauth"
)

// xmlRoot is the root element of both token and error documents.
const xmlRoot = "oauth"

var xmlMediaTypes = mediaTypes{pkgoauth.ContentTypeXML, pkgoauth.ContentTypeTextXML}

// XMLTokenCodec encodes access tokens as <oauth> documents carrying
// access_token, expires_in and refresh_token. Missing elements decode as
// absent fields.
type XMLTokenCodec struct {
	mediaTypes
	clock clockwork.Clock
}

// NewXMLTokenCodec creates an XML token codec.
func NewXMLTokenCodec(clock clockwork.Clock) *XMLTokenCodec {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &XMLTokenCodec{mediaTypes: xmlMediaTypes, clock: clock}
}

// Write encodes t.
func (c *XMLTokenCodec) Write(w io.Writer, t *token.AccessToken) error {
	if t == nil {
		return errors.New("cannot encode nil token")
	}
	if err := token.ValidateScope(t.Scope); err != nil {
		return fmt.Errorf("encode token: %w", err)
	}

	doc := newDocument()
	root := doc.CreateElement(xmlRoot)
	root.CreateElement(pkgoauth.FieldAccessToken).SetText(t.Value)
	if secs, ok := t.ExpiresIn(c.clock.Now()); ok {
		root.CreateElement(pkgoauth.FieldExpiresIn).SetText(strconv.FormatInt(secs, 10))
	}
	if rt := t.RefreshValue(); rt != "" {
		root.CreateElement(pkgoauth.FieldRefreshToken).SetText(rt)
	}

	_, err := doc.WriteTo(w)
	return err
}

// Read decodes a token document. token_type and scope elements are honoured
// when a peer sends them.
func (c *XMLTokenCodec) Read(r io.Reader) (*token.AccessToken, error) {
	root, err := readRoot(r, "ReadToken")
	if err != nil {
		return nil, err
	}

	t := token.New(childText(root, pkgoauth.FieldAccessToken))
	if tt := childText(root, pkgoauth.FieldTokenType); tt != "" {
		t.TokenType = tt
	}
	if rt := childText(root, pkgoauth.FieldRefreshToken); rt != "" {
		t.RefreshToken = token.NewRefreshToken(rt)
	}
	if raw := childText(root, pkgoauth.FieldExpiresIn); raw != "" {
		secs, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, unreadable("ReadToken", fmt.Errorf("expires_in: %w", err))
		}
		t.SetExpiresIn(c.clock.Now(), secs)
	}
	t.Scope = token.ParseScope(childText(root, pkgoauth.FieldScope))

	return t, nil
}

// XMLErrorCodec encodes OAuth2 errors as <oauth> documents with error and
// error_description elements.
type XMLErrorCodec struct {
	mediaTypes
}

// NewXMLErrorCodec creates an XML error codec.
func NewXMLErrorCodec() *XMLErrorCodec {
	return &XMLErrorCodec{mediaTypes: xmlMediaTypes}
}

// Write encodes e. Additional information is written as further child
// elements when the key is a usable element name.
func (c *XMLErrorCodec) Write(w io.Writer, e *ierrors.OAuth2Error) error {
	if e == nil {
		return errors.New("cannot encode nil error")
	}

	doc := newDocument()
	root := doc.CreateElement(xmlRoot)
	for _, f := range e.Fields() {
		if !isElementName(f.Key) {
			continue
		}
		root.CreateElement(f.Key).SetText(f.Value)
	}

	_, err := doc.WriteTo(w)
	return err
}

// Read decodes an error document. Child elements other than error and
// error_description become additional information in document order.
func (c *XMLErrorCodec) Read(r io.Reader) (*ierrors.OAuth2Error, error) {
	root, err := readRoot(r, "ReadError")
	if err != nil {
		return nil, err
	}

	var fields []ierrors.Field
	for _, el := range root.ChildElements() {
		fields = append(fields, ierrors.Field{Key: el.Tag, Value: strings.TrimSpace(el.Text())})
	}
	return ierrors.FromFields(fields), nil
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

func readRoot(r io.Reader, op string) (*etree.Element, error) {
	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, unreadable(op, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, unreadable(op, errors.New("missing root element"))
	}
	if root.Tag != xmlRoot {
		return nil, unreadable(op, fmt.Errorf("unexpected root element %q", root.Tag))
	}
	return root, nil
}

func childText(parent *etree.Element, tag string) string {
	el := parent.SelectElement(tag)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// isElementName is a conservative check for keys that can be written as XML
// element names without escaping.
func isElementName(s string) bool {
	if s == "" || strings.HasPrefix(strings.ToLower(s), "xml") {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case i > 0 && (r == '-' || r == '.' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}
