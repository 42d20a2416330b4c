package codec

import (
	"github.com/jonboulle/clockwork"

	ierrors "github.com/jamesprial/oauth2-provider/internal/errors"
	"github.com/jamesprial/oauth2-provider/internal/token"
)

// DefaultTokenCodecs returns the token codecs in their default order: JSON,
// XML, form. JSON therefore answers "*/*".
func DefaultTokenCodecs(clock clockwork.Clock) *Composite[*token.AccessToken] {
	return NewComposite[*token.AccessToken](
		NewJSONTokenCodec(clock),
		NewXMLTokenCodec(clock),
		NewFormTokenCodec(clock),
	)
}

// DefaultErrorCodecs returns the error codecs in their default order: JSON,
// XML, form.
func DefaultErrorCodecs() *Composite[*ierrors.OAuth2Error] {
	return NewComposite[*ierrors.OAuth2Error](
		NewJSONErrorCodec(),
		NewXMLErrorCodec(),
		NewFormErrorCodec(),
	)
}
