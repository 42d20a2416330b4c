package transport

import (
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesprial/oauth2-provider/internal/codec"
)

func TestErrNotAcceptable_MatchesNegotiation(t *testing.T) {
	t.Parallel()

	codecs := map[string]func(string) error{
		"token": func(accept string) error {
			_, _, err := codec.DefaultTokenCodecs(clockwork.NewFakeClock()).Negotiate(accept)
			return err
		},
		"error": func(accept string) error {
			_, _, err := codec.DefaultErrorCodecs().Negotiate(accept)
			return err
		},
	}

	for name, negotiate := range codecs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := negotiate("image/png")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotAcceptable)

			assert.NoError(t, negotiate("application/json"))
		})
	}
}

func TestErrors_Distinct(t *testing.T) {
	t.Parallel()

	sentinels := []error{ErrMissingToken, ErrInvalidToken, ErrInsufficientScope, ErrNotAcceptable}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j {
				assert.False(t, errors.Is(a, b), "%v matches %v", a, b)
			}
		}
	}
}
