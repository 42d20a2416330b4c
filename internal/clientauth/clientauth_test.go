package clientauth

import (
	"encoding/base64"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func basic(s string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(s))
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		charset string
		want    string
		wantErr bool
	}{
		{name: "default", charset: "", want: "UTF-8"},
		{name: "latin1", charset: "ISO-8859-1", want: "ISO-8859-1"},
		{name: "alias", charset: "latin1", want: "latin1"},
		{name: "unknown charset fails at construction", charset: "klingon-8", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			a, err := New(tt.charset)
			if tt.wantErr {
				require.Error(t, err)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, a.Charset())
		})
	}
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers []string
		params  map[string]string
		want    Credentials
	}{
		{
			name:   "secret parameter wins over header",
			params: map[string]string{"client_id": "my-trusted-client-with-secret", "client_secret": "somesecret"},
			headers: []string{
				basic("other:ignored"),
			},
			want: Credentials{ClientID: "my-trusted-client-with-secret", ClientSecret: "somesecret", HasSecret: true},
		},
		{
			name:    "basic header",
			headers: []string{basic("my-trusted-client-with-secret:somesecret")},
			want:    Credentials{ClientID: "my-trusted-client-with-secret", ClientSecret: "somesecret", HasSecret: true},
		},
		{
			name:    "password containing colons splits on the first",
			headers: []string{basic("client:pa:ss")},
			want:    Credentials{ClientID: "client", ClientSecret: "pa:ss", HasSecret: true},
		},
		{
			name:    "no colon yields empty credentials",
			headers: []string{basic("nocolon")},
			want:    Credentials{ClientID: "", ClientSecret: "", HasSecret: true},
		},
		{
			name:    "mismatched username is skipped",
			params:  map[string]string{"client_id": "wanted"},
			headers: []string{basic("other:secret1"), basic("wanted:secret2")},
			want:    Credentials{ClientID: "wanted", ClientSecret: "secret2", HasSecret: true},
		},
		{
			name:    "only mismatched headers falls back to parameter",
			params:  map[string]string{"client_id": "wanted"},
			headers: []string{basic("other:secret1")},
			want:    Credentials{ClientID: "wanted"},
		},
		{
			name:    "first matching header wins",
			headers: []string{basic("a:1"), basic("b:2")},
			want:    Credentials{ClientID: "a", ClientSecret: "1", HasSecret: true},
		},
		{
			name:    "non basic schemes are ignored",
			params:  map[string]string{"client_id": "my-trusted-client"},
			headers: []string{"Bearer abc"},
			want:    Credentials{ClientID: "my-trusted-client"},
		},
		{
			name:    "malformed base64 is skipped",
			headers: []string{"Basic !!!", basic("good:1")},
			want:    Credentials{ClientID: "good", ClientSecret: "1", HasSecret: true},
		},
		{
			name:    "scheme is case insensitive",
			headers: []string{"basic " + base64.StdEncoding.EncodeToString([]byte("c:s"))},
			want:    Credentials{ClientID: "c", ClientSecret: "s", HasSecret: true},
		},
		{
			name:   "empty secret parameter is still a secret",
			params: map[string]string{"client_id": "c", "client_secret": ""},
			want:   Credentials{ClientID: "c", ClientSecret: "", HasSecret: true},
		},
		{
			name: "nothing at all",
			want: Credentials{},
		},
	}

	a, err := New("")
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := http.Header{}
			for _, v := range tt.headers {
				h.Add("Authorization", v)
			}
			params := tt.params
			if params == nil {
				params = map[string]string{}
			}
			assert.Equal(t, tt.want, a.Authenticate(h, params))
		})
	}
}

func TestAuthenticate_Charset(t *testing.T) {
	t.Parallel()

	// "clïent:sécret" in ISO-8859-1.
	raw := []byte{'c', 'l', 0xEF, 'e', 'n', 't', ':', 's', 0xE9, 'c', 'r', 'e', 't'}
	h := http.Header{}
	h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString(raw))

	latin1, err := New("ISO-8859-1")
	require.NoError(t, err)
	got := latin1.Authenticate(h, map[string]string{})
	assert.Equal(t, "clïent", got.ClientID)
	assert.Equal(t, "sécret", got.ClientSecret)

	utf8, err := New("UTF-8")
	require.NoError(t, err)
	got = utf8.Authenticate(h, map[string]string{})
	assert.NotEqual(t, "clïent", got.ClientID)
}

func TestAuthenticate_LogsSkippedHeaders(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	a, err := New("", WithLogger(zap.New(core)))
	require.NoError(t, err)

	h := http.Header{}
	h.Add("Authorization", "Basic %%%")
	h.Add("Authorization", basic("other:x"))
	a.Authenticate(h, map[string]string{"client_id": "me"})

	assert.Equal(t, 1, logs.FilterMessage("skipping malformed basic credentials").Len())
	assert.Equal(t, 1, logs.FilterMessage("skipping basic credentials for a different client").Len())
}
