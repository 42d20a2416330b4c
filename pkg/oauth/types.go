// Package oauth provides shared OAuth 2.0 protocol constants for the token
// provider and its clients.
package oauth

// Scopes registered for the bundled sample clients. trust is reserved for
// first-party clients.
const (
	ScopeRead  = "read"
	ScopeWrite = "write"
	ScopeTrust = "trust"
)

const (
	// TokenTypeBearer is the token_type issued unless a token says otherwise.
	TokenTypeBearer = "bearer"
	BearerScheme    = "Bearer"
	// BasicScheme carries client credentials on the token endpoint.
	BasicScheme = "Basic"
)

// Grant types of RFC 6749.
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypePassword          = "password"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeRefreshToken      = "refresh_token"
)

// ResponseTypeCode is the authorization code response type.
const ResponseTypeCode = "code"

// Token request parameter names.
const (
	ParamGrantType    = "grant_type"
	ParamClientID     = "client_id"
	ParamClientSecret = "client_secret"
	ParamScope        = "scope"
	ParamCode         = "code"
	ParamRedirectURI  = "redirect_uri"
	ParamUsername     = "username"
	ParamPassword     = "password"
	ParamRefreshToken = "refresh_token"
)

// Wire field names shared by every token and error encoding.
const (
	FieldAccessToken      = "access_token"
	FieldTokenType        = "token_type"
	FieldRefreshToken     = "refresh_token"
	FieldExpiresIn        = "expires_in"
	FieldScope            = "scope"
	FieldError            = "error"
	FieldErrorDescription = "error_description"
)

// Header names.
const (
	HeaderAuthorization   = "Authorization"
	HeaderWWWAuthenticate = "WWW-Authenticate"
	HeaderContentType     = "Content-Type"
	HeaderAccept          = "Accept"
	HeaderCacheControl    = "Cache-Control"
	HeaderPragma          = "Pragma"
	HeaderSetCookie       = "Set-Cookie"
	HeaderAllow           = "Allow"
)

// Header values required on every token endpoint response.
const (
	CacheControlNoStore = "no-store"
	PragmaNoCache       = "no-cache"
)

// Media types the token endpoint can negotiate. XML is accepted under
// both registrations.
const (
	ContentTypeJSON           = "application/json"
	ContentTypeXML            = "application/xml"
	ContentTypeTextXML        = "text/xml"
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"
)
