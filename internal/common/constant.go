package common

const (
	// AuthorizationHeaderName carries "Bearer <token>" on REST requests and
	// on the push handshake.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix is the scheme prefix expected in AuthorizationHeaderName.
	BearerPrefix = "Bearer "

	// TokenQueryParam is accepted on the push handshake for clients that
	// cannot set headers on a websocket upgrade.
	TokenQueryParam = "token"

	// RequestIDHeaderName propagates a per-request trace id.
	RequestIDHeaderName = "X-Request-ID"
)
