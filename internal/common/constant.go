package common

// AuthorizationHeaderName is the gRPC metadata key that carries the bearer
// session token on inbound requests.
const AuthorizationHeaderName = "authorization"

// BearerPrefix precedes the token inside the authorization header.
const BearerPrefix = "Bearer "

// MinPasswordLength is the shortest password accepted at sign-up and on
// password change or reset.
const MinPasswordLength = 12

// DefaultContentType is stored for uploads that do not name a media type.
const DefaultContentType = "application/octet-stream"
