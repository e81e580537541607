// Package common contains shared constants and sentinel errors used across
// the Dispersed client layers.
package common

// Header names attached to outbound API requests.
const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
	ContentTypeHeaderName   = "Content-Type"
)

// BearerPrefix precedes the identity token in the Authorization header.
const BearerPrefix = "Bearer "

// JSONContentType is sent with every request that carries a JSON body.
const JSONContentType = "application/json"

// UserAgent identifies this client to the API.
const UserAgent = "dispersed-cli/1.0"
