// Package client is the single point through which the Dispersed client
// talks to the HTTP API.
//
// # Overview
//
// Gateway wraps net/http with the conventions every endpoint shares: a JSON
// body with a JSON content type (multipart for photo uploads), a bearer token
// for protected endpoints, a request id, and a uniform error shape. The typed
// helpers (ListCampsites, UploadPhoto, ListReviews, SignIn, ...) sit on top.
//
// # Error Handling
//
// Every failure that involved the API is a *RequestError. Status 0 means the
// server was never reached or answered with something that was not JSON.
// Callers match categories with errors.Is: ErrTransport, ErrHTTP,
// ErrAuthRequired, ErrUnauthorized, ErrNotFound, ErrRateLimited.
//
// AuthenticatedRequest resolves a token before doing anything else; when the
// TokenSource has none it fails with ErrAuthRequired and no request is sent.
//
// # Local database
//
// InitDatabase and RunMigrations open the SQLite file that keeps the session
// between runs and apply the embedded goose migrations.
package client
