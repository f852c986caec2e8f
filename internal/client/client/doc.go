// Package client is the CLI's view of the timekeeper server API.
//
// # Overview
//
// Client is the transport-agnostic contract; HTTPClient implements it over
// the REST endpoints. HTTPClient keeps the session token returned by Login
// and sends it as a bearer token on every authenticated call.
//
// # Error Handling
//
// Server answers are mapped to sentinel errors that callers match with
// errors.Is: ErrUnauthorized for 401, common.ErrorConflict,
// common.ErrorInvalidState, common.ErrorNotFound, common.ErrorValidation
// and common.ErrorNotConfigured for the matching client errors, and
// ErrUnavailable when the server cannot be reached or reports its store
// as unavailable. Calls that need a session fail with ErrNotLoggedIn
// before touching the network.
//
// Concurrency
//
// HTTPClient is safe for concurrent use.
package client
