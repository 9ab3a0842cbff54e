package client

import "net/http"

// Request is one logical call through the Client. It carries the marker
// that limits token refresh to a single attempt.
type Request struct {
	Method string
	// Path is relative to the /v1 base, e.g. "/licenses".
	Path  string
	Query map[string]string
	Body  any
	// Header holds per-request headers. An Authorization header set here
	// takes precedence over the session token.
	Header http.Header
	// SkipAuthRefresh disables refresh-on-401, for the auth endpoints
	// themselves.
	SkipAuthRefresh bool

	id      string
	retried bool
}

// ID returns the X-Request-ID assigned when the request was first sent.
func (r *Request) ID() string {
	return r.id
}

// Retried reports whether the request already used its refresh attempt.
func (r *Request) Retried() bool {
	return r.retried
}
