// Package authenticator defines the interface the router expects from the
// auth layer, so tests can swap in a pass-through implementation.
package authenticator

import "net/http"

// Authenticator gates requests and serves the sign-in handshake endpoints.
type Authenticator interface {
	Gate(h http.Handler) http.Handler
	HandleLoginStart(w http.ResponseWriter, r *http.Request)
	HandleOAuthCallback(w http.ResponseWriter, r *http.Request)
	HandleSignOut(w http.ResponseWriter, r *http.Request)
}
