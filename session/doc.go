// Package session holds the client-side authentication state (user, access
// token, refresh token) and persists every mutation through a pluggable
// Persistence driver under the "auth-storage" record key.
//
// The Store is safe for concurrent use. Each ClearAuth advances a generation
// counter; token merges carry the generation they were started under, so a
// refresh that completes after a logout cannot bring the session back.
package session
