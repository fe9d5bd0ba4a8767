// Package model defines the core domain types for the chat room.
package model

import "time"

// Session represents an active client session (in-memory only).
// The connection handle itself is owned by the server's registry; Session
// values handed to callers are snapshots and safe to retain.
type Session struct {
	ID          int64     // unique, monotonically increasing, assigned by the registry
	Username    string    // unique across live sessions
	Coordinator bool      // maintained by the registry, never self-declared
	RemoteAddr  string    // client address, for display only
	JoinedAt    time.Time // registration time
}

// DisplayName returns the username decorated with the coordinator marker
// for listing output. Chat lines use the plain username.
func (s Session) DisplayName() string {
	if s.Coordinator {
		return s.Username + " (coordinator)"
	}
	return s.Username
}
