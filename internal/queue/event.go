// Package queue defines the audit events exchanged over the message broker
// and the background consumer that records them.
package queue

// Event types carried in AuthEvent.Type.
const (
	EventUserRegistered = "user.registered"
	EventTokenRevoked   = "token.revoked"
)

// AuthEvent is published when something security-relevant happens in the
// auth flows.  It contains enough information for downstream consumers to
// log or alert without querying the primary database.
type AuthEvent struct {
	Type     string `json:"type"`
	UserID   uint64 `json:"user_id,omitempty"`
	Username string `json:"username,omitempty"`
	IP       string `json:"ip,omitempty"`
	Reason   string `json:"reason,omitempty"`
	At       string `json:"at"`
}
