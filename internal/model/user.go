package model

import "time"

// User represents an application user record as stored in the `users`
// table.  The password is kept as a keyed-hash digest together with the
// random salt used as the key; both are immutable after registration.
// JSON tags are omitted because these structs are used internally by the
// repository layer; handlers define separate response types.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Username     – unique username (case-sensitive).
//	PasswordHash – PBKDF2-HMAC-SHA-512 digest of the password.
//	PasswordSalt – per-user random salt the digest was computed with.
//	CreatedAt    – timestamp of registration.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username
	PasswordHash []byte    // users.password_hash
	PasswordSalt []byte    // users.password_salt
	CreatedAt    time.Time // users.created_at
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each token
// belongs to exactly one user and carries issue, expiry and revocation
// metadata.  The plain token is never stored; only its SHA-256 hash.  Rows
// are kept after revocation as an audit trail, with ReplacedByHash linking
// a rotated token to its successor.
//
// Fields:
//
//	ID             – primary key identifier.
//	UserID         – owner of the token.
//	TokenHash      – SHA-256 hex digest of the token value.
//	CreatedAt      – when the token was issued.
//	CreatedByIP    – address that requested issuance.
//	ExpiresAt      – expiration timestamp (issue time + configured TTL).
//	RevokedAt      – when the token was revoked (nil while active).
//	RevokedByIP    – address that requested revocation (nil while active).
//	ReplacedByHash – hash of the token that superseded this one on rotation.
type RefreshToken struct {
	ID             uint64     // refresh_tokens.id
	UserID         uint64     // refresh_tokens.user_id
	TokenHash      string     // refresh_tokens.token_hash
	CreatedAt      time.Time  // refresh_tokens.created_at
	CreatedByIP    string     // refresh_tokens.created_by_ip
	ExpiresAt      time.Time  // refresh_tokens.expires_at
	RevokedAt      *time.Time // refresh_tokens.revoked_at (nullable)
	RevokedByIP    *string    // refresh_tokens.revoked_by_ip (nullable)
	ReplacedByHash *string    // refresh_tokens.replaced_by_hash (nullable)
}

// IsActive reports whether the token can still be exchanged: not revoked
// and not past its expiry at the given instant.  Evaluated at call time,
// never cached.
func (t *RefreshToken) IsActive(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}
