package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/avelkov/task-manager/internal/model"
)

// TokenRepo is the refresh token ledger.  Tokens are stored by SHA-256 hash
// with issue/expiry/revocation metadata and are never deleted in normal
// operation; revocation only ever sets fields, it never clears them.  The
// unique index on token_hash is what makes FindUserIDByHash an exact,
// indexed lookup instead of a scan.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

const tokenColumns = "id, user_id, token_hash, created_at, created_by_ip, expires_at, revoked_at, revoked_by_ip, replaced_by_hash"

// Store appends a freshly issued token to the ledger.
func (r *TokenRepo) Store(ctx context.Context, t *model.RefreshToken) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, created_at, created_by_ip, expires_at) VALUES (?,?,?,?,?)",
		t.UserID, t.TokenHash, t.CreatedAt, t.CreatedByIP, t.ExpiresAt)
	if err != nil {
		return fmt.Errorf("store refresh token: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		t.ID = uint64(id)
	}
	return nil
}

// FindUserIDByHash resolves the owning user of a token hash.  Activity is
// not checked here; callers that need it load the full row.
func (r *TokenRepo) FindUserIDByHash(ctx context.Context, hash string) (uint64, error) {
	var userID uint64
	err := r.DB.QueryRowContext(ctx,
		"SELECT user_id FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		hash).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrTokenNotFound
	}
	if err != nil {
		return 0, err
	}
	return userID, nil
}

// GetByHash loads the full ledger row for a token hash.
func (r *TokenRepo) GetByHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	row := r.DB.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE token_hash=? LIMIT 1", hash)
	t, err := scanToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Revoke marks a token as revoked, recording when and by which address.
// It is deliberately idempotent: an unknown or already inactive token is a
// no-op, which keeps logout safe to retry.
func (r *TokenRepo) Revoke(ctx context.Context, hash, ip string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=?, revoked_by_ip=? WHERE token_hash=? AND revoked_at IS NULL AND expires_at > ?",
		time.Now().UTC(), ip, hash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// RevokeAllForUser revokes every active token a user holds.  Used by the
// logout-everywhere path.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=?, revoked_by_ip='' WHERE user_id=? AND revoked_at IS NULL",
		time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("revoke all tokens for user: %w", err)
	}
	return nil
}

// Rotate atomically revokes the old token and inserts its successor.  The
// old row is re-checked under FOR UPDATE inside the transaction so two
// concurrent rotations of the same token cannot both succeed, and a reader
// can never observe a half-rotated state.  Returns ErrTokenNotFound when
// the old hash is unknown and ErrTokenInactive when it is revoked or
// expired.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash string, successor *model.RefreshToken, ip string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotation: %w", err)
	}
	defer tx.Rollback() // no-op after commit

	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? FOR UPDATE",
		oldHash).Scan(&userID, &expiresAt, &revokedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("lock old token: %w", err)
	}
	now := time.Now().UTC()
	if revokedAt.Valid || !now.Before(expiresAt) {
		return ErrTokenInactive
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=?, revoked_by_ip=?, replaced_by_hash=? WHERE token_hash=?",
		now, ip, successor.TokenHash, oldHash); err != nil {
		return fmt.Errorf("revoke old token: %w", err)
	}

	successor.UserID = userID
	res, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, created_at, created_by_ip, expires_at) VALUES (?,?,?,?,?)",
		successor.UserID, successor.TokenHash, successor.CreatedAt, successor.CreatedByIP, successor.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert successor token: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		successor.ID = uint64(id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rotation: %w", err)
	}
	return nil
}

// rowScanner lets scanToken work with both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanToken(row rowScanner) (*model.RefreshToken, error) {
	var (
		t           model.RefreshToken
		revokedAt   sql.NullTime
		revokedByIP sql.NullString
		replacedBy  sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.CreatedAt, &t.CreatedByIP,
		&t.ExpiresAt, &revokedAt, &revokedByIP, &replacedBy)
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		v := revokedAt.Time
		t.RevokedAt = &v
	}
	if revokedByIP.Valid {
		v := revokedByIP.String
		t.RevokedByIP = &v
	}
	if replacedBy.Valid {
		v := replacedBy.String
		t.ReplacedByHash = &v
	}
	return &t, nil
}
