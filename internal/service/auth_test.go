package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelkov/task-manager/internal/config"
	"github.com/avelkov/task-manager/internal/model"
	"github.com/avelkov/task-manager/internal/repository"
	"github.com/avelkov/task-manager/internal/utils"
)

// ----- in-memory fakes -----

type fakeUsers struct {
	byName map[string]model.User
	byID   map[uint64]model.User
	nextID uint64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byName: map[string]model.User{}, byID: map[uint64]model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, username string, hash, salt []byte) (uint64, error) {
	if _, ok := f.byName[username]; ok {
		return 0, repository.ErrUsernameExists
	}
	f.nextID++
	u := model.User{ID: f.nextID, Username: username, PasswordHash: hash, PasswordSalt: salt}
	f.byName[username] = u
	f.byID[u.ID] = u
	return u.ID, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	u, ok := f.byName[username]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type fakeTokens struct {
	byHash map[string]*model.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{byHash: map[string]*model.RefreshToken{}}
}

func (f *fakeTokens) Store(_ context.Context, t *model.RefreshToken) error {
	cp := *t
	f.byHash[t.TokenHash] = &cp
	return nil
}

func (f *fakeTokens) FindUserIDByHash(_ context.Context, hash string) (uint64, error) {
	t, ok := f.byHash[hash]
	if !ok {
		return 0, repository.ErrTokenNotFound
	}
	return t.UserID, nil
}

func (f *fakeTokens) GetByHash(_ context.Context, hash string) (*model.RefreshToken, error) {
	t, ok := f.byHash[hash]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTokens) Revoke(_ context.Context, hash, ip string) error {
	t, ok := f.byHash[hash]
	if !ok || !t.IsActive(time.Now().UTC()) {
		return nil // idempotent no-op
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	t.RevokedByIP = &ip
	return nil
}

func (f *fakeTokens) Rotate(_ context.Context, oldHash string, successor *model.RefreshToken, ip string) error {
	old, ok := f.byHash[oldHash]
	if !ok {
		return repository.ErrTokenNotFound
	}
	if !old.IsActive(time.Now().UTC()) {
		return repository.ErrTokenInactive
	}
	now := time.Now().UTC()
	old.RevokedAt = &now
	old.RevokedByIP = &ip
	h := successor.TokenHash
	old.ReplacedByHash = &h
	successor.UserID = old.UserID
	cp := *successor
	f.byHash[successor.TokenHash] = &cp
	return nil
}

func (f *fakeTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	now := time.Now().UTC()
	for _, t := range f.byHash {
		if t.UserID == userID && t.IsActive(now) {
			at := now
			t.RevokedAt = &at
		}
	}
	return nil
}

func newTestService() (*AuthService, *fakeUsers, *fakeTokens) {
	cfg := config.Config{
		JWTSecret:      "VerySecretKey1234567890VerySecretKey1234567890",
		JWTIssuer:      "task-manager",
		JWTAudience:    "task-manager-client",
		AccessTTLMin:   30,
		RefreshTTLDays: 7,
	}
	users := newFakeUsers()
	tokens := newFakeTokens()
	return NewAuthService(cfg, users, tokens), users, tokens
}

// ----- tests -----

func TestRegisterThenLogin(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEmpty(t, u.PasswordSalt)

	pair, err := svc.Login(ctx, "alice", "Secret1", "127.0.0.1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	stored, err := tokens.GetByHash(context.Background(), utils.HashRefreshToken(pair.RefreshToken))
	require.NoError(t, err)
	assert.True(t, stored.IsActive(time.Now().UTC()), "a fresh refresh token must be active")
	assert.Equal(t, u.ID, stored.UserID)
	assert.Equal(t, "127.0.0.1", stored.CreatedByIP)
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "alice", "Other2")
	assert.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestLoginDoesNotLeakUsernameExistence(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nonexistent", "whatever", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials, "unknown user and bad password are indistinguishable")

	// Failed logins must not touch the ledger.
	assert.Empty(t, tokens.byHash)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)
	first, err := svc.Login(ctx, "alice", "Secret1", "10.0.0.1")
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken, "10.0.0.2")
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEmpty(t, second.AccessToken)

	// The consumed token is revoked and linked to its successor.
	old, err := tokens.GetByHash(ctx, utils.HashRefreshToken(first.RefreshToken))
	require.NoError(t, err)
	require.NotNil(t, old.RevokedAt)
	require.NotNil(t, old.RevokedByIP)
	assert.Equal(t, "10.0.0.2", *old.RevokedByIP)
	require.NotNil(t, old.ReplacedByHash)
	assert.Equal(t, utils.HashRefreshToken(second.RefreshToken), *old.ReplacedByHash)

	// Re-presenting the consumed token must fail without minting credentials.
	_, err = svc.Refresh(ctx, first.RefreshToken, "10.0.0.3")
	assert.ErrorIs(t, err, ErrInactiveToken)
}

func TestRefreshErrors(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "", "127.0.0.1")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = svc.Refresh(ctx, "not-a-known-token", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshExpiredToken(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "Secret1", "127.0.0.1")
	require.NoError(t, err)

	// Force the stored token past its expiry.
	stored := tokens.byHash[utils.HashRefreshToken(pair.RefreshToken)]
	stored.ExpiresAt = time.Now().UTC().Add(-time.Minute)

	_, err = svc.Refresh(ctx, pair.RefreshToken, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInactiveToken)
}

func TestRevokeIsIdempotent(t *testing.T) {
	svc, _, tokens := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)
	pair, err := svc.Login(ctx, "alice", "Secret1", "127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken, "10.1.1.1"))
	hash := utils.HashRefreshToken(pair.RefreshToken)
	revokedAt := *tokens.byHash[hash].RevokedAt
	revokedBy := *tokens.byHash[hash].RevokedByIP
	assert.Equal(t, "10.1.1.1", revokedBy)

	// Second revoke: no error, no state change.
	require.NoError(t, svc.Revoke(ctx, pair.RefreshToken, "10.2.2.2"))
	assert.Equal(t, revokedAt, *tokens.byHash[hash].RevokedAt)
	assert.Equal(t, revokedBy, *tokens.byHash[hash].RevokedByIP)

	// Revoking an unknown token is also a no-op success.
	require.NoError(t, svc.Revoke(ctx, "unknown-token", "127.0.0.1"))
}

func TestRevokeMissingToken(t *testing.T) {
	svc, _, _ := newTestService()
	assert.ErrorIs(t, svc.Revoke(context.Background(), "", "127.0.0.1"), ErrMissingToken)
}

// Full session chain: login -> rotate -> old token dead -> revoke successor
// -> successor cannot refresh.
func TestSessionChainScenario(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)

	t1, err := svc.Login(ctx, "alice", "Secret1", "127.0.0.1")
	require.NoError(t, err)

	t2, err := svc.Refresh(ctx, t1.RefreshToken, "127.0.0.1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, t1.RefreshToken, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInactiveToken, "rotated token is dead")

	require.NoError(t, svc.Revoke(ctx, t2.RefreshToken, "127.0.0.1"))
	_, err = svc.Refresh(ctx, t2.RefreshToken, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInactiveToken, "revoked token cannot refresh")
}

func TestConcurrentSessionsAllowed(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)

	laptop, err := svc.Login(ctx, "alice", "Secret1", "10.0.0.1")
	require.NoError(t, err)
	phone, err := svc.Login(ctx, "alice", "Secret1", "10.0.0.2")
	require.NoError(t, err)

	// Rotating one chain leaves the other untouched.
	_, err = svc.Refresh(ctx, laptop.RefreshToken, "10.0.0.1")
	require.NoError(t, err)
	_, err = svc.Refresh(ctx, phone.RefreshToken, "10.0.0.2")
	require.NoError(t, err)
}

func TestRevokeAll(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice", "Secret1")
	require.NoError(t, err)
	a, err := svc.Login(ctx, "alice", "Secret1", "127.0.0.1")
	require.NoError(t, err)
	b, err := svc.Login(ctx, "alice", "Secret1", "127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, svc.RevokeAll(ctx, u.ID))

	_, err = svc.Refresh(ctx, a.RefreshToken, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInactiveToken)
	_, err = svc.Refresh(ctx, b.RefreshToken, "127.0.0.1")
	assert.ErrorIs(t, err, ErrInactiveToken)
}
