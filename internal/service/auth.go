// Package service contains the authentication orchestrator and the auth
// event publisher.  The orchestrator owns every business rule of the
// session layer: credential verification, access-token issuance, and the
// refresh token lifecycle (issue, rotate, revoke).  HTTP handlers stay
// thin adapters over it.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avelkov/task-manager/internal/config"
	"github.com/avelkov/task-manager/internal/model"
	"github.com/avelkov/task-manager/internal/repository"
	"github.com/avelkov/task-manager/internal/utils"
)

// Classified auth failures.  Handlers map these to HTTP statuses; anything
// else coming out of the orchestrator is an infrastructure error.
var (
	// ErrDuplicateUsername: registration with a username that is taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrInvalidCredentials covers both unknown username and wrong
	// password so the login endpoint cannot be used to enumerate users.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingToken: no refresh token was supplied at all.
	ErrMissingToken = errors.New("refresh token is required")
	// ErrInvalidToken: the presented refresh token is owned by no user.
	ErrInvalidToken = errors.New("invalid refresh token")
	// ErrInactiveToken: the token exists but is expired or revoked.
	ErrInactiveToken = errors.New("refresh token expired or revoked")
)

// UserStore is the slice of the user repository the orchestrator needs.
type UserStore interface {
	Create(ctx context.Context, username string, hash, salt []byte) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore is the refresh token ledger contract.
type TokenStore interface {
	Store(ctx context.Context, t *model.RefreshToken) error
	FindUserIDByHash(ctx context.Context, hash string) (uint64, error)
	GetByHash(ctx context.Context, hash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, hash, ip string) error
	Rotate(ctx context.Context, oldHash string, successor *model.RefreshToken, ip string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// TokenPair is what a successful login or refresh hands back to the
// transport layer: a signed access token plus a raw refresh token with its
// expiry, which the handler places in the cookie side channel.
type TokenPair struct {
	AccessToken    string
	AccessExpires  time.Time
	RefreshToken   string
	RefreshExpires time.Time
}

// AuthService composes the credential store, password verifier, token
// signer and refresh token ledger into the register/login/refresh/revoke
// flows.
type AuthService struct {
	cfg    config.Config
	users  UserStore
	tokens TokenStore
}

func NewAuthService(cfg config.Config, users UserStore, tokens TokenStore) *AuthService {
	return &AuthService{cfg: cfg, users: users, tokens: tokens}
}

// Register creates a user with a fresh salt and keyed password digest.
// The username pre-check keeps the common duplicate case cheap; the unique
// index maps the racing case to the same error.
func (s *AuthService) Register(ctx context.Context, username, password string) (model.User, error) {
	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return model.User{}, ErrDuplicateUsername
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return model.User{}, fmt.Errorf("check username: %w", err)
	}

	salt, err := utils.NewSalt()
	if err != nil {
		return model.User{}, fmt.Errorf("generate salt: %w", err)
	}
	hash := utils.HashPassword(password, salt)

	id, err := s.users.Create(ctx, username, hash, salt)
	if err != nil {
		if errors.Is(err, repository.ErrUsernameExists) {
			return model.User{}, ErrDuplicateUsername
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return model.User{ID: id, Username: username, PasswordHash: hash, PasswordSalt: salt}, nil
}

// Login verifies credentials and on success issues an access token plus a
// fresh refresh token persisted to the ledger.  A failed login leaves the
// ledger untouched.
func (s *AuthService) Login(ctx context.Context, username, password, ip string) (TokenPair, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		return TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.VerifyPassword(password, u.PasswordSalt, u.PasswordHash) {
		return TokenPair{}, ErrInvalidCredentials
	}
	return s.issuePair(ctx, u, ip)
}

// Refresh exchanges an active refresh token for a new token pair.  The old
// token is revoked and linked to its successor in one atomic rotation, so
// re-presenting it afterwards fails with ErrInactiveToken.
func (s *AuthService) Refresh(ctx context.Context, presented, ip string) (TokenPair, error) {
	if presented == "" {
		return TokenPair{}, ErrMissingToken
	}
	oldHash := utils.HashRefreshToken(presented)

	userID, err := s.tokens.FindUserIDByHash(ctx, oldHash)
	if errors.Is(err, repository.ErrTokenNotFound) {
		return TokenPair{}, ErrInvalidToken
	}
	if err != nil {
		return TokenPair{}, fmt.Errorf("resolve token owner: %w", err)
	}

	existing, err := s.tokens.GetByHash(ctx, oldHash)
	if err != nil {
		return TokenPair{}, fmt.Errorf("load token: %w", err)
	}
	if !existing.IsActive(time.Now().UTC()) {
		return TokenPair{}, ErrInactiveToken
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("load user: %w", err)
	}

	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	successor := &model.RefreshToken{
		UserID:      u.ID,
		TokenHash:   utils.HashRefreshToken(refresh.Raw),
		CreatedAt:   time.Now().UTC(),
		CreatedByIP: ip,
		ExpiresAt:   refresh.Exp,
	}
	if err := s.tokens.Rotate(ctx, oldHash, successor, ip); err != nil {
		switch {
		case errors.Is(err, repository.ErrTokenNotFound):
			return TokenPair{}, ErrInvalidToken
		case errors.Is(err, repository.ErrTokenInactive):
			// Lost a race against a concurrent rotation or revoke.
			return TokenPair{}, ErrInactiveToken
		}
		return TokenPair{}, fmt.Errorf("rotate token: %w", err)
	}

	access, err := utils.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.JWTAudience,
		u.ID, u.Username, s.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	return TokenPair{
		AccessToken:    access.Token,
		AccessExpires:  access.Exp,
		RefreshToken:   refresh.Raw,
		RefreshExpires: refresh.Exp,
	}, nil
}

// Revoke invalidates a refresh token.  Unknown or already inactive tokens
// are treated as success so logout stays idempotent; the only failure a
// caller sees is supplying no token at all.
func (s *AuthService) Revoke(ctx context.Context, presented, ip string) error {
	if presented == "" {
		return ErrMissingToken
	}
	return s.tokens.Revoke(ctx, utils.HashRefreshToken(presented), ip)
}

// RevokeAll invalidates every active refresh token the user holds.
func (s *AuthService) RevokeAll(ctx context.Context, userID uint64) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}

// issuePair signs an access token and appends a fresh refresh token to the
// user's ledger.
func (s *AuthService) issuePair(ctx context.Context, u model.User, ip string) (TokenPair, error) {
	access, err := utils.NewAccessToken(s.cfg.JWTSecret, s.cfg.JWTIssuer, s.cfg.JWTAudience,
		u.ID, u.Username, s.cfg.AccessTTLMin)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTLDays)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}
	if err := s.tokens.Store(ctx, &model.RefreshToken{
		UserID:      u.ID,
		TokenHash:   utils.HashRefreshToken(refresh.Raw),
		CreatedAt:   time.Now().UTC(),
		CreatedByIP: ip,
		ExpiresAt:   refresh.Exp,
	}); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return TokenPair{
		AccessToken:    access.Token,
		AccessExpires:  access.Exp,
		RefreshToken:   refresh.Raw,
		RefreshExpires: refresh.Exp,
	}, nil
}
