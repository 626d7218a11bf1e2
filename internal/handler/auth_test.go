package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelkov/task-manager/internal/config"
	"github.com/avelkov/task-manager/internal/model"
	"github.com/avelkov/task-manager/internal/repository"
	"github.com/avelkov/task-manager/internal/service"
)

// Minimal in-memory stores so handler tests exercise the real orchestrator
// without a database.

type memUsers struct {
	byName map[string]model.User
	nextID uint64
}

func (m *memUsers) Create(_ context.Context, username string, hash, salt []byte) (uint64, error) {
	if _, ok := m.byName[username]; ok {
		return 0, repository.ErrUsernameExists
	}
	m.nextID++
	m.byName[username] = model.User{ID: m.nextID, Username: username, PasswordHash: hash, PasswordSalt: salt}
	return m.nextID, nil
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (model.User, error) {
	u, ok := m.byName[username]
	if !ok {
		return model.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	for _, u := range m.byName {
		if u.ID == id {
			return u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

type memTokens struct {
	byHash map[string]*model.RefreshToken
}

func (m *memTokens) Store(_ context.Context, t *model.RefreshToken) error {
	cp := *t
	m.byHash[t.TokenHash] = &cp
	return nil
}

func (m *memTokens) FindUserIDByHash(_ context.Context, hash string) (uint64, error) {
	t, ok := m.byHash[hash]
	if !ok {
		return 0, repository.ErrTokenNotFound
	}
	return t.UserID, nil
}

func (m *memTokens) GetByHash(_ context.Context, hash string) (*model.RefreshToken, error) {
	t, ok := m.byHash[hash]
	if !ok {
		return nil, repository.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTokens) Revoke(_ context.Context, hash, ip string) error {
	t, ok := m.byHash[hash]
	if !ok || !t.IsActive(time.Now().UTC()) {
		return nil
	}
	now := time.Now().UTC()
	t.RevokedAt = &now
	t.RevokedByIP = &ip
	return nil
}

func (m *memTokens) Rotate(_ context.Context, oldHash string, successor *model.RefreshToken, ip string) error {
	old, ok := m.byHash[oldHash]
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
	m.byHash[successor.TokenHash] = &cp
	return nil
}

func (m *memTokens) RevokeAllForUser(_ context.Context, userID uint64) error {
	now := time.Now().UTC()
	for _, t := range m.byHash {
		if t.UserID == userID && t.IsActive(now) {
			at := now
			t.RevokedAt = &at
		}
	}
	return nil
}

func newTestHandler() (*AuthHandler, *echo.Echo) {
	cfg := config.Config{
		JWTSecret:      "VerySecretKey1234567890VerySecretKey1234567890",
		JWTIssuer:      "task-manager",
		JWTAudience:    "task-manager-client",
		AccessTTLMin:   30,
		RefreshTTLDays: 7,
	}
	svc := service.NewAuthService(cfg,
		&memUsers{byName: map[string]model.User{}},
		&memTokens{byHash: map[string]*model.RefreshToken{}})
	return NewAuthHandler(cfg, svc), echo.New()
}

func postJSON(e *echo.Echo, target, body string, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == refreshCookieName {
			return ck
		}
	}
	t.Fatal("refreshToken cookie not set")
	return nil
}

func TestRegisterAndDuplicate(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/register", `{"username":"alice","password":"Secret1"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Registration successful")

	rec, c = postJSON(e, "/auth/register", `{"username":"alice","password":"Other2"}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Username already exists")
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/register", `{"username":"","password":""}`)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginReturnsTokensAndCookie(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/register", `{"username":"alice","password":"Secret1"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	rec, c = postJSON(e, "/auth/login", `{"username":"alice","password":"Secret1"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token        string    `json:"token"`
		RefreshToken string    `json:"refreshToken"`
		Expires      time.Time `json:"expires"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), resp.Expires, 10*time.Second)

	ck := refreshCookie(t, rec)
	assert.Equal(t, resp.RefreshToken, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.True(t, ck.Secure)
	assert.Equal(t, http.SameSiteNoneMode, ck.SameSite)
	assert.WithinDuration(t, resp.Expires, ck.Expires, 2*time.Second)
}

func TestLoginInvalidCredentials(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/register", `{"username":"alice","password":"Secret1"}`)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusOK, rec.Code)

	// Wrong password and unknown username produce the same response.
	rec, c = postJSON(e, "/auth/login", `{"username":"alice","password":"wrong"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	wrongPassBody := rec.Body.String()

	rec, c = postJSON(e, "/auth/login", `{"username":"ghost","password":"Secret1"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, wrongPassBody, rec.Body.String())
}

func TestRefreshRotatesCookie(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/register", `{"username":"alice","password":"Secret1"}`)
	require.NoError(t, h.Register(c))
	rec, c = postJSON(e, "/auth/login", `{"username":"alice","password":"Secret1"}`)
	require.NoError(t, h.Login(c))
	first := refreshCookie(t, rec)

	rec, c = postJSON(e, "/auth/refresh-token", "", first)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)
	second := refreshCookie(t, rec)
	assert.NotEqual(t, first.Value, second.Value)

	// Re-presenting the consumed token is unauthorized.
	rec, c = postJSON(e, "/auth/refresh-token", "", first)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "expired or revoked")
}

func TestRefreshWithoutCookie(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/refresh-token", "")
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshUnknownToken(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/refresh-token", "",
		&http.Cookie{Name: refreshCookieName, Value: "bogus"})
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid refresh token")
}

func TestRevokeFallsBackToCookie(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/register", `{"username":"alice","password":"Secret1"}`)
	require.NoError(t, h.Register(c))
	rec, c = postJSON(e, "/auth/login", `{"username":"alice","password":"Secret1"}`)
	require.NoError(t, h.Login(c))
	ck := refreshCookie(t, rec)

	rec, c = postJSON(e, "/auth/revoke-token", `{}`, ck)
	require.NoError(t, h.Revoke(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token revoked")

	// The revoked token can no longer refresh.
	rec, c = postJSON(e, "/auth/refresh-token", "", ck)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRevokeWithoutAnyToken(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/revoke-token", `{}`)
	require.NoError(t, h.Revoke(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Token is required")
}

func TestRevokeIsIdempotentOverHTTP(t *testing.T) {
	h, e := newTestHandler()

	rec, c := postJSON(e, "/auth/revoke-token", `{"token":"never-issued"}`)
	require.NoError(t, h.Revoke(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, c = postJSON(e, "/auth/revoke-token", `{"token":"never-issued"}`)
	require.NoError(t, h.Revoke(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
