package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelkov/task-manager/internal/config"
	"github.com/avelkov/task-manager/internal/queue"
	"github.com/avelkov/task-manager/internal/service"
)

// refreshCookieName is the side channel the refresh token travels in.  The
// cookie is HttpOnly so scripts never see the raw token, Secure, and
// SameSite=None so a browser client on another origin can use it.
const refreshCookieName = "refreshToken"

// AuthHandler adapts HTTP requests onto the auth orchestrator.  All
// business rules live in service.AuthService; this layer only binds
// bodies, reads cookies and maps classified errors to statuses.
type AuthHandler struct {
	Cfg  config.Config
	Auth *service.AuthService
}

func NewAuthHandler(cfg config.Config, auth *service.AuthService) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Auth: auth}
}

// ----- DTOs -----

type credentialsReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
type revokeReq struct {
	Token string `json:"token"`
}

type messageResp struct {
	Message string `json:"message"`
}
type tokenResp struct {
	Token        string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	Expires      time.Time `json:"expires"`
}

// Register creates a new user account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "username and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Auth.Register(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrDuplicateUsername) {
			return c.JSON(http.StatusBadRequest, messageResp{Message: "Username already exists"})
		}
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "registration failed"})
	}

	_ = service.PublishAuthEvent(ctx, queue.AuthEvent{
		Type:     queue.EventUserRegistered,
		UserID:   u.ID,
		Username: u.Username,
		IP:       c.RealIP(),
		At:       time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, messageResp{Message: "Registration successful"})
}

// Login verifies credentials and returns a token pair.  The refresh token
// additionally travels back in the cookie side channel.
func (h *AuthHandler) Login(c echo.Context) error {
	var req credentialsReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Login(ctx, req.Username, req.Password, c.RealIP())
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, messageResp{Message: "Invalid username or password"})
		}
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "login failed"})
	}

	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpires)
	return c.JSON(http.StatusOK, tokenResp{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Expires:      pair.RefreshExpires,
	})
}

// Refresh rotates the refresh token from the cookie and returns a fresh
// pair.  A missing, unknown or inactive token is unauthorized; inactive
// tokens never mint new credentials.
func (h *AuthHandler) Refresh(c echo.Context) error {
	presented := ""
	if ck, err := c.Cookie(refreshCookieName); err == nil {
		presented = ck.Value
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	pair, err := h.Auth.Refresh(ctx, presented, c.RealIP())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingToken):
			return c.JSON(http.StatusUnauthorized, messageResp{Message: "Refresh token is required"})
		case errors.Is(err, service.ErrInvalidToken):
			return c.JSON(http.StatusUnauthorized, messageResp{Message: "Invalid refresh token"})
		case errors.Is(err, service.ErrInactiveToken):
			return c.JSON(http.StatusUnauthorized, messageResp{Message: "Token expired or revoked"})
		}
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "refresh failed"})
	}

	h.setRefreshCookie(c, pair.RefreshToken, pair.RefreshExpires)
	return c.JSON(http.StatusOK, tokenResp{
		Token:        pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		Expires:      pair.RefreshExpires,
	})
}

// Revoke invalidates a refresh token supplied in the body, falling back to
// the cookie.  Revoking an unknown or already revoked token succeeds;
// logout is idempotent.
func (h *AuthHandler) Revoke(c echo.Context) error {
	var req revokeReq
	_ = c.Bind(&req) // body is optional; the cookie may carry the token
	token := strings.TrimSpace(req.Token)
	if token == "" {
		if ck, err := c.Cookie(refreshCookieName); err == nil {
			token = ck.Value
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Auth.Revoke(ctx, token, c.RealIP()); err != nil {
		if errors.Is(err, service.ErrMissingToken) {
			return c.JSON(http.StatusBadRequest, messageResp{Message: "Token is required"})
		}
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "revoke failed"})
	}

	_ = service.PublishAuthEvent(ctx, queue.AuthEvent{
		Type:   queue.EventTokenRevoked,
		IP:     c.RealIP(),
		Reason: "revoke-token",
		At:     time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, messageResp{Message: "Token revoked"})
}

// Me returns the authenticated identity extracted by the JWT middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"user_id":  c.Get("user_id"),
		"username": c.Get("username"),
	})
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	})
}
