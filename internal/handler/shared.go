package handler // handler defines HTTP handlers

import (
	"errors"

	"github.com/labstack/echo/v4"
)

// getUserID extracts the authenticated user id placed in the context by
// the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	if v, ok := c.Get("user_id").(uint64); ok && v > 0 {
		return v, nil
	}
	return 0, errors.New("invalid user_id in context")
}
