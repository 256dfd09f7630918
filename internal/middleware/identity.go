package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth and OptionalJWT.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

// UserID returns the authenticated user id stored in the context.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get(ContextUserID).(type) {
	case uint64:
		return v, v != 0
	case int64:
		return uint64(v), v > 0
	case int:
		return uint64(v), v > 0
	case float64:
		// numeric JWT claims decode as float64
		return uint64(v), v > 0
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil && n != 0
	}
	return 0, false
}

// Role returns the authenticated role, or "" for anonymous requests.
func Role(c echo.Context) string {
	s, _ := c.Get(ContextRole).(string)
	return s
}

// identity is the rate limit key part for the caller.
func identity(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
