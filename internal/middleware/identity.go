package middleware

// identity.go holds the context keys JWTAuth fills in and the accessors
// handlers and other middleware use to read them back.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/utils"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxClaims = "claims"
)

// UserID returns the authenticated user's id.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(ctxUserID).(uint64)
	return id, ok && id != 0
}

// Role returns the authenticated user's role, or "" for guests.
func Role(c echo.Context) string {
	r, _ := c.Get(ctxRole).(string)
	return r
}

// Claims returns the verified token claims, or nil for guests.
func Claims(c echo.Context) *utils.Claims {
	cl, _ := c.Get(ctxClaims).(*utils.Claims)
	return cl
}

// SetIdentity stores claims on the context the way JWTAuth does.
func SetIdentity(c echo.Context, cl *utils.Claims) {
	c.Set(ctxUserID, cl.UserID)
	c.Set(ctxRole, cl.Role)
	c.Set(ctxClaims, cl)
}

// currentUserID is the rate limit key part for the caller.
func currentUserID(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
