package middleware

// identity.go holds the context keys set by JWTAuth and the accessors
// handlers use to read the authenticated account back out of the context.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// Context keys populated by JWTAuth.
const (
	CtxAccountID = "account_id"
	CtxPublicID  = "public_id"
	CtxRole      = "role"
)

// AccountID returns the internal id of the authenticated account.
func AccountID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxAccountID).(uint64)
	return id, ok && id != 0
}

// PublicID returns the public id of the authenticated account, or "".
func PublicID(c echo.Context) string {
	s, _ := c.Get(CtxPublicID).(string)
	return s
}

// Role returns the role claim of the authenticated account, or "".
func Role(c echo.Context) string {
	s, _ := c.Get(CtxRole).(string)
	return s
}

// currentUserID renders the authenticated account for rate-limit keys and
// request logs. Unauthenticated requests are "anon".
func currentUserID(c echo.Context) string {
	if id, ok := AccountID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
