package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// PrincipalID returns the admin or affiliate ID stored by SessionAuth.
func PrincipalID(c echo.Context) (uint64, bool) {
	id, ok := c.Get(CtxPrincipalID).(uint64)
	return id, ok && id > 0
}

// principalKey identifies the caller for rate limiting; anonymous callers
// share the "anon" bucket of their IP.
func principalKey(c echo.Context) string {
	if id, ok := PrincipalID(c); ok {
		role, _ := c.Get(CtxRole).(string)
		return role + "-" + strconv.FormatUint(id, 10)
	}
	return "anon"
}
