package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/utils"
)

// Context keys populated by SessionAuth.
const (
	CtxPrincipalID = "principal_id"
	CtxRole        = "role"
)

// SessionAuth validates the session JWT stored in cookieName and injects the
// principal ID and role into the request context.  Tokens issued for a
// different role are rejected, so an affiliate cookie can never open the
// admin API even though both are signed with the same secret.
func SessionAuth(secret, cookieName, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ck, err := c.Cookie(cookieName)
			if err != nil || ck.Value == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "not signed in"})
			}
			id, err := utils.ParseSessionToken(secret, ck.Value, role)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "session expired"})
			}
			c.Set(CtxPrincipalID, id)
			c.Set(CtxRole, role)
			return next(c)
		}
	}
}
