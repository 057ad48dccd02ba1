package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// ErrPrincipalInactive is returned by a PrincipalCheck for accounts that
// still exist but may no longer use the portal.
var ErrPrincipalInactive = errors.New("account inactive")

// PrincipalCheck confirms that the principal behind a valid token may still
// act.  It should return an error wrapping a not-found sentinel or
// ErrPrincipalInactive when access must be refused.
type PrincipalCheck func(ctx context.Context, id uint64) error

// RequireActive runs after SessionAuth and refuses tokens whose account has
// been deleted or deactivated since the cookie was issued.  Lookup failures
// other than refusals are reported as 500.
func RequireActive(check PrincipalCheck, refusal ...error) echo.MiddlewareFunc {
	refusal = append(refusal, ErrPrincipalInactive)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := PrincipalID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": "not signed in"})
			}
			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()
			if err := check(ctx, id); err != nil {
				for _, r := range refusal {
					if errors.Is(err, r) {
						return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "account disabled"})
					}
				}
				log.Printf("[auth] principal check id=%d: %v", id, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"success": false, "error": "internal error"})
			}
			return next(c)
		}
	}
}
