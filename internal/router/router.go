// Package router wires handlers and middleware onto the Echo instance.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/handler"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
)

// RegisterPublic registers the storefront routes.  Only the ticket catalog
// is cached; checkout and lookups always hit the database.
func RegisterPublic(e *echo.Echo, db handler.Pinger, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health(db))

	api := e.Group("/api")
	api.GET("/ticket-types", p.ListTicketTypes, cache)
	api.POST("/orders", p.PlaceOrder)
	api.GET("/orders/:orderNumber", p.GetOrder)
	api.POST("/newsletter", p.Subscribe)
}

// RegisterAdmin registers the dashboard API.  Login and logout are open and
// the login route is rate limited; everything else requires the admin-token
// cookie of an admin that still exists.
func RegisterAdmin(e *echo.Echo, cfg config.Config, a *handler.AuthHandler, h *handler.AdminHandler,
	stillAdmin middleware.PrincipalCheck, limit echo.MiddlewareFunc, refusal ...error) {
	g := e.Group("/api/admin")
	g.POST("/login", a.AdminLogin, limit)
	g.POST("/logout", a.AdminLogout)

	// middleware is attached per route; a middleware group would also catch
	// unknown paths and answer them with 401 instead of 404
	auth := []echo.MiddlewareFunc{
		middleware.SessionAuth(cfg.JWTSecret, handler.AdminCookie, model.RoleAdmin),
		middleware.RequireActive(stillAdmin, refusal...),
	}
	g.GET("/me", a.AdminMe, auth...)
	g.GET("/orders", h.ListOrders, auth...)
	g.GET("/orders/pending", h.PendingOrders, auth...)
	g.GET("/orders/:orderId", h.GetOrder, auth...)
	g.PATCH("/orders/:orderId/status", h.UpdateOrderStatus, auth...)
	g.POST("/tickets/:ticketId/deactivate", h.DeactivateTicket, auth...)
	g.GET("/affiliates", h.ListAffiliates, auth...)
	g.POST("/affiliates", h.CreateAffiliate, auth...)
	g.PATCH("/affiliates/:id/active", h.SetAffiliateActive, auth...)
	g.GET("/newsletter", h.ListSubscribers, auth...)
}

// RegisterAffiliate registers the affiliate portal.  Deactivated affiliates
// lose access immediately even with an unexpired cookie.
func RegisterAffiliate(e *echo.Echo, cfg config.Config, a *handler.AuthHandler, h *handler.AffiliateHandler,
	stillActive middleware.PrincipalCheck, limit echo.MiddlewareFunc, refusal ...error) {
	g := e.Group("/api/affiliate")
	g.POST("/login", a.AffiliateLogin, limit)
	g.POST("/logout", a.AffiliateLogout)

	auth := []echo.MiddlewareFunc{
		middleware.SessionAuth(cfg.JWTSecret, handler.AffiliateCookie, model.RoleAffiliate),
		middleware.RequireActive(stillActive, refusal...),
	}
	g.GET("/dashboard", h.Dashboard, auth...)
	g.GET("/commissions", h.ListCommissions, auth...)
	g.POST("/password", h.ChangePassword, append(auth, limit)...)
}
