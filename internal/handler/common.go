package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// Session cookie names shared with the storefront.
const (
	AdminCookie     = "admin-token"
	AffiliateCookie = "affiliate-token"
)

// Storage contracts; implemented by the repository package.

type CatalogStore interface {
	ListActive(ctx context.Context) ([]model.TicketType, error)
}

type OrderStore interface {
	Place(ctx context.Context, in repository.PlaceOrderInput) (*model.Order, error)
	GetByID(ctx context.Context, id uint64) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	List(ctx context.Context, f repository.OrderFilter) ([]model.Order, error)
	ListPending(ctx context.Context) ([]model.Order, error)
	UpdateStatus(ctx context.Context, id uint64, status *model.OrderStatus, payment *model.PaymentStatus) (*repository.StatusChange, error)
	DeactivateTicket(ctx context.Context, itemID uint64) (*model.OrderItem, bool, error)
}

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (*model.Admin, error)
	GetByID(ctx context.Context, id uint64) (*model.Admin, error)
}

type AffiliateStore interface {
	Create(ctx context.Context, a *model.Affiliate) error
	GetByID(ctx context.Context, id uint64) (*model.Affiliate, error)
	GetByEmail(ctx context.Context, email string) (*model.Affiliate, error)
	List(ctx context.Context) ([]model.Affiliate, error)
	SetActive(ctx context.Context, id uint64, active bool) error
	UpdatePassword(ctx context.Context, id uint64, hash string) error
}

type CommissionStore interface {
	ListByAffiliate(ctx context.Context, affiliateID uint64) ([]model.AffiliateCommission, error)
	ListAll(ctx context.Context) ([]model.AffiliateCommission, error)
	GetByOrder(ctx context.Context, orderID uint64) (*model.AffiliateCommission, error)
}

type NewsletterStore interface {
	Subscribe(ctx context.Context, email, source string) (bool, error)
	List(ctx context.Context) ([]model.NewsletterSubscriber, error)
}

// EmailQueue hands outbound email to the background worker.
type EmailQueue interface {
	Enqueue(ctx context.Context, msg queue.EmailMessage) error
}

// ok writes {"success": true, ...body}.
func ok(c echo.Context, code int, body echo.Map) error {
	if body == nil {
		body = echo.Map{}
	}
	body["success"] = true
	return c.JSON(code, body)
}

// fail writes {"success": false, "error": msg}.
func fail(c echo.Context, code int, msg string) error {
	return c.JSON(code, echo.Map{"success": false, "error": msg})
}

// internalError logs err with the request ID and hides it from the client.
func internalError(c echo.Context, op string, err error) error {
	log.Printf("[%s] %s: %v", c.Response().Header().Get(echo.HeaderXRequestID), op, err)
	return fail(c, http.StatusInternalServerError, "internal error")
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// principal returns the signed-in admin or affiliate ID.
func principal(c echo.Context) (uint64, bool) {
	return middleware.PrincipalID(c)
}

func validEmail(s string) bool {
	a, err := mail.ParseAddress(s)
	return err == nil && a.Address == s && strings.Contains(s, "@")
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// setSession stores token in an httpOnly cookie that expires with it.
func setSession(c echo.Context, name, token string, exp time.Time, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSession(c echo.Context, name string, secure bool) {
	c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// enqueueEmail publishes msg in the background; email is best effort and
// never fails the request that triggered it.
func enqueueEmail(q EmailQueue, msg queue.EmailMessage) {
	if q == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := q.Enqueue(ctx, msg); err != nil {
			log.Printf("[email] enqueue %s to %s: %v", msg.Kind, msg.To, err)
		}
	}()
}

func orderConfirmation(o model.Order) queue.EmailMessage {
	lines := make([]queue.TicketLine, 0, len(o.Items))
	for _, it := range o.Items {
		if !it.IsActive {
			continue
		}
		lines = append(lines, queue.TicketLine{Type: it.TicketTypeName, Quantity: it.Quantity, Code: it.TicketCode})
	}
	return queue.EmailMessage{
		Kind: queue.KindOrderConfirmation,
		To:   o.CustomerEmail,
		Order: &queue.OrderConfirmation{
			CustomerName: o.CustomerName,
			OrderNumber:  o.OrderNumber,
			Total:        o.TotalAmount.StringFixed(2),
			Tickets:      lines,
		},
	}
}

func isNotFound(err error) bool { return errors.Is(err, repository.ErrNotFound) }
