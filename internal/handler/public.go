package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/events"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// maxTicketsPerOrder caps the quantity of a single checkout.
const maxTicketsPerOrder = 50

// maxSourceLen matches newsletter_subscribers.source, counted in characters.
const maxSourceLen = 60

// PublicHandler serves the storefront: the ticket catalog, checkout, order
// confirmation lookup and newsletter signup.  No session is required.
type PublicHandler struct {
	Catalog    CatalogStore
	Orders     OrderStore
	Newsletter NewsletterStore
	Events     events.Publisher
	// PurgeCatalog drops cached catalog responses after a sale changes the
	// sold counts.  Optional.
	PurgeCatalog func(ctx context.Context) error
}

// ListTicketTypes handles GET /api/ticket-types.
func (h *PublicHandler) ListTicketTypes(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	types, err := h.Catalog.ListActive(ctx)
	if err != nil {
		return internalError(c, "list ticket types", err)
	}
	return ok(c, http.StatusOK, echo.Map{"ticket_types": types})
}

type placeOrderReq struct {
	Name         string                `json:"name"`
	Email        string                `json:"email"`
	Phone        string                `json:"phone"`
	Items        []repository.LineItem `json:"items"`
	ReferralCode string                `json:"referral_code"`
}

func (r *placeOrderReq) validate() string {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normEmail(r.Email)
	switch {
	case r.Name == "":
		return "name is required"
	case !validEmail(r.Email):
		return "a valid email is required"
	case len(r.Items) == 0:
		return "select at least one ticket"
	}
	total := 0
	for _, it := range r.Items {
		if it.TicketTypeID == 0 || it.Quantity == 0 {
			return "each item needs a ticket_type_id and a positive quantity"
		}
		total += int(it.Quantity)
	}
	if total > maxTicketsPerOrder {
		return "too many tickets in one order"
	}
	return ""
}

// PlaceOrder handles POST /api/orders.  The order starts PENDING/PENDING;
// payment confirmation is recorded later from the admin dashboard.
func (h *PublicHandler) PlaceOrder(c echo.Context) error {
	var req placeOrderReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if msg := req.validate(); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	if req.ReferralCode == "" {
		// the storefront forwards ?ref= from the landing page
		req.ReferralCode = c.QueryParam("ref")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	order, err := h.Orders.Place(ctx, repository.PlaceOrderInput{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		Items:        req.Items,
		ReferralCode: req.ReferralCode,
	})
	switch {
	case errors.Is(err, repository.ErrUnknownTicketType):
		return fail(c, http.StatusBadRequest, "ticket type is not available")
	case errors.Is(err, repository.ErrSoldOut):
		return fail(c, http.StatusConflict, err.Error())
	case err != nil:
		return internalError(c, "place order", err)
	}

	h.Events.Publish(events.NewOrderEvent(events.OrderPlaced, *order))
	if h.PurgeCatalog != nil {
		if err := h.PurgeCatalog(ctx); err != nil {
			log.Printf("[cache] purge catalog: %v", err)
		}
	}
	return ok(c, http.StatusCreated, echo.Map{"order": order})
}

// GetOrder handles GET /api/orders/:orderNumber, used by the confirmation
// page.  Order numbers are random UUIDs and act as the access secret.
func (h *PublicHandler) GetOrder(c echo.Context) error {
	number := strings.TrimSpace(c.Param("orderNumber"))
	if number == "" {
		return fail(c, http.StatusBadRequest, "order number is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	order, err := h.Orders.GetByNumber(ctx, number)
	if err != nil {
		if isNotFound(err) {
			return fail(c, http.StatusNotFound, "order not found")
		}
		return internalError(c, "get order", err)
	}
	return ok(c, http.StatusOK, echo.Map{"order": order})
}

type subscribeReq struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

// Subscribe handles POST /api/newsletter.  Subscribing twice succeeds.
func (h *PublicHandler) Subscribe(c echo.Context) error {
	var req subscribeReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Email = normEmail(req.Email)
	if !validEmail(req.Email) {
		return fail(c, http.StatusBadRequest, "a valid email is required")
	}
	req.Source = truncateRunes(strings.TrimSpace(req.Source), maxSourceLen)
	ctx, cancel := reqCtx(c)
	defer cancel()
	created, err := h.Newsletter.Subscribe(ctx, req.Email, req.Source)
	if err != nil {
		return internalError(c, "subscribe", err)
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return ok(c, code, echo.Map{"subscribed": true, "new": created})
}

// truncateRunes cuts s to at most n characters without splitting a
// multi-byte sequence.
func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
