package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/events"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/report"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

// AdminHandler backs the admin dashboard.  All routes sit behind the
// admin-token session.
type AdminHandler struct {
	Cfg         config.Config
	Orders      OrderStore
	Affiliates  AffiliateStore
	Commissions CommissionStore
	Newsletter  NewsletterStore
	Emails      EmailQueue
	Events      events.Publisher
}

// ListOrders handles GET /api/admin/orders?search=&status=&payment_status=.
func (h *AdminHandler) ListOrders(c echo.Context) error {
	f := repository.OrderFilter{Search: c.QueryParam("search")}
	if v := strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))); v != "" {
		f.Status = model.OrderStatus(v)
		if !f.Status.Valid() {
			return fail(c, http.StatusBadRequest, "unknown status")
		}
	}
	if v := strings.ToUpper(strings.TrimSpace(c.QueryParam("payment_status"))); v != "" {
		f.PaymentStatus = model.PaymentStatus(v)
		if !f.PaymentStatus.Valid() {
			return fail(c, http.StatusBadRequest, "unknown payment_status")
		}
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.Orders.List(ctx, f)
	if err != nil {
		return internalError(c, "list orders", err)
	}
	return ok(c, http.StatusOK, echo.Map{"orders": orders, "count": len(orders)})
}

// PendingOrders handles GET /api/admin/orders/pending: every order that is
// not both PAID and CONFIRMED.
func (h *AdminHandler) PendingOrders(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	orders, err := h.Orders.ListPending(ctx)
	if err != nil {
		return internalError(c, "list pending orders", err)
	}
	orders = report.PendingTickets(orders)
	tickets := 0
	for _, o := range orders {
		tickets += o.TicketCount()
	}
	return ok(c, http.StatusOK, echo.Map{"orders": orders, "count": len(orders), "tickets": tickets})
}

// GetOrder handles GET /api/admin/orders/:orderId.  The commission is null
// for orders without a referral.
func (h *AdminHandler) GetOrder(c echo.Context) error {
	id, valid := pathID(c, "orderId")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid order id")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	order, err := h.Orders.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return fail(c, http.StatusNotFound, "order not found")
		}
		return internalError(c, "get order", err)
	}
	var commission *model.AffiliateCommission
	if order.AffiliateID != nil {
		commission, err = h.Commissions.GetByOrder(ctx, id)
		if err != nil && !isNotFound(err) {
			return internalError(c, "get commission", err)
		}
	}
	return ok(c, http.StatusOK, echo.Map{"order": order, "commission": commission})
}

type statusReq struct {
	Status        *model.OrderStatus   `json:"status"`
	PaymentStatus *model.PaymentStatus `json:"payment_status"`
}

// UpdateOrderStatus handles PATCH /api/admin/orders/:orderId/status.  When
// the update settles the order the buyer's confirmation email is queued
// and an order.settled event is published.
func (h *AdminHandler) UpdateOrderStatus(c echo.Context) error {
	id, valid := pathID(c, "orderId")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid order id")
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if req.Status == nil && req.PaymentStatus == nil {
		return fail(c, http.StatusBadRequest, "status or payment_status is required")
	}
	if req.Status != nil {
		s := model.OrderStatus(strings.ToUpper(string(*req.Status)))
		if !s.Valid() {
			return fail(c, http.StatusBadRequest, "unknown status")
		}
		req.Status = &s
	}
	if req.PaymentStatus != nil {
		p := model.PaymentStatus(strings.ToUpper(string(*req.PaymentStatus)))
		if !p.Valid() {
			return fail(c, http.StatusBadRequest, "unknown payment_status")
		}
		req.PaymentStatus = &p
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	change, err := h.Orders.UpdateStatus(ctx, id, req.Status, req.PaymentStatus)
	switch {
	case isNotFound(err):
		return fail(c, http.StatusNotFound, "order not found")
	case errors.Is(err, repository.ErrConflict):
		return fail(c, http.StatusConflict, "cancelled orders cannot be reopened")
	case err != nil:
		return internalError(c, "update order status", err)
	}

	if change.BecameSettled() {
		h.Events.Publish(events.NewOrderEvent(events.OrderSettled, change.After))
		enqueueEmail(h.Emails, orderConfirmation(change.After))
	}
	return ok(c, http.StatusOK, echo.Map{"order": change.After, "settled": change.After.Settled()})
}

type deactivateReq struct {
	Confirm bool `json:"confirm"`
}

// DeactivateTicket handles POST /api/admin/tickets/:ticketId/deactivate.
// The dashboard asks for confirmation first and sends {"confirm": true};
// anything else is refused.  Deactivating an inactive ticket succeeds with
// changed=false.
func (h *AdminHandler) DeactivateTicket(c echo.Context) error {
	id, valid := pathID(c, "ticketId")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid ticket id")
	}
	var req deactivateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if !req.Confirm {
		return fail(c, http.StatusBadRequest, "confirmation required to deactivate a ticket")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	ticket, changed, err := h.Orders.DeactivateTicket(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return fail(c, http.StatusNotFound, "ticket not found")
		}
		return internalError(c, "deactivate ticket", err)
	}
	return ok(c, http.StatusOK, echo.Map{"ticket": ticket, "changed": changed})
}

// ListSubscribers handles GET /api/admin/newsletter.
func (h *AdminHandler) ListSubscribers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	subs, err := h.Newsletter.List(ctx)
	if err != nil {
		return internalError(c, "list subscribers", err)
	}
	return ok(c, http.StatusOK, echo.Map{"subscribers": subs, "count": len(subs)})
}
