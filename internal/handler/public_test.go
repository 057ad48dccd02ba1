package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/events"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/repository"
)

type fakeCatalog struct{ types []model.TicketType }

func (f fakeCatalog) ListActive(context.Context) ([]model.TicketType, error) { return f.types, nil }

type pingFunc func(context.Context) error

func (p pingFunc) PingContext(ctx context.Context) error { return p(ctx) }

func newPublic() (*PublicHandler, *fakeOrders, *fakeEvents, *int) {
	orders := &fakeOrders{}
	evs := &fakeEvents{}
	purged := 0
	return &PublicHandler{
		Catalog:    fakeCatalog{types: []model.TicketType{{ID: 1, Name: "General", Price: dec("25.00"), IsActive: true}}},
		Orders:     orders,
		Newsletter: &fakeNewsletter{emails: map[string]bool{}},
		Events:     evs,
		PurgeCatalog: func(context.Context) error {
			purged++
			return nil
		},
	}, orders, evs, &purged
}

func TestListTicketTypes(t *testing.T) {
	h, _, _, _ := newPublic()
	rec := call(t, h.ListTicketTypes, http.MethodGet, "/api/ticket-types", "", 0)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["ticket_types"], 1)
	assert.Contains(t, rec.Body.String(), `"price":"25"`)
}

func TestPlaceOrder(t *testing.T) {
	h, orders, evs, purged := newPublic()
	body := `{"name":"Ann","email":"Ann@Example.com","items":[{"ticket_type_id":1,"quantity":2}]}`
	rec := call(t, h.PlaceOrder, http.MethodPost, "/api/orders?ref=jane-7kq4xp", body, 0)
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, orders.placed, 1)
	assert.Equal(t, "ann@example.com", orders.placed[0].Email)
	assert.Equal(t, "jane-7kq4xp", orders.placed[0].ReferralCode)
	require.Len(t, evs.evs, 1)
	assert.Equal(t, events.OrderPlaced, evs.evs[0].Type)
	assert.Equal(t, 1, *purged)
	assert.Equal(t, "n-new", decode(t, rec)["order"].(map[string]any)["order_number"])
}

func TestPlaceOrderValidation(t *testing.T) {
	h, orders, _, _ := newPublic()
	for _, body := range []string{
		`{"email":"ann@example.com","items":[{"ticket_type_id":1,"quantity":1}]}`,
		`{"name":"Ann","email":"nope","items":[{"ticket_type_id":1,"quantity":1}]}`,
		`{"name":"Ann","email":"ann@example.com","items":[]}`,
		`{"name":"Ann","email":"ann@example.com","items":[{"ticket_type_id":1,"quantity":0}]}`,
		`{"name":"Ann","email":"ann@example.com","items":[{"ticket_type_id":1,"quantity":51}]}`,
	} {
		rec := call(t, h.PlaceOrder, http.MethodPost, "/api/orders", body, 0)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
	assert.Empty(t, orders.placed)
}

func TestPlaceOrderMapsRepositoryErrors(t *testing.T) {
	body := `{"name":"Ann","email":"ann@example.com","items":[{"ticket_type_id":1,"quantity":1}]}`
	cases := []struct {
		err  error
		code int
	}{
		{fmt.Errorf("%w: VIP", repository.ErrSoldOut), http.StatusConflict},
		{fmt.Errorf("%w: 9", repository.ErrUnknownTicketType), http.StatusBadRequest},
		{errors.New("deadlock"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		h, orders, evs, _ := newPublic()
		orders.placeErr = tc.err
		rec := call(t, h.PlaceOrder, http.MethodPost, "/api/orders", body, 0)
		assert.Equal(t, tc.code, rec.Code)
		assert.Empty(t, evs.evs)
		assert.NotContains(t, rec.Body.String(), "deadlock")
	}
}

func TestGetOrderByNumber(t *testing.T) {
	h, orders, _, _ := newPublic()
	orders.orders = []model.Order{{ID: 1, OrderNumber: "abc-123"}}
	rec := call(t, h.GetOrder, http.MethodGet, "/", "", 0, "orderNumber", "abc-123")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = call(t, h.GetOrder, http.MethodGet, "/", "", 0, "orderNumber", "missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscribeIsIdempotent(t *testing.T) {
	h, _, _, _ := newPublic()
	rec := call(t, h.Subscribe, http.MethodPost, "/api/newsletter", `{"email":"Fan@Example.com","source":"footer"}`, 0)
	assert.Equal(t, http.StatusCreated, rec.Code)
	rec = call(t, h.Subscribe, http.MethodPost, "/api/newsletter", `{"email":"fan@example.com"}`, 0)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["subscribed"])
	rec = call(t, h.Subscribe, http.MethodPost, "/api/newsletter", `{"email":"x"}`, 0)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubscribeTruncatesSourceOnCharacterBoundary(t *testing.T) {
	h, _, _, _ := newPublic()
	news := h.Newsletter.(*fakeNewsletter)

	source := strings.Repeat("a", 59) + "éé"
	rec := call(t, h.Subscribe, http.MethodPost, "/api/newsletter", `{"email":"fan@example.com","source":"`+source+`"}`, 0)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, utf8.ValidString(news.lastSource))
	assert.Equal(t, strings.Repeat("a", 59)+"é", news.lastSource)

	assert.Equal(t, "héllo", truncateRunes("héllo", 60))
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "", truncateRunes("héllo", 0))
}

func TestHealth(t *testing.T) {
	rec := call(t, Health(nil), http.MethodGet, "/healthz", "", 0)
	assert.Equal(t, http.StatusOK, rec.Code)

	down := pingFunc(func(context.Context) error { return errors.New("down") })
	rec = call(t, Health(down), http.MethodGet, "/healthz", "", 0)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
