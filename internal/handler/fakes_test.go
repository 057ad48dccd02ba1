package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/events"
	"github.com/iliyamo/event-ticketing/internal/middleware"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

var testCfg = config.Config{
	Env:        "development",
	AppURL:     "https://tix.example.com",
	JWTSecret:  "test-secret",
	SessionTTL: 24 * time.Hour,
	BcryptCost: 4,
}

func mustHash(t *testing.T, pw string) string {
	t.Helper()
	h, err := utils.HashPassword(pw, 4)
	require.NoError(t, err)
	return h
}

// call runs h against a JSON request.  principalID > 0 simulates a session.
func call(t *testing.T, h echo.HandlerFunc, method, target, body string, principalID uint64, params ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.JSONSerializer = JSONSerializer{}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(params) > 0 {
		var names, values []string
		for i := 0; i+1 < len(params); i += 2 {
			names = append(names, params[i])
			values = append(values, params[i+1])
		}
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}
	if principalID > 0 {
		c.Set(middleware.CtxPrincipalID, principalID)
	}
	require.NoError(t, h(c))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type fakeAdmins struct{ admins []model.Admin }

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (*model.Admin, error) {
	for i := range f.admins {
		if f.admins[i].Email == email {
			return &f.admins[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAdmins) GetByID(_ context.Context, id uint64) (*model.Admin, error) {
	for i := range f.admins {
		if f.admins[i].ID == id {
			return &f.admins[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

type fakeAffiliates struct {
	mu         sync.Mutex
	items      []*model.Affiliate
	codeClash  int // Create returns ErrCodeTaken this many times
	attempts   int
	passwordOf map[uint64]string
}

func (f *fakeAffiliates) Create(_ context.Context, a *model.Affiliate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.codeClash > 0 {
		f.codeClash--
		return repository.ErrCodeTaken
	}
	for _, x := range f.items {
		if x.Email == a.Email {
			return repository.ErrEmailExists
		}
	}
	a.ID = uint64(len(f.items) + 1)
	cp := *a
	f.items = append(f.items, &cp)
	return nil
}

func (f *fakeAffiliates) find(pred func(*model.Affiliate) bool) (*model.Affiliate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.items {
		if pred(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAffiliates) GetByID(_ context.Context, id uint64) (*model.Affiliate, error) {
	return f.find(func(a *model.Affiliate) bool { return a.ID == id })
}

func (f *fakeAffiliates) GetByEmail(_ context.Context, email string) (*model.Affiliate, error) {
	return f.find(func(a *model.Affiliate) bool { return a.Email == email })
}

func (f *fakeAffiliates) List(context.Context) ([]model.Affiliate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Affiliate, 0, len(f.items))
	for _, a := range f.items {
		out = append(out, *a)
	}
	return out, nil
}

func (f *fakeAffiliates) SetActive(_ context.Context, id uint64, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.items {
		if a.ID == id {
			a.IsActive = active
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeAffiliates) UpdatePassword(_ context.Context, id uint64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.items {
		if a.ID == id {
			a.PasswordHash = hash
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeCommissions struct{ list []model.AffiliateCommission }

func (f *fakeCommissions) ListByAffiliate(_ context.Context, id uint64) ([]model.AffiliateCommission, error) {
	out := []model.AffiliateCommission{}
	for _, c := range f.list {
		if c.AffiliateID == id {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCommissions) ListAll(context.Context) ([]model.AffiliateCommission, error) {
	return f.list, nil
}

func (f *fakeCommissions) GetByOrder(_ context.Context, orderID uint64) (*model.AffiliateCommission, error) {
	for i := range f.list {
		if f.list[i].OrderID == orderID {
			return &f.list[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

// fakeOrders keeps orders and items in memory and mirrors the repository's
// status and ticket rules.
type fakeOrders struct {
	orders   []model.Order
	placeErr error
	placed   []repository.PlaceOrderInput
}

func (f *fakeOrders) Place(_ context.Context, in repository.PlaceOrderInput) (*model.Order, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.placed = append(f.placed, in)
	o := model.Order{
		ID: uint64(len(f.orders) + 1), OrderNumber: "n-new", CustomerName: in.Name, CustomerEmail: in.Email,
		Status: model.OrderPending, PaymentStatus: model.PaymentPending, TotalAmount: dec("10.00"),
		Items: []model.OrderItem{{ID: 99, Quantity: in.Items[0].Quantity, IsActive: true}},
	}
	f.orders = append(f.orders, o)
	return &o, nil
}

func (f *fakeOrders) idx(pred func(model.Order) bool) int {
	for i, o := range f.orders {
		if pred(o) {
			return i
		}
	}
	return -1
}

func (f *fakeOrders) GetByID(_ context.Context, id uint64) (*model.Order, error) {
	if i := f.idx(func(o model.Order) bool { return o.ID == id }); i >= 0 {
		return &f.orders[i], nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOrders) GetByNumber(_ context.Context, n string) (*model.Order, error) {
	if i := f.idx(func(o model.Order) bool { return o.OrderNumber == n }); i >= 0 {
		return &f.orders[i], nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeOrders) List(_ context.Context, flt repository.OrderFilter) ([]model.Order, error) {
	out := []model.Order{}
	for _, o := range f.orders {
		if flt.Status != "" && o.Status != flt.Status {
			continue
		}
		if flt.PaymentStatus != "" && o.PaymentStatus != flt.PaymentStatus {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

// ListPending returns everything; the handler must apply the pending rule.
func (f *fakeOrders) ListPending(context.Context) ([]model.Order, error) {
	return append([]model.Order(nil), f.orders...), nil
}

func (f *fakeOrders) UpdateStatus(_ context.Context, id uint64, s *model.OrderStatus, p *model.PaymentStatus) (*repository.StatusChange, error) {
	i := f.idx(func(o model.Order) bool { return o.ID == id })
	if i < 0 {
		return nil, repository.ErrNotFound
	}
	before := f.orders[i]
	after := before
	if s != nil {
		after.Status = *s
	}
	if p != nil {
		after.PaymentStatus = *p
	}
	if !model.CanTransition(before.Status, after.Status) {
		return nil, repository.ErrConflict
	}
	f.orders[i] = after
	return &repository.StatusChange{Before: before, After: after}, nil
}

func (f *fakeOrders) DeactivateTicket(_ context.Context, itemID uint64) (*model.OrderItem, bool, error) {
	for i := range f.orders {
		for j := range f.orders[i].Items {
			it := &f.orders[i].Items[j]
			if it.ID == itemID {
				changed := it.IsActive
				it.IsActive = false
				cp := *it
				return &cp, changed, nil
			}
		}
	}
	return nil, false, repository.ErrNotFound
}

type fakeEmails struct {
	mu   sync.Mutex
	msgs []queue.EmailMessage
}

func (f *fakeEmails) Enqueue(_ context.Context, m queue.EmailMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeEmails) sent() []queue.EmailMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]queue.EmailMessage(nil), f.msgs...)
}

type fakeEvents struct {
	mu  sync.Mutex
	evs []events.OrderEvent
}

func (f *fakeEvents) Publish(ev events.OrderEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evs = append(f.evs, ev)
}

type fakeNewsletter struct {
	emails     map[string]bool
	lastSource string
}

func (f *fakeNewsletter) Subscribe(_ context.Context, email, source string) (bool, error) {
	f.lastSource = source
	if f.emails[email] {
		return false, nil
	}
	f.emails[email] = true
	return true, nil
}

func (f *fakeNewsletter) List(context.Context) ([]model.NewsletterSubscriber, error) {
	out := []model.NewsletterSubscriber{}
	for e := range f.emails {
		out = append(out, model.NewsletterSubscriber{Email: e})
	}
	return out, nil
}
