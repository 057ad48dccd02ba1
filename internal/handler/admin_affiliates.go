package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
	"github.com/iliyamo/event-ticketing/internal/report"
	"github.com/iliyamo/event-ticketing/internal/repository"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

var defaultCommissionRate = decimal.RequireFromString("0.10")

const (
	codeAttempts    = 5
	tempPasswordLen = 12
)

type affiliateView struct {
	Affiliate    model.Affiliate          `json:"affiliate"`
	ReferralLink string                   `json:"referral_link"`
	Summary      report.CommissionSummary `json:"summary"`
}

// ListAffiliates handles GET /api/admin/affiliates.
func (h *AdminHandler) ListAffiliates(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	affiliates, err := h.Affiliates.List(ctx)
	if err != nil {
		return internalError(c, "list affiliates", err)
	}
	all, err := h.Commissions.ListAll(ctx)
	if err != nil {
		return internalError(c, "list commissions", err)
	}
	byAffiliate := make(map[uint64][]model.AffiliateCommission, len(affiliates))
	for _, cm := range all {
		byAffiliate[cm.AffiliateID] = append(byAffiliate[cm.AffiliateID], cm)
	}
	out := make([]affiliateView, 0, len(affiliates))
	for _, a := range affiliates {
		out = append(out, affiliateView{
			Affiliate:    a,
			ReferralLink: utils.ReferralLink(h.Cfg.AppURL, a.ReferralCode),
			Summary:      report.SummarizeCommissions(byAffiliate[a.ID]),
		})
	}
	return ok(c, http.StatusOK, echo.Map{"affiliates": out, "count": len(out)})
}

type createAffiliateReq struct {
	Name           string           `json:"name"`
	Email          string           `json:"email"`
	CommissionRate *decimal.Decimal `json:"commission_rate"`
	Password       string           `json:"password"`
}

// CreateAffiliate handles POST /api/admin/affiliates.  A referral code is
// generated from the name.  Without an explicit password a temporary one is
// generated and mailed with the welcome email.
func (h *AdminHandler) CreateAffiliate(c echo.Context) error {
	var req createAffiliateReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = normEmail(req.Email)
	if req.Name == "" || !validEmail(req.Email) {
		return fail(c, http.StatusBadRequest, "name and a valid email are required")
	}
	rate := defaultCommissionRate
	if req.CommissionRate != nil {
		rate = *req.CommissionRate
	}
	if !rate.IsPositive() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return fail(c, http.StatusBadRequest, "commission_rate must be between 0 and 1")
	}

	password, temporary := req.Password, false
	if password == "" {
		var err error
		if password, err = utils.TempPassword(tempPasswordLen); err != nil {
			return internalError(c, "temp password", err)
		}
		temporary = true
	} else if msg := passwordProblem(password); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	hash, err := utils.HashPassword(password, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, "hash password", err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a := &model.Affiliate{Name: req.Name, Email: req.Email, PasswordHash: hash, CommissionRate: rate, IsActive: true}
	for attempt := 0; ; attempt++ {
		if a.ReferralCode, err = utils.NewReferralCode(req.Name); err != nil {
			return internalError(c, "referral code", err)
		}
		err = h.Affiliates.Create(ctx, a)
		if !errors.Is(err, repository.ErrCodeTaken) || attempt == codeAttempts-1 {
			break
		}
	}
	switch {
	case errors.Is(err, repository.ErrEmailExists):
		return fail(c, http.StatusConflict, "an affiliate with this email already exists")
	case err != nil:
		return internalError(c, "create affiliate", err)
	}

	link := utils.ReferralLink(h.Cfg.AppURL, a.ReferralCode)
	welcome := &queue.AffiliateWelcome{
		Name:         a.Name,
		ReferralCode: a.ReferralCode,
		ReferralLink: link,
		LoginURL:     h.Cfg.AppURL + "/affiliate/login",
	}
	body := echo.Map{"affiliate": a, "referral_link": link}
	if temporary {
		welcome.TempPassword = password
		body["temp_password"] = password
	}
	enqueueEmail(h.Emails, queue.EmailMessage{Kind: queue.KindAffiliateWelcome, To: a.Email, Welcome: welcome})
	return ok(c, http.StatusCreated, body)
}

type setActiveReq struct {
	Active *bool `json:"active"`
}

// SetAffiliateActive handles PATCH /api/admin/affiliates/:id/active.
// Inactive affiliates cannot sign in and their code stops attributing new
// orders; existing commissions are kept.
func (h *AdminHandler) SetAffiliateActive(c echo.Context) error {
	id, valid := pathID(c, "id")
	if !valid {
		return fail(c, http.StatusBadRequest, "invalid affiliate id")
	}
	var req setActiveReq
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return fail(c, http.StatusBadRequest, "active (true/false) is required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Affiliates.SetActive(ctx, id, *req.Active); err != nil {
		if isNotFound(err) {
			return fail(c, http.StatusNotFound, "affiliate not found")
		}
		return internalError(c, "set affiliate active", err)
	}
	a, err := h.Affiliates.GetByID(ctx, id)
	if err != nil {
		return internalError(c, "get affiliate", err)
	}
	return ok(c, http.StatusOK, echo.Map{"affiliate": a})
}
