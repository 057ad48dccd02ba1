package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/report"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// AffiliateHandler serves the affiliate portal behind affiliate-token.
type AffiliateHandler struct {
	Cfg         config.Config
	Affiliates  AffiliateStore
	Commissions CommissionStore
}

const recentCommissions = 5

// Commission states shown in the portal.
const (
	stateEarned  = "earned"
	statePending = "pending"
	stateVoid    = "void"
)

type commissionView struct {
	model.AffiliateCommission
	State string `json:"state"`
}

func commissionState(cm model.AffiliateCommission) string {
	switch {
	case model.Settled(cm.PaymentStatus, cm.OrderStatus):
		return stateEarned
	case model.Dead(cm.PaymentStatus, cm.OrderStatus):
		return stateVoid
	}
	return statePending
}

func commissionViews(list []model.AffiliateCommission) []commissionView {
	out := make([]commissionView, 0, len(list))
	for _, cm := range list {
		out = append(out, commissionView{AffiliateCommission: cm, State: commissionState(cm)})
	}
	return out
}

func (h *AffiliateHandler) load(c echo.Context) (*model.Affiliate, []model.AffiliateCommission, error) {
	id, found := principal(c)
	if !found {
		return nil, nil, echo.ErrUnauthorized
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Affiliates.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	list, err := h.Commissions.ListByAffiliate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return a, list, nil
}

// Dashboard handles GET /api/affiliate/dashboard: profile, referral link
// and the commission summary with the most recent commissions.
func (h *AffiliateHandler) Dashboard(c echo.Context) error {
	a, list, err := h.load(c)
	if err != nil {
		return h.loadError(c, err)
	}
	recent := list
	if len(recent) > recentCommissions {
		recent = recent[:recentCommissions]
	}
	return ok(c, http.StatusOK, echo.Map{
		"affiliate":     a,
		"referral_link": utils.ReferralLink(h.Cfg.AppURL, a.ReferralCode),
		"summary":       report.SummarizeCommissions(list),
		"recent":        commissionViews(recent),
	})
}

// ListCommissions handles GET /api/affiliate/commissions.
func (h *AffiliateHandler) ListCommissions(c echo.Context) error {
	_, list, err := h.load(c)
	if err != nil {
		return h.loadError(c, err)
	}
	return ok(c, http.StatusOK, echo.Map{
		"commissions": commissionViews(list),
		"summary":     report.SummarizeCommissions(list),
	})
}

func (h *AffiliateHandler) loadError(c echo.Context, err error) error {
	if err == echo.ErrUnauthorized || isNotFound(err) {
		return fail(c, http.StatusUnauthorized, "not signed in")
	}
	return internalError(c, "affiliate dashboard", err)
}

type changePasswordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword handles POST /api/affiliate/password.
func (h *AffiliateHandler) ChangePassword(c echo.Context) error {
	id, found := principal(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "not signed in")
	}
	var req changePasswordReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if msg := passwordProblem(req.NewPassword); msg != "" {
		return fail(c, http.StatusBadRequest, msg)
	}
	if req.NewPassword == req.CurrentPassword {
		return fail(c, http.StatusBadRequest, "new password must differ from the current one")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Affiliates.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return fail(c, http.StatusUnauthorized, "not signed in")
		}
		return internalError(c, "get affiliate", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, req.CurrentPassword) {
		return fail(c, http.StatusUnauthorized, "current password is incorrect")
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return internalError(c, "hash password", err)
	}
	if err := h.Affiliates.UpdatePassword(ctx, id, hash); err != nil {
		return internalError(c, "update password", err)
	}
	return ok(c, http.StatusOK, nil)
}
