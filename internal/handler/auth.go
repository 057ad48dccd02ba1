package handler

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

// AuthHandler signs admins and affiliates in and out.  Sessions are JWTs in
// httpOnly cookies; there are no refresh tokens, the cookie simply expires
// after Cfg.SessionTTL.
type AuthHandler struct {
	Cfg        config.Config
	Admins     AdminStore
	Affiliates AffiliateStore

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthHandler(cfg config.Config, admins AdminStore, affiliates AffiliateStore) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Admins: admins, Affiliates: affiliates}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *loginReq) normalize() bool {
	r.Email = normEmail(r.Email)
	return r.Email != "" && r.Password != ""
}

// AdminLogin handles POST /api/admin/login.  Unknown emails and wrong
// passwords get the same 401 so the endpoint does not reveal which admins
// exist.
func (h *AuthHandler) AdminLogin(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if !req.normalize() {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Admins.GetByEmail(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			h.verifyDummy(req.Password)
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return internalError(c, "admin login", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, a.ID, model.RoleAdmin, h.Cfg.SessionTTL)
	if err != nil {
		return internalError(c, "admin session", err)
	}
	setSession(c, AdminCookie, tok.Token, tok.Exp, h.Cfg.IsProduction())
	return ok(c, http.StatusOK, echo.Map{"admin": a, "expires": tok.Exp})
}

// AdminLogout clears the admin cookie.  It succeeds without a session.
func (h *AuthHandler) AdminLogout(c echo.Context) error {
	clearSession(c, AdminCookie, h.Cfg.IsProduction())
	return ok(c, http.StatusOK, nil)
}

// AdminMe returns the signed-in admin.
func (h *AuthHandler) AdminMe(c echo.Context) error {
	id, found := principal(c)
	if !found {
		return fail(c, http.StatusUnauthorized, "not signed in")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	a, err := h.Admins.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return fail(c, http.StatusUnauthorized, "not signed in")
		}
		return internalError(c, "admin me", err)
	}
	return ok(c, http.StatusOK, echo.Map{"admin": a})
}

// AffiliateLogin handles POST /api/affiliate/login.  Deactivated affiliates
// are refused after their password checks out.
func (h *AuthHandler) AffiliateLogin(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if !req.normalize() {
		return fail(c, http.StatusBadRequest, "email and password are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	a, err := h.Affiliates.GetByEmail(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			h.verifyDummy(req.Password)
			return fail(c, http.StatusUnauthorized, "invalid credentials")
		}
		return internalError(c, "affiliate login", err)
	}
	if !utils.VerifyPassword(a.PasswordHash, req.Password) {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}
	if !a.IsActive {
		return fail(c, http.StatusForbidden, "affiliate account is inactive")
	}

	tok, err := utils.NewSessionToken(h.Cfg.JWTSecret, a.ID, model.RoleAffiliate, h.Cfg.SessionTTL)
	if err != nil {
		return internalError(c, "affiliate session", err)
	}
	setSession(c, AffiliateCookie, tok.Token, tok.Exp, h.Cfg.IsProduction())
	return ok(c, http.StatusOK, echo.Map{
		"affiliate":     a,
		"referral_link": utils.ReferralLink(h.Cfg.AppURL, a.ReferralCode),
		"expires":       tok.Exp,
	})
}

func (h *AuthHandler) AffiliateLogout(c echo.Context) error {
	clearSession(c, AffiliateCookie, h.Cfg.IsProduction())
	return ok(c, http.StatusOK, nil)
}

// verifyDummy spends one bcrypt comparison on an unknown email so it costs
// as much as a wrong password for a known one.
func (h *AuthHandler) verifyDummy(pw string) bool {
	h.dummyOnce.Do(func() {
		h.dummyHash, _ = utils.HashPassword("unknown-account", h.Cfg.BcryptCost)
	})
	return utils.VerifyPassword(h.dummyHash, pw)
}

// passwordProblem returns a user-facing reason when pw is unacceptable.
func passwordProblem(pw string) string {
	if len(pw) < utils.MinPasswordLen {
		return fmt.Sprintf("password must be at least %d characters", utils.MinPasswordLen)
	}
	if len(pw) > utils.MaxPasswordLen {
		return fmt.Sprintf("password must be at most %d bytes", utils.MaxPasswordLen)
	}
	if strings.TrimSpace(pw) != pw {
		return "password must not start or end with spaces"
	}
	return ""
}
