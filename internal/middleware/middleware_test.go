package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/config"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/utils"
)

const secret = "test-secret"

func serve(t *testing.T, mw []echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/p", func(c echo.Context) error {
		id, _ := PrincipalID(c)
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	}, mw...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func withCookie(name, value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return req
}

func TestSessionAuth(t *testing.T) {
	admin, err := utils.NewSessionToken(secret, 7, model.RoleAdmin, time.Hour)
	require.NoError(t, err)
	affiliate, err := utils.NewSessionToken(secret, 7, model.RoleAffiliate, time.Hour)
	require.NoError(t, err)
	mw := []echo.MiddlewareFunc{SessionAuth(secret, "admin-token", model.RoleAdmin)}

	rec := serve(t, mw, withCookie("admin-token", admin.Token))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7}`, rec.Body.String())

	rec = serve(t, mw, withCookie("admin-token", ""))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, mw, withCookie("admin-token", affiliate.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(t, mw, withCookie("affiliate-token", admin.Token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"success":false`)
}

func TestRequireActive(t *testing.T) {
	errGone := errors.New("gone")
	tok, err := utils.NewSessionToken(secret, 3, model.RoleAffiliate, time.Hour)
	require.NoError(t, err)
	auth := SessionAuth(secret, "affiliate-token", model.RoleAffiliate)

	cases := []struct {
		name string
		err  error
		code int
	}{
		{"active", nil, http.StatusOK},
		{"deactivated", ErrPrincipalInactive, http.StatusForbidden},
		{"deleted", errGone, http.StatusForbidden},
		{"db down", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			check := func(_ context.Context, id uint64) error {
				assert.Equal(t, uint64(3), id)
				return tc.err
			}
			rec := serve(t, []echo.MiddlewareFunc{auth, RequireActive(check, errGone)}, withCookie("affiliate-token", tok.Token))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestMiddlewareWithoutRedisPassesThrough(t *testing.T) {
	mw := []echo.MiddlewareFunc{
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil),
	}
	for i := 0; i < 3; i++ {
		rec := serve(t, mw, httptest.NewRequest(http.MethodGet, "/p", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}

func TestRateKeyAndRetryAfter(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/admin/login")
	assert.Equal(t, "tix:rl:10.0.0.9:anon:POST /api/admin/login", rateKey("tix:rl", c))

	c.Set(CtxPrincipalID, uint64(4))
	c.Set(CtxRole, model.RoleAffiliate)
	assert.Equal(t, "tix:rl:10.0.0.9:AFFILIATE-4:POST /api/admin/login", rateKey("tix:rl", c))

	assert.Equal(t, 1, retryAfterSeconds(0))
	assert.Equal(t, 3, retryAfterSeconds(2001))
}

func TestCaptureWriterDropsOversizedBodies(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, _ = cw.Write([]byte("abc"))
	assert.False(t, cw.truncated)
	_, _ = cw.Write([]byte("def"))
	assert.True(t, cw.truncated)
	assert.Equal(t, "abcdef", rec.Body.String())
}
