package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nawaem/backend/internal/domain"
)

func TestResponsesCarrySecurityHeaders(t *testing.T) {
	res := httptest.NewRecorder()
	newTestAPI(t).Handler().ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, res.Header().Get("Referrer-Policy"))
}

func TestLoginAttemptsAreThrottledPerClient(t *testing.T) {
	api := newTestAPI(t)
	guest := &client{t: t, handler: api.Handler()}
	wrong := domain.LoginRequest{Username: "admin", Password: "not-the-password"}

	codes := make([]int, 0, 6)
	for i := 0; i < 6; i++ {
		codes = append(codes, guest.do(http.MethodPost, "/api/v1/auth/login", wrong).Code)
	}
	assert.Equal(t, []int{401, 401, 401, 401, 401, http.StatusTooManyRequests}, codes)
}

func TestOversizedBodyIsRejected(t *testing.T) {
	payload := `{"username":"` + strings.Repeat("z", 1<<20) + `","password":"x"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()

	newTestAPI(t).Handler().ServeHTTP(res, req)

	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestMutationsNeedSessionCSRFToken(t *testing.T) {
	api := newTestAPI(t)
	add := domain.CartItemRequest{VariantID: 1, Qty: 1}

	t.Run("missing", func(t *testing.T) {
		cashier := login(t, api, "cashier", "cashier123")
		cashier.csrf = ""
		assert.Equal(t, http.StatusForbidden, cashier.do(http.MethodPost, "/api/v1/cart/items", add).Code)
		assert.Equal(t, http.StatusOK, cashier.do(http.MethodGet, "/api/v1/cart", nil).Code, "reads need no token")
	})

	t.Run("borrowed from another session", func(t *testing.T) {
		first := login(t, api, "cashier", "cashier123")
		second := login(t, api, "admin", "admin123")
		first.csrf = second.csrf
		assert.Equal(t, http.StatusForbidden, first.do(http.MethodPost, "/api/v1/cart/items", add).Code)
	})
}

func TestManagerPINGuessesAreThrottled(t *testing.T) {
	admin := login(t, newTestAPI(t), "admin", "admin123")
	guess := domain.SaleCorrectionRequest{Qty: 1, ManagerPIN: "000000"}

	for attempt := 1; attempt <= 8; attempt++ {
		res := admin.do(http.MethodPatch, "/api/v1/sales/999", guess)
		require.Equal(t, http.StatusForbidden, res.Code, "attempt %d", attempt)
	}
	assert.Equal(t, http.StatusTooManyRequests, admin.do(http.MethodDelete, "/api/v1/sales/999", domain.SaleDeleteRequest{ManagerPIN: "000000"}).Code)
}

func TestParsePositiveLimit(t *testing.T) {
	cases := map[string]int{"9999": 200, "": 50, "abc": 50, "-3": 50, "25": 25}
	for raw, want := range cases {
		assert.Equal(t, want, parsePositiveLimit(raw, 50, 200), "input %q", raw)
	}
}

func TestCSRFTokenEndpointMatchesLogin(t *testing.T) {
	cashier := login(t, newTestAPI(t), "cashier", "cashier123")

	res := cashier.do(http.MethodGet, "/api/v1/auth/csrf-token", nil)
	require.Equal(t, http.StatusOK, res.Code)

	var payload map[string]string
	decodeBody(t, res, &payload)
	assert.Equal(t, cashier.csrf, payload["csrf_token"])
}
