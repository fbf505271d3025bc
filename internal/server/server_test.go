package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	apikeyrepository "github.com/smallbiznis/kograph/internal/apikey/repository"
	apikeyservice "github.com/smallbiznis/kograph/internal/apikey/service"
	auditrepository "github.com/smallbiznis/kograph/internal/audit/repository"
	auditservice "github.com/smallbiznis/kograph/internal/audit/service"
	"github.com/smallbiznis/kograph/internal/authorization"
	"github.com/smallbiznis/kograph/internal/changefeed"
	checkoutrepository "github.com/smallbiznis/kograph/internal/checkout/repository"
	checkoutservice "github.com/smallbiznis/kograph/internal/checkout/service"
	"github.com/smallbiznis/kograph/internal/clock"
	"github.com/smallbiznis/kograph/internal/config"
	identitydomain "github.com/smallbiznis/kograph/internal/identity/domain"
	identityrepository "github.com/smallbiznis/kograph/internal/identity/repository"
	identityservice "github.com/smallbiznis/kograph/internal/identity/service"
	ledgerdomain "github.com/smallbiznis/kograph/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/kograph/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/kograph/internal/ledger/service"
	moderationservice "github.com/smallbiznis/kograph/internal/moderation/service"
	notificationrepository "github.com/smallbiznis/kograph/internal/notification/repository"
	notificationservice "github.com/smallbiznis/kograph/internal/notification/service"
	"github.com/smallbiznis/kograph/internal/overview"
	"github.com/smallbiznis/kograph/internal/payment/adapters/saweria"
	"github.com/smallbiznis/kograph/internal/payment/webhook"
	"github.com/smallbiznis/kograph/internal/ratelimit"
	settingsrepository "github.com/smallbiznis/kograph/internal/settings/repository"
	settingsservice "github.com/smallbiznis/kograph/internal/settings/service"
	"github.com/smallbiznis/kograph/internal/testutil"
	withdrawaldomain "github.com/smallbiznis/kograph/internal/withdrawal/domain"
	withdrawalrepository "github.com/smallbiznis/kograph/internal/withdrawal/repository"
	withdrawalservice "github.com/smallbiznis/kograph/internal/withdrawal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// staticVerifier maps bearer tokens straight to user ids.
type staticVerifier map[string]string

func (v staticVerifier) Verify(_ context.Context, token string) (string, error) {
	userID, ok := v[token]
	if !ok {
		return "", identitydomain.ErrUnauthorized
	}
	return userID, nil
}

type testServer struct {
	engine *gin.Engine
	db     *gorm.DB
	hub    *changefeed.Hub
	ledger ledgerdomain.Service
}

func newTestServer(t *testing.T, rl config.RateLimitConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	clk := clock.NewFakeClock(time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	hub := changefeed.NewHub()
	cfg := config.Config{
		Saweria: config.SaweriaConfig{
			StreamKey:   "stream-key",
			DonationURL: "https://saweria.co/kograph",
		},
		RateLimit: rl,
	}

	testutil.SeedProfile(t, db, "admin-1", "admin", false)
	testutil.SeedProfile(t, db, "user-1", "user", false)
	testutil.SeedProfile(t, db, "user-2", "user", false)

	audit := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Repo: auditrepository.Provide(), Clock: clk,
	})
	ledger := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Repo: ledgerrepository.Provide(), Clock: clk, Notifier: hub,
	})
	identity := identityservice.NewService(identityservice.Params{
		DB: db, Log: log, Repo: identityrepository.Provide(), Clock: clk,
		Verifier: staticVerifier{"admin-token": "admin-1", "user-token": "user-1", "other-token": "user-2"},
	})
	enforcer, err := authorization.NewEnforcerWithAdapter(nil)
	require.NoError(t, err)
	authz := authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer, Identity: identity})

	settings := settingsservice.NewService(settingsservice.Params{
		DB: db, Log: log, Repo: settingsrepository.Provide(), AuditSvc: audit, Clock: clk, Notifier: hub,
	})
	apiKeys := apikeyservice.New(apikeyservice.Params{
		DB: db, Log: log, Repo: apikeyrepository.Provide(), AuditSvc: audit, Clock: clk, Notifier: hub,
	})
	checkouts := checkoutservice.NewService(checkoutservice.Params{
		DB: db, Log: log, Cfg: cfg, Repo: checkoutrepository.Provide(), AuditSvc: audit, Clock: clk, Notifier: hub,
	})
	payments := webhook.NewService(webhook.Params{
		DB: db, Log: log, Cfg: cfg, CheckoutSvc: checkouts, LedgerSvc: ledger, AuditSvc: audit, Clock: clk,
	})
	limiter := ratelimit.NewLimiter(ratelimit.Params{Cfg: cfg, Log: log})
	withdrawals := withdrawalservice.NewService(withdrawalservice.Params{
		DB: db, Log: log, Repo: withdrawalrepository.Provide(), LedgerSvc: ledger, AuditSvc: audit,
		IdentitySvc: identity, Clock: clk, Limiter: limiter, Notifier: hub,
	})
	notifications := notificationservice.NewService(notificationservice.Params{
		DB: db, Log: log, GenID: node, Repo: notificationrepository.Provide(), Clock: clk, Notifier: hub,
	})
	moderation := moderationservice.NewService(moderationservice.Params{
		DB: db, Log: log, IdentitySvc: identity, LedgerSvc: ledger, NotificationSvc: notifications,
		AuditSvc: audit, Clock: clk, Notifier: hub,
	})
	overviewSvc := overview.NewService(overview.Params{
		LedgerSvc: ledger, SettingsSvc: settings, APIKeySvc: apiKeys, CheckoutSvc: checkouts, WithdrawalSvc: withdrawals,
	})

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())
	NewServer(ServerParams{
		Gin:             r,
		Cfg:             cfg,
		IdentitySvc:     identity,
		AuthzSvc:        authz,
		AuditSvc:        audit,
		APIKeySvc:       apiKeys,
		CheckoutSvc:     checkouts,
		PaymentSvc:      payments,
		WithdrawalSvc:   withdrawals,
		SettingsSvc:     settings,
		NotificationSvc: notifications,
		ModerationSvc:   moderation,
		OverviewSvc:     overviewSvc,
		Limiter:         limiter,
		Changes:         hub,
	})

	return &testServer{engine: r, db: db, hub: hub, ledger: ledger}
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return ts.doWithHeaders(t, method, path, body, bearer(token))
}

func (ts *testServer) doWithHeaders(t *testing.T, method, path string, body any, headers http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func (ts *testServer) topup(t *testing.T, userID string, amount int64) {
	t.Helper()
	_, err := ts.ledger.AppendEntry(context.Background(), ledgerdomain.AppendRequest{
		UserID: userID, EntryType: ledgerdomain.EntryTypeTopup, Amount: amount,
	})
	require.NoError(t, err)
}

func bearer(token string) http.Header {
	headers := http.Header{}
	if token != "" {
		headers.Set("Authorization", "Bearer "+token)
	}
	return headers
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func assertError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	assert.Equal(t, status, w.Code, w.Body.String())
	assert.Equal(t, code, decode(t, w)["error"])
}

func TestBearerAuthentication(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})

	assertError(t, ts.do(t, http.MethodGet, "/api/me/overview", "", nil), http.StatusUnauthorized, "unauthorized")
	assertError(t, ts.do(t, http.MethodGet, "/api/me/overview", "nope", nil), http.StatusUnauthorized, "unauthorized")

	w := ts.doWithHeaders(t, http.MethodGet, "/api/admin/me", nil, http.Header{"Authorization": {"bearer user-token"}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user", decode(t, w)["role"])
}

func TestCreateCheckout(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})

	w := ts.do(t, http.MethodPost, "/api/checkouts/create", "user-token", map[string]any{
		"amount": 10000, "description": "kopi",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	checkoutID, _ := body["checkoutId"].(string)
	require.NotEmpty(t, checkoutID)
	assert.Equal(t, "KO:"+checkoutID, body["message"])
	assert.Equal(t, "https://saweria.co/kograph", body["donationUrl"])

	w = ts.do(t, http.MethodPost, "/api/checkouts/create", "user-token", map[string]any{"amount": "15000"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for _, raw := range []string{`{"amount":500}`, `{"amount":10000.5}`, `{"amount":"abc"}`, `{}`, `not json`} {
		w = ts.do(t, http.MethodPost, "/api/checkouts/create", "user-token", raw)
		assertError(t, w, http.StatusBadRequest, "invalid_amount")
	}

	assert.Equal(t, int64(2), testutil.Count(t, ts.db, `SELECT COUNT(*) FROM checkouts WHERE user_id = ?`, "user-1"))
}

func TestSaweriaCallbackRejectsUnsigned(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})

	w := ts.doWithHeaders(t, http.MethodPost, "/api/saweria/callback", `{"id":"evt_1"}`, nil)
	assertError(t, w, http.StatusUnauthorized, "missing_signature")
	assert.Equal(t, int64(0), testutil.Count(t, ts.db, `SELECT COUNT(*) FROM ledger_entries`))
}

func TestSaweriaCallbackCreditsOnce(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})

	w := ts.do(t, http.MethodPost, "/api/checkouts/create", "user-token", map[string]any{"amount": 10000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	checkoutID, _ := decode(t, w)["checkoutId"].(string)

	body := []byte(`{"version":"v2","id":"evt_1","type":"donation","amount_raw":10000,"cut":58,` +
		`"donator_name":"Donor","donator_email":"donor@example.com","message":"KO:` + checkoutID + `"}`)
	adapter, err := saweria.New("stream-key")
	require.NoError(t, err)
	payload, err := adapter.Decode(body)
	require.NoError(t, err)
	headers := http.Header{}
	headers.Set(saweria.SignatureHeader, "sha256="+adapter.Sign(payload))

	for i := 0; i < 2; i++ {
		w = ts.doWithHeaders(t, http.MethodPost, "/api/saweria/callback", string(body), headers)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	}
	assert.Equal(t, int64(1), testutil.Count(t, ts.db,
		`SELECT COUNT(*) FROM ledger_entries WHERE entry_type = 'topup' AND checkout_id = ?`, checkoutID))

	tampered := http.Header{}
	tampered.Set(saweria.SignatureHeader, strings.Repeat("0", 64))
	w = ts.doWithHeaders(t, http.MethodPost, "/api/saweria/callback", string(body), tampered)
	assertError(t, w, http.StatusUnauthorized, "bad_signature")

	w = ts.do(t, http.MethodGet, "/api/me/overview", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(9942), decode(t, w)["balance"])
}

func TestAPIKeyCheckoutFlow(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})

	w := ts.do(t, http.MethodPost, "/api/api-keys/create", "user-token", map[string]any{"name": "shop"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode(t, w)
	apiKey, _ := created["apiKey"].(string)
	keyID, _ := created["id"].(string)
	require.NotEmpty(t, apiKey)
	require.NotEmpty(t, keyID)

	w = ts.doWithHeaders(t, http.MethodPost, "/api/v1/checkout", map[string]any{"amount": 25000}, nil)
	assertError(t, w, http.StatusUnauthorized, "missing_api_key")

	w = ts.doWithHeaders(t, http.MethodPost, "/api/v1/checkout", map[string]any{"amount": 25000},
		http.Header{HeaderAPIKey: {"kg_wrong"}})
	assertError(t, w, http.StatusUnauthorized, "invalid_api_key")

	w = ts.doWithHeaders(t, http.MethodPost, "/api/v1/checkout", map[string]any{"amount": 25000},
		http.Header{HeaderAPIKey: {apiKey}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, int64(1), testutil.Count(t, ts.db,
		`SELECT COUNT(*) FROM checkouts WHERE user_id = ? AND kind = 'api' AND api_key_id = ?`, "user-1", keyID))

	// Revoking someone else's key is a silent no-op.
	w = ts.do(t, http.MethodPost, "/api/api-keys/revoke", "other-token", map[string]any{"id": keyID})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/api-keys/revoke", "user-token", map[string]any{"id": keyID})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.doWithHeaders(t, http.MethodPost, "/api/v1/checkout", map[string]any{"amount": 25000},
		http.Header{HeaderAPIKey: {apiKey}})
	assertError(t, w, http.StatusUnauthorized, "invalid_api_key")

	w = ts.do(t, http.MethodPost, "/api/api-keys/revoke", "user-token", map[string]any{"id": "not-a-uuid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/api-keys/revoke", "user-token", map[string]any{})
	assertError(t, w, http.StatusBadRequest, "invalid_key_id")
}

func TestAPICheckoutRateLimit(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{APICheckoutRate: 0.01, APICheckoutBurst: 1})

	w := ts.do(t, http.MethodPost, "/api/api-keys/create", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	apiKey, _ := decode(t, w)["apiKey"].(string)
	headers := http.Header{HeaderAPIKey: {apiKey}}

	w = ts.doWithHeaders(t, http.MethodPost, "/api/v1/checkout", map[string]any{"amount": 10000}, headers)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.doWithHeaders(t, http.MethodPost, "/api/v1/checkout", map[string]any{"amount": 10000}, headers)
	assertError(t, w, http.StatusTooManyRequests, "rate_limited")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, rateLimitReasonRate, w.Header().Get("X-Rate-Limited-Reason"))
}

func TestWithdrawalLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})
	ts.topup(t, "user-1", 9942)

	w := ts.do(t, http.MethodPost, "/api/withdrawals/request", "user-token", map[string]any{"amount": 1500})
	assertError(t, w, http.StatusBadRequest, "amount_must_be_multiple_of_1000")

	w = ts.do(t, http.MethodPost, "/api/withdrawals/request", "user-token", map[string]any{"amount": 20000})
	assertError(t, w, http.StatusBadRequest, "insufficient_balance")

	w = ts.do(t, http.MethodPost, "/api/withdrawals/request", "user-token", map[string]any{"amount": 5000, "note": "BCA"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var withdrawalID string
	require.NoError(t, ts.db.Raw(`SELECT id FROM withdrawals WHERE user_id = ?`, "user-1").Scan(&withdrawalID).Error)
	require.NotEmpty(t, withdrawalID)

	w = ts.do(t, http.MethodPost, "/api/admin/withdrawals/update", "user-token", map[string]any{
		"id": withdrawalID, "status": "approved",
	})
	assertError(t, w, http.StatusForbidden, "forbidden")

	w = ts.do(t, http.MethodPost, "/api/admin/withdrawals/update", "admin-token", map[string]any{
		"id": withdrawalID, "status": "paid",
	})
	assertError(t, w, http.StatusBadRequest, "must_be_approved")

	w = ts.do(t, http.MethodPost, "/api/admin/withdrawals/update", "admin-token", map[string]any{
		"id": "missing", "status": "approved",
	})
	assertError(t, w, http.StatusNotFound, "not_found")

	w = ts.do(t, http.MethodPost, "/api/admin/withdrawals/update", "admin-token", map[string]any{
		"id": withdrawalID, "status": "bogus",
	})
	assertError(t, w, http.StatusBadRequest, "invalid_status")

	for _, status := range []string{"approved", "paid", "paid"} {
		w = ts.do(t, http.MethodPost, "/api/admin/withdrawals/update", "admin-token", map[string]any{
			"id": withdrawalID, "status": status,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = ts.do(t, http.MethodGet, "/api/admin/withdrawals?status=paid", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Rows []withdrawaldomain.Withdrawal `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Rows, 1)
	assert.Equal(t, withdrawaldomain.StatusPaid, list.Rows[0].Status)

	w = ts.do(t, http.MethodGet, "/api/me/overview", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(4942), decode(t, w)["balance"])
}

func TestBlockedUserCannotWithdraw(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})
	ts.topup(t, "user-1", 50000)

	w := ts.do(t, http.MethodPost, "/api/admin/users/action", "admin-token", map[string]any{
		"userId": "user-1", "action": "block_withdraw", "message": "fraud review",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodPost, "/api/withdrawals/request", "user-token", map[string]any{"amount": 5000})
	assertError(t, w, http.StatusForbidden, "withdrawal_blocked")

	w = ts.do(t, http.MethodPost, "/api/admin/users/action", "admin-token", map[string]any{
		"userId": "user-1", "action": "unblock_withdraw",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/withdrawals/request", "user-token", map[string]any{"amount": 5000})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAdminModeration(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})
	ts.topup(t, "user-2", 12000)

	assertError(t, ts.do(t, http.MethodGet, "/api/admin/users", "user-token", nil), http.StatusForbidden, "forbidden")

	w := ts.do(t, http.MethodGet, "/api/admin/users", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var users struct {
		Users []struct {
			ID      string `json:"id"`
			Balance int64  `json:"balance"`
		} `json:"users"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &users))
	require.Len(t, users.Users, 3)
	balances := map[string]int64{}
	for _, u := range users.Users {
		balances[u.ID] = u.Balance
	}
	assert.Equal(t, int64(12000), balances["user-2"])

	w = ts.do(t, http.MethodPost, "/api/admin/users/action", "admin-token", map[string]any{"userId": "user-2", "action": "warn"})
	assertError(t, w, http.StatusBadRequest, "message_required")

	w = ts.do(t, http.MethodPost, "/api/admin/users/action", "admin-token", map[string]any{"userId": "user-2", "action": "ban"})
	assertError(t, w, http.StatusBadRequest, "unknown_action")

	w = ts.do(t, http.MethodPost, "/api/admin/users/action", "admin-token", map[string]any{"action": "warn"})
	assertError(t, w, http.StatusBadRequest, "invalid_request")

	w = ts.do(t, http.MethodPost, "/api/admin/users/action", "admin-token", map[string]any{
		"userId": "user-2", "action": "warn", "message": "Stop spamming donations",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/me/notifications", "other-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var notes struct {
		Rows []struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		} `json:"rows"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &notes))
	require.Len(t, notes.Rows, 1)
	assert.Equal(t, "Peringatan Admin", notes.Rows[0].Title)

	w = ts.do(t, http.MethodGet, "/api/me/notifications", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"rows":[]}`, w.Body.String())
}

func TestAdminAuditLog(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})

	for _, amount := range []int{10000, 20000, 30000} {
		w := ts.do(t, http.MethodPost, "/api/checkouts/create", "user-token", map[string]any{"amount": amount})
		require.Equal(t, http.StatusOK, w.Code)
	}

	assertError(t, ts.do(t, http.MethodGet, "/api/admin/audit", "user-token", nil), http.StatusForbidden, "forbidden")

	w := ts.do(t, http.MethodGet, "/api/admin/audit?action=checkout_created&page_size=2", "admin-token", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var page struct {
		Rows     []map[string]any `json:"rows"`
		PageInfo struct {
			NextPageToken string `json:"next_page_token"`
			HasMore       bool   `json:"has_more"`
		} `json:"page_info"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Len(t, page.Rows, 2)

	assertError(t, ts.do(t, http.MethodGet, "/api/admin/audit?page_token=not-a-cursor", "admin-token", nil),
		http.StatusBadRequest, "invalid_page_token")
	assertError(t, ts.do(t, http.MethodGet, "/api/admin/audit?page_size=x", "admin-token", nil),
		http.StatusBadRequest, "invalid_request")
}

func TestSettingsDefaultAmount(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})

	w := ts.do(t, http.MethodPost, "/api/settings/default-amount", "user-token", map[string]any{"defaultAmount": 500})
	assertError(t, w, http.StatusBadRequest, "invalid_amount")

	w = ts.do(t, http.MethodPost, "/api/settings/default-amount", "user-token", map[string]any{"defaultAmount": 20000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.do(t, http.MethodGet, "/api/me/overview", "user-token", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(20000), body["defaultAmount"])
	assert.Equal(t, []any{}, body["apiKeys"])
}

func TestStreamEventsReplaysOwnChanges(t *testing.T) {
	ts := newTestServer(t, config.RateLimitConfig{})
	ts.topup(t, "user-1", 10000)
	ts.topup(t, "user-2", 10000)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/me/events?tables=ledger_entries", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer user-token")
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))
	body := w.Body.String()
	assert.True(t, strings.HasPrefix(body, "retry: 2000\n\n"))
	assert.Equal(t, 1, strings.Count(body, "event: ledger_entries\n"))
	assert.Contains(t, body, `"user_id":"user-1"`)
	assert.NotContains(t, body, `"user_id":"user-2"`)

	w = ts.do(t, http.MethodGet, "/api/me/events?tables=audit_logs", "user-token", nil)
	assertError(t, w, http.StatusBadRequest, "invalid_request")
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{withdrawaldomain.ErrInsufficientBalance, http.StatusBadRequest, "insufficient_balance"},
		{fmt.Errorf("request: %w", withdrawaldomain.ErrInProgress), http.StatusConflict, "withdrawal_in_progress"},
		{authorization.ErrForbidden, http.StatusForbidden, "forbidden"},
		{ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "internal_error"},
		{nil, http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range cases {
		status, code := classifyError(tc.err)
		assert.Equal(t, tc.status, status, "%v", tc.err)
		assert.Equal(t, tc.code, code, "%v", tc.err)
	}
}

func TestParseAmount(t *testing.T) {
	valid := map[string]int64{`10000`: 10000, `"2500"`: 2500, `1e4`: 10000, `-5`: -5}
	for raw, want := range valid {
		got, err := parseAmount(json.RawMessage(raw))
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{``, `null`, `10.5`, `"abc"`, `true`, `99999999999999999999`} {
		_, err := parseAmount(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}
