package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"salespulse/backend/internal/cache"
	"salespulse/backend/internal/domain"
	"salespulse/backend/internal/service"
	"salespulse/backend/internal/store/memory"
	"salespulse/backend/internal/syncer"
)

// newTestAPI builds a full API with an in-memory store, real AuthManager and
// real Service so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	repo := memory.NewSeeded()
	reconciler := syncer.New(repo, cache.NoopSnapshotCache{}, 100)
	svc := service.New(repo, reconciler, "merchant")
	auth := NewAuthManager("test-secret-key", time.Hour, repo)

	return New(svc, auth, "*")
}

// loginToken logs in through the handler and returns the bearer token.
func loginToken(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()

	payload, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("login failed: %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body domain.LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode login body: %v", err)
	}
	return body.AccessToken
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "wrongpassword",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_RateLimit(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	// The loginLimiter allows 5 attempts per minute.
	payload, _ := json.Marshal(map[string]string{
		"username": "admin",
		"password": "badpass",
	})

	var lastCode int
	for i := 0; i < 6; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = "192.0.2.1:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		lastCode = rec.Code
	}

	if lastCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after 6 attempts, got %d", lastCode)
	}
}

func TestHandleDashboard_RequiresAuth(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleDashboard_WithValidToken(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "merchant", "merchant123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	var body domain.DashboardResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.OwnerID != "merchant" {
		t.Fatalf("expected merchant dashboard, got %q", body.OwnerID)
	}
	if body.Records == 0 {
		t.Fatalf("expected seeded records in dashboard, got 0")
	}
}

func TestHandleDashboard_InvalidDateRange(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "merchant", "merchant123")

	cases := []string{
		"?from=2025-03-01",                           // missing to
		"?from=03/01/2025&to=2025-03-31",             // bad layout
		"?from=2025-03-31&to=2025-03-01",             // inverted
		"?compare_from=2025-02-01",                   // missing compare_to
		"?from=2025-03-01&to=2025-03-31&compare_from=x&compare_to=2025-02-28",
	}
	for _, query := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/dashboard"+query, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("query %q: expected 400, got %d", query, rec.Code)
		}
	}
}

func TestHandleUploads_RoundTrip(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "merchant", "merchant123")

	rows := make([]domain.RawSalesRow, 0, 3)
	for i := 0; i < 3; i++ {
		rows = append(rows, domain.RawSalesRow{
			BillNumber:    fmt.Sprintf("INV-%03d", i),
			Timestamp:     fmt.Sprintf("2025-03-0%d 12:00:00", i+1),
			Branch:        "Central",
			Channel:       "dine-in",
			CategoryGroup: "Food",
			ItemName:      "Gado Gado",
			Quantity:      "1",
			UnitPrice:     "30000",
			NetRevenue:    "30000",
		})
	}
	payload, _ := json.Marshal(domain.UploadRequest{FileName: "march.xlsx", Rows: rows})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var result domain.UploadResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.Records != 3 || result.Bills != 3 {
		t.Fatalf("unexpected upload result: %+v", result)
	}
	// The seed batch plus this upload.
	if result.TotalBatches != 2 {
		t.Fatalf("expected 2 total batches, got %d", result.TotalBatches)
	}

	// The new batch shows up in the listing.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/uploads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var listing struct {
		Batches []domain.UploadBatch `json:"batches"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&listing); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(listing.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(listing.Batches))
	}
	if listing.Batches[0].FileName != "march.xlsx" {
		t.Fatalf("expected newest batch first, got %q", listing.Batches[0].FileName)
	}
}

func TestHandleUploads_ValidationFailure(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "merchant", "merchant123")

	payload, _ := json.Marshal(domain.UploadRequest{
		FileName: "broken.xlsx",
		Rows: []domain.RawSalesRow{{
			BillNumber:    "INV-001",
			Timestamp:     "tomorrow-ish",
			Branch:        "Central",
			Channel:       "dine-in",
			CategoryGroup: "Food",
			ItemName:      "Gado Gado",
			NetRevenue:    "30000",
		}},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/uploads", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["error"] == "" || body["error"] == nil {
		t.Fatalf("expected error message in body, got %v", body)
	}
}

func TestHandleSync(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	token := loginToken(t, handler, "merchant", "merchant123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/records/sync", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	var result domain.SyncResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if result.State != string(syncer.StateFullRebuild) {
		t.Fatalf("expected full_rebuild with a noop snapshot cache, got %q", result.State)
	}
	if result.Records == 0 {
		t.Fatalf("expected seeded records, got 0")
	}
}

func TestHandleMerchants_AdminOnly(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()
	merchantToken := loginToken(t, handler, "merchant", "merchant123")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/merchants", nil)
	req.Header.Set("Authorization", "Bearer "+merchantToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for merchant role, got %d", rec.Code)
	}

	adminToken := loginToken(t, handler, "admin", "admin123")
	payload, _ := json.Marshal(domain.MerchantCreateRequest{
		Username: "warungbaru",
		Password: "pass1234",
	})
	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/merchants", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+adminToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (body: %s)", rec.Code, rec.Body.String())
	}

	// The freshly created merchant can log in right away.
	loginToken(t, handler, "warungbaru", "pass1234")
}

func TestPreflightRequestShortCircuits(t *testing.T) {
	api := newTestAPI(t)
	handler := api.Handler()

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/dashboard", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected CORS origin header on preflight")
	}
}
