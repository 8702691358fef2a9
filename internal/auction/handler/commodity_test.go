package handler_test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/handler"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/repository"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/service"
	"github.com/jmerrifield20/AuctionLedger/internal/identity"
	"github.com/jmerrifield20/AuctionLedger/internal/txlog"
	"github.com/jmerrifield20/AuctionLedger/internal/worldstate"
	"go.uber.org/zap"
)

func setupRouter(t *testing.T, tokens *identity.TokenIssuer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := txlog.New()
	svc := service.NewCommodityService(repository.NewCommodityRepository(worldstate.NewMemoryStore()), log, zap.NewNop())
	svc.SetRecorder(handler.TransactionMetrics{})

	r := gin.New()
	v1 := r.Group("/api/v1")
	handler.NewCommodityHandler(svc, tokens, zap.NewNop()).Register(v1)
	handler.NewLedgerHandler(log, zap.NewNop()).Register(v1)
	return r
}

type caller struct{ id, msp string }

var (
	issuerCaller = caller{"issuer-admin", "IssuerMSP1"}
	buyerCaller  = caller{"alice", "BuyerMSP"}
)

func do(t *testing.T, router *gin.Engine, method, path string, who *caller, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if who != nil {
		req.Header.Set(identity.HeaderClientID, who.id)
		req.Header.Set(identity.HeaderMSPID, who.msp)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

var issueBody = map[string]any{
	"issuer":             "IssuerMSP1",
	"item_number":        "00001",
	"issue_date_time":    "2024-01-01",
	"maturity_date_time": "2024-12-31",
	"face_value":         500000,
}

func TestIssue_201(t *testing.T) {
	router := setupRouter(t, nil)

	w := do(t, router, http.MethodPost, "/api/v1/commodities", &issuerCaller, issueBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := decode[handler.CommodityResponse](t, w)
	if resp.Key != "IssuerMSP1:00001" {
		t.Errorf("key = %q", resp.Key)
	}
	if resp.CurrentState != "SUBMITTED" || resp.OwnerOrg != "IssuerMSP1" || resp.FaceValue != 500000 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestIssue_errors(t *testing.T) {
	router := setupRouter(t, nil)
	if w := do(t, router, http.MethodPost, "/api/v1/commodities", &issuerCaller, issueBody); w.Code != http.StatusCreated {
		t.Fatalf("setup: %d", w.Code)
	}

	tests := []struct {
		name string
		who  *caller
		body any
		code int
	}{
		{"no identity", nil, issueBody, http.StatusUnauthorized},
		{"missing item", &issuerCaller, map[string]any{"issuer": "IssuerMSP1"}, http.StatusBadRequest},
		{"separator in item", &issuerCaller, map[string]any{"issuer": "IssuerMSP1", "item_number": "a:b"}, http.StatusBadRequest},
		{"duplicate", &issuerCaller, issueBody, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/api/v1/commodities", tt.who, tt.body)
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestLifecycle_overHTTP(t *testing.T) {
	router := setupRouter(t, nil)
	base := "/api/v1/commodities/IssuerMSP1/00001"

	do(t, router, http.MethodPost, "/api/v1/commodities", &issuerCaller, issueBody)

	// Delivery before trading is rejected and leaves the commodity untouched.
	if w := do(t, router, http.MethodPost, base+"/deliver", &issuerCaller, nil); w.Code != http.StatusConflict {
		t.Fatalf("early deliver: expected 409, got %d: %s", w.Code, w.Body.String())
	}

	if w := do(t, router, http.MethodPost, base+"/auction", &buyerCaller, nil); w.Code != http.StatusForbidden {
		t.Fatalf("auction by buyer: expected 403, got %d", w.Code)
	}
	if w := do(t, router, http.MethodPost, base+"/auction", &issuerCaller, nil); w.Code != http.StatusOK {
		t.Fatalf("auction: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w := do(t, router, http.MethodPost, base+"/buy", &buyerCaller, map[string]any{
		"current_owner": "IssuerMSP1",
		"new_owner":     "alice",
		"price":         450000,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("buy: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[handler.CommodityResponse](t, w); resp.Owner != "alice" || resp.CurrentState != "TRADING" {
		t.Fatalf("after buy: %+v", resp)
	}

	if w := do(t, router, http.MethodPost, base+"/deliver", &buyerCaller, map[string]any{"delivery_date_time": "2025-01-01"}); w.Code != http.StatusOK {
		t.Fatalf("deliver: expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, base, nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}
	if resp := decode[handler.CommodityResponse](t, w); resp.CurrentState != "DELIVERED" {
		t.Errorf("state = %s, want DELIVERED", resp.CurrentState)
	}

	w = do(t, router, http.MethodGet, base+"/history", nil, nil)
	hist := decode[struct {
		Entries []txlog.Entry `json:"entries"`
		Count   int           `json:"count"`
	}](t, w)
	if hist.Count != 4 {
		t.Fatalf("history count = %d, want 4", hist.Count)
	}

	w = do(t, router, http.MethodGet, "/api/v1/ledger/verify", nil, nil)
	if resp := decode[map[string]any](t, w); resp["valid"] != true {
		t.Errorf("ledger verify: %v", resp)
	}
}

func TestGet_404(t *testing.T) {
	router := setupRouter(t, nil)
	w := do(t, router, http.MethodGet, "/api/v1/commodities/IssuerMSP1/99999", nil, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestList(t *testing.T) {
	router := setupRouter(t, nil)
	for _, item := range []string{"00001", "00002"} {
		do(t, router, http.MethodPost, "/api/v1/commodities", &issuerCaller, map[string]any{"issuer": "IssuerMSP1", "item_number": item})
	}

	w := do(t, router, http.MethodGet, "/api/v1/commodities?issuer=IssuerMSP1", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decode[struct {
		Commodities []handler.CommodityResponse `json:"commodities"`
		Count       int                         `json:"count"`
	}](t, w)
	if resp.Count != 2 || resp.Commodities[0].ItemNumber != "00001" {
		t.Fatalf("unexpected list: %+v", resp)
	}

	if w := do(t, router, http.MethodGet, "/api/v1/commodities", nil, nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing issuer: expected 400, got %d", w.Code)
	}
}

func TestTokenAuth(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	tokens := identity.NewTokenIssuer(key, "https://auction.test", time.Hour)
	router := setupRouter(t, tokens)

	// Headers alone are not enough once tokens are configured.
	if w := do(t, router, http.MethodPost, "/api/v1/commodities", &issuerCaller, issueBody); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	token, err := tokens.Issue(identity.Caller{ID: "issuer-admin", MSPID: "IssuerMSP1"})
	if err != nil {
		t.Fatal(err)
	}
	body, _ := json.Marshal(issueBody)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/commodities", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[handler.CommodityResponse](t, w); resp.OwnerOrg != "IssuerMSP1" {
		t.Errorf("owner org = %s", resp.OwnerOrg)
	}
}
