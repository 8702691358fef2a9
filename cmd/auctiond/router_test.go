package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/AuctionLedger/internal/audit"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/repository"
	"github.com/jmerrifield20/AuctionLedger/internal/auction/service"
	"github.com/jmerrifield20/AuctionLedger/internal/txlog"
	"github.com/jmerrifield20/AuctionLedger/internal/webhooks"
	"github.com/jmerrifield20/AuctionLedger/internal/worldstate"
	"go.uber.org/zap"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store, log := worldstate.NewMemoryStore(), txlog.New()
	svc := service.NewCommodityService(repository.NewCommodityRepository(store), log, zap.NewNop())
	auditor := audit.New(store, log, audit.Config{}, zap.NewNop())
	auditor.Run(context.Background())
	hooks := webhooks.NewService(webhooks.NewMemoryRepository(), zap.NewNop())
	return newRouter(context.Background(), routerConfig{CORSOrigins: []string{"http://localhost:3000"}, RateLimitRPS: 100}, svc, log, auditor, hooks, nil, zap.NewNop())
}

func TestRouter_routes(t *testing.T) {
	router := testRouter(t)

	tests := []struct {
		method, path string
		code         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/api/v1/ledger", http.StatusOK},
		{http.MethodGet, "/api/v1/ledger/audit", http.StatusOK},
		{http.MethodGet, "/api/v1/commodities/IssuerMSP1/00001", http.StatusNotFound},
		{http.MethodPost, "/api/v1/commodities", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/webhooks", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, strings.NewReader("{}")))
			if w.Code != tt.code {
				t.Fatalf("expected %d, got %d: %s", tt.code, w.Code, w.Body.String())
			}
		})
	}
}

func TestContainsWildcard(t *testing.T) {
	if !containsWildcard([]string{"http://a", " * "}) {
		t.Error("expected wildcard")
	}
	if containsWildcard([]string{"http://a"}) {
		t.Error("unexpected wildcard")
	}
}
