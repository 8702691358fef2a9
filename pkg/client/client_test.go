package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmerrifield20/AuctionLedger/pkg/client"
)

// ── Stub server ─────────────────────────────────────────────────────────

var stubCommodity = map[string]any{
	"key":                "IssuerMSP1:00001",
	"issuer":             "IssuerMSP1",
	"item_number":        "00001",
	"issue_date_time":    "2024-01-01",
	"maturity_date_time": "2024-12-31",
	"face_value":         500000,
	"owner":              "IssuerMSP1",
	"owner_org":          "IssuerMSP1",
	"current_state":      "SUBMITTED",
}

func stubServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/commodities", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			if r.Header.Get("Authorization") == "" && r.Header.Get(client.HeaderClientID) == "" {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "caller identity required"})
				return
			}
			var req client.IssueRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.ItemNumber == "dup" {
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{"error": "commodity already exists"})
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(stubCommodity)
		case http.MethodGet:
			if r.URL.Query().Get("issuer") != "IssuerMSP1" {
				json.NewEncoder(w).Encode(map[string]any{"commodities": []any{}, "count": 0})
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"commodities": []any{stubCommodity}, "count": 1})
		}
	})

	mux.HandleFunc("/api/v1/commodities/IssuerMSP1/00001", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(stubCommodity)
	})

	mux.HandleFunc("/api/v1/commodities/IssuerMSP1/00001/history", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"entries": []map[string]any{{"index": 1, "key": "IssuerMSP1:00001", "action": "issue", "actor": "a@IssuerMSP1"}},
			"count":   1,
		})
	})

	mux.HandleFunc("/api/v1/commodities/IssuerMSP1/00001/auction", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		out := copyStub()
		out["current_state"] = "AUCTIONED"
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("/api/v1/commodities/IssuerMSP1/00001/buy", func(w http.ResponseWriter, r *http.Request) {
		var req client.BuyRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.CurrentOwner != "IssuerMSP1" {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "caller is not the owner"})
			return
		}
		out := copyStub()
		out["owner"] = req.NewOwner
		out["owner_org"] = r.Header.Get(client.HeaderMSPID)
		out["current_state"] = "TRADING"
		json.NewEncoder(w).Encode(out)
	})

	mux.HandleFunc("/api/v1/commodities/IssuerMSP1/00001/deliver", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid commodity state: cannot deliver a SUBMITTED commodity"})
	})

	mux.HandleFunc("/api/v1/ledger", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"entries": 3, "root": "abc"})
	})
	mux.HandleFunc("/api/v1/ledger/verify", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"valid": false, "error": "hash chain broken at index 2"})
	})
	mux.HandleFunc("/api/v1/ledger/entries/0", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"index": 0, "action": "genesis"})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func copyStub() map[string]any {
	out := make(map[string]any, len(stubCommodity))
	for k, v := range stubCommodity {
		out[k] = v
	}
	return out
}

// ── Tests ───────────────────────────────────────────────────────────────

func TestNew_invalidURL(t *testing.T) {
	for _, base := range []string{"", "localhost:8080", "://bad"} {
		if _, err := client.New(base); err == nil {
			t.Errorf("New(%q): expected error", base)
		}
	}
}

func TestIssue_success(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL, client.WithClientIdentity("admin", "IssuerMSP1"))

	cm, err := c.Issue(context.Background(), client.IssueRequest{Issuer: "IssuerMSP1", ItemNumber: "00001", FaceValue: 500000})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if cm.Key != "IssuerMSP1:00001" || cm.CurrentState != "SUBMITTED" || cm.FaceValue != 500000 {
		t.Errorf("unexpected commodity: %+v", cm)
	}
}

func TestIssue_unauthorized(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL)

	_, err := c.Issue(context.Background(), client.IssueRequest{Issuer: "IssuerMSP1", ItemNumber: "00001"})
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 APIError, got %v", err)
	}
	if apiErr.Message != "caller identity required" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestIssue_conflict(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL, client.WithBearerToken("tok"))

	_, err := c.Issue(context.Background(), client.IssueRequest{Issuer: "IssuerMSP1", ItemNumber: "dup"})
	if !client.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestGet(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL)

	cm, err := c.Get(context.Background(), "IssuerMSP1", "00001")
	if err != nil {
		t.Fatal(err)
	}
	if cm.Owner != "IssuerMSP1" {
		t.Errorf("owner = %s", cm.Owner)
	}

	_, err = c.Get(context.Background(), "IssuerMSP1", "99999")
	if !client.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestList(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL)

	list, err := c.List(context.Background(), "IssuerMSP1")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].ItemNumber != "00001" {
		t.Errorf("unexpected list: %+v", list)
	}
}

func TestHistory(t *testing.T) {
	srv := stubServer(t)
	c := client.MustNew(srv.URL)

	hist, err := c.History(context.Background(), "IssuerMSP1", "00001")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 1 || hist[0].Action != "issue" {
		t.Errorf("unexpected history: %+v", hist)
	}
}

func TestTransactions(t *testing.T) {
	srv := stubServer(t)
	ctx := context.Background()
	c := client.MustNew(srv.URL, client.WithClientIdentity("alice", "BuyerMSP"))

	cm, err := c.Auction(ctx, "IssuerMSP1", "00001")
	if err != nil || cm.CurrentState != "AUCTIONED" {
		t.Fatalf("Auction: %+v, %v", cm, err)
	}

	cm, err = c.Buy(ctx, "IssuerMSP1", "00001", client.BuyRequest{CurrentOwner: "IssuerMSP1", NewOwner: "alice"})
	if err != nil {
		t.Fatalf("Buy: %v", err)
	}
	if cm.Owner != "alice" || cm.OwnerOrg != "BuyerMSP" || cm.CurrentState != "TRADING" {
		t.Errorf("after buy: %+v", cm)
	}

	_, err = c.Buy(ctx, "IssuerMSP1", "00001", client.BuyRequest{CurrentOwner: "someone", NewOwner: "alice"})
	if !client.IsForbidden(err) {
		t.Errorf("stale owner: expected forbidden, got %v", err)
	}

	_, err = c.Deliver(ctx, "IssuerMSP1", "00001", client.DeliverRequest{})
	if !client.IsConflict(err) {
		t.Errorf("deliver: expected conflict, got %v", err)
	}
}

func TestLedger(t *testing.T) {
	srv := stubServer(t)
	ctx := context.Background()
	c := client.MustNew(srv.URL)

	status, err := c.Ledger(ctx)
	if err != nil || status.Entries != 3 || status.Root != "abc" {
		t.Fatalf("Ledger: %+v, %v", status, err)
	}

	ok, reason, err := c.VerifyLedger(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok || reason == "" {
		t.Errorf("VerifyLedger = %v, %q", ok, reason)
	}

	e, err := c.LedgerEntry(ctx, 0)
	if err != nil || e.Action != "genesis" {
		t.Fatalf("LedgerEntry: %+v, %v", e, err)
	}
}
