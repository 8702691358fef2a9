package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmerrifield20/AuctionLedger/pkg/client"
)

func TestSubscriptions(t *testing.T) {
	const id = "6f1c2b1e-5d1a-4f7e-9a59-3c1f0e0d2b7a"
	var deleted string

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/webhooks", func(w http.ResponseWriter, r *http.Request) {
		sub := map[string]any{"id": id, "msp_id": r.Header.Get(client.HeaderMSPID), "url": "https://hooks.test", "events": []string{client.EventCommodityTraded}, "active": true}
		if r.Method == http.MethodPost {
			var req struct {
				URL    string   `json:"url"`
				Events []string `json:"events"`
			}
			json.NewDecoder(r.Body).Decode(&req) //nolint:errcheck
			if req.URL != "https://hooks.test" || len(req.Events) != 1 {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{"subscription": sub, "secret": "s3cr3t"}) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"subscriptions": []any{sub}, "count": 1}) //nolint:errcheck
	})
	mux.HandleFunc("/api/v1/webhooks/"+id, func(w http.ResponseWriter, r *http.Request) {
		deleted = r.Method
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := client.MustNew(srv.URL, client.WithClientIdentity("bob", "BuyerMSP"))
	ctx := context.Background()

	sub, secret, err := c.CreateSubscription(ctx, "https://hooks.test", client.EventCommodityTraded)
	if err != nil {
		t.Fatal(err)
	}
	if sub.ID != id || sub.MSPID != "BuyerMSP" || secret != "s3cr3t" {
		t.Errorf("CreateSubscription = %+v, %q", sub, secret)
	}

	subs, err := c.ListSubscriptions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0].Events[0] != client.EventCommodityTraded {
		t.Errorf("ListSubscriptions = %+v", subs)
	}

	if err := c.DeleteSubscription(ctx, id); err != nil {
		t.Fatal(err)
	}
	if deleted != http.MethodDelete {
		t.Errorf("delete used method %q", deleted)
	}
}
