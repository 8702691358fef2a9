// cmd/seed populates a running auctiond with demo commodities in every
// lifecycle state, for development.
//
// Seeding goes through the public API, so every commodity has a real
// transaction history. Commodities that already exist are skipped; to start
// over, restart a memory-backed server or truncate world_state and tx_log.
//
// The server must run with identity.enabled=false (header identity).
//
// Usage:
//
//	go run ./cmd/seed
//	AUCTION_SERVER_URL=http://localhost:9090 go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmerrifield20/AuctionLedger/pkg/client"
)

const defaultServer = "http://localhost:8080"

type org struct {
	clientID string
	mspID    string
}

var (
	issuerA = org{"issuer-admin", "IssuerMSP1"}
	issuerB = org{"issuer-admin", "IssuerMSP2"}
	buyer1  = org{"alice", "BuyerMSP"}
	buyer2  = org{"bob", "TraderMSP"}
)

// seedCommodity is issued by issuer and advanced to target.
type seedCommodity struct {
	issuer org
	req    client.IssueRequest
	target string
}

var seedCommodities = []seedCommodity{
	{issuerA, client.IssueRequest{Issuer: "IssuerMSP1", ItemNumber: "00001", IssueDateTime: "2024-01-02", MaturityDateTime: "2024-12-31", FaceValue: 500_000}, "SUBMITTED"},
	{issuerA, client.IssueRequest{Issuer: "IssuerMSP1", ItemNumber: "00002", IssueDateTime: "2024-02-01", MaturityDateTime: "2025-01-31", FaceValue: 1_250_000}, "AUCTIONED"},
	{issuerA, client.IssueRequest{Issuer: "IssuerMSP1", ItemNumber: "00003", IssueDateTime: "2024-03-15", MaturityDateTime: "2025-03-14", FaceValue: 90_000}, "TRADING"},
	{issuerB, client.IssueRequest{Issuer: "IssuerMSP2", ItemNumber: "A-100", IssueDateTime: "2024-04-01", MaturityDateTime: "2024-10-01", FaceValue: 2_000_000}, "DELIVERED"},
	{issuerB, client.IssueRequest{Issuer: "IssuerMSP2", ItemNumber: "A-101", IssueDateTime: "2024-04-01", MaturityDateTime: "2024-10-01", FaceValue: 2_000_000}, "TRADING"},
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	server := os.Getenv("AUCTION_SERVER_URL")
	if server == "" {
		server = defaultServer
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	as := func(o org) *client.Client {
		return client.MustNew(server, client.WithClientIdentity(o.clientID, o.mspID))
	}

	if _, err := as(issuerA).Ledger(ctx); err != nil {
		return fmt.Errorf("reach %s: %w", server, err)
	}
	fmt.Printf("connected to %s\n", server)

	for _, sc := range seedCommodities {
		key := sc.req.Issuer + ":" + sc.req.ItemNumber
		if _, err := as(sc.issuer).Issue(ctx, sc.req); client.IsConflict(err) {
			fmt.Printf("  skip   %s (exists)\n", key)
			continue
		} else if err != nil {
			return fmt.Errorf("issue %s: %w", key, err)
		}
		if err := advance(ctx, as, sc); err != nil {
			return fmt.Errorf("advance %s: %w", key, err)
		}
		fmt.Printf("  seeded %s -> %s\n", key, sc.target)
	}

	if ok, reason, err := as(issuerA).VerifyLedger(ctx); err != nil {
		return fmt.Errorf("verify ledger: %w", err)
	} else if !ok {
		return fmt.Errorf("ledger failed verification after seeding: %s", reason)
	}
	fmt.Println("done; ledger verified")
	return nil
}

// advance walks a freshly issued commodity to its target state. Trading
// commodities change hands twice so their history shows a resale.
func advance(ctx context.Context, as func(org) *client.Client, sc seedCommodity) error {
	issuer, item := sc.req.Issuer, sc.req.ItemNumber
	if sc.target == "SUBMITTED" {
		return nil
	}
	if _, err := as(sc.issuer).Auction(ctx, issuer, item); err != nil {
		return err
	}
	if sc.target == "AUCTIONED" {
		return nil
	}

	if _, err := as(buyer1).Buy(ctx, issuer, item, client.BuyRequest{
		CurrentOwner: issuer, NewOwner: buyer1.clientID, Price: sc.req.FaceValue * 9 / 10,
	}); err != nil {
		return err
	}
	if _, err := as(buyer2).Buy(ctx, issuer, item, client.BuyRequest{
		CurrentOwner: buyer1.clientID, NewOwner: buyer2.clientID, Price: sc.req.FaceValue * 95 / 100,
	}); err != nil {
		return err
	}
	if sc.target == "TRADING" {
		return nil
	}

	_, err := as(buyer2).Deliver(ctx, issuer, item, client.DeliverRequest{
		DeliveryDateTime: sc.req.MaturityDateTime,
	})
	return err
}
