package txlog_test

import (
	"context"
	"testing"

	"github.com/jmerrifield20/AuctionLedger/internal/txlog"
)

var ctx = context.Background()

func TestNew_genesisEntry(t *testing.T) {
	l := txlog.New()

	n, err := l.Len(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected 1 genesis entry, got %d", n)
	}

	entry, err := l.Get(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Action != "genesis" {
		t.Errorf("expected action 'genesis', got %q", entry.Action)
	}
	if entry.Hash != txlog.GenesisHash {
		t.Errorf("genesis hash: got %q, want GenesisHash", entry.Hash)
	}
}

func TestAppend_chainsCorrectly(t *testing.T) {
	l := txlog.New()

	e1, err := l.Append(ctx, "IssuerMSP1:00001", "issue", "issuer@IssuerMSP1", []byte("state-1"))
	if err != nil {
		t.Fatal(err)
	}
	e2, err := l.Append(ctx, "IssuerMSP1:00001", "auction", "issuer@IssuerMSP1", []byte("state-2"))
	if err != nil {
		t.Fatal(err)
	}

	if e2.PrevHash != e1.Hash {
		t.Errorf("chain broken: e2.PrevHash=%q, want e1.Hash=%q", e2.PrevHash, e1.Hash)
	}
	if e1.TxID == "" || e1.TxID == e2.TxID {
		t.Errorf("transaction IDs must be unique and non-empty: %q, %q", e1.TxID, e2.TxID)
	}
	if e1.DataHash != txlog.DataHash([]byte("state-1")) {
		t.Errorf("DataHash = %q, want hash of written state", e1.DataHash)
	}

	n, _ := l.Len(ctx)
	if n != 3 { // genesis + 2
		t.Errorf("expected 3 entries, got %d", n)
	}
}

func TestHistory_filtersByKey(t *testing.T) {
	l := txlog.New()
	l.Append(ctx, "IssuerMSP1:00001", "issue", "a", nil)   //nolint:errcheck
	l.Append(ctx, "IssuerMSP1:00002", "issue", "a", nil)   //nolint:errcheck
	l.Append(ctx, "IssuerMSP1:00001", "auction", "a", nil) //nolint:errcheck

	hist, err := l.History(ctx, "IssuerMSP1:00001")
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(hist))
	}
	if hist[0].Action != "issue" || hist[1].Action != "auction" {
		t.Errorf("history out of order: %s, %s", hist[0].Action, hist[1].Action)
	}

	none, _ := l.History(ctx, "unknown")
	if len(none) != 0 {
		t.Errorf("expected empty history, got %d entries", len(none))
	}
}

func TestVerify_valid(t *testing.T) {
	l := txlog.New()
	l.Append(ctx, "IssuerMSP1:00001", "issue", "a", []byte("x"))   //nolint:errcheck
	l.Append(ctx, "IssuerMSP1:00001", "auction", "a", []byte("y")) //nolint:errcheck

	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() failed on valid chain: %v", err)
	}
}

func TestRoot_returnsLastHash(t *testing.T) {
	l := txlog.New()
	e, _ := l.Append(ctx, "IssuerMSP1:00001", "issue", "a", nil)

	root, err := l.Root(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if root != e.Hash {
		t.Errorf("Root(): got %q, want %q", root, e.Hash)
	}
}

func TestVerify_genesisOnlyChain(t *testing.T) {
	l := txlog.New()
	if err := l.Verify(ctx); err != nil {
		t.Errorf("Verify() on genesis-only chain should pass: %v", err)
	}
}

func TestGet_outOfRange(t *testing.T) {
	l := txlog.New()
	if _, err := l.Get(ctx, 5); err == nil {
		t.Error("expected error for out-of-range index")
	}
	if _, err := l.Get(ctx, -1); err == nil {
		t.Error("expected error for negative index")
	}
}
