package identity_test

import (
	"crypto/rand"
	"crypto/rsa"
	"strings"
	"testing"
	"time"

	"github.com/jmerrifield20/AuctionLedger/internal/identity"
)

const testIssuer = "https://auction.example.com"

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func newTestTokenIssuer(t *testing.T) *identity.TokenIssuer {
	t.Helper()
	return identity.NewTokenIssuer(newTestKey(t), testIssuer, time.Hour)
}

func TestTokenIssuer_Issue(t *testing.T) {
	ti := newTestTokenIssuer(t)

	token, err := ti.Issue(identity.Caller{ID: "alice", MSPID: "BuyerMSP"})
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("expected 3-part JWT, got %d parts", len(parts))
	}
}

func TestTokenIssuer_Issue_requiresIdentity(t *testing.T) {
	ti := newTestTokenIssuer(t)
	for _, c := range []identity.Caller{{}, {ID: "alice"}, {MSPID: "BuyerMSP"}} {
		if _, err := ti.Issue(c); err == nil {
			t.Errorf("Issue(%+v): expected error", c)
		}
	}
}

func TestTokenIssuer_Verify_valid(t *testing.T) {
	ti := newTestTokenIssuer(t)
	want := identity.Caller{ID: "alice", MSPID: "BuyerMSP"}

	token, err := ti.Issue(want)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if got := claims.Caller(); got != want {
		t.Errorf("Caller() = %+v, want %+v", got, want)
	}
	if claims.ID == "" {
		t.Error("expected a token ID (jti)")
	}
}

func TestTokenIssuer_Verify_expired(t *testing.T) {
	ti := identity.NewTokenIssuer(newTestKey(t), testIssuer, time.Nanosecond)
	token, err := ti.Issue(identity.Caller{ID: "alice", MSPID: "BuyerMSP"})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(1100 * time.Millisecond)

	if _, err := ti.Verify(token); err == nil {
		t.Error("expected error for expired token")
	}
}

func TestTokenIssuer_Verify_wrongKey(t *testing.T) {
	a := newTestTokenIssuer(t)
	b := newTestTokenIssuer(t)

	token, _ := a.Issue(identity.Caller{ID: "alice", MSPID: "BuyerMSP"})
	if _, err := b.Verify(token); err == nil {
		t.Error("expected error for token signed by another key")
	}
}

func TestTokenIssuer_Verify_wrongIssuer(t *testing.T) {
	key := newTestKey(t)
	a := identity.NewTokenIssuer(key, "https://a.example.com", time.Hour)
	b := identity.NewTokenIssuer(key, "https://b.example.com", time.Hour)

	token, _ := a.Issue(identity.Caller{ID: "alice", MSPID: "BuyerMSP"})
	if _, err := b.Verify(token); err == nil {
		t.Error("expected error for token from another issuer")
	}
}

func TestTokenIssuer_Verify_garbage(t *testing.T) {
	ti := newTestTokenIssuer(t)
	if _, err := ti.Verify("not.a.token"); err == nil {
		t.Error("expected error for garbage token")
	}
}

func TestNewTokenIssuer_defaultTTL(t *testing.T) {
	ti := identity.NewTokenIssuer(newTestKey(t), testIssuer, 0)
	if ti.TTL() != 24*time.Hour {
		t.Errorf("default TTL = %v, want 24h", ti.TTL())
	}
}
