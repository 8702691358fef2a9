package identity_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmerrifield20/AuctionLedger/internal/identity"
)

func TestLoadOrCreateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "signing.key")

	created, err := identity.LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("key file not written: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key file mode = %v, want 0600", info.Mode().Perm())
	}

	loaded, err := identity.LoadOrCreateKey(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !created.Equal(loaded) {
		t.Error("reloaded key differs from the created one")
	}
}

func TestParsePrivateKeyPEM_invalid(t *testing.T) {
	if _, err := identity.ParsePrivateKeyPEM([]byte("not pem")); err == nil {
		t.Error("expected error for non-PEM input")
	}
}

func TestParsePrivateKeyPEM_roundTrip(t *testing.T) {
	key := newTestKey(t)
	parsed, err := identity.ParsePrivateKeyPEM(identity.EncodePrivateKeyPEM(key))
	if err != nil {
		t.Fatal(err)
	}
	if !key.Equal(parsed) {
		t.Error("parsed key differs")
	}
}
