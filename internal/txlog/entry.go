package txlog

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenesisHash is the hash of the genesis entry and the anchor of the chain.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// genesisActor is recorded as the actor of the genesis entry.
const genesisActor = "auction-system"

// Entry is a single committed transaction.
type Entry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	TxID      string    `json:"tx_id"`
	Key       string    `json:"key"`
	Action    string    `json:"action"`    // issue, auction, buy, deliver, genesis
	Actor     string    `json:"actor"`     // caller id and MSP, e.g. "alice@BuyerMSP"
	DataHash  string    `json:"data_hash"` // SHA-256 of the state bytes written
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// now returns the current time at the microsecond precision PostgreSQL keeps,
// so hashes computed before insert still match after a round trip.
func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

// hashEntry computes a deterministic SHA-256 hash over an entry's fields.
// It is never applied to the genesis entry.
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s|%s|%s",
		e.Index, e.Timestamp.Format(time.RFC3339Nano),
		e.TxID, e.Key, e.Action, e.Actor, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

// sha256Sum returns the hex-encoded SHA-256 digest of data.
func sha256Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// DataHash returns the digest Append records for state. Callers use it to
// check a stored buffer against its history entry.
func DataHash(state []byte) string { return sha256Sum(state) }

// verifyLink checks curr against its predecessor.
func verifyLink(prev, curr *Entry) error {
	if curr.PrevHash != prev.Hash {
		return fmt.Errorf("hash chain broken at index %d", curr.Index)
	}
	if curr.Hash != hashEntry(curr) {
		return fmt.Errorf("entry %d has invalid hash", curr.Index)
	}
	return nil
}
