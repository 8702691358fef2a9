// Package identity authenticates the organizations submitting transactions.
//
// It provides:
//   - Caller: the submitting client and its membership service (MSP)
//   - LoadOrCreateKey: loads or generates the RSA signing key on disk
//   - TokenIssuer: issues and verifies RS256 client tokens
//   - RequireCaller: Gin middleware enforcing a Bearer client token
//   - HeaderCaller: Gin middleware trusting X-Client-ID / X-MSP-ID (development only)
package identity

import "fmt"

// Caller identifies who submitted a transaction.
type Caller struct {
	ID    string `json:"id"`
	MSPID string `json:"msp_id"`
}

// String renders the caller as "id@msp", the form recorded in the transaction log.
func (c Caller) String() string {
	return fmt.Sprintf("%s@%s", c.ID, c.MSPID)
}

// Valid reports whether both parts of the identity are present.
func (c Caller) Valid() bool {
	return c.ID != "" && c.MSPID != ""
}
