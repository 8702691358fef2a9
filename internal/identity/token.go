package identity

import (
	"crypto/rsa"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ClientTokenClaims are the JWT claims of a client token. The subject is the
// client ID; MSPID names the organization the client acts for.
type ClientTokenClaims struct {
	jwt.RegisteredClaims
	MSPID string `json:"msp_id"`
}

// Caller returns the identity carried by the claims.
func (c *ClientTokenClaims) Caller() Caller {
	return Caller{ID: c.Subject, MSPID: c.MSPID}
}

// TokenIssuer issues and verifies client tokens signed with RS256.
type TokenIssuer struct {
	key    *rsa.PrivateKey
	pub    *rsa.PublicKey
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer.
//
//	issuer: the "iss" claim value; typically the server's base URL.
//	ttl: token lifetime (default: 24 hours).
func NewTokenIssuer(key *rsa.PrivateKey, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		key:    key,
		pub:    &key.PublicKey,
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue creates a signed client token for caller.
func (t *TokenIssuer) Issue(caller Caller) (string, error) {
	if !caller.Valid() {
		return "", fmt.Errorf("issue token: client ID and MSP ID are required")
	}
	now := time.Now().UTC()
	claims := ClientTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.NewString(),
		},
		MSPID: caller.MSPID,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a client token, returning its claims on success.
func (t *TokenIssuer) Verify(tokenStr string) (*ClientTokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&ClientTokenClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return t.pub, nil
		},
		jwt.WithIssuer(t.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}

	claims, ok := token.Claims.(*ClientTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	if !claims.Caller().Valid() {
		return nil, fmt.Errorf("token is missing subject or msp_id")
	}
	return claims, nil
}

// TTL returns the configured token lifetime.
func (t *TokenIssuer) TTL() time.Duration { return t.ttl }
