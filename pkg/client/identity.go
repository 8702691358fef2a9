package client

import "net/http"

// Identity headers understood by a server running without token auth.
const (
	HeaderClientID = "X-Client-ID"
	HeaderMSPID    = "X-MSP-ID"
)

// WithBearerToken attaches a client token to every request.
func WithBearerToken(token string) Option {
	return func(c *Client) error {
		c.bearerToken = token
		return nil
	}
}

// WithClientIdentity sends the caller identity as X-Client-ID / X-MSP-ID
// headers. Servers only honor these when token auth is disabled.
func WithClientIdentity(clientID, mspID string) Option {
	return func(c *Client) error {
		c.clientID = clientID
		c.mspID = mspID
		return nil
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}
	if c.clientID != "" && c.mspID != "" {
		req.Header.Set(HeaderClientID, c.clientID)
		req.Header.Set(HeaderMSPID, c.mspID)
	}
}
