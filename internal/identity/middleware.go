package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const ctxCaller = "auction_caller"

// Development-mode identity headers.
const (
	HeaderClientID = "X-Client-ID"
	HeaderMSPID    = "X-MSP-ID"
)

// RequireCaller returns a Gin middleware that enforces a valid Bearer client
// token and injects the Caller into the context.
func RequireCaller(tokens *TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Bearer token required",
			})
			return
		}

		claims, err := tokens.Verify(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid token: " + err.Error(),
			})
			return
		}

		c.Set(ctxCaller, claims.Caller())
		c.Next()
	}
}

// HeaderCaller returns a Gin middleware that trusts the X-Client-ID and
// X-MSP-ID request headers. It never aborts; handlers that need a caller
// reject requests without one. Use only when token auth is disabled.
func HeaderCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := Caller{
			ID:    strings.TrimSpace(c.GetHeader(HeaderClientID)),
			MSPID: strings.TrimSpace(c.GetHeader(HeaderMSPID)),
		}
		if caller.Valid() {
			c.Set(ctxCaller, caller)
		}
		c.Next()
	}
}

// CallerFromCtx retrieves the Caller injected by RequireCaller or HeaderCaller.
func CallerFromCtx(c *gin.Context) (Caller, bool) {
	v, ok := c.Get(ctxCaller)
	if !ok {
		return Caller{}, false
	}
	caller, ok := v.(Caller)
	return caller, ok
}
