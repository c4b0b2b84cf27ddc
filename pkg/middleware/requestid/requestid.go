package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the request ID on both requests and responses.
	Header = "X-Request-ID"

	contextKey = "request_id"
)

// Middleware tags every request with an ID. A caller-supplied header wins so
// IDs stay stable across proxy hops; otherwise a fresh UUID is minted.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)
		c.Next()
	}
}

// Value returns the request ID assigned by Middleware, or "" outside of it.
func Value(c *gin.Context) string {
	id, _ := c.Get(contextKey)
	s, _ := id.(string)
	return s
}
