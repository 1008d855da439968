package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Header carries the correlation id in both directions.
const Header = "X-Request-ID"

const contextKey = "request_id"

// maxLength bounds client supplied ids so logs stay sane.
const maxLength = 128

// Middleware tags every request with an id, reusing the caller's when it looks sane.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := c.GetHeader(Header)
		if reqID == "" || len(reqID) > maxLength {
			reqID = uuid.NewString()
		}

		c.Set(contextKey, reqID)
		c.Writer.Header().Set(Header, reqID)
		c.Next()
	}
}

// Value returns the id assigned by Middleware, or "" outside of it.
func Value(c *gin.Context) string {
	return c.GetString(contextKey)
}
