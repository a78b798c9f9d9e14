package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	resp "skilllink-client/internal/transport/http/response"
)

// MaxBodyBytes 表单类请求体上限
func MaxBodyBytes(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		c.Next()
		if c.Err() != nil && !c.Writer.Written() {
			resp.Abort(c, resp.CodeTooLarge, "request body too large")
		}
	}
}
