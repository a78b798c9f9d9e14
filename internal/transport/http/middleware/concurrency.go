package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"

	resp "skilllink-client/internal/transport/http/response"
)

// ConcurrencyLimit 同时在处理的请求数上限，保护远端 API
func ConcurrencyLimit(max int64) gin.HandlerFunc {
	if max <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	sem := semaphore.NewWeighted(max)
	return func(c *gin.Context) {
		if !sem.TryAcquire(1) {
			resp.Abort(c, resp.CodeTooManyRequests, "console busy")
			return
		}
		defer sem.Release(1)
		c.Next()
	}
}
