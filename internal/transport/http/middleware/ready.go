package middleware

import (
	"github.com/gin-gonic/gin"

	resp "skilllink-client/internal/transport/http/response"
)

// ReadyGate 会话恢复完成前，除豁免路径外一律回 "loading"
func ReadyGate(ready <-chan struct{}, exempt ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(exempt))
	for _, p := range exempt {
		skip[p] = struct{}{}
	}
	return func(c *gin.Context) {
		select {
		case <-ready:
			c.Next()
			return
		default:
		}
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}
		c.Set(KeyCode, resp.CodeLoading)
		resp.Abort(c, resp.CodeLoading, "")
	}
}
