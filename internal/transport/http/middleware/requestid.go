package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"skilllink-client/internal/apiclient"
)

const KeyRequestID = apiclient.HeaderRequestID

// RequestID 沿用调用方的 id，没有就生成；同一个 id 会带到发往 SkillLink API 的请求上
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.Request.Header.Get(KeyRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Writer.Header().Set(KeyRequestID, rid)
		c.Set(KeyRequestID, rid)
		c.Request = c.Request.WithContext(apiclient.ContextWithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}
