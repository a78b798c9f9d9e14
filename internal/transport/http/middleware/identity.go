package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/core/auth"
	"skilllink-client/internal/domain"
)

const (
	KeyUserID    = "userId"
	KeyRole      = "role"
	KeyClaims    = "claims"
	KeyCaps      = "capabilities"
	KeyCode      = "code" // envelope 业务码，给日志和指标用
	HeaderExpiry = "X-Session-Expires-In"
)

// Identity 由 *session.Session 实现
type Identity interface {
	User() *domain.User
	Token() string
}

// SessionIdentity 把当前会话用户放进上下文；console 只有一个会话，不读请求头
func SessionIdentity(id Identity) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := id.User()
		if u == nil {
			c.Next()
			return
		}
		c.Set(KeyUserID, u.ID)
		c.Set(KeyRole, string(u.NormalizedRole()))
		c.Set(KeyCaps, domain.CapabilitiesFor(u))
		if claims, err := auth.Inspect(id.Token()); err == nil {
			c.Set(KeyClaims, claims)
			if d, ok := claims.ExpiresIn(time.Now()); ok {
				c.Writer.Header().Set(HeaderExpiry, d.Round(time.Second).String())
			}
		}
		c.Next()
	}
}
