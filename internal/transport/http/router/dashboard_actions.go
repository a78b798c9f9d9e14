package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/feature/dashboard"
	"skilllink-client/internal/session"
)

type dashboardModule struct {
	s *session.Session
	d *dashboard.Aggregator
}

// 仪表盘错误是页面级横幅，放在 data.error 里返回
func (m dashboardModule) MountAPI(g *gin.RouterGroup) {
	RegisterAction(New(g), Action[struct{}, dashboard.State]{
		Method: http.MethodGet,
		Path:   "/dashboard",
		Binder: BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (dashboard.State, error) {
			return m.d.Load(c.Request.Context(), m.s.User()), nil
		},
	})
}
