package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/applications"
)

type applicationsModule struct{ t *applications.Tracker }

type applicationsQuery struct {
	Status  string `form:"status"`
	Refresh bool   `form:"refresh"`
}

type applicationsPage struct {
	Status       applications.Status  `json:"status"`
	Applications []domain.Application `json:"applications"`
	Summary      applications.Summary `json:"summary"`
	Loading      bool                 `json:"loading"`
	Error        string               `json:"error,omitempty"`
}

func (m applicationsModule) MountAPI(g *gin.RouterGroup) {
	RegisterAction(New(g), Action[applicationsQuery, applicationsPage]{
		Method:  http.MethodGet,
		Path:    "/applications",
		Binder:  BindQuery,
		Require: func(c domain.Capabilities) bool { return c.CanTrackApplications },
		Handler: func(c *gin.Context, in *applicationsQuery) (applicationsPage, error) {
			status, ok := applications.ParseStatus(in.Status)
			if !ok {
				return applicationsPage{}, BadRequest("status must be all, applied, accepted or rejected")
			}
			st := m.t.State()
			if in.Refresh || !st.Loaded {
				st, _ = m.t.Load(c.Request.Context())
			}
			return applicationsPage{
				Status:       status,
				Applications: m.t.List(status),
				Summary:      m.t.Summary(),
				Loading:      st.Loading,
				Error:        st.Error,
			}, nil
		},
	})
}
