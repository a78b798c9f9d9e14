package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/notice"
	"skilllink-client/internal/feature/profile"
)

type profileModule struct{ e *profile.Editor }

type profileOut struct {
	User   *domain.User  `json:"user"`
	Notice notice.Notice `json:"notice"`
}

func (m profileModule) MountAPI(g *gin.RouterGroup) {
	e := New(g)

	RegisterAction(e, Action[struct{}, domain.ProfileUpdate]{
		Method: http.MethodGet,
		Path:   "/profile",
		Binder: BindNone,
		Auth:   true,
		Handler: func(c *gin.Context, _ *struct{}) (domain.ProfileUpdate, error) {
			return m.e.Form(), nil
		},
	})

	RegisterAction(e, Action[domain.ProfileUpdate, profileOut]{
		Method: http.MethodPut,
		Path:   "/profile",
		Binder: BindJSON,
		Auth:   true,
		Handler: func(c *gin.Context, in *domain.ProfileUpdate) (profileOut, error) {
			u, n, err := m.e.Save(c.Request.Context(), *in)
			if err != nil {
				return profileOut{}, Fail(err, n.Message)
			}
			return profileOut{User: u, Notice: n}, nil
		},
	})
}
