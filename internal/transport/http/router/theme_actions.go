package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/theme"
	mdw "skilllink-client/internal/transport/http/middleware"
)

type themeModule struct{ t *theme.Theme }

type themeIO struct {
	Mode theme.Mode `json:"mode"`
}

func (m themeModule) MountAPI(g *gin.RouterGroup) {
	e := New(g)

	e.GET("/theme", func(c *gin.Context) (any, error) { return themeIO{Mode: m.t.Mode()}, nil })

	RegisterAction(e, Action[themeIO, themeIO]{
		Method: http.MethodPut,
		Path:   "/theme",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *themeIO) (themeIO, error) {
			mode, ok := theme.Parse(string(in.Mode))
			if !ok {
				return themeIO{}, BadRequest("mode must be light or dark")
			}
			if err := m.t.Set(c.Request.Context(), mode); err != nil {
				return themeIO{}, Internal("save theme failed", err)
			}
			c.Header(mdw.HeaderTheme, string(mode))
			return themeIO{Mode: mode}, nil
		},
	})

	RegisterAction(e, Action[struct{}, themeIO]{
		Method: http.MethodPost,
		Path:   "/theme/toggle",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (themeIO, error) {
			mode, err := m.t.Toggle(c.Request.Context())
			if err != nil {
				return themeIO{}, Internal("save theme failed", err)
			}
			c.Header(mdw.HeaderTheme, string(mode))
			return themeIO{Mode: mode}, nil
		},
	})
}
