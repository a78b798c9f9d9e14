package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/domain"
	"skilllink-client/internal/session"
)

type sessionView struct {
	Ready         bool                `json:"ready"`
	Authenticated bool                `json:"authenticated"`
	User          *domain.User        `json:"user"`
	Capabilities  domain.Capabilities `json:"capabilities"`
	ExpiresIn     string              `json:"expiresIn,omitempty"`
}

func viewOf(s *session.Session) sessionView {
	v := sessionView{
		Ready:         !s.Loading(),
		Authenticated: s.Authenticated(),
		User:          s.User(),
		Capabilities:  s.Capabilities(),
	}
	if cl, err := s.Claims(); err == nil {
		if d, ok := cl.ExpiresIn(time.Now()); ok {
			v.ExpiresIn = d.Round(time.Second).String()
		}
	}
	return v
}

type sessionModule struct{ s *session.Session }

func (sessionModule) Priority() int { return 10 }

func (m sessionModule) MountAPI(g *gin.RouterGroup) {
	e := New(g)

	e.GET("/session", func(c *gin.Context) (any, error) { return viewOf(m.s), nil })

	RegisterAction(e, Action[domain.Credentials, sessionView]{
		Method: http.MethodPost,
		Path:   "/session/login",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *domain.Credentials) (sessionView, error) {
			if _, err := m.s.Login(c.Request.Context(), *in); err != nil {
				return sessionView{}, err
			}
			return viewOf(m.s), nil
		},
	})

	type registerOut struct {
		User    *domain.User `json:"user"`
		Message string       `json:"message"`
	}
	RegisterAction(e, Action[domain.RegisterRequest, registerOut]{
		Method: http.MethodPost,
		Path:   "/session/register",
		Binder: BindJSON,
		Handler: func(c *gin.Context, in *domain.RegisterRequest) (registerOut, error) {
			u, err := m.s.Register(c.Request.Context(), *in)
			if err != nil {
				return registerOut{}, err
			}
			return registerOut{User: u, Message: "Registration successful. Please sign in."}, nil
		},
	})

	RegisterAction(e, Action[struct{}, sessionView]{
		Method: http.MethodPost,
		Path:   "/session/logout",
		Binder: BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (sessionView, error) {
			if err := m.s.Logout(c.Request.Context()); err != nil {
				return sessionView{}, Internal("logout failed", err)
			}
			return viewOf(m.s), nil
		},
	})
}
