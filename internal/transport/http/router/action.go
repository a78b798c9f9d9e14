package router

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"skilllink-client/internal/apiclient"
	"skilllink-client/internal/domain"
	"skilllink-client/internal/feature/applications"
	"skilllink-client/internal/feature/courses"
	"skilllink-client/internal/feature/jobs"
	"skilllink-client/internal/feature/profile"
	"skilllink-client/internal/session"
	mdw "skilllink-client/internal/transport/http/middleware"
	resp "skilllink-client/internal/transport/http/response"
	"skilllink-client/pkg/validation"
)

type EZ struct{ g *gin.RouterGroup }

func New(g *gin.RouterGroup) EZ { return EZ{g: g} }

func write(c *gin.Context, r resp.Resp) {
	c.Set(mdw.KeyCode, r.Code)
	c.JSON(http.StatusOK, r)
}

// GET 无入参的只读接口
func (e EZ) GET(path string, h func(c *gin.Context) (any, error)) {
	e.g.GET(path, func(c *gin.Context) {
		data, err := h(c)
		if err != nil {
			write(c, errorResp(err))
			return
		}
		write(c, resp.OK(data))
	})
}

type Binder string

const (
	BindJSON  Binder = "json"
	BindQuery Binder = "query"
	BindNone  Binder = "none" // 自己从 c.Param 取
)

// AErr 带业务码的动作错误
type AErr struct {
	Code int
	Msg  string
	Err  error
}

func (e *AErr) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "action error"
}

func (e *AErr) Unwrap() error { return e.Err }

func BadRequest(msg string) error   { return &AErr{Code: resp.CodeBadRequest, Msg: msg} }
func Unauthorized(msg string) error { return &AErr{Code: resp.CodeUnauthorized, Msg: msg} }
func Forbidden(msg string) error    { return &AErr{Code: resp.CodeForbidden, Msg: msg} }
func NotFound(msg string) error     { return &AErr{Code: resp.CodeNotFound, Msg: msg} }
func Internal(msg string, err error) error {
	return &AErr{Code: resp.CodeServerError, Msg: msg, Err: err}
}

// Fail 业务码按 err 分类，文案用页面上给用户看的那句
func Fail(err error, msg string) error {
	return &AErr{Code: codeOf(err), Msg: msg, Err: err}
}

func codeOf(err error) int {
	var ae *apiclient.APIError
	var ve validator.ValidationErrors
	switch {
	case errors.As(err, &ve):
		return resp.CodeBadRequest
	case errors.As(err, &ae):
		switch {
		case ae.Unauthenticated():
			return resp.CodeUnauthorized
		case ae.Status == http.StatusBadRequest, ae.Status == http.StatusNotFound, ae.Status == http.StatusConflict:
			return ae.Status
		}
		return resp.CodeBadGateway
	case errors.Is(err, session.ErrNotAuthenticated), errors.Is(err, profile.ErrNotSignedIn):
		return resp.CodeUnauthorized
	case errors.Is(err, jobs.ErrNotAllowed), errors.Is(err, courses.ErrNotAllowed), errors.Is(err, applications.ErrNotAllowed):
		return resp.CodeForbidden
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, jobs.ErrNotActionable),
		errors.Is(err, jobs.ErrAlreadyApplied), errors.Is(err, jobs.ErrJobClosed),
		errors.Is(err, jobs.ErrBadDecision), errors.Is(err, jobs.ErrNoProposals):
		return resp.CodeBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return resp.CodeTimeout
	}
	return resp.CodeServerError
}

// errorResp 远端错误用服务端 message，本地错误用 err 文本，500 不外泄细节
func errorResp(err error) resp.Resp {
	var ae *AErr
	if errors.As(err, &ae) {
		return resp.Error(ae.Code, ae.Error())
	}
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return resp.Error(resp.CodeBadRequest, validation.Message(ve))
	}
	code := codeOf(err)
	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &apiErr):
		return resp.Error(code, apiErr.Message)
	case code == resp.CodeServerError:
		return resp.Error(code, "")
	}
	return resp.Error(code, err.Error())
}

// Action I 入参，O 出参
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Auth    bool                           // 要求已登录
	Require func(domain.Capabilities) bool // 角色能力检查（可选）
	Handler func(c *gin.Context, in *I) (O, error)
}

func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	h := func(c *gin.Context) {
		if a.Auth || a.Require != nil {
			if c.GetInt64(mdw.KeyUserID) == 0 {
				write(c, resp.Error(resp.CodeUnauthorized, "sign in required"))
				return
			}
		}
		if a.Require != nil {
			caps, _ := c.Get(mdw.KeyCaps)
			cp, _ := caps.(domain.Capabilities)
			if !a.Require(cp) {
				write(c, resp.Error(resp.CodeForbidden, "not available for your role"))
				return
			}
		}

		var in I
		var bindErr error
		switch a.Binder {
		case BindJSON:
			bindErr = c.ShouldBindJSON(&in)
		case BindQuery:
			bindErr = c.ShouldBindQuery(&in)
		}
		if bindErr != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(bindErr, &tooLarge) {
				write(c, resp.Error(resp.CodeTooLarge, "request body too large"))
				return
			}
			write(c, resp.Error(resp.CodeBadRequest, bindErr.Error()))
			return
		}

		out, err := a.Handler(c, &in)
		if err != nil {
			write(c, errorResp(err))
			return
		}
		write(c, resp.OK(out))
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default:
		e.g.POST(a.Path, h)
	}
}

// ParamID 路径里的 :name 必须是正整数
func ParamID(c *gin.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequest("invalid " + name)
	}
	return id, nil
}
