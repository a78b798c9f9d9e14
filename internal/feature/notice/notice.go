// Package notice 页面级的一次性提示（成功 / 失败），由各功能模块在动作结束后设置。
package notice

import (
	"errors"

	"github.com/go-playground/validator/v10"

	"skilllink-client/internal/apiclient"
	"skilllink-client/pkg/validation"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

type Notice struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

func (n Notice) Empty() bool { return n.Message == "" }

func Success(msg string) Notice { return Notice{Kind: KindSuccess, Message: msg} }

// Failure 表单校验错误给出字段提示，服务端错误用其 message，否则用 fallback
func Failure(err error, fallback string) Notice {
	return Notice{Kind: KindError, Message: Text(err, fallback)}
}

func Text(err error, fallback string) string {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return validation.Message(ve)
	}
	return apiclient.Message(err, fallback)
}
