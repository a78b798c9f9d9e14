package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError 非 2xx 响应。Message 取服务端 {timestamp,status,message} 里的 message，原样保留。
type APIError struct {
	Status  int
	Message string
	Method  string
	Route   string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Route, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Route, e.Status, http.StatusText(e.Status))
}

// Unauthenticated 401/403 都视为会话失效
func (e *APIError) Unauthenticated() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Message 有服务端 message 就用，否则用 fallback（网络错误、5xx 空 body 等）
func Message(err error, fallback string) string {
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message
	}
	return fallback
}

// StatusOf 非 APIError 返回 0
func StatusOf(err error) int {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}

// IsUnauthenticated 401/403
func IsUnauthenticated(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Unauthenticated()
}
