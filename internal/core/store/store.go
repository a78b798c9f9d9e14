// Package store 客户端持久化键值（对应浏览器 localStorage）。
package store

import (
	"context"
	"errors"
)

// 固定键名，与 Web 端保持一致
const (
	KeyToken = "skilllink_token"
	KeyTheme = "skilllink-theme"
)

var ErrEmptyKey = errors.New("store: empty key")

// Store 读不到返回 ok=false 而不是错误
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}
