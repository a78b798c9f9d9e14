package middleware

import (
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"skilllink-client/internal/theme"
)

// HeaderTheme 相当于页面根节点上的 data-theme
const HeaderTheme = "Data-Theme"

// ThemeMirror 实现 theme.Mirror，把当前主题写到每个响应头上
type ThemeMirror struct {
	mode atomic.Value // theme.Mode
}

func NewThemeMirror() *ThemeMirror {
	m := &ThemeMirror{}
	m.mode.Store(theme.Light)
	return m
}

func (m *ThemeMirror) ApplyTheme(mode theme.Mode) { m.mode.Store(mode) }

func (m *ThemeMirror) Mode() theme.Mode { return m.mode.Load().(theme.Mode) }

func (m *ThemeMirror) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set(HeaderTheme, string(m.Mode()))
		c.Next()
	}
}
