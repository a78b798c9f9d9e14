// Package theme 亮/暗两种模式：存储优先，其次系统偏好，最后 light；每次变化都持久化并同步到 Mirror。
package theme

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"skilllink-client/internal/core/store"
)

type Mode string

const (
	Light Mode = "light"
	Dark  Mode = "dark"
)

func Parse(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case Light:
		return Light, true
	case Dark:
		return Dark, true
	}
	return "", false
}

func (m Mode) Opposite() Mode {
	if m == Dark {
		return Light
	}
	return Dark
}

// Mirror 把当前模式同步到"根文档"：控制台是响应头，CLI 是输出配色
type Mirror interface {
	ApplyTheme(Mode)
}

type MirrorFunc func(Mode)

func (f MirrorFunc) ApplyTheme(m Mode) { f(m) }

// Probe 系统偏好；拿不到返回 false
type Probe func() (Mode, bool)

// TerminalProbe 读 COLORFGBG（"fg;bg"），背景色 0-6 / 8 视为暗色终端
func TerminalProbe() (Mode, bool) {
	v := os.Getenv("COLORFGBG")
	if v == "" {
		return "", false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return "", false
	}
	if bg <= 6 || bg == 8 {
		return Dark, true
	}
	return Light, true
}

type Theme struct {
	store store.Store
	probe Probe
	log   *zap.Logger

	mu      sync.RWMutex
	mode    Mode
	mirrors []Mirror
}

func New(st store.Store, probe Probe, l *zap.Logger, mirrors ...Mirror) *Theme {
	return &Theme{store: st, probe: probe, log: l, mode: Light, mirrors: mirrors}
}

// Load 确定初始模式，并像后续每次变化一样持久化 + 同步
func (t *Theme) Load(ctx context.Context) (Mode, error) {
	m := Light
	if v, ok, err := t.store.Get(ctx, store.KeyTheme); err != nil {
		t.log.Warn("read theme failed", zap.Error(err))
	} else if p, valid := Parse(v); ok && valid {
		m = p
	} else if t.probe != nil {
		if p, ok := t.probe(); ok {
			m = p
		}
	}
	return m, t.Set(ctx, m)
}

func (t *Theme) Mode() Mode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.mode
}

// AddMirror 新挂上的 mirror 立即收到当前模式
func (t *Theme) AddMirror(m Mirror) {
	t.mu.Lock()
	t.mirrors = append(t.mirrors, m)
	cur := t.mode
	t.mu.Unlock()
	m.ApplyTheme(cur)
}

func (t *Theme) Set(ctx context.Context, m Mode) error {
	if _, ok := Parse(string(m)); !ok {
		return fmt.Errorf("unknown theme %q", m)
	}
	t.mu.Lock()
	t.mode = m
	mirrors := append([]Mirror(nil), t.mirrors...)
	t.mu.Unlock()

	for _, mr := range mirrors {
		mr.ApplyTheme(m)
	}
	if err := t.store.Set(ctx, store.KeyTheme, string(m)); err != nil {
		return fmt.Errorf("persist theme: %w", err)
	}
	return nil
}

func (t *Theme) Toggle(ctx context.Context) (Mode, error) {
	next := t.Mode().Opposite()
	return next, t.Set(ctx, next)
}
