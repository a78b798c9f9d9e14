package router

import (
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
)

// Module 一个功能模块在 /console/v1 下挂自己的路由
type Module interface{ MountAPI(*gin.RouterGroup) }

// 可选：数值越小越先挂，不实现默认 100
type prioritizer interface{ Priority() int }

// Registry 每个 engine 一份，避免包级全局状态
type Registry struct {
	mu   sync.RWMutex
	mods []Module
}

func (r *Registry) Register(mods ...Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mods = append(r.mods, mods...)
}

func (r *Registry) MountAll(g *gin.RouterGroup) {
	r.mu.RLock()
	mods := append([]Module(nil), r.mods...)
	r.mu.RUnlock()

	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(g)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
