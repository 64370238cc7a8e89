package router

import (
	"sort"

	"github.com/gin-gonic/gin"
)

// APIModule 模块可选择实现其中一个或两个接口
type APIModule interface {
	MountAPI(public, authed *gin.RouterGroup)
}
type AdminModule interface{ MountAdmin(admin *gin.RouterGroup) }

// 可选：实现该接口可控制挂载顺序（数值越小越先挂）
// 不实现则默认 100
type prioritizer interface{ Priority() int }

// Registry collects modules for one engine.
type Registry struct {
	apiMods   []APIModule
	adminMods []AdminModule
}

// Register 统一注册入口：根据类型断言分发到 API/Admin 列表
func (r *Registry) Register(mods ...any) {
	for _, mod := range mods {
		if m, ok := mod.(APIModule); ok {
			r.apiMods = append(r.apiMods, m)
		}
		if m, ok := mod.(AdminModule); ok {
			r.adminMods = append(r.adminMods, m)
		}
	}
}

func (r *Registry) MountAPI(public, authed *gin.RouterGroup) {
	mods := append([]APIModule(nil), r.apiMods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAPI(public, authed)
	}
}

func (r *Registry) MountAdmin(admin *gin.RouterGroup) {
	mods := append([]AdminModule(nil), r.adminMods...)
	sort.SliceStable(mods, func(i, j int) bool {
		return priorityOf(mods[i]) < priorityOf(mods[j])
	})
	for _, m := range mods {
		m.MountAdmin(admin)
	}
}

func priorityOf(v any) int {
	if p, ok := v.(prioritizer); ok {
		return p.Priority()
	}
	return 100
}
