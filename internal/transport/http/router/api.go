package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"taskboard/internal/core/config"
	"taskboard/internal/core/server"
	"taskboard/internal/domain"
	"taskboard/internal/service"
	"taskboard/internal/transport/http/handler"
	mdw "taskboard/internal/transport/http/middleware"
	resp "taskboard/internal/transport/http/response"
)

// Deps is everything the API engine serves.
type Deps struct {
	Log    *zap.Logger
	HTTP   config.HTTP
	CORS   config.CORS
	Tokens mdw.TokenVerifier
	Users  *service.UserService
	Tasks  *service.TaskService
	Admin  *service.AdminService
}

func NewAPIEngine(d Deps) *gin.Engine {
	l := d.Log
	if l == nil {
		l = zap.NewNop()
	}
	r := server.NewRouter(d.CORS)

	// 中间件
	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(l),
		mdw.Metrics(),
		mdw.Recovery(l),
	)
	if d.HTTP.RateLimitRPS > 0 {
		burst := max(d.HTTP.RateLimitBurst, 1)
		// 全局桶是单 IP 的 10 倍
		r.Use(
			mdw.RateLimit(rate.Limit(d.HTTP.RateLimitRPS)*10, burst*10),
			mdw.RateLimitPerIP(rate.Limit(d.HTTP.RateLimitRPS), burst, 10*time.Minute),
		)
	}
	if d.HTTP.MaxConcurrent > 0 {
		r.Use(mdw.ConcurrencyLimit(d.HTTP.MaxConcurrent))
	}
	if d.HTTP.MaxBodyBytes > 0 {
		r.Use(mdw.MaxBodyBytes(d.HTTP.MaxBodyBytes))
	}
	if d.HTTP.RequestTimeoutSec > 0 {
		r.Use(mdw.Timeout(time.Duration(d.HTTP.RequestTimeoutSec) * time.Second))
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, resp.OKBody{OK: true}) })
	r.GET("/metrics", mdw.MetricsHandler())

	r.NoRoute(func(c *gin.Context) { resp.Abort(c, http.StatusNotFound, "route not found") })

	var reg Registry
	reg.Register(
		handler.NewAuth(d.Users, l),
		handler.NewTasks(d.Tasks, l),
		handler.NewAdmin(d.Admin, l),
	)

	public := r.Group("")
	authed := r.Group("", mdw.Authenticate(d.Tokens))
	reg.MountAPI(public, authed)

	// 管理端（统一要求 ADMIN 角色）
	admin := r.Group("/admin", mdw.Authenticate(d.Tokens), mdw.RequireRole(domain.RoleAdmin))
	reg.MountAdmin(admin)

	return r
}
