package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/domain"
	"taskboard/internal/service"
	"taskboard/internal/transport/http/ez"
)

// Admin mounts the cross-user views. The group it receives already enforces
// the ADMIN role.
type Admin struct {
	admin *service.AdminService
	l     *zap.Logger
}

func NewAdmin(admin *service.AdminService, l *zap.Logger) *Admin {
	return &Admin{admin: admin, l: l}
}

func (h *Admin) MountAdmin(admin *gin.RouterGroup) {
	e := ez.New(admin, h.l)

	ez.RegisterAction(e, ez.Action[struct{}, []domain.User]{
		Method: http.MethodGet,
		Path:   "/users",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]domain.User, error) {
			return h.admin.ListUsers(c.Request.Context())
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, []service.AdminTask]{
		Method: http.MethodGet,
		Path:   "/tasks",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) ([]service.AdminTask, error) {
			return h.admin.ListAllTasks(c.Request.Context())
		},
	})
}
