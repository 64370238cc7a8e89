package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/core/errs"
	"taskboard/internal/domain"
	"taskboard/internal/service"
	"taskboard/internal/transport/http/ez"
	mdw "taskboard/internal/transport/http/middleware"
)

// Auth serves /auth/register, /auth/login and /auth/me.
type Auth struct {
	users *service.UserService
	l     *zap.Logger
}

func NewAuth(users *service.UserService, l *zap.Logger) *Auth {
	return &Auth{users: users, l: l}
}

func (h *Auth) Priority() int { return 10 }

func (h *Auth) MountAPI(public, authed *gin.RouterGroup) {
	pub := ez.New(public, h.l)

	ez.RegisterAction(pub, ez.Action[service.RegisterInput, *domain.User]{
		Method: http.MethodPost,
		Path:   "/auth/register",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.RegisterInput) (*domain.User, error) {
			return h.users.Register(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(pub, ez.Action[service.LoginInput, *service.LoginResult]{
		Method: http.MethodPost,
		Path:   "/auth/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.LoginInput) (*service.LoginResult, error) {
			return h.users.Login(c.Request.Context(), *in)
		},
	})

	ez.RegisterAction(ez.New(authed, h.l), ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet,
		Path:   "/auth/me",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.User, error) {
			p, ok := mdw.PrincipalFrom(c)
			if !ok {
				return nil, errs.Unauthorized("unauthorized")
			}
			return h.users.Me(c.Request.Context(), p)
		},
	})
}
