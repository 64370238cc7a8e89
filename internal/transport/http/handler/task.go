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
	resp "taskboard/internal/transport/http/response"
)

type listTasksQ struct {
	Page   int    `form:"page,default=1"`
	Limit  int    `form:"limit,default=10"`
	Status string `form:"status"`
	Q      string `form:"q"`
}

// Tasks serves the owner-scoped /tasks resource.
type Tasks struct {
	tasks *service.TaskService
	l     *zap.Logger
}

func NewTasks(tasks *service.TaskService, l *zap.Logger) *Tasks {
	return &Tasks{tasks: tasks, l: l}
}

func (h *Tasks) Priority() int { return 20 }

// owner 取当前登录用户 id
func owner(c *gin.Context) (string, error) {
	p, ok := mdw.PrincipalFrom(c)
	if !ok {
		return "", errs.Unauthorized("unauthorized")
	}
	return p.UserID, nil
}

func (h *Tasks) MountAPI(_, authed *gin.RouterGroup) {
	e := ez.New(authed, h.l)

	ez.RegisterAction(e, ez.Action[service.CreateTaskInput, *domain.Task]{
		Method: http.MethodPost,
		Path:   "/tasks",
		Binder: ez.BindJSON,
		Status: http.StatusCreated,
		Handler: func(c *gin.Context, in *service.CreateTaskInput) (*domain.Task, error) {
			uid, err := owner(c)
			if err != nil {
				return nil, err
			}
			return h.tasks.Create(c.Request.Context(), uid, *in)
		},
	})

	ez.RegisterAction(e, ez.Action[listTasksQ, *service.TaskPage]{
		Method: http.MethodGet,
		Path:   "/tasks",
		Binder: ez.BindQuery,
		Handler: func(c *gin.Context, in *listTasksQ) (*service.TaskPage, error) {
			uid, err := owner(c)
			if err != nil {
				return nil, err
			}
			return h.tasks.List(c.Request.Context(), uid, service.ListParams{
				Page: in.Page, Limit: in.Limit, Status: in.Status, Q: in.Q,
			})
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, *domain.Task]{
		Method: http.MethodGet,
		Path:   "/tasks/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (*domain.Task, error) {
			uid, err := owner(c)
			if err != nil {
				return nil, err
			}
			return h.tasks.Get(c.Request.Context(), uid, c.Param("id"))
		},
	})

	ez.RegisterAction(e, ez.Action[service.TaskPatch, *domain.Task]{
		Method: http.MethodPut,
		Path:   "/tasks/:id",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *service.TaskPatch) (*domain.Task, error) {
			uid, err := owner(c)
			if err != nil {
				return nil, err
			}
			return h.tasks.Update(c.Request.Context(), uid, c.Param("id"), *in)
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, resp.OKBody]{
		Method: http.MethodDelete,
		Path:   "/tasks/:id",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (resp.OKBody, error) {
			uid, err := owner(c)
			if err != nil {
				return resp.OKBody{}, err
			}
			if err := h.tasks.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
				return resp.OKBody{}, err
			}
			return resp.OKBody{OK: true}, nil
		},
	})
}
