package ez

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	resp "taskboard/internal/transport/http/response"
)

// 绑定方式
type Binder string

const (
	BindJSON  Binder = "json"  // 从 JSON body 绑定
	BindQuery Binder = "query" // 从 URL ?a=b 绑定
	BindNone  Binder = "none"  // 不绑定，handler 自己取 c.Param
)

// EZ registers actions on a route group and renders their errors.
type EZ struct {
	g *gin.RouterGroup
	l *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ {
	if l == nil {
		l = zap.NewNop()
	}
	return EZ{g: g, l: l}
}

// Action 动作定义：I 入参，O 出参
type Action[I any, O any] struct {
	Method  string // "GET" | "POST" | "PUT" | "DELETE"
	Path    string // 例："/auth/login"、"/tasks/:id"
	Binder  Binder
	Status  int // 成功状态码，默认 200
	Handler func(c *gin.Context, in *I) (O, error)
}

// RegisterAction mounts a on e. Bind failures answer 400 (413 for bodies over
// the size cap); handler errors go through response.Fail.
func RegisterAction[I any, O any](e EZ, a Action[I, O]) {
	status := a.Status
	if status == 0 {
		status = http.StatusOK
	}
	h := func(c *gin.Context) {
		var in I
		if err := bind(c, a.Binder, &in); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				resp.Abort(c, http.StatusRequestEntityTooLarge, "")
				return
			}
			_ = c.Error(err)
			resp.Abort(c, http.StatusBadRequest, bindMessage(a.Binder))
			return
		}
		out, err := a.Handler(c, &in)
		if err != nil {
			resp.Fail(c, e.l, err)
			return
		}
		resp.JSON(c, status, out)
	}

	switch strings.ToUpper(a.Method) {
	case http.MethodGet:
		e.g.GET(a.Path, h)
	case http.MethodPut:
		e.g.PUT(a.Path, h)
	case http.MethodPatch:
		e.g.PATCH(a.Path, h)
	case http.MethodDelete:
		e.g.DELETE(a.Path, h)
	default: // 默认 POST
		e.g.POST(a.Path, h)
	}
}

func bind(c *gin.Context, b Binder, in any) error {
	switch b {
	case BindJSON:
		return c.ShouldBindJSON(in)
	case BindQuery:
		return c.ShouldBindQuery(in)
	default:
		return nil
	}
}

func bindMessage(b Binder) string {
	if b == BindQuery {
		return "invalid query parameters"
	}
	return "invalid JSON body"
}
