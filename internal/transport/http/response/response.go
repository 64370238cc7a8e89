package response

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/core/errs"
)

type ErrorBody struct {
	Message string `json:"message"`
}

type OKBody struct {
	OK bool `json:"ok"`
}

// Message builds an error body, falling back to the default text for status.
func Message(status int, msg string) ErrorBody {
	if msg == "" {
		msg = MsgMap[status]
	}
	return ErrorBody{Message: msg}
}

func JSON(c *gin.Context, status int, data any) {
	c.JSON(status, data)
}

// Abort writes {message} with status and stops the handler chain.
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Message(status, msg))
}

// Fail maps err to a status and body. Internal errors are logged and answered
// with a generic message.
func Fail(c *gin.Context, l *zap.Logger, err error) {
	kind := errs.KindOf(err)
	status := StatusOf(kind)
	_ = c.Error(err)
	if kind == errs.KindInternal {
		if l != nil {
			l.Error("request failed",
				zap.String("rid", c.GetString("rid")),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(err),
			)
		}
		Abort(c, status, "")
		return
	}
	Abort(c, status, err.Error())
}
