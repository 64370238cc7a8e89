package response

import (
	"net/http"

	"taskboard/internal/core/errs"
)

// StatusOf maps an error kind to its HTTP status.
func StatusOf(k errs.Kind) int {
	switch k {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindUnauthorized:
		return http.StatusUnauthorized
	case errs.KindForbidden:
		return http.StatusForbidden
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// 默认文案
var MsgMap = map[int]string{
	http.StatusBadRequest:            "Bad Request",
	http.StatusUnauthorized:          "Unauthorized",
	http.StatusForbidden:             "Forbidden",
	http.StatusNotFound:              "Not Found",
	http.StatusConflict:              "Conflict",
	http.StatusRequestEntityTooLarge: "request body too large",
	http.StatusTooManyRequests:       "too many requests",
	http.StatusServiceUnavailable:    "server busy",
	http.StatusGatewayTimeout:        "timeout",
	http.StatusInternalServerError:   "internal server error",
}
