package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskboard/internal/core/auth"
	"taskboard/internal/domain"
	resp "taskboard/internal/transport/http/response"
)

const keyPrincipal = "principal"

type TokenVerifier interface {
	Verify(token string) (auth.Principal, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the principal on the context. Failures answer 401.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			resp.Abort(c, http.StatusUnauthorized, "missing token")
			return
		}
		p, err := v.Verify(token)
		if err != nil {
			resp.Abort(c, http.StatusUnauthorized, "invalid token")
			return
		}
		c.Set(keyPrincipal, p)
		c.Next()
	}
}

// RequireRole must run after Authenticate. A missing principal answers 401,
// an insufficient role 403.
func RequireRole(required domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := PrincipalFrom(c)
		if !ok {
			resp.Abort(c, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !p.Role.Satisfies(required) {
			resp.Abort(c, http.StatusForbidden, "forbidden")
			return
		}
		c.Next()
	}
}

func PrincipalFrom(c *gin.Context) (auth.Principal, bool) {
	v, ok := c.Get(keyPrincipal)
	if !ok {
		return auth.Principal{}, false
	}
	p, ok := v.(auth.Principal)
	return p, ok
}
