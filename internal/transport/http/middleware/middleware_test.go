package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"taskboard/internal/core/auth"
	"taskboard/internal/domain"
)

func init() { gin.SetMode(gin.TestMode) }

func do(r http.Handler, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func authEngine(j *auth.JWTer) *gin.Engine {
	r := gin.New()
	authed := r.Group("", Authenticate(j))
	authed.GET("/me", func(c *gin.Context) {
		p, _ := PrincipalFrom(c)
		c.JSON(http.StatusOK, gin.H{"uid": p.UserID, "role": p.Role})
	})
	authed.GET("/admin", RequireRole(domain.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func bearer(t *testing.T, j *auth.JWTer, role domain.Role) map[string]string {
	t.Helper()
	tok, err := j.Issue("u1", role)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

func TestAuthenticate(t *testing.T) {
	j := auth.NewJWTer("secret", "taskboard", time.Hour)
	r := authEngine(j)

	w := do(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"missing token"}`, w.Body.String())

	w = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Basic abc"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"message":"invalid token"}`, w.Body.String())

	w = do(r, http.MethodGet, "/me", bearer(t, j, domain.RoleUser))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"u1","role":"USER"}`, w.Body.String())
}

func TestRequireRole(t *testing.T) {
	j := auth.NewJWTer("secret", "taskboard", time.Hour)
	r := authEngine(j)

	w := do(r, http.MethodGet, "/admin", bearer(t, j, domain.RoleUser))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"forbidden"}`, w.Body.String())

	w = do(r, http.MethodGet, "/admin", bearer(t, j, domain.RoleAdmin))
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/admin", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRoleWithoutPrincipal(t *testing.T) {
	r := gin.New()
	r.GET("/x", RequireRole(domain.RoleUser), func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/x", nil).Code)
}

func TestRateLimit(t *testing.T) {
	r := gin.New()
	r.Use(RateLimit(0.001, 1))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/x", nil).Code)
}

func TestRateLimitPerIP(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitPerIP(0.001, 1, time.Minute))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1"))
	assert.Equal(t, http.StatusOK, get("10.0.0.2"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(KeyRequestID)) })

	w := do(r, http.MethodGet, "/x", map[string]string{HeaderRequestID: "abc"})
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
	assert.Equal(t, "abc", w.Body.String())

	w = do(r, http.MethodGet, "/x", nil)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.Use(Timeout(10 * time.Millisecond))
	r.GET("/slow", func(c *gin.Context) { <-c.Request.Context().Done() })

	w := do(r, http.MethodGet, "/slow", nil)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"message":"internal server error"}`, w.Body.String())
}

func TestMask(t *testing.T) {
	got := mask(map[string][]string{"Password": {"p"}, "q": {"milk"}})
	assert.Equal(t, []string{"****"}, got["Password"])
	assert.Equal(t, []string{"milk"}, got["q"])
}
