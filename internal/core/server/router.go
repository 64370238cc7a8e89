package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskboard/internal/core/config"
)

// NewRouter returns a bare engine with CORS restricted to the configured
// origins. Other middleware is added by the transport layer.
func NewRouter(c config.CORS) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = false

	cc := cors.DefaultConfig()
	cc.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	cc.ExposeHeaders = []string{"X-Request-ID"}
	cc.AllowCredentials = true
	cc.MaxAge = 12 * time.Hour
	if len(c.AllowOrigins) == 0 {
		cc.AllowOrigins = []string{"http://localhost:5173"}
	} else {
		cc.AllowOrigins = c.AllowOrigins
	}
	r.Use(cors.New(cc))
	return r
}

func BuildServer(addr string, handler http.Handler, rt, wt, it time.Duration) *http.Server {
	return &http.Server{
		Addr:           addr,
		Handler:        handler,
		ReadTimeout:    rt,
		WriteTimeout:   wt,
		IdleTimeout:    it,
		MaxHeaderBytes: 1 << 20, // 1MB
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// grace.
func Run(ctx context.Context, srv *http.Server, l *zap.Logger, grace time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		l.Info("http starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	l.Info("http shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func Addr(host string, port int) string { return fmt.Sprintf("%s:%d", host, port) }
