package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"taskboard/internal/core/auth"
	"taskboard/internal/core/cache"
	"taskboard/internal/core/config"
	"taskboard/internal/core/database"
	"taskboard/internal/core/logger"
	"taskboard/internal/core/server"
	"taskboard/internal/repo"
	"taskboard/internal/service"
	"taskboard/internal/transport/http/router"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()
	defer logger.RedirectStdLog(log, zapcore.InfoLevel)()

	if cfg.App.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	gin.DefaultWriter = logger.ToWriter(log, zapcore.DebugLevel)
	gin.DefaultErrorWriter = logger.ToWriter(log, zapcore.ErrorLevel)

	// 数据库（失败会直接 Fatal）
	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := database.Migrate(db); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	jwter := auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	users := repo.NewUserRepo(db)
	tasks := repo.NewTaskRepo(db)

	userSvc := service.NewUserService(users, jwter)
	if cfg.Redis.Addr != "" {
		rc := cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rc.Close()
		pctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rc.Ping(pctx); err != nil {
			// 降级：缓存不可用时直接读库
			log.Warn("redis unreachable, profile cache degrades to db reads", zap.Error(err))
		}
		cancel()
		userSvc.WithCache(rc, cfg.Redis.ProfileTTL)
	}

	if cfg.Admin.Seed {
		seedAdmin(userSvc, cfg.Admin, log)
	}

	r := router.NewAPIEngine(router.Deps{
		Log:    log,
		HTTP:   cfg.App.HTTP,
		CORS:   cfg.App.CORS,
		Tokens: jwter,
		Users:  userSvc,
		Tasks:  service.NewTaskService(tasks),
		Admin:  service.NewAdminService(users, tasks),
	})

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	// 启动日志
	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("taskboard api",
		zap.String("env", cfg.App.Env),
		zap.String("open", baseURL),
		zap.String("health", baseURL+"/health"),
		zap.Strings("cors", cfg.App.CORS.AllowOrigins),
	)

	// 优雅关闭
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := server.Run(ctx, srv, log, 10*time.Second); err != nil {
		log.Error("taskboard api stopped with error", zap.Error(err))
		return
	}
	log.Info("taskboard api stopped gracefully")
}

func seedAdmin(svc *service.UserService, a config.Admin, l *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	u, created, err := svc.SeedAdmin(ctx, a.Email, a.Password, a.Name)
	if err != nil {
		l.Fatal("seed admin failed", zap.Error(err))
	}
	l.Info("admin seed", zap.String("email", u.Email), zap.Bool("created", created))
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}
