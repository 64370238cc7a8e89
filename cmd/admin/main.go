// Command admin creates the initial ADMIN account and exits. Running it again
// is harmless: an existing account with the same email is left untouched.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskboard/internal/core/auth"
	"taskboard/internal/core/config"
	"taskboard/internal/core/database"
	"taskboard/internal/core/logger"
	"taskboard/internal/repo"
	"taskboard/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	email := flag.String("email", cfg.Admin.Email, "admin email")
	password := flag.String("password", cfg.Admin.Password, "admin password")
	name := flag.String("name", cfg.Admin.Name, "admin display name")
	flag.Parse()

	log, cleanup := logger.FromConfig(cfg.Log)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	if err := database.Migrate(db); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	svc := service.NewUserService(repo.NewUserRepo(db), auth.NewJWTer(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL))
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	u, created, err := svc.SeedAdmin(ctx, *email, *password, *name)
	if err != nil {
		log.Fatal("seed admin failed", zap.Error(err))
	}
	if !created {
		log.Info("admin already exists", zap.String("email", u.Email), zap.String("role", string(u.Role)))
		return
	}
	log.Info("admin created", zap.String("id", u.ID), zap.String("email", u.Email))
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username, // 传入用户名
		Password:           cfg.DB.Password, // 传入密码
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
