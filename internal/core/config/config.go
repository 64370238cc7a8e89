package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int

	// 保护下游
	RateLimitRPS      float64
	RateLimitBurst    int
	MaxConcurrent     int64
	MaxBodyBytes      int64
	RequestTimeoutSec int
}

type CORS struct {
	AllowOrigins []string
}

type App struct {
	Name string
	Env  string
	HTTP HTTP
	CORS CORS
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type Redis struct {
	Addr       string        `mapstructure:"addr"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	ProfileTTL time.Duration `mapstructure:"profilettl"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

// Admin 初始管理员（只在 seed 时使用）
type Admin struct {
	Seed     bool
	Email    string
	Password string
	Name     string
}

type Config struct {
	App   App
	Log   Log
	JWT   JWT
	DB    DB
	Redis Redis `mapstructure:"redis"`
	Admin Admin
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "taskboard")
	v.SetDefault("app.env", "local")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 4000)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 10)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.rateLimitRPS", 200)
	v.SetDefault("app.http.rateLimitBurst", 400)
	v.SetDefault("app.http.maxConcurrent", 300)
	v.SetDefault("app.http.maxBodyBytes", 1<<20)
	v.SetDefault("app.http.requestTimeoutSec", 10)
	v.SetDefault("app.cors.allowOrigins", []string{"http://localhost:5173"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.compress", false)
	v.SetDefault("log.file.filename", "logs/taskboard.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)

	v.SetDefault("jwt.issuer", "taskboard")
	v.SetDefault("jwt.ttl", "168h")

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.profilettl", "10m")

	v.SetDefault("admin.seed", false)
	v.SetDefault("admin.email", "admin@example.com")
	v.SetDefault("admin.password", "Admin123!")
	v.SetDefault("admin.name", "Admin")
}

// Load 读取 yaml + APP_ 前缀环境变量；文件不存在时只用默认值和环境变量。
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// AutomaticEnv only resolves keys viper already knows about; secrets have no
// default, so they are bound explicitly.
func bindEnvs(v *viper.Viper) {
	for _, k := range []string{"jwt.secret", "db.dsn", "db.username", "db.password", "redis.addr", "redis.password"} {
		_ = v.BindEnv(k)
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("config: jwt.secret is required")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("config: jwt.ttl must be positive")
	}
	return nil
}
