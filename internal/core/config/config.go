package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type App struct {
	Name string
	Env  string
}

type Log struct {
	Level string
	JSON  bool
	// 为空则只写 stdout
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// API 远端 SkillLink REST 服务
type API struct {
	BaseURL    string  `mapstructure:"base_url"`
	TimeoutSec int     `mapstructure:"timeout_sec"`
	RateLimit  float64 `mapstructure:"rate_limit"` // 每秒请求数，0 不限
	Burst      int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type DB struct {
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	LogLevel           string
}

// Store 客户端持久化（token、主题）
type Store struct {
	Driver string // file | redis | sqlite | postgres | mysql | memory
	Path   string // file driver
	Redis  Redis  `mapstructure:"redis"`
	DB     DB
}

type Dashboard struct {
	MaxFanout int `mapstructure:"max_fanout"`
	FreshN    int `mapstructure:"fresh_n"`
	RecentN   int `mapstructure:"recent_n"`
}

type Console struct {
	Host            string
	Port            int
	ReadTimeoutSec  int `mapstructure:"read_timeout_sec"`
	WriteTimeoutSec int `mapstructure:"write_timeout_sec"`
	IdleTimeoutSec  int `mapstructure:"idle_timeout_sec"`
	RateLimit       float64
	Burst           int
	MaxConcurrency  int64    `mapstructure:"max_concurrency"`
	AllowOrigins    []string `mapstructure:"allow_origins"` // 为空时放开所有来源
}

type Tracing struct {
	Enabled bool
	Pretty  bool
}

type Config struct {
	App       App
	Log       Log
	API       API `mapstructure:"api"`
	Store     Store
	Dashboard Dashboard
	Console   Console
	Tracing   Tracing
}

func (a API) Timeout() time.Duration { return time.Duration(a.TimeoutSec) * time.Second }

func sec(n int) time.Duration { return time.Duration(n) * time.Second }

func (c Console) ReadTimeout() time.Duration  { return sec(c.ReadTimeoutSec) }
func (c Console) WriteTimeout() time.Duration { return sec(c.WriteTimeoutSec) }
func (c Console) IdleTimeout() time.Duration  { return sec(c.IdleTimeoutSec) }

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "skilllink")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.maxsizemb", 20)
	v.SetDefault("log.maxbackups", 3)
	v.SetDefault("log.maxagedays", 7)
	v.SetDefault("api.base_url", "http://localhost:8080/api")
	v.SetDefault("api.timeout_sec", 15)
	v.SetDefault("api.rate_limit", 0)
	v.SetDefault("api.burst", 10)
	v.SetDefault("store.driver", "file")
	v.SetDefault("store.path", defaultStatePath())
	v.SetDefault("store.redis.addr", "127.0.0.1:6379")
	v.SetDefault("store.redis.prefix", "skilllink:")
	v.SetDefault("store.db.maxopenconns", 4)
	v.SetDefault("store.db.maxidleconns", 2)
	v.SetDefault("store.db.connmaxlifetimemin", 30)
	v.SetDefault("store.db.loglevel", "silent")
	v.SetDefault("dashboard.max_fanout", 8)
	v.SetDefault("dashboard.fresh_n", 3)
	v.SetDefault("dashboard.recent_n", 3)
	v.SetDefault("console.host", "127.0.0.1")
	v.SetDefault("console.port", 5175)
	v.SetDefault("console.read_timeout_sec", 5)
	v.SetDefault("console.write_timeout_sec", 30)
	v.SetDefault("console.idle_timeout_sec", 60)
	v.SetDefault("console.ratelimit", 50)
	v.SetDefault("console.burst", 100)
	v.SetDefault("console.max_concurrency", 64)
}

func defaultStatePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/skilllink/state.json"
	}
	return ".skilllink-state.json"
}

// Load 读取 yaml + APP_ 环境变量；文件不存在时只用默认值和环境变量
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

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return errors.New("api.base_url is required")
	}
	switch c.Store.Driver {
	case "file":
		if c.Store.Path == "" {
			return errors.New("store.path is required for the file driver")
		}
	case "redis":
		if c.Store.Redis.Addr == "" {
			return errors.New("store.redis.addr is required for the redis driver")
		}
	case "sqlite", "postgres", "mysql":
		if c.Store.DB.DSN == "" {
			return fmt.Errorf("store.db.dsn is required for the %s driver", c.Store.Driver)
		}
	case "memory":
	default:
		return fmt.Errorf("unsupported store driver %q", c.Store.Driver)
	}
	if c.Dashboard.MaxFanout < 0 {
		return errors.New("dashboard.max_fanout must not be negative")
	}
	return nil
}
