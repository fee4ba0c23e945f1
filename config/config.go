package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 汇总进程级配置，启动时一次性加载并注入各组件。
type Config struct {
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`

	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Sentry   SentryConfig   `mapstructure:"sentry"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	AccessTTL  time.Duration `mapstructure:"access_ttl"`
	RefreshTTL time.Duration `mapstructure:"refresh_ttl"`
}

// ChatConfig 控制消息网关的限流与缓存参数。
type ChatConfig struct {
	// ThrottleWindow 同一发送者在同一会话内两条消息的最小间隔。
	ThrottleWindow time.Duration `mapstructure:"throttle_window"`
	// CacheTTL 会话消息缓存的滑动过期时间。
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// CacheLimit 每个会话缓存的最大消息条数。
	CacheLimit int `mapstructure:"cache_limit"`
	// CacheTimeout 单次缓存调用的超时，超时降级为跳过缓存。
	CacheTimeout time.Duration `mapstructure:"cache_timeout"`
}

type SentryConfig struct {
	DSN string `mapstructure:"dsn"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Load 读取 config.yaml（可选）与环境变量，环境变量优先。
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("env", "dev")
	v.SetDefault("port", "8080")
	v.SetDefault("database.dsn", "host=localhost user=postgres password=postgres dbname=chat port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "dev-secret-change-me")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("chat.throttle_window", time.Second)
	v.SetDefault("chat.cache_ttl", 24*time.Hour)
	v.SetDefault("chat.cache_limit", 100)
	v.SetDefault("chat.cache_timeout", 500*time.Millisecond)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4318")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		// 配置文件可选，仅环境变量亦可运行
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("CHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
