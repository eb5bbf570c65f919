package config

import (
	"fmt"
	"strings"
	"time"

	"lc2gh/pkg/database"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	API      APIConfig       `mapstructure:"api"`
	Auth     AuthConfig      `mapstructure:"auth"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Database database.Config `mapstructure:"database"`
	MongoDB  MongoDBConfig   `mapstructure:"mongodb"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Dedup    DedupConfig     `mapstructure:"dedup"`
	Events   EventsConfig    `mapstructure:"events"`
}

// ServerConfig 本地中继服务配置
type ServerConfig struct {
	Port           int
	Mode           string
	AllowedOrigins []string `mapstructure:"allowed_origins"` // 允许访问中继的扩展来源，空表示任意
}

// APIConfig 后端API配置
type APIConfig struct {
	Base    string        `mapstructure:"base"`    // 默认后端地址（链接完成前使用）
	Timeout time.Duration `mapstructure:"timeout"` // 单次请求超时
}

// AuthConfig 令牌生命周期配置
type AuthConfig struct {
	LeewaySeconds  int           `mapstructure:"leeway_seconds"`  // 提前刷新的安全余量（秒）
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"` // 刷新请求超时
	RedirectURL    string        `mapstructure:"redirect_url"`    // 链接流程默认回调地址
}

// StorageConfig 凭证存储配置
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`      // sqlite | postgres | mongodb | redis | memory
	SQLitePath string `mapstructure:"sqlite_path"` // SQLite 文件路径
	KeyPrefix  string `mapstructure:"key_prefix"`  // Redis 键前缀
}

// MongoDBConfig MongoDB配置
type MongoDBConfig struct {
	URI         string `mapstructure:"uri"`
	Database    string `mapstructure:"database"`
	Collection  string `mapstructure:"collection"`
	MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	MinPoolSize uint64 `mapstructure:"min_pool_size"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// DedupConfig 去重缓存配置
type DedupConfig struct {
	Backend    string        `mapstructure:"backend"`     // memory | redis
	MaxEntries int           `mapstructure:"max_entries"` // 内存实现的容量上限
	TTL        time.Duration `mapstructure:"ttl"`         // 指纹保留时长
}

// EventsConfig WebSocket事件推送配置
type EventsConfig struct {
	PingInterval   int `mapstructure:"ping_interval"`    // 心跳间隔(秒)
	WriteWait      int `mapstructure:"write_wait"`       // 写超时(秒)
	MaxMessageSize int `mapstructure:"max_message_size"` // 最大消息大小(字节)
}

// Leeway 返回刷新安全余量
func (c AuthConfig) Leeway() time.Duration {
	return time.Duration(c.LeewaySeconds) * time.Second
}

// setDefaults 注册默认值，配置文件缺省项回落到这里
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8797)
	v.SetDefault("server.mode", "release")
	v.SetDefault("api.base", "http://localhost:8787")
	v.SetDefault("api.timeout", 15*time.Second)
	v.SetDefault("auth.leeway_seconds", 90)
	v.SetDefault("auth.refresh_timeout", 10*time.Second)
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.sqlite_path", "lc2gh.db")
	v.SetDefault("storage.key_prefix", "lc2gh:")
	v.SetDefault("mongodb.database", "lc2gh")
	v.SetDefault("mongodb.collection", "session")
	v.SetDefault("redis.host", "127.0.0.1")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("dedup.backend", "memory")
	v.SetDefault("dedup.max_entries", 10000)
	v.SetDefault("dedup.ttl", 24*time.Hour)
	v.SetDefault("events.ping_interval", 30)
	v.SetDefault("events.write_wait", 10)
	v.SetDefault("events.max_message_size", 1024)
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml") // 设置配置文件类型
	v.SetEnvPrefix("LC2GH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // 读取环境变量

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Default 返回仅由默认值构成的配置（无配置文件时使用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var config Config
	_ = v.Unmarshal(&config)
	return &config
}

// Validate 校验配置
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres", "mongodb", "redis", "memory":
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.Storage.Driver)
	}
	switch c.Dedup.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported dedup backend: %q", c.Dedup.Backend)
	}
	if c.Auth.LeewaySeconds < 0 {
		return fmt.Errorf("auth.leeway_seconds must not be negative")
	}
	return nil
}
