// config.go

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 服务器配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Store    StoreConfig    `mapstructure:"store"`
	Stats    StatsConfig    `mapstructure:"stats"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Game     GameConfig     `mapstructure:"game"`
}

// ServerConfig 服务器基本配置
type ServerConfig struct {
	GatewayPort    int    `mapstructure:"gateway_port"`
	Debug          bool   `mapstructure:"debug"`
	LogLevel       string `mapstructure:"log_level"`
	RateLimitRPS   int    `mapstructure:"rate_limit_rps"`
	RateLimitBurst int    `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// StoreConfig 最高分存储配置
type StoreConfig struct {
	// Backend 可选 memory、redis、postgres
	Backend  string `mapstructure:"backend"`
	RedisKey string `mapstructure:"redis_key"`
	Channel  string `mapstructure:"channel"`
}

// StatsConfig 战绩统计持久化配置
type StatsConfig struct {
	// Backend 可选 file、redis、postgres
	Backend  string `mapstructure:"backend"`
	Path     string `mapstructure:"path"`
	RedisKey string `mapstructure:"redis_key"`
}

// AuthConfig 登录令牌配置
type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// GameConfig 游戏会话配置
type GameConfig struct {
	HistoryLimit       int           `mapstructure:"history_limit"`
	LeaderboardLimit   int           `mapstructure:"leaderboard_limit"`
	NoticeTTL          time.Duration `mapstructure:"notice_ttl"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	StoreTimeout       time.Duration `mapstructure:"store_timeout"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig Config
)

// SetDefaults 注册所有默认值，配置文件缺项时使用
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.gateway_port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.rate_limit_rps", 5)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.dbname", "rps")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)

	v.SetDefault("store.backend", "memory")
	v.SetDefault("store.redis_key", "rps:highscores")
	v.SetDefault("store.channel", "rps_highscores")

	v.SetDefault("stats.backend", "file")
	v.SetDefault("stats.path", "data/stats.json")
	v.SetDefault("stats.redis_key", "rps:stats")

	v.SetDefault("auth.jwt_secret", "change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("game.history_limit", 10)
	v.SetDefault("game.leaderboard_limit", 10)
	v.SetDefault("game.notice_ttl", 3*time.Second)
	v.SetDefault("game.session_idle_timeout", 2*time.Hour)
	v.SetDefault("game.store_timeout", 5*time.Second)
}

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) error {
	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	GlobalConfig = *cfg
	return nil
}

// Load 读取配置文件并叠加环境变量（前缀 RPS_，如 RPS_STORE_BACKEND）
func Load(configPath string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("RPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}

	return &cfg, nil
}

// GetDSN 获取PostgreSQL连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetRedisAddr 获取Redis连接地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
