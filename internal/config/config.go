package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ServerConfig 定义 HTTP 服务器的监听配置参数
type ServerConfig struct {
	Host            string        // 监听地址，默认 "0.0.0.0"
	Port            int           // 监听端口，默认 8080
	ShutdownTimeout time.Duration // 优雅关闭的最长等待时间，默认 10 秒
}

// SessionConfig 定义邮箱会话状态机的时间与概率参数
type SessionConfig struct {
	BaseExpiry            time.Duration // 每个地址的初始有效期，默认 10 分钟
	Extension             time.Duration // 单次延长时长，默认 5 分钟
	AutoRefreshPeriod     time.Duration // 自动刷新周期，默认 30 秒
	BackgroundMin         time.Duration // 后台来信间隔下限，默认 2 分钟
	BackgroundMax         time.Duration // 后台来信间隔上限，默认 5 分钟
	BackgroundProbability float64       // 后台来信每次触发的概率，默认 0.3
	HistoryLimit          int           // 地址历史上限，默认 10
	GenerateDelay         time.Duration // 生成地址的模拟处理时间，默认 800ms
	RefreshDelay          time.Duration // 刷新收件箱的模拟处理时间，默认 600ms
	DeleteDelay           time.Duration // 删除地址的模拟处理时间，默认 700ms
	InitialMailDelay      time.Duration // 首封模拟邮件延迟，默认 2 秒
	Seed                  int64         // 随机种子，0 表示基于时间
	QueueSize             int           // 事件循环队列大小，默认 256
}

// NotifyConfig 定义状态通知配置
type NotifyConfig struct {
	TTL      time.Duration // 通知展示时长，默认 4 秒
	Capacity int           // 同时保留的通知上限，默认 32
}

// PreferenceConfig 定义主题偏好的存储方式
type PreferenceConfig struct {
	Backend string // 存储后端: memory, sqlite, redis
	Path    string // sqlite 数据库文件路径
	Key     string // 偏好键名，默认 "tempmail:theme"
}

// RedisConfig 定义 Redis 服务配置
type RedisConfig struct {
	Address  string // Redis 服务地址，格式 "host:port"，默认 "localhost:6379"
	Password string // Redis 认证密码，留空表示无密码
	DB       int    // Redis 数据库编号，默认 0
}

// ClipboardConfig 定义复制地址的方式
type ClipboardConfig struct {
	Enabled       bool // 是否启用剪贴板
	OSC52Fallback bool // 系统剪贴板不可用时是否使用 OSC52
	Tmux          bool // OSC52 序列是否包装为 tmux 透传格式
}

// RateLimitConfig 定义命令接口限流
type RateLimitConfig struct {
	RPS   float64 // 每个客户端每秒允许的请求数，<= 0 表示不限流
	Burst int     // 突发容量
}

// CORSConfig 定义跨域资源共享 (CORS) 配置
type CORSConfig struct {
	AllowedOrigins []string // 允许的来源列表，"*" 表示允许所有来源
}

// LogConfig 定义日志系统配置
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 启用彩色输出和详细堆栈信息
	File        string // 日志文件路径，留空只输出到控制台
	MaxSize     int    // 单个日志文件大小上限（MB）
	MaxBackups  int    // 保留的旧文件数
	MaxAge      int    // 保留天数
}

// Config 是系统核心配置的根结构体，包含所有子系统的配置
type Config struct {
	Server     ServerConfig     // HTTP 服务器配置
	Session    SessionConfig    // 会话配置
	Notify     NotifyConfig     // 通知配置
	Preference PreferenceConfig // 偏好存储配置
	Redis      RedisConfig      // Redis 配置
	Clipboard  ClipboardConfig  // 剪贴板配置
	RateLimit  RateLimitConfig  // 限流配置
	CORS       CORSConfig       // 跨域配置
	Log        LogConfig        // 日志配置
}

// 支持的偏好存储后端
const (
	PreferenceMemory = "memory"
	PreferenceSQLite = "sqlite"
	PreferenceRedis  = "redis"
)

// Load 从环境变量和 .env 文件加载系统配置
//
// 配置加载优先级（从高到低）：
//  1. 系统环境变量（最高优先级）
//  2. .env 文件（如果存在）
//  3. 默认值
//
// 环境变量前缀: TEMPMAIL_
// 例如: TEMPMAIL_SERVER_PORT, TEMPMAIL_SESSION_BASE_EXPIRY
//
// 返回值:
//   - *Config: 加载成功的配置对象
//   - error: 配置验证失败时返回错误
func Load() (*Config, error) {
	// 尝试加载 .env 文件（静默失败，因为 .env 文件是可选的）
	loadEnvFile()

	v := viper.New()
	v.SetEnvPrefix("tempmail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	durations := map[string]*time.Duration{}
	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Session: SessionConfig{
			BackgroundProbability: v.GetFloat64("session.background_probability"),
			HistoryLimit:          v.GetInt("session.history_limit"),
			Seed:                  v.GetInt64("session.seed"),
			QueueSize:             v.GetInt("session.queue_size"),
		},
		Notify: NotifyConfig{
			Capacity: v.GetInt("notify.capacity"),
		},
		Preference: PreferenceConfig{
			Backend: strings.ToLower(strings.TrimSpace(v.GetString("preference.backend"))),
			Path:    v.GetString("preference.path"),
			Key:     v.GetString("preference.key"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Clipboard: ClipboardConfig{
			Enabled:       v.GetBool("clipboard.enabled"),
			OSC52Fallback: v.GetBool("clipboard.osc52_fallback"),
			Tmux:          v.GetBool("clipboard.tmux"),
		},
		RateLimit: RateLimitConfig{
			RPS:   v.GetFloat64("ratelimit.rps"),
			Burst: v.GetInt("ratelimit.burst"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseList(v.GetString("cors.allowed_origins")),
		},
		Log: LogConfig{
			Level:       v.GetString("log.level"),
			Development: v.GetBool("log.development"),
			File:        v.GetString("log.file"),
			MaxSize:     v.GetInt("log.max_size"),
			MaxBackups:  v.GetInt("log.max_backups"),
			MaxAge:      v.GetInt("log.max_age"),
		},
	}

	durations["server.shutdown_timeout"] = &cfg.Server.ShutdownTimeout
	durations["session.base_expiry"] = &cfg.Session.BaseExpiry
	durations["session.extension"] = &cfg.Session.Extension
	durations["session.auto_refresh_period"] = &cfg.Session.AutoRefreshPeriod
	durations["session.background_min"] = &cfg.Session.BackgroundMin
	durations["session.background_max"] = &cfg.Session.BackgroundMax
	durations["session.generate_delay"] = &cfg.Session.GenerateDelay
	durations["session.refresh_delay"] = &cfg.Session.RefreshDelay
	durations["session.delete_delay"] = &cfg.Session.DeleteDelay
	durations["session.initial_mail_delay"] = &cfg.Session.InitialMailDelay
	durations["notify.ttl"] = &cfg.Notify.TTL

	for key, dst := range durations {
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
		*dst = d
	}

	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置取值
func (c *Config) Validate() error {
	s := c.Session
	positive := map[string]time.Duration{
		"session.base_expiry":         s.BaseExpiry,
		"session.extension":           s.Extension,
		"session.auto_refresh_period": s.AutoRefreshPeriod,
		"session.background_min":      s.BackgroundMin,
		"session.background_max":      s.BackgroundMax,
		"notify.ttl":                  c.Notify.TTL,
	}
	for key, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}

	if s.BaseExpiry%time.Second != 0 || s.Extension%time.Second != 0 {
		return fmt.Errorf("session.base_expiry and session.extension must be whole seconds")
	}
	if s.BackgroundMin > s.BackgroundMax {
		return fmt.Errorf("session.background_min must not exceed session.background_max")
	}
	if s.BackgroundProbability < 0 || s.BackgroundProbability > 1 {
		return fmt.Errorf("session.background_probability must be within [0, 1]")
	}
	if s.HistoryLimit <= 0 {
		return fmt.Errorf("session.history_limit must be positive")
	}
	if s.GenerateDelay < 0 || s.RefreshDelay < 0 || s.DeleteDelay < 0 || s.InitialMailDelay < 0 {
		return fmt.Errorf("session delays must not be negative")
	}

	switch c.Preference.Backend {
	case PreferenceMemory, PreferenceRedis:
	case PreferenceSQLite:
		if strings.TrimSpace(c.Preference.Path) == "" {
			return fmt.Errorf("preference.path is required for sqlite backend")
		}
	default:
		return fmt.Errorf("unknown preference.backend %q", c.Preference.Backend)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Addr 返回 HTTP 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("session.base_expiry", "10m")
	v.SetDefault("session.extension", "5m")
	v.SetDefault("session.auto_refresh_period", "30s")
	v.SetDefault("session.background_min", "2m")
	v.SetDefault("session.background_max", "5m")
	v.SetDefault("session.background_probability", 0.3)
	v.SetDefault("session.history_limit", 10)
	v.SetDefault("session.generate_delay", "800ms")
	v.SetDefault("session.refresh_delay", "600ms")
	v.SetDefault("session.delete_delay", "700ms")
	v.SetDefault("session.initial_mail_delay", "2s")
	v.SetDefault("session.seed", 0)
	v.SetDefault("session.queue_size", 256)
	v.SetDefault("notify.ttl", "4s")
	v.SetDefault("notify.capacity", 32)
	v.SetDefault("preference.backend", PreferenceMemory)
	v.SetDefault("preference.path", "data/preferences.db")
	v.SetDefault("preference.key", "tempmail:theme")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("clipboard.enabled", true)
	v.SetDefault("clipboard.osc52_fallback", true)
	v.SetDefault("clipboard.tmux", false)
	v.SetDefault("ratelimit.rps", 10)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("cors.allowed_origins", "*")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
}

// parseList 将逗号分隔的字符串解析为字符串切片
//
// 参数:
//   - value: 逗号分隔的字符串，如 "item1,item2,item3"
//
// 返回值:
//   - []string: 解析后的字符串切片，已去除空白字符
func parseList(value string) []string {
	parts := strings.Split(value, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// loadEnvFile 尝试加载 .env 文件
//
// 加载顺序：
//  1. 当前目录的 .env
//  2. 父目录的 .env
//
// 已存在的环境变量不会被覆盖。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}

	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
