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

// ServerConfig 定义 HTTP 服务器的监听配置参数。
type ServerConfig struct {
	Host string // 监听地址，默认 "0.0.0.0"
	Port int    // 监听端口，默认 8080
}

// SMTPConfig 定义 SMTP 收信服务器的配置。
type SMTPConfig struct {
	BindAddr        string // SMTP 服务监听地址，默认 ":10000"
	Domain          string // 受理域名，域名检查与 HELO/EHLO 响应都用它
	MaxMessageBytes int64  // 单封邮件大小上限，默认 10MB
	MaxConnections  int    // 最大并发连接数，默认 64
	MaxConnRate     int    // 每秒最大新建连接数，默认 32
}

// WebConfig 定义读侧 Web 服务的业务配置。
type WebConfig struct {
	Domain       string // 对外域名，用于永久链接与 RSS link，默认回落到 SMTP 域名
	PerPage      int    // RSS 输出条数与列表默认分页，默认 10
	AuthUsername string // HTTP Basic Auth 用户名（可选）
	AuthPassword string // HTTP Basic Auth 密码，支持 bcrypt 哈希（$2 开头）
}

// IngestConfig 定义入库流水线配置。
type IngestConfig struct {
	QueueSize int // 交接队列容量，<= 0 表示无界（生产者永不阻塞）
}

// LogConfig 定义日志系统配置。
type LogConfig struct {
	Level       string // 日志级别: debug, info, warn, error
	Development bool   // 开发模式: 彩色输出与详细堆栈
	File        string // 日志文件路径，空串只输出到标准输出
}

// DatabaseConfig 定义数据库连接配置（支持 PostgreSQL 与 MySQL）。
type DatabaseConfig struct {
	Type            string        // "postgres" / "mysql"，空串使用内存存储
	DSN             string        // 数据库连接字符串
	MaxOpenConns    int           // 最大打开连接数，默认 25
	MaxIdleConns    int           // 最大空闲连接数，默认 5
	ConnMaxLifetime time.Duration // 连接最大生命周期，默认 5 分钟
}

// RedisConfig 定义 Redis 读侧缓存配置。
type RedisConfig struct {
	Enabled  bool          // 是否启用，默认关闭
	Address  string        // Redis 服务地址，默认 "localhost:6379"
	Password string        // 认证密码，留空表示无密码
	DB       int           // 数据库编号，默认 0
	CacheTTL time.Duration // 缓存过期时间，默认 1 分钟
}

// Config 是系统核心配置的根结构体。
//
// 进程启动时构造一次，此后只读；所有组件按引用共享同一份。
type Config struct {
	Server   ServerConfig
	SMTP     SMTPConfig
	Web      WebConfig
	Ingest   IngestConfig
	Log      LogConfig
	Database DatabaseConfig
	Redis    RedisConfig

	// RulesJSON 路由规则的原始 JSON。来自 rules 键或 rules_file 指向
	// 的文件；解析与降级策略在 domain.ParseRules 的调用方处理。
	RulesJSON string
	// RulesFileError 规则文件读取失败的原因，调用方据此记录告警。
	RulesFileError error
}

// Load 从环境变量和 .env 文件加载系统配置。
//
// 优先级从高到低：系统环境变量、.env 文件、默认值。
// 环境变量前缀 MAILLIST_，例如 MAILLIST_SMTP_DOMAIN、MAILLIST_SERVER_PORT。
func Load() (*Config, error) {
	loadEnvFile()

	viper.SetEnvPrefix("maillist")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("smtp.bind_addr", ":10000")
	viper.SetDefault("smtp.domain", "example.com")
	viper.SetDefault("smtp.max_message_bytes", 10*1024*1024)
	viper.SetDefault("smtp.max_connections", 64)
	viper.SetDefault("smtp.max_conn_rate", 32)
	viper.SetDefault("web.domain", "")
	viper.SetDefault("web.per_page", 10)
	viper.SetDefault("web.auth_username", "")
	viper.SetDefault("web.auth_password", "")
	viper.SetDefault("ingest.queue_size", 0)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)
	viper.SetDefault("log.file", "")
	viper.SetDefault("database.type", "") // 默认为空，使用内存存储
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "5m")
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.cache_ttl", "1m")
	viper.SetDefault("rules", "")
	viper.SetDefault("rules_file", "")

	domain := viper.GetString("smtp.domain")
	if domain == "" {
		return nil, fmt.Errorf("smtp.domain must not be empty")
	}

	webDomain := viper.GetString("web.domain")
	if webDomain == "" {
		webDomain = domain
	}

	perPage := viper.GetInt("web.per_page")
	if perPage <= 0 {
		perPage = 10
	}

	username := viper.GetString("web.auth_username")
	password := viper.GetString("web.auth_password")
	// 用户名和密码必须同时设置或同时留空
	if (username == "") != (password == "") {
		return nil, fmt.Errorf("web.auth_username and web.auth_password must be set together")
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("database.conn_max_lifetime"))
	if err != nil {
		connMaxLifetime = 5 * time.Minute
	}

	cacheTTL, err := time.ParseDuration(viper.GetString("redis.cache_ttl"))
	if err != nil {
		cacheTTL = time.Minute
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: viper.GetString("server.host"),
			Port: viper.GetInt("server.port"),
		},
		SMTP: SMTPConfig{
			BindAddr:        viper.GetString("smtp.bind_addr"),
			Domain:          domain,
			MaxMessageBytes: viper.GetInt64("smtp.max_message_bytes"),
			MaxConnections:  viper.GetInt("smtp.max_connections"),
			MaxConnRate:     viper.GetInt("smtp.max_conn_rate"),
		},
		Web: WebConfig{
			Domain:       webDomain,
			PerPage:      perPage,
			AuthUsername: username,
			AuthPassword: password,
		},
		Ingest: IngestConfig{
			QueueSize: viper.GetInt("ingest.queue_size"),
		},
		Log: LogConfig{
			Level:       viper.GetString("log.level"),
			Development: viper.GetBool("log.development"),
			File:        viper.GetString("log.file"),
		},
		Database: DatabaseConfig{
			Type:            viper.GetString("database.type"),
			DSN:             viper.GetString("database.dsn"),
			MaxOpenConns:    viper.GetInt("database.max_open_conns"),
			MaxIdleConns:    viper.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Redis: RedisConfig{
			Enabled:  viper.GetBool("redis.enabled"),
			Address:  viper.GetString("redis.address"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
			CacheTTL: cacheTTL,
		},
		RulesJSON: viper.GetString("rules"),
	}

	// rules_file 优先于内联 rules；读取失败不阻止启动，
	// 由调用方降级为空规则表并告警
	if path := viper.GetString("rules_file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			cfg.RulesJSON = ""
			cfg.RulesFileError = fmt.Errorf("read rules file %s: %w", path, err)
		} else {
			cfg.RulesJSON = string(data)
		}
	}

	return cfg, nil
}

// loadEnvFile 尝试加载 .env 文件，文件不存在时静默跳过。
func loadEnvFile() {
	if err := godotenv.Load(".env"); err == nil {
		return
	}
	parentEnv := filepath.Join("..", ".env")
	if _, err := os.Stat(parentEnv); err == nil {
		_ = godotenv.Load(parentEnv)
	}
}
