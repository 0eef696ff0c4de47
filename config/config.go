package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// =============================================================================
// 🎯 核心配置结构
// =============================================================================

// Config 是 lmgateway 的完整配置结构
type Config struct {
	Log       LogConfig       `yaml:"log" env:"LOG"`
	Telemetry TelemetryConfig `yaml:"telemetry" env:"TELEMETRY"`
	Metrics   MetricsConfig   `yaml:"metrics" env:"METRICS"`
	Gateway   GatewayConfig   `yaml:"gateway" env:"GATEWAY"`
	Execution ExecutionConfig `yaml:"execution" env:"EXECUTION"`
	RunData   RunDataConfig   `yaml:"run_data" env:"RUN_DATA"`
}

// LogConfig 日志配置
type LogConfig struct {
	// 日志级别: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// 输出格式: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// 输出路径
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
	// 是否启用调用者信息
	EnableCaller bool `yaml:"enable_caller" env:"ENABLE_CALLER"`
	// 是否启用堆栈跟踪
	EnableStacktrace bool `yaml:"enable_stacktrace" env:"ENABLE_STACKTRACE"`
}

// TelemetryConfig 遥测配置
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled" env:"ENABLED"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" env:"OTLP_ENDPOINT"`
	ServiceName  string  `yaml:"service_name" env:"SERVICE_NAME"`
	SampleRate   float64 `yaml:"sample_rate" env:"SAMPLE_RATE"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Addr      string `yaml:"addr" env:"ADDR"`
	Path      string `yaml:"path" env:"PATH"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
}

// GatewayConfig holds the node parameters the CLI feeds to the gateway node.
// Empty fields are left out so the node's schema defaults apply.
type GatewayConfig struct {
	Model     string `yaml:"model" env:"MODEL"`
	BaseURL   string `yaml:"base_url" env:"BASE_URL"`
	AuthToken string `yaml:"auth_token" env:"AUTH_TOKEN"`
	// Options 对应节点 options 集合（temperature、maxTokens、responseFormat 等）
	Options map[string]any `yaml:"options" env:"-"`
}

// Parameters renders the section as node parameters.
func (g GatewayConfig) Parameters() map[string]any {
	params := make(map[string]any, 4)
	if g.Model != "" {
		params["model"] = map[string]any{"__rl": true, "mode": "id", "value": g.Model}
	}
	if g.BaseURL != "" {
		params["baseUrl"] = g.BaseURL
	}
	if g.AuthToken != "" {
		params["authToken"] = g.AuthToken
	}
	if len(g.Options) > 0 {
		opts := make(map[string]any, len(g.Options))
		for k, v := range g.Options {
			opts[k] = v
		}
		params["options"] = opts
	}
	return params
}

// ExecutionConfig 节点执行配置
type ExecutionConfig struct {
	// 并发供给的最大 item 数
	Concurrency int `yaml:"concurrency" env:"CONCURRENCY"`
	// 客户端侧每秒请求数限制，0 表示不限
	RateLimitRPS float64 `yaml:"rate_limit_rps" env:"RATE_LIMIT_RPS"`
	RateLimitBurst int   `yaml:"rate_limit_burst" env:"RATE_LIMIT_BURST"`
}

// RunData drivers.
const (
	RunDataMemory   = "memory"
	RunDataRedis    = "redis"
	RunDataSQLite   = "sqlite"
	RunDataPostgres = "postgres"
	RunDataMySQL    = "mysql"
)

// RunDataConfig 运行数据存储配置
type RunDataConfig struct {
	// 驱动: memory, redis, sqlite, postgres, mysql
	Driver string `yaml:"driver" env:"DRIVER"`
	// 记录保留时间（redis 为 key TTL）
	TTL time.Duration `yaml:"ttl" env:"TTL"`
	// redis key 前缀
	KeyPrefix string         `yaml:"key_prefix" env:"KEY_PREFIX"`
	Redis     RedisConfig    `yaml:"redis" env:"REDIS"`
	Database  DatabaseConfig `yaml:"database" env:"DATABASE"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr         string `yaml:"addr" env:"ADDR"`
	Password     string `yaml:"password" env:"PASSWORD"`
	DB           int    `yaml:"db" env:"DB"`
	PoolSize     int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"HOST"`
	Port     int    `yaml:"port" env:"PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	// 数据库名；sqlite 时为文件路径或 :memory:
	Name    string `yaml:"name" env:"NAME"`
	SSLMode string `yaml:"ssl_mode" env:"SSL_MODE"`
	// 最大连接数
	MaxOpenConns int `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	// 最大空闲连接
	MaxIdleConns int `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	// 连接最大生命周期
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

// DSN 返回 gorm 驱动使用的连接字符串
func (d DatabaseConfig) DSN(driver string) string {
	switch driver {
	case RunDataPostgres:
		return fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
		)
	case RunDataMySQL:
		return fmt.Sprintf(
			"%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, d.Port, d.Name,
		)
	case RunDataSQLite:
		return d.Name
	default:
		return ""
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		errs = append(errs, fmt.Sprintf("invalid log format %q", c.Log.Format))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, "telemetry sample_rate must be between 0 and 1")
	}

	if c.Gateway.BaseURL != "" {
		u, err := url.Parse(c.Gateway.BaseURL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Sprintf("gateway base_url %q is not an absolute http(s) url", c.Gateway.BaseURL))
		}
	}

	if c.Execution.Concurrency <= 0 {
		errs = append(errs, "execution concurrency must be positive")
	}
	if c.Execution.RateLimitRPS < 0 {
		errs = append(errs, "execution rate_limit_rps must not be negative")
	}

	switch c.RunData.Driver {
	case RunDataMemory, RunDataRedis, RunDataSQLite, RunDataPostgres, RunDataMySQL:
	default:
		errs = append(errs, fmt.Sprintf("unsupported run_data driver %q", c.RunData.Driver))
	}
	if c.RunData.Driver == RunDataSQLite && c.RunData.Database.Name == "" {
		errs = append(errs, "run_data sqlite needs database.name")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
