// =============================================================================
// 📦 LLM Gateway 默认配置
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
		Metrics:   DefaultMetricsConfig(),
		Gateway:   GatewayConfig{},
		Execution: DefaultExecutionConfig(),
		RunData:   DefaultRunDataConfig(),
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stderr"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "lmgateway",
		SampleRate:   0.1,
	}
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   false,
		Addr:      ":9091",
		Path:      "/metrics",
		Namespace: "lmgateway",
	}
}

// DefaultExecutionConfig 返回默认执行配置
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		Concurrency:    4,
		RateLimitRPS:   0,
		RateLimitBurst: 1,
	}
}

// DefaultRunDataConfig 返回默认运行数据配置
func DefaultRunDataConfig() RunDataConfig {
	return RunDataConfig{
		Driver:    RunDataMemory,
		TTL:       24 * time.Hour,
		KeyPrefix: "lmgateway:",
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MinIdleConns: 2,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "lmgateway",
			Name:            "lmgateway",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
	}
}
