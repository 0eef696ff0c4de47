// =============================================================================
// LLM Gateway 命令行入口
// =============================================================================
// 使用方法:
//
//	lmgateway describe [--format json|yaml]     # 打印节点描述
//	lmgateway chat --config lmgateway.yaml      # 供给模型并发送一次对话
//	lmgateway migrate up --config lmgateway.yaml
//	lmgateway version
// =============================================================================

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/BaSui01/lmgateway/config"
	"github.com/BaSui01/lmgateway/internal/telemetry"
)

// =============================================================================
// 📦 版本信息（构建时注入）
// =============================================================================

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// =============================================================================
// 🎯 主函数
// =============================================================================

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "describe":
		err = runDescribe(os.Args[2:], os.Stdout)
	case "chat":
		err = runChat(ctx, os.Args[2:], os.Stdout)
	case "migrate":
		err = runMigrate(ctx, os.Args[2:], os.Stdout)
	case "version":
		printVersion(os.Stdout)
	case "help", "-h", "--help":
		printUsage(os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage(os.Stderr)
		stop()
		os.Exit(1)
	}

	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		stop()
		os.Exit(1)
	}
}

// loadConfig 加载配置：默认值 → YAML 文件 → 环境变量
func loadConfig(path string) (*config.Config, error) {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// 📋 版本和帮助
// =============================================================================

func printVersion(w io.Writer) {
	version := Version
	if version == "dev" {
		version = telemetry.BuildVersion()
	}
	fmt.Fprintf(w, "lmgateway %s\n", version)
	fmt.Fprintf(w, "  Build Time: %s\n", BuildTime)
	fmt.Fprintf(w, "  Git Commit: %s\n", GitCommit)
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, `LLM Gateway - language model node for AI workflows

Usage:
  lmgateway <command> [options]

Commands:
  describe  Print the node description
  chat      Supply the model from config and send one prompt
  migrate   Run data schema migrations (postgres, mysql)
  version   Show version information
  help      Show this help message

Options for 'describe':
  --format <json|yaml>  Output format (default: json)

Options for 'chat':
  --config <path>   Path to configuration file (YAML)
  --prompt <text>   Prompt sent to the model
  --stream          Stream the answer
  --rps <n>         Client-side requests per second, overrides config
  --items <n>       Number of items to supply (default: 1)

Migration subcommands:
  migrate up        Apply all pending migrations
  migrate down      Rollback the last migration
  migrate version   Show current migration version

Examples:
  lmgateway describe --format yaml
  lmgateway chat --config lmgateway.yaml --prompt "Hello"
  lmgateway migrate up --config lmgateway.yaml
  lmgateway version`)
}

// =============================================================================
// 🔧 日志初始化
// =============================================================================

func initLogger(cfg config.LogConfig) *zap.Logger {
	// 解析日志级别
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	// 配置编码器
	var encoderConfig zapcore.EncoderConfig
	encoding := "json"
	if cfg.Format == "console" {
		encoding = "console"
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.TimeKey = "timestamp"
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	outputs := cfg.OutputPaths
	if len(outputs) == 0 {
		outputs = []string{"stderr"}
	}

	zapConfig := zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       encoding == "console",
		Encoding:          encoding,
		EncoderConfig:     encoderConfig,
		OutputPaths:       outputs,
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !cfg.EnableCaller,
		DisableStacktrace: !cfg.EnableStacktrace,
	}

	logger, err := zapConfig.Build()
	if err != nil {
		// 回退到基本 logger
		logger, _ = zap.NewProduction()
	}
	return logger
}
