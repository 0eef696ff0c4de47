package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标 HTTP 服务器
// =============================================================================

// Config 服务器配置
type Config struct {
	// 监听地址
	Addr string `yaml:"addr" json:"addr"`
	// 指标路径
	Path string `yaml:"path" json:"path"`

	ReadTimeout     time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout" json:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Addr:            ":9091",
		Path:            "/metrics",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// Manager serves a Prometheus gatherer plus a /healthz probe.
type Manager struct {
	server   *http.Server
	listener net.Listener
	errCh    chan error
	config   Config
	logger   *zap.Logger
	mu       sync.RWMutex
	closed   bool
}

// NewManager builds the metrics server; it does not listen until Start.
func NewManager(gatherer prometheus.Gatherer, config Config, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}

	mux := http.NewServeMux()
	mux.Handle(config.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog:      zap.NewStdLog(logger),
		ErrorHandling: promhttp.ContinueOnError,
	}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Manager{
		server: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadTimeout:       config.ReadTimeout,
			ReadHeaderTimeout: config.ReadTimeout,
			WriteTimeout:      config.WriteTimeout,
		},
		errCh:  make(chan error, 1),
		config: config,
		logger: logger.With(zap.String("component", "metrics_server")),
	}
}

// Start 启动服务器（非阻塞）
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("server is closed")
	}
	if m.listener != nil {
		return errors.New("server already started")
	}

	listener, err := net.Listen("tcp", m.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", m.config.Addr, err)
	}
	m.listener = listener
	m.logger.Info("metrics server started",
		zap.String("addr", listener.Addr().String()),
		zap.String("path", m.config.Path),
	)

	go m.serve(listener)
	return nil
}

func (m *Manager) serve(listener net.Listener) {
	if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.Error("metrics server failed", zap.Error(err))
		select {
		case m.errCh <- err:
		default:
		}
	}
}

// Shutdown 优雅关闭；重复调用无副作用
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	shutdownCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownTimeout)
	defer cancel()

	if err := m.server.Shutdown(shutdownCtx); err != nil {
		m.logger.Error("metrics server shutdown failed", zap.Error(err))
		return err
	}
	m.listener = nil
	m.logger.Info("metrics server stopped")
	return nil
}

// Errors returns asynchronous serve errors.
func (m *Manager) Errors() <-chan error {
	return m.errCh
}

// Addr returns the bound address once started, the configured one before.
func (m *Manager) Addr() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.listener != nil {
		return m.listener.Addr().String()
	}
	return m.config.Addr
}

// IsRunning 检查服务器是否运行中
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listener != nil && !m.closed
}
