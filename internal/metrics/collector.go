package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector records gateway metrics. It satisfies workflow.MetricsRecorder.
type Collector struct {
	// LLM 指标
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	llmTokensUsed      *prometheus.CounterVec
	failedAttempts     *prometheus.CounterVec

	// 节点指标
	supplyTotal *prometheus.CounterVec

	// 运行数据库连接池
	dbConnectionsOpen *prometheus.GaugeVec
	dbConnectionsIdle *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector registers every metric on reg under namespace. A nil reg
// uses the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.llmRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		},
		[]string{"provider", "model", "status"},
	)

	c.llmRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds, retries included",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)

	c.llmTokensUsed = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_tokens_used_total",
			Help:      "Total number of tokens used",
		},
		[]string{"provider", "model", "type"},
	)

	c.failedAttempts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_failed_attempts_total",
			Help:      "Failed LLM attempts by outcome (retried or aborted)",
		},
		[]string{"node", "outcome"},
	)

	c.supplyTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_supply_total",
			Help:      "SupplyData calls by node type and status",
		},
		[]string{"node_type", "status"},
	)

	c.dbConnectionsOpen = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Number of open database connections",
		},
		[]string{"database"},
	)

	c.dbConnectionsIdle = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
		[]string{"database"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordLLMRequest 记录一次完整调用（含重试）
func (c *Collector) RecordLLMRequest(provider, model, status string, duration time.Duration) {
	c.llmRequestsTotal.WithLabelValues(provider, model, status).Inc()
	c.llmRequestDuration.WithLabelValues(provider, model).Observe(duration.Seconds())
}

// RecordTokens 记录 token 用量
func (c *Collector) RecordTokens(provider, model string, promptTokens, completionTokens int) {
	c.llmTokensUsed.WithLabelValues(provider, model, "prompt").Add(float64(promptTokens))
	c.llmTokensUsed.WithLabelValues(provider, model, "completion").Add(float64(completionTokens))
}

func (c *Collector) RecordFailedAttempt(node string, aborted bool) {
	outcome := "retried"
	if aborted {
		outcome = "aborted"
	}
	c.failedAttempts.WithLabelValues(node, outcome).Inc()
}

// RecordSupply counts one SupplyData outcome.
func (c *Collector) RecordSupply(nodeType string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	c.supplyTotal.WithLabelValues(nodeType, status).Inc()
}

// RecordDBConnections 记录连接池状态
func (c *Collector) RecordDBConnections(database string, open, idle int) {
	c.dbConnectionsOpen.WithLabelValues(database).Set(float64(open))
	c.dbConnectionsIdle.WithLabelValues(database).Set(float64(idle))
}
