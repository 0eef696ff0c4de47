package workflow

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/lmgateway/workflow/rundata"
)

const tracerName = "github.com/BaSui01/lmgateway/workflow"

// ExecutionContext is the SupplyDataFunctions of one node in one execution.
// Run indexes are counted per connection type and shared by all items.
type ExecutionContext struct {
	executionID string
	desc        *NodeDescription
	node        *Node
	logger      *zap.Logger
	store       rundata.Store
	tracer      trace.Tracer
	metrics     MetricsRecorder

	mu       sync.Mutex
	runIndex map[ConnectionType]int
	items    map[runKey]int
}

type runKey struct {
	conn  ConnectionType
	index int
}

// ExecutionOption configures an ExecutionContext.
type ExecutionOption func(*ExecutionContext)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ExecutionOption {
	return func(c *ExecutionContext) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStore sets the run-data sink.
func WithStore(s rundata.Store) ExecutionOption {
	return func(c *ExecutionContext) {
		if s != nil {
			c.store = s
		}
	}
}

// WithTracer sets the tracer handed to nodes.
func WithTracer(t trace.Tracer) ExecutionOption {
	return func(c *ExecutionContext) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithMetrics sets the metrics recorder handed to nodes.
func WithMetrics(m MetricsRecorder) ExecutionOption {
	return func(c *ExecutionContext) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithExecutionID fixes the execution ID instead of generating one.
func WithExecutionID(id string) ExecutionOption {
	return func(c *ExecutionContext) {
		if id != "" {
			c.executionID = id
		}
	}
}

// NewExecutionContext binds desc and node. Without options run data goes
// to a fresh in-memory store and logs are discarded.
func NewExecutionContext(desc *NodeDescription, node *Node, opts ...ExecutionOption) *ExecutionContext {
	c := &ExecutionContext{
		executionID: uuid.NewString(),
		desc:        desc,
		node:        node,
		logger:      zap.NewNop(),
		tracer:      otel.Tracer(tracerName),
		metrics:     NopMetrics{},
		runIndex:    make(map[ConnectionType]int),
		items:       make(map[runKey]int),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.store == nil {
		c.store = rundata.NewMemoryStore()
	}
	name := ""
	if node != nil {
		name = node.Name
	}
	c.logger = c.logger.With(
		zap.String("execution_id", c.executionID),
		zap.String("node", name),
	)
	return c
}

// ExecutionID returns the ID all run data is recorded under.
func (c *ExecutionContext) ExecutionID() string { return c.executionID }

// Store returns the run-data sink.
func (c *ExecutionContext) Store() rundata.Store { return c.store }

func (c *ExecutionContext) GetNodeParameter(name string, itemIndex int, fallback ...any) (any, error) {
	return ResolveParameter(c.desc, c.node, name, itemIndex, fallback...)
}

func (c *ExecutionContext) Node() *Node              { return c.node }
func (c *ExecutionContext) Logger() *zap.Logger      { return c.logger }
func (c *ExecutionContext) Tracer() trace.Tracer     { return c.tracer }
func (c *ExecutionContext) Metrics() MetricsRecorder { return c.metrics }

// LogAIEvent logs the event and records it in the run-data sink.
func (c *ExecutionContext) LogAIEvent(event AIEvent, payload string) {
	c.logger.Debug("ai event", zap.String("event", string(event)), zap.String("payload", payload))

	data, _ := json.Marshal(map[string]string{"event": string(event), "payload": payload})
	c.append(context.Background(), rundata.Entry{
		Kind: rundata.KindAIEvent,
		Data: data,
	})
}

func (c *ExecutionContext) AddInputData(ctx context.Context, conn ConnectionType, itemIndex int, data any) int {
	c.mu.Lock()
	idx := c.runIndex[conn]
	c.runIndex[conn]++
	c.items[runKey{conn, idx}] = itemIndex
	c.mu.Unlock()

	c.append(ctx, c.entry(rundata.KindInput, conn, idx, itemIndex, data, nil))
	return idx
}

func (c *ExecutionContext) AddOutputData(ctx context.Context, conn ConnectionType, runIndex int, data any, err error) {
	c.mu.Lock()
	itemIndex := c.items[runKey{conn, runIndex}]
	c.mu.Unlock()

	c.append(ctx, c.entry(rundata.KindOutput, conn, runIndex, itemIndex, data, err))
}

func (c *ExecutionContext) entry(kind rundata.Kind, conn ConnectionType, runIndex, itemIndex int, data any, err error) rundata.Entry {
	e := rundata.Entry{
		Connection: string(conn),
		Kind:       kind,
		RunIndex:   runIndex,
		ItemIndex:  itemIndex,
	}
	if data != nil {
		raw, merr := json.Marshal(data)
		if merr != nil {
			c.logger.Warn("run data is not serializable", zap.Error(merr))
		} else {
			e.Data = raw
		}
	}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// append 失败只记日志，不影响节点执行
func (c *ExecutionContext) append(ctx context.Context, e rundata.Entry) {
	e.ExecutionID = c.executionID
	if c.node != nil {
		e.Node = c.node.Name
	}
	e.CreatedAt = time.Now()
	if err := c.store.Append(context.WithoutCancel(ctx), e); err != nil {
		c.logger.Warn("failed to record run data",
			zap.String("kind", string(e.Kind)),
			zap.Error(err),
		)
	}
}

var _ SupplyDataFunctions = (*ExecutionContext)(nil)
