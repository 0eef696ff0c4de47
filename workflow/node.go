package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ConnectionType names a kind of edge between nodes.
type ConnectionType string

const (
	ConnectionMain            ConnectionType = "main"
	ConnectionAILanguageModel ConnectionType = "ai_languageModel"
	ConnectionAIChain         ConnectionType = "ai_chain"
	ConnectionAIAgent         ConnectionType = "ai_agent"
	ConnectionAITool          ConnectionType = "ai_tool"
	ConnectionAIMemory        ConnectionType = "ai_memory"
)

// PropertyType 节点参数在编辑器中的控件类型
type PropertyType string

const (
	PropertyString          PropertyType = "string"
	PropertyNumber          PropertyType = "number"
	PropertyBoolean         PropertyType = "boolean"
	PropertyOptions         PropertyType = "options"
	PropertyCollection      PropertyType = "collection"
	PropertyResourceLocator PropertyType = "resourceLocator"
	PropertyNotice          PropertyType = "notice"
)

// PropertyOption is one choice of an options-typed property.
type PropertyOption struct {
	Name        string `json:"name" yaml:"name"`
	Value       any    `json:"value" yaml:"value"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// TypeOptions 控件附加约束
type TypeOptions struct {
	Password        bool     `json:"password,omitempty" yaml:"password,omitempty"`
	MinValue        *float64 `json:"minValue,omitempty" yaml:"minValue,omitempty"`
	MaxValue        *float64 `json:"maxValue,omitempty" yaml:"maxValue,omitempty"`
	NumberPrecision int      `json:"numberPrecision,omitempty" yaml:"numberPrecision,omitempty"`
}

// ResourceLocatorMode is one way of entering a resource locator value.
type ResourceLocatorMode struct {
	DisplayName string `json:"displayName" yaml:"displayName"`
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Placeholder string `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
}

// Property declares one user-configurable node parameter.
type Property struct {
	DisplayName string                `json:"displayName" yaml:"displayName"`
	Name        string                `json:"name" yaml:"name"`
	Type        PropertyType          `json:"type" yaml:"type"`
	Default     any                   `json:"default" yaml:"default"`
	Required    bool                  `json:"required,omitempty" yaml:"required,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty"`
	Placeholder string                `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	TypeOptions *TypeOptions          `json:"typeOptions,omitempty" yaml:"typeOptions,omitempty"`
	Options     []PropertyOption      `json:"options,omitempty" yaml:"options,omitempty"`
	Values      []Property            `json:"values,omitempty" yaml:"values,omitempty"` // collection members
	Modes       []ResourceLocatorMode `json:"modes,omitempty" yaml:"modes,omitempty"`
}

// Member returns the collection member called name.
func (p *Property) Member(name string) (*Property, bool) {
	for i := range p.Values {
		if p.Values[i].Name == name {
			return &p.Values[i], true
		}
	}
	return nil, false
}

// Codex 节点在编辑器面板中的分类信息
type Codex struct {
	Categories    []string            `json:"categories,omitempty" yaml:"categories,omitempty"`
	Subcategories map[string][]string `json:"subcategories,omitempty" yaml:"subcategories,omitempty"`
}

// NodeDefaults holds the defaults applied when a node is placed on the canvas.
type NodeDefaults struct {
	Name string `json:"name" yaml:"name"`
}

// NodeDescription is the static descriptor of a node type.
type NodeDescription struct {
	DisplayName string           `json:"displayName" yaml:"displayName"`
	Name        string           `json:"name" yaml:"name"`
	Icon        string           `json:"icon,omitempty" yaml:"icon,omitempty"`
	Group       []string         `json:"group" yaml:"group"`
	Version     int              `json:"version" yaml:"version"`
	Description string           `json:"description" yaml:"description"`
	Defaults    NodeDefaults     `json:"defaults" yaml:"defaults"`
	Codex       Codex            `json:"codex" yaml:"codex"`
	Inputs      []ConnectionType `json:"inputs" yaml:"inputs"`
	Outputs     []ConnectionType `json:"outputs" yaml:"outputs"`
	OutputNames []string         `json:"outputNames,omitempty" yaml:"outputNames,omitempty"`
	Properties  []Property       `json:"properties" yaml:"properties"`
}

// Property returns the top-level property called name.
func (d *NodeDescription) Property(name string) (*Property, bool) {
	for i := range d.Properties {
		if d.Properties[i].Name == name {
			return &d.Properties[i], true
		}
	}
	return nil, false
}

// Validate checks the descriptor is self-consistent.
func (d *NodeDescription) Validate() error {
	if d.Name == "" {
		return errors.New("node description: name is required")
	}
	if len(d.Inputs) == 0 && len(d.Outputs) == 0 {
		return fmt.Errorf("node %q: needs at least one input or output", d.Name)
	}
	if len(d.OutputNames) > 0 && len(d.OutputNames) != len(d.Outputs) {
		return fmt.Errorf("node %q: %d output names for %d outputs", d.Name, len(d.OutputNames), len(d.Outputs))
	}

	seen := make(map[string]bool, len(d.Properties))
	for _, p := range d.Properties {
		if p.Name == "" {
			return fmt.Errorf("node %q: property without name", d.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("node %q: duplicate property %q", d.Name, p.Name)
		}
		seen[p.Name] = true
		if p.Type == PropertyResourceLocator && len(p.Modes) == 0 {
			return fmt.Errorf("node %q: resource locator %q has no modes", d.Name, p.Name)
		}
	}
	return nil
}

// Node is one placed instance of a node type inside a workflow.
type Node struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Type        string         `json:"type" yaml:"type"`
	TypeVersion int            `json:"typeVersion" yaml:"typeVersion"`
	Parameters  map[string]any `json:"parameters" yaml:"parameters"`
}

// SupplyDataNode is a node that hands a ready object (a model client, a
// memory, a tool) to the node it is connected to instead of producing items.
type SupplyDataNode interface {
	Description() *NodeDescription
	SupplyData(ctx context.Context, in SupplyInput) (*SupplyData, error)
}

// SupplyInput is the immutable input of one SupplyData call.
type SupplyInput struct {
	Functions SupplyDataFunctions
	ItemIndex int
}

// SupplyData is what a SupplyDataNode hands over.
type SupplyData struct {
	Response      any
	CloseFunction func() error
}

// Close runs CloseFunction if set.
func (s *SupplyData) Close() error {
	if s == nil || s.CloseFunction == nil {
		return nil
	}
	return s.CloseFunction()
}

// AIEvent 名称与宿主事件总线保持一致
type AIEvent string

const (
	AIEventLLMGeneratedOutput AIEvent = "ai-llm-generated-output"
	AIEventLLMErrored         AIEvent = "ai-llm-errored"
)

// SupplyDataFunctions is the host API available to a node while it supplies data.
type SupplyDataFunctions interface {
	// GetNodeParameter resolves a parameter (dotted paths allowed) for an item.
	// The optional fallback is returned when the parameter is absent.
	GetNodeParameter(name string, itemIndex int, fallback ...any) (any, error)

	Node() *Node
	Logger() *zap.Logger

	// LogAIEvent publishes an AI event with a JSON payload.
	LogAIEvent(event AIEvent, payload string)

	// AddInputData records input run data on conn and returns its run index.
	AddInputData(ctx context.Context, conn ConnectionType, itemIndex int, data any) int

	// AddOutputData records output run data (or an error) for runIndex.
	AddOutputData(ctx context.Context, conn ConnectionType, runIndex int, data any, err error)

	Tracer() trace.Tracer
	Metrics() MetricsRecorder
}

// MetricsRecorder receives model-call metrics from node helpers.
type MetricsRecorder interface {
	RecordLLMRequest(provider, model, status string, duration time.Duration)
	RecordTokens(provider, model string, promptTokens, completionTokens int)
	RecordFailedAttempt(node string, aborted bool)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordLLMRequest(string, string, string, time.Duration) {}
func (NopMetrics) RecordTokens(string, string, int, int)                  {}
func (NopMetrics) RecordFailedAttempt(string, bool)                       {}
