package lmgateway

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/BaSui01/lmgateway/llm"
	"github.com/BaSui01/lmgateway/llm/providers/openaicompat"
	"github.com/BaSui01/lmgateway/workflow"
	"github.com/BaSui01/lmgateway/workflow/nodeutil"
)

// Node supplies an OpenAI-compatible chat model bound to the gateway.
type Node struct {
	desc    *workflow.NodeDescription
	limiter *rate.Limiter
}

// Option configures Node.
type Option func(*Node)

// WithLimiter shares one client-side rate limiter across every supplied model.
func WithLimiter(l *rate.Limiter) Option {
	return func(n *Node) { n.limiter = l }
}

// New creates the node.
func New(opts ...Option) *Node {
	n := &Node{desc: description()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Description returns the static node description shown in the editor.
func (n *Node) Description() *workflow.NodeDescription { return n.desc }

// SupplyData resolves the parameters of one item and returns a ready
// *openaicompat.Provider. It performs no network I/O.
func (n *Node) SupplyData(_ context.Context, in workflow.SupplyInput) (*workflow.SupplyData, error) {
	cfg, err := ClientConfig(in.Functions, in.ItemIndex)
	if err != nil {
		return nil, err
	}
	cfg.Limiter = n.limiter

	provider, err := openaicompat.New(cfg, in.Functions.Logger())
	if err != nil {
		return nil, err
	}
	return &workflow.SupplyData{Response: provider}, nil
}

// ClientConfig maps the parameters of one item onto the client configuration.
func ClientConfig(fns workflow.SupplyDataFunctions, itemIndex int) (openaicompat.Config, error) {
	model, err := workflow.GetString(fns, "model.value", itemIndex)
	if err != nil {
		return openaicompat.Config{}, err
	}
	baseURL, err := workflow.GetString(fns, "baseUrl", itemIndex)
	if err != nil {
		return openaicompat.Config{}, err
	}
	token, err := workflow.GetString(fns, "authToken", itemIndex)
	if err != nil {
		return openaicompat.Config{}, err
	}
	raw, err := workflow.GetCollection(fns, "options", itemIndex, map[string]any{})
	if err != nil {
		return openaicompat.Config{}, err
	}

	nodeName := ""
	if node := fns.Node(); node != nil {
		nodeName = node.Name
	}
	opts, err := ParseOptions(raw, nodeName, itemIndex)
	if err != nil {
		return openaicompat.Config{}, err
	}

	cfg := openaicompat.Config{
		APIKey:           token,
		Model:            model,
		BaseURL:          baseURL,
		Temperature:      opts.Temperature,
		TopP:             opts.TopP,
		MaxTokens:        opts.MaxTokens,
		PresencePenalty:  opts.PresencePenalty,
		FrequencyPenalty: opts.FrequencyPenalty,
		Transport:        nodeutil.HTTPProxyTransport(),
		ModelKwargs:      opts.ModelKwargs(),
		Callbacks: llm.Callbacks{
			nodeutil.NewLLMTracing(fns, nodeutil.WithItemIndex(itemIndex)),
		},
		OnFailedAttempt: nodeutil.MakeFailedAttemptHandler(fns, openaicompat.FailedAttemptHandler),
	}
	// 显式赋值放在选项拷贝之后
	cfg.Timeout = opts.Timeout()
	cfg.MaxRetries = opts.Retries()

	return cfg, nil
}

var _ workflow.SupplyDataNode = (*Node)(nil)
