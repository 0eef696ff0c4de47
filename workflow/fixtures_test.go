package workflow

import (
	"context"
	"errors"
	"sync/atomic"
)

func testDescription() *NodeDescription {
	return &NodeDescription{
		DisplayName: "Test Model",
		Name:        "testModel",
		Group:       []string{"transform"},
		Version:     1,
		Outputs:     []ConnectionType{ConnectionAILanguageModel},
		OutputNames: []string{"Model"},
		Properties: []Property{
			{
				DisplayName: "Model",
				Name:        "model",
				Type:        PropertyResourceLocator,
				Default:     map[string]any{"mode": "id", "value": "default-model"},
				Required:    true,
				Modes:       []ResourceLocatorMode{{DisplayName: "ID", Name: "id", Type: "string"}},
			},
			{DisplayName: "Token", Name: "token", Type: PropertyString, Default: "", Required: true},
			{DisplayName: "Base URL", Name: "baseUrl", Type: PropertyString, Default: "https://example/v1"},
			{DisplayName: "Stream", Name: "stream", Type: PropertyBoolean, Default: false},
			{DisplayName: "Limit", Name: "limit", Type: PropertyNumber},
			{
				DisplayName: "Mode",
				Name:        "mode",
				Type:        PropertyOptions,
				Default:     "fast",
				Options:     []PropertyOption{{Name: "Fast", Value: "fast"}, {Name: "Slow", Value: "slow"}},
			},
			{
				DisplayName: "Options",
				Name:        "options",
				Type:        PropertyCollection,
				Default:     map[string]any{},
				Values:      []Property{{DisplayName: "Temperature", Name: "temperature", Type: PropertyNumber, Default: 0.7}},
			},
		},
	}
}

// fakeNode 按 item 返回模型名，可配置在指定 item 失败
type fakeNode struct {
	desc    *NodeDescription
	failAt  int
	closed  atomic.Int32
	calls   atomic.Int32
	blockCh chan struct{}
}

var errFake = errors.New("fake supply failure")

func newFakeNode() *fakeNode {
	return &fakeNode{desc: testDescription(), failAt: -1}
}

func (f *fakeNode) Description() *NodeDescription { return f.desc }

func (f *fakeNode) SupplyData(ctx context.Context, in SupplyInput) (*SupplyData, error) {
	f.calls.Add(1)
	if in.ItemIndex == f.failAt {
		return nil, errFake
	}
	if f.blockCh != nil {
		select {
		case <-f.blockCh:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	model, err := GetString(in.Functions, "model.value", in.ItemIndex)
	if err != nil {
		return nil, err
	}
	in.Functions.AddInputData(ctx, ConnectionAILanguageModel, in.ItemIndex, map[string]any{"model": model})
	return &SupplyData{
		Response: model,
		CloseFunction: func() error {
			f.closed.Add(1)
			return nil
		},
	}, nil
}
