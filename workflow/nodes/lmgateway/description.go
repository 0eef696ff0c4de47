package lmgateway

import (
	"github.com/BaSui01/lmgateway/workflow"
	"github.com/BaSui01/lmgateway/workflow/nodeutil"
)

const (
	// NodeType is the registered type name.
	NodeType = "lmChatGateway"

	DefaultModel   = "hubgpt-chat-completions-4.0"
	DefaultBaseURL = "https://gateway.internal/gateway/v1"
)

func float(v float64) *float64 { return &v }

func description() *workflow.NodeDescription {
	return &workflow.NodeDescription{
		DisplayName: "LLM Gateway",
		Name:        NodeType,
		Icon:        "fa:robot",
		Group:       []string{"transform"},
		Version:     1,
		Description: "Internal LLM gateway using OpenAI-compatible API",
		Defaults:    workflow.NodeDefaults{Name: "LLM Gateway"},
		Codex: workflow.Codex{
			Categories: []string{"AI"},
			Subcategories: map[string][]string{
				"AI":              {"Language Models", "Root Nodes"},
				"Language Models": {"Chat Models (Recommended)"},
			},
		},
		Inputs:      []workflow.ConnectionType{},
		Outputs:     []workflow.ConnectionType{workflow.ConnectionAILanguageModel},
		OutputNames: []string{"Model"},
		Properties: []workflow.Property{
			nodeutil.ConnectionHintNoticeField(workflow.ConnectionAIChain, workflow.ConnectionAIAgent),
			{
				DisplayName: "Model",
				Name:        "model",
				Type:        workflow.PropertyResourceLocator,
				Default:     map[string]any{"mode": "id", "value": DefaultModel},
				Required:    true,
				Description: "The model served by the gateway",
				Modes: []workflow.ResourceLocatorMode{
					{DisplayName: "ID", Name: "id", Type: "string", Placeholder: DefaultModel},
				},
			},
			{
				DisplayName: "Auth Token",
				Name:        "authToken",
				Type:        workflow.PropertyString,
				Default:     "",
				Required:    true,
				Description: "Bearer token sent to the gateway",
				TypeOptions: &workflow.TypeOptions{Password: true},
			},
			{
				DisplayName: "Base URL",
				Name:        "baseUrl",
				Type:        workflow.PropertyString,
				Default:     DefaultBaseURL,
				Required:    true,
				Description: "OpenAI-compatible endpoint of the gateway",
			},
			{
				DisplayName: "Options",
				Name:        "options",
				Type:        workflow.PropertyCollection,
				Default:     map[string]any{},
				Placeholder: "Add Option",
				Description: "Additional options to add",
				Values: []workflow.Property{
					{
						DisplayName: "Sampling Temperature",
						Name:        "temperature",
						Type:        workflow.PropertyNumber,
						Default:     0.7,
						Description: "Controls randomness: lowering results in less random completions",
						TypeOptions: &workflow.TypeOptions{MinValue: float(0), MaxValue: float(2), NumberPrecision: 1},
					},
					{
						DisplayName: "Top P",
						Name:        "topP",
						Type:        workflow.PropertyNumber,
						Default:     1,
						Description: "Controls diversity via nucleus sampling",
						TypeOptions: &workflow.TypeOptions{MinValue: float(0), MaxValue: float(1), NumberPrecision: 1},
					},
					{
						DisplayName: "Maximum Number of Tokens",
						Name:        "maxTokens",
						Type:        workflow.PropertyNumber,
						Default:     2048,
						Description: "The maximum number of tokens to generate in the completion",
						TypeOptions: &workflow.TypeOptions{MaxValue: float(32768)},
					},
					{
						DisplayName: "Presence Penalty",
						Name:        "presencePenalty",
						Type:        workflow.PropertyNumber,
						Default:     0,
						Description: "Positive values penalize tokens that already appeared, encouraging new topics",
						TypeOptions: &workflow.TypeOptions{MinValue: float(-2), MaxValue: float(2), NumberPrecision: 1},
					},
					{
						DisplayName: "Frequency Penalty",
						Name:        "frequencyPenalty",
						Type:        workflow.PropertyNumber,
						Default:     0,
						Description: "Positive values penalize tokens by how often they already appeared",
						TypeOptions: &workflow.TypeOptions{MinValue: float(-2), MaxValue: float(2), NumberPrecision: 1},
					},
					{
						DisplayName: "Timeout",
						Name:        "timeout",
						Type:        workflow.PropertyNumber,
						Default:     DefaultTimeoutMs,
						Description: "Maximum amount of time a request is allowed to take in milliseconds",
					},
					{
						DisplayName: "Max Retries",
						Name:        "maxRetries",
						Type:        workflow.PropertyNumber,
						Default:     DefaultMaxRetries,
						Description: "Maximum number of retries to attempt",
					},
					{
						DisplayName: "Response Format",
						Name:        "responseFormat",
						Type:        workflow.PropertyOptions,
						Default:     "text",
						Options: []workflow.PropertyOption{
							{Name: "Text", Value: "text", Description: "Regular text response"},
							{Name: "JSON", Value: "json_object", Description: "Enables JSON mode, which should guarantee the message the model generates is valid JSON"},
						},
					},
					{
						DisplayName: "Reasoning Effort",
						Name:        "reasoningEffort",
						Type:        workflow.PropertyOptions,
						Default:     "medium",
						Description: "Controls the amount of reasoning tokens to use",
						Options: []workflow.PropertyOption{
							{Name: "Low", Value: "low"},
							{Name: "Medium", Value: "medium"},
							{Name: "High", Value: "high"},
						},
					},
				},
			},
		},
	}
}
