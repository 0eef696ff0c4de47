package lmgateway

import (
	"fmt"
	"math"
	"time"

	"github.com/BaSui01/lmgateway/workflow"
)

const (
	// DefaultTimeoutMs applies when options.timeout is absent.
	DefaultTimeoutMs = 60000
	// DefaultMaxRetries applies when options.maxRetries is absent.
	DefaultMaxRetries = 2
)

// Options is the parsed options collection. Nil and empty fields were not
// set by the user.
type Options struct {
	Temperature      *float64
	TopP             *float64
	MaxTokens        *int
	PresencePenalty  *float64
	FrequencyPenalty *float64
	TimeoutMs        *float64
	MaxRetries       *int
	ResponseFormat   string
	ReasoningEffort  string
}

// ParseOptions reads the options collection. Unknown keys are ignored.
func ParseOptions(raw map[string]any, node string, itemIndex int) (Options, error) {
	var (
		o   Options
		err error
	)
	perr := func(key, reason string) error {
		return &workflow.ParameterError{Node: node, Parameter: "options." + key, ItemIndex: itemIndex, Reason: reason}
	}

	number := func(key string) (*float64, error) {
		v, ok := raw[key]
		if !ok || v == nil {
			return nil, nil
		}
		f, ok := workflow.ToFloat(v)
		if !ok {
			return nil, perr(key, fmt.Sprintf("expected number, got %T", v))
		}
		return &f, nil
	}
	integer := func(key string) (*int, error) {
		f, err := number(key)
		if err != nil || f == nil {
			return nil, err
		}
		if *f != math.Trunc(*f) {
			return nil, perr(key, fmt.Sprintf("expected integer, got %v", *f))
		}
		n := int(*f)
		return &n, nil
	}
	str := func(key string) (string, error) {
		v, ok := raw[key]
		if !ok || v == nil {
			return "", nil
		}
		s, ok := v.(string)
		if !ok {
			return "", perr(key, fmt.Sprintf("expected string, got %T", v))
		}
		return s, nil
	}

	if o.Temperature, err = number("temperature"); err != nil {
		return o, err
	}
	if o.TopP, err = number("topP"); err != nil {
		return o, err
	}
	if o.MaxTokens, err = integer("maxTokens"); err != nil {
		return o, err
	}
	if o.PresencePenalty, err = number("presencePenalty"); err != nil {
		return o, err
	}
	if o.FrequencyPenalty, err = number("frequencyPenalty"); err != nil {
		return o, err
	}
	if o.TimeoutMs, err = number("timeout"); err != nil {
		return o, err
	}
	if o.MaxRetries, err = integer("maxRetries"); err != nil {
		return o, err
	}
	if o.ResponseFormat, err = str("responseFormat"); err != nil {
		return o, err
	}
	if o.ReasoningEffort, err = str("reasoningEffort"); err != nil {
		return o, err
	}
	return o, nil
}

// ModelKwargs returns the body fields the client has no option for. The
// map is never nil.
func (o Options) ModelKwargs() map[string]any {
	kwargs := make(map[string]any)
	if o.ResponseFormat != "" {
		kwargs["response_format"] = map[string]any{"type": o.ResponseFormat}
	}
	if o.ReasoningEffort != "" {
		kwargs["reasoning_effort"] = o.ReasoningEffort
	}
	return kwargs
}

// Timeout is options.timeout or the 60s default.
func (o Options) Timeout() time.Duration {
	ms := float64(DefaultTimeoutMs)
	if o.TimeoutMs != nil {
		ms = *o.TimeoutMs
	}
	return time.Duration(ms * float64(time.Millisecond))
}

// Retries is options.maxRetries or 2.
func (o Options) Retries() int {
	if o.MaxRetries != nil {
		return *o.MaxRetries
	}
	return DefaultMaxRetries
}
