package tokenizer

import (
	"errors"
	"strings"
	"sync"
)

// Tokenizer counts tokens for prompt and completion text.
type Tokenizer interface {
	// CountTokens 返回给定文本的 token 数
	CountTokens(text string) (int, error)

	// CountMessages 返回消息列表的总 token 数，包含每条消息的角色与分隔符开销
	CountMessages(messages []Message) (int, error)

	// Name 返回分词器名称
	Name() string
}

// Message is the role/content pair the tokenizer needs. It keeps this
// package free of the llm import.
type Message struct {
	Role    string
	Content string
}

// 每条消息的固定开销与会话结束开销（OpenAI chat 格式）
const (
	perMessageOverhead = 4
	replyPrimer        = 3
)

var (
	registry   = make(map[string]Tokenizer)
	registryMu sync.RWMutex

	// 未注册模型按编码共享同一个 Fallback，编码只加载一次
	defaults   = make(map[string]*Fallback)
	defaultsMu sync.Mutex
)

// Register binds t to a model name or model-name prefix.
func Register(model string, t Tokenizer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[model] = t
}

// lookup finds an exact match first, then the longest registered prefix.
func lookup(model string) (Tokenizer, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	if t, ok := registry[model]; ok {
		return t, true
	}
	var best Tokenizer
	bestLen := -1
	for prefix, t := range registry {
		if strings.HasPrefix(model, prefix) && len(prefix) > bestLen {
			best, bestLen = t, len(prefix)
		}
	}
	return best, best != nil
}

// ForModel returns the tokenizer registered for model, or the shared
// tiktoken tokenizer for the model's encoding. The shared tokenizer answers
// with the character estimator until its encoding has loaded, and for good
// if loading fails.
func ForModel(model string) Tokenizer {
	if t, ok := lookup(model); ok {
		return t
	}

	encoding := EncodingForModel(model)
	defaultsMu.Lock()
	defer defaultsMu.Unlock()
	fb, ok := defaults[encoding]
	if !ok {
		fb = NewFallback(NewTiktoken(model), NewEstimator())
		defaults[encoding] = fb
	}
	return fb
}

// Fallback delegates to Primary and switches to Secondary for the rest of
// its lifetime once Primary fails. ErrEncodingNotReady is answered by
// Secondary without giving up on Primary.
type Fallback struct {
	primary   Tokenizer
	secondary Tokenizer

	mu     sync.Mutex
	failed bool
}

func NewFallback(primary, secondary Tokenizer) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) active() Tokenizer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failed {
		return f.secondary
	}
	return f.primary
}

func (f *Fallback) primaryErr(err error) {
	if errors.Is(err, ErrEncodingNotReady) {
		return
	}
	f.mu.Lock()
	f.failed = true
	f.mu.Unlock()
}

func (f *Fallback) CountTokens(text string) (int, error) {
	t := f.active()
	n, err := t.CountTokens(text)
	if err != nil && t == f.primary {
		f.primaryErr(err)
		return f.secondary.CountTokens(text)
	}
	return n, err
}

func (f *Fallback) CountMessages(messages []Message) (int, error) {
	t := f.active()
	n, err := t.CountMessages(messages)
	if err != nil && t == f.primary {
		f.primaryErr(err)
		return f.secondary.CountMessages(messages)
	}
	return n, err
}

func (f *Fallback) Name() string { return f.active().Name() }
