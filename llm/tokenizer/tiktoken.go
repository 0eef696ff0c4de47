package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// 模型前缀 → tiktoken 编码；网关模型名未命中时使用 cl100k_base
var encodingByPrefix = []struct {
	prefix   string
	encoding string
}{
	{"gpt-4o", "o200k_base"},
	{"o1", "o200k_base"},
	{"o3", "o200k_base"},
	{"gpt-4", "cl100k_base"},
	{"gpt-3.5", "cl100k_base"},
}

// EncodingForModel returns the tiktoken encoding name used for model.
func EncodingForModel(model string) string {
	m := strings.ToLower(model)
	for _, e := range encodingByPrefix {
		if strings.HasPrefix(m, e.prefix) {
			return e.encoding
		}
	}
	return defaultEncoding
}

// ErrEncodingNotReady is returned while the BPE encoding is still loading.
var ErrEncodingNotReady = errors.New("tiktoken encoding not ready")

// getEncoding 可在测试中替换；tiktoken-go 缺少缓存时会无超时地下载 BPE 文件
var getEncoding = tiktoken.GetEncoding

// Tiktoken counts tokens with a BPE encoding. The encoding loads in the
// background on first use; counting never waits for it.
type Tiktoken struct {
	encoding string

	once    sync.Once
	ready   chan struct{}
	enc     *tiktoken.Tiktoken
	initErr error
}

func NewTiktoken(model string) *Tiktoken {
	return &Tiktoken{encoding: EncodingForModel(model), ready: make(chan struct{})}
}

// Load starts loading the encoding and returns a channel closed once the
// load has finished, successfully or not.
func (t *Tiktoken) Load() <-chan struct{} {
	t.once.Do(func() {
		go func() {
			defer close(t.ready)
			enc, err := getEncoding(t.encoding)
			if err != nil {
				t.initErr = fmt.Errorf("load tiktoken encoding %s: %w", t.encoding, err)
				return
			}
			t.enc = enc
		}()
	})
	return t.ready
}

func (t *Tiktoken) encoder() (*tiktoken.Tiktoken, error) {
	select {
	case <-t.Load():
		if t.initErr != nil {
			return nil, t.initErr
		}
		return t.enc, nil
	default:
		return nil, ErrEncodingNotReady
	}
}

func (t *Tiktoken) CountTokens(text string) (int, error) {
	enc, err := t.encoder()
	if err != nil {
		return 0, err
	}
	return len(enc.Encode(text, nil, nil)), nil
}

func (t *Tiktoken) CountMessages(messages []Message) (int, error) {
	enc, err := t.encoder()
	if err != nil {
		return 0, err
	}
	total := replyPrimer
	for _, m := range messages {
		total += perMessageOverhead
		total += len(enc.Encode(m.Role, nil, nil))
		total += len(enc.Encode(m.Content, nil, nil))
	}
	return total, nil
}

func (t *Tiktoken) Name() string { return "tiktoken[" + t.encoding + "]" }
