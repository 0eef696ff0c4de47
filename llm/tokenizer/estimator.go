package tokenizer

import "unicode/utf8"

// Estimator approximates token counts from character classes: CJK runes
// at ~1.5 per token, everything else at ~4 per token.
type Estimator struct{}

func NewEstimator() *Estimator { return &Estimator{} }

func (Estimator) CountTokens(text string) (int, error) {
	if text == "" {
		return 0, nil
	}

	total := utf8.RuneCountInString(text)
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}

	n := int(float64(cjk)/1.5 + float64(total-cjk)/4.0)
	if n == 0 {
		n = 1
	}
	return n, nil
}

func (e Estimator) CountMessages(messages []Message) (int, error) {
	total := replyPrimer
	for _, m := range messages {
		n, _ := e.CountTokens(m.Content)
		total += n + perMessageOverhead
	}
	return total, nil
}

func (Estimator) Name() string { return "estimator" }

func isCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || // CJK Unified Ideographs
		(r >= 0x3400 && r <= 0x4DBF) || // Extension A
		(r >= 0x20000 && r <= 0x2A6DF) || // Extension B
		(r >= 0xF900 && r <= 0xFAFF) || // Compatibility Ideographs
		(r >= 0x3000 && r <= 0x303F) || // Symbols and Punctuation
		(r >= 0xFF00 && r <= 0xFFEF) // Halfwidth and Fullwidth Forms
}
