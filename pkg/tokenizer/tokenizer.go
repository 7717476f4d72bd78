// Package tokenizer splits input text into the tokens shown by the attention
// walkthrough.
//
// Tokens are whitespace-delimited words. There is no vocabulary, no sub-word
// merging and no special tokens: a token's only identity is its position in
// the sequence, which is the join key for the Q/K/V rows and score rows.
package tokenizer

import "strings"

// Tokenizer splits text on whitespace and keeps at most MaxTokens tokens.
type Tokenizer struct {
	maxTokens int
}

// New creates a tokenizer that truncates to maxTokens tokens.
// A non-positive maxTokens disables truncation.
func New(maxTokens int) *Tokenizer {
	return &Tokenizer{maxTokens: maxTokens}
}

// MaxTokens returns the truncation limit (0 or negative means unlimited).
func (t *Tokenizer) MaxTokens() int {
	return t.maxTokens
}

// Encode splits text into tokens.
//
// Any run of Unicode whitespace separates tokens and empty pieces are dropped,
// so leading, trailing and repeated spaces never produce empty tokens. The
// result is never nil.
func (t *Tokenizer) Encode(text string) []string {
	tokens := strings.Fields(text)
	if t.maxTokens > 0 && len(tokens) > t.maxTokens {
		tokens = tokens[:t.maxTokens]
	}
	if tokens == nil {
		return []string{}
	}
	return tokens
}

// Decode reconstructs the canonical text for tokens: the tokens joined by a
// single space. Decode(Encode(s)) is the normalized, possibly truncated form of s.
func (t *Tokenizer) Decode(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Split is a convenience for New(maxTokens).Encode(text).
func Split(text string, maxTokens int) []string {
	return New(maxTokens).Encode(text)
}
