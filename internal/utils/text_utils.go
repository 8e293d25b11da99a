package utils

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Ellipsis is appended to text shortened by Truncate
const Ellipsis = "..."

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// Truncate shortens text to at most maxRunes code points. Text that has to be
// cut keeps its first maxRunes-len(Ellipsis) runes followed by Ellipsis.
func (tp *TextProcessor) Truncate(text string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	keep := maxRunes - len(Ellipsis)
	if keep < 0 {
		keep = 0
	}
	runes := []rune(text)
	truncated := string(runes[:keep]) + Ellipsis

	tp.logger.Debug("Text truncated",
		zap.Int("original_runes", len(runes)),
		zap.Int("max_runes", maxRunes))

	return truncated
}

// TruncateBytes cuts text to maxSize bytes on a rune boundary and marks the cut.
// Used to bound prompt sizes sent to LLM providers.
func (tp *TextProcessor) TruncateBytes(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 drops invalid UTF-8 sequences from the string
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size == 1 {
				continue
			}
		}
		b.WriteRune(r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", b.Len()))

	return b.String()
}

// NormalizeSpace collapses runs of whitespace into single spaces and trims the ends
func (tp *TextProcessor) NormalizeSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// ProcessText sanitizes and normalizes text, then bounds it to maxSize bytes
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.TruncateBytes(tp.NormalizeSpace(tp.SanitizeUTF8(text)), maxSize)
}

// ProcessPrompt sanitizes a prompt and bounds it to maxSize bytes, keeping its line structure
func (tp *TextProcessor) ProcessPrompt(prompt string, maxSize int) string {
	return tp.TruncateBytes(tp.SanitizeUTF8(prompt), maxSize)
}
