package model

import (
	"strings"
	"unicode/utf8"
)

// FallbackSummaryText replaces the summary whenever the summarizer fails.
const FallbackSummaryText = "Error generating summary"

type Summary struct {
	Text     string `json:"text"`
	Fallback bool   `json:"fallback"`
}

// NewSummary trims text and bounds it to maxChars runes. A maxChars of zero
// leaves the length unbounded.
func NewSummary(text string, maxChars int) Summary {
	text = strings.TrimSpace(text)
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		runes := []rune(text)
		text = strings.TrimSpace(string(runes[:maxChars-1])) + "…"
	}
	return Summary{Text: text}
}

func FallbackSummary() Summary {
	return Summary{Text: FallbackSummaryText, Fallback: true}
}

// Valid reports whether the summary can be rendered.
func (s Summary) Valid() bool { return s.Text != "" }
