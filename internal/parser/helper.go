package parser

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Helper carries the two hot-path primitives of the decoder. Implementations
// must agree on every input; only speed may differ.
type Helper interface {
	// ParseFloat parses text as a float, returning def when text is blank or invalid.
	ParseFloat(text string, def float64) float64
	// SplitEscaped splits text on commas not preceded by a backslash.
	SplitEscaped(text string) []string
}

// NewHelper returns FastHelper when fast is set, ReferenceHelper otherwise.
func NewHelper(fast bool) Helper {
	if fast {
		return FastHelper{}
	}
	return ReferenceHelper{}
}

// ReferenceHelper is the straightforward implementation.
type ReferenceHelper struct{}

func (ReferenceHelper) ParseFloat(text string, def float64) float64 {
	text = strings.TrimSpace(text)
	if text == "" {
		return def
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return def
	}
	return v
}

// SplitEscaped splits on every comma, then glues back pieces whose
// separator was escaped.
func (ReferenceHelper) SplitEscaped(text string) []string {
	pieces := strings.Split(text, ",")
	out := make([]string, 0, len(pieces))
	for i, p := range pieces {
		if i > 0 && strings.HasSuffix(pieces[i-1], `\`) {
			out[len(out)-1] += "," + p
			continue
		}
		out = append(out, p)
	}
	return out
}

// FastHelper scans bytes once and avoids intermediate allocations.
type FastHelper struct{}

func (FastHelper) ParseFloat(text string, def float64) float64 {
	if text == "" {
		return def
	}
	if mayTrim(text[0]) || mayTrim(text[len(text)-1]) {
		text = strings.TrimSpace(text)
		if text == "" {
			return def
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return def
	}
	return v
}

func (FastHelper) SplitEscaped(text string) []string {
	out := make([]string, 0, strings.Count(text, ",")+1)
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == ',' && (i == 0 || text[i-1] != '\\') {
			out = append(out, text[start:i])
			start = i + 1
		}
	}
	return append(out, text[start:])
}

// mayTrim reports whether strings.TrimSpace could remove c. Non-ASCII
// bytes are included since they may start a Unicode space.
func mayTrim(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return c >= utf8.RuneSelf
}
