package parser

import (
	"strconv"
	"strings"
)

const bom = "\ufeff"

// Header declaration keys.
const (
	HeaderFileType    = "FileType"
	HeaderFileVersion = "FileVersion"
)

// matcher returns a record and true when it claims the line.
type matcher func(line string) (Record, bool)

// streamMatchers run in priority order once the header has been read.
var streamMatchers = []matcher{
	matchComment,
	matchFrameBegin,
	matchRemoval,
	matchUpdate,
}

// headerMatchers run while header declarations are still accepted.
var headerMatchers = []matcher{
	matchComment,
	matchHeaderField,
	matchFrameBegin,
	matchRemoval,
	matchUpdate,
}

// Classify determines the category of a single line. headerOpen reports
// whether FileType/FileVersion declarations are still accepted.
// Classify never fails: lines matching nothing come back as Unrecognized.
func Classify(line string, headerOpen bool) Record {
	line = strings.TrimPrefix(line, bom)
	if strings.TrimSpace(line) == "" {
		return Blank{}
	}

	matchers := streamMatchers
	if headerOpen {
		matchers = headerMatchers
	}
	for _, m := range matchers {
		if rec, ok := m(line); ok {
			return rec
		}
	}
	return Unrecognized{Line: line, Reason: "no pattern matched"}
}

func matchComment(line string) (Record, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, "//") {
		return nil, false
	}
	return Comment{Text: strings.TrimSpace(trimmed[2:])}, true
}

func matchHeaderField(line string) (Record, bool) {
	key, value, ok := strings.Cut(line, "=")
	if !ok || (key != HeaderFileType && key != HeaderFileVersion) {
		return nil, false
	}
	return HeaderField{Key: key, Value: strings.TrimSpace(value)}, true
}

func matchFrameBegin(line string) (Record, bool) {
	if !strings.HasPrefix(line, "#") {
		return nil, false
	}
	text := strings.TrimSpace(line[1:])
	if text == "" || !isSignedDecimal(text) {
		return Unrecognized{Line: line, Reason: "invalid frame timestamp"}, true
	}
	ts, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Unrecognized{Line: line, Reason: "invalid frame timestamp"}, true
	}
	return FrameBegin{Timestamp: ts}, true
}

func matchRemoval(line string) (Record, bool) {
	if !strings.HasPrefix(line, "-") {
		return nil, false
	}
	text := strings.TrimRight(line[1:], " \t")
	if !isHex(text) {
		return nil, false
	}
	id, err := ParseObjectID(text)
	if err != nil {
		return Unrecognized{Line: line, Reason: err.Error()}, true
	}
	return ObjectRemoval{ID: id}, true
}

func matchUpdate(line string) (Record, bool) {
	hex, payload, ok := strings.Cut(line, ",")
	if !ok || !isHex(hex) {
		return nil, false
	}
	id, err := ParseObjectID(hex)
	if err != nil {
		return Unrecognized{Line: line, Reason: err.Error()}, true
	}
	return ObjectUpdate{ID: id, Payload: payload}, true
}

// ParseObjectID parses an unsigned hexadecimal object id without radix prefix.
func ParseObjectID(text string) (uint64, error) {
	return strconv.ParseUint(text, 16, 64)
}

// FormatObjectID renders an id the way recordings write it.
func FormatObjectID(id uint64) string {
	return strings.ToUpper(strconv.FormatUint(id, 16))
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

// isSignedDecimal accepts digits, sign, decimal point and exponent only,
// so ParseFloat never sees "inf", "nan" or hex floats.
func isSignedDecimal(s string) bool {
	digits := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9':
			digits = true
		case c == '+', c == '-', c == '.', c == 'e', c == 'E':
		default:
			return false
		}
	}
	return digits
}
