package parser

import (
	"errors"
	"fmt"
)

// ErrSchemaViolation matches every *SchemaViolation via errors.Is.
var ErrSchemaViolation = errors.New("schema violation")

// SchemaViolation reports a registry-numeric key whose value is not a float.
// It is the only decode problem that aborts a build.
type SchemaViolation struct {
	ObjectID uint64
	Key      string
	Value    string
	Line     int // 0 when unknown
	Err      error
}

func (e *SchemaViolation) Error() string {
	msg := fmt.Sprintf("numeric property %s=%q on object %s", e.Key, e.Value, FormatObjectID(e.ObjectID))
	if e.Line > 0 {
		msg = fmt.Sprintf("line %d: %s", e.Line, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SchemaViolation) Unwrap() error { return e.Err }

func (e *SchemaViolation) Is(target error) bool { return target == ErrSchemaViolation }
