package parser

// Kind identifies the category a line was classified into.
type Kind uint8

const (
	KindBlank Kind = iota
	KindComment
	KindHeaderField
	KindFrameBegin
	KindObjectRemoval
	KindObjectUpdate
	KindUnrecognized
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindComment:
		return "comment"
	case KindHeaderField:
		return "header"
	case KindFrameBegin:
		return "frame"
	case KindObjectRemoval:
		return "removal"
	case KindObjectUpdate:
		return "update"
	default:
		return "unrecognized"
	}
}

// Record is the result of classifying one line. The concrete type is one of
// Blank, Comment, HeaderField, FrameBegin, ObjectRemoval, ObjectUpdate or
// Unrecognized.
type Record interface {
	Kind() Kind
}

// Blank is an empty or whitespace-only line.
type Blank struct{}

// Comment is a line whose first non-space characters are "//".
type Comment struct {
	Text string
}

// HeaderField is a FileType= or FileVersion= declaration.
type HeaderField struct {
	Key   string
	Value string
}

// FrameBegin is a "#<seconds>" frame marker.
type FrameBegin struct {
	Timestamp float64
}

// ObjectRemoval is a "-<hex id>" line.
type ObjectRemoval struct {
	ID uint64
}

// ObjectUpdate is a "<hex id>,<payload>" line. Payload is not decoded yet.
type ObjectUpdate struct {
	ID      uint64
	Payload string
}

// Unrecognized is any line matching no pattern.
type Unrecognized struct {
	Line   string
	Reason string
}

func (Blank) Kind() Kind         { return KindBlank }
func (Comment) Kind() Kind       { return KindComment }
func (HeaderField) Kind() Kind   { return KindHeaderField }
func (FrameBegin) Kind() Kind    { return KindFrameBegin }
func (ObjectRemoval) Kind() Kind { return KindObjectRemoval }
func (ObjectUpdate) Kind() Kind  { return KindObjectUpdate }
func (Unrecognized) Kind() Kind  { return KindUnrecognized }
