// pkg/core/recording.go
package core

import "time"

// Default header values used when a recording omits its declarations.
const (
	DefaultFileType    = "text/acmi/tacview"
	DefaultFileVersion = "2.2"
)

// GlobalObjectID is the reserved object id carrying recording-wide properties.
const GlobalObjectID uint64 = 0

// Header holds the two leading file declarations.
type Header struct {
	FileType    string
	FileVersion string
}

// DefaultHeader returns the header assumed when declarations are missing.
func DefaultHeader() Header {
	return Header{
		FileType:    DefaultFileType,
		FileVersion: DefaultFileVersion,
	}
}

// ObjectSnapshot is the state of one object as written on a single update line.
// Only the parts present on that line are set; earlier frames are not merged in.
type ObjectSnapshot struct {
	ObjectID    uint64
	TimeOffset  float64 // seconds since ReferenceTime
	Coordinates *Coordinates
	Properties  *PropertyBag
	Event       *Event
}

// Frame is every snapshot recorded between two frame markers.
type Frame struct {
	Timestamp float64 // seconds since ReferenceTime
	Objects   []ObjectSnapshot
}

// Recording is a fully decoded ACMI file.
type Recording struct {
	Header           Header
	GlobalProperties PropertyBag
	Frames           []Frame

	// GlobalUpdates holds id 0 lines seen after the global property block,
	// e.g. bookmarks and other recording-wide events.
	GlobalUpdates []ObjectSnapshot
}

// WarningKind classifies a non-fatal decode problem.
type WarningKind string

const (
	WarnUnrecognizedLine WarningKind = "unrecognized_line"
	WarnTransformArity   WarningKind = "transform_arity"
	WarnMalformedSegment WarningKind = "malformed_segment"
	WarnEventObjectID    WarningKind = "event_object_id"
	WarnOrphanUpdate     WarningKind = "orphan_update"
	WarnFrameOrder       WarningKind = "frame_order"
)

// Warning is a structural problem that was skipped during decoding.
type Warning struct {
	Line    int
	Kind    WarningKind
	Message string
}

// RecordingInfo describes a recording as handed to a storage backend once
// its header and global properties are known.
type RecordingInfo struct {
	ID               string
	Name             string
	Entry            string // archive entry, empty for plain files
	Header           Header
	GlobalProperties PropertyBag
	StartedAt        time.Time
}

// ReferenceTime returns the absolute time that frame offsets are relative to.
func (r *RecordingInfo) ReferenceTime() (time.Time, bool) {
	return r.GlobalProperties.Time("ReferenceTime")
}
