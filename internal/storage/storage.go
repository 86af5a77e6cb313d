// Package storage defines the interface recordings are persisted through and
// drives decoding into it.
package storage

import "github.com/OCAP2/acmi/pkg/core"

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Recording management
	StartRecording(info *core.RecordingInfo) error
	EndRecording(warnings []core.Warning) error

	// Timeline
	RecordFrame(f *core.Frame) error
	RecordGlobalUpdate(s *core.ObjectSnapshot) error
}

// Uploadable is an optional interface for storage backends that produce
// a file once a recording ends.
type Uploadable interface {
	GetExportedFilePath() string
}
