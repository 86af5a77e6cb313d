// Package memory keeps a recording in memory and writes it to a single
// export file when the recording ends.
package memory

import (
	"fmt"
	"sync"

	"github.com/OCAP2/acmi/internal/config"
	"github.com/OCAP2/acmi/pkg/core"
)

// Backend stores recording data in memory and exports it on EndRecording
type Backend struct {
	cfg  config.MemoryConfig
	info *core.RecordingInfo
	rec  *core.Recording

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init validates the export settings
func (b *Backend) Init() error {
	if _, err := formatExt(b.cfg.Format); err != nil {
		return err
	}
	if _, err := compressionExt(b.cfg.Compression); err != nil {
		return err
	}
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRecording begins a new recording, discarding any previous one
func (b *Backend) StartRecording(info *core.RecordingInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.info = info
	b.rec = &core.Recording{
		Header:           info.Header,
		GlobalProperties: *info.GlobalProperties.Clone(),
	}
	return nil
}

// RecordFrame appends a frame
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rec == nil {
		return errNotStarted
	}
	b.rec.Frames = append(b.rec.Frames, *f)
	return nil
}

// RecordGlobalUpdate appends an id 0 update
func (b *Backend) RecordGlobalUpdate(s *core.ObjectSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rec == nil {
		return errNotStarted
	}
	b.rec.GlobalUpdates = append(b.rec.GlobalUpdates, *s)
	return nil
}

// EndRecording finalizes and exports the recording
func (b *Backend) EndRecording(warnings []core.Warning) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.rec == nil {
		return errNotStarted
	}
	return b.export(warnings)
}

// Recording returns the data collected so far, or nil before StartRecording
func (b *Backend) Recording() *core.Recording {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.rec
}

// GetExportedFilePath returns the path of the last written export
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

var errNotStarted = fmt.Errorf("recording not started")
