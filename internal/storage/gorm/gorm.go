// Package gormstorage implements the storage.Backend interface on top of any
// GORM dialect. Rows are queued and written in batched transactions.
package gormstorage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OCAP2/acmi/internal/database"
	"github.com/OCAP2/acmi/internal/model"
	"github.com/OCAP2/acmi/internal/model/convert"
	"github.com/OCAP2/acmi/internal/queue"
	"github.com/OCAP2/acmi/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// DefaultBatchSize is used when Dependencies.BatchSize is not set.
const DefaultBatchSize = 500

// ErrNoDatabase is returned by Init when no connection was injected.
var ErrNoDatabase = errors.New("no database connection")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB        *gorm.DB
	Logger    zerolog.Logger
	BatchSize int
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Frames        *queue.Queue[model.Frame]
	Snapshots     *queue.Queue[model.ObjectSnapshot]
	GlobalUpdates *queue.Queue[model.GlobalUpdate]
}

func newQueues() *queues {
	return &queues{
		Frames:        queue.New[model.Frame](),
		Snapshots:     queue.New[model.ObjectSnapshot](),
		GlobalUpdates: queue.New[model.GlobalUpdate](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	mu        sync.Mutex
	ctx       convert.Context
	started   bool
	frames    uint
	snapshots uint
	firstTS   float64
	lastTS    float64
	tracks    map[uint64][]core.ObjectSnapshot
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.BatchSize <= 0 {
		deps.BatchSize = DefaultBatchSize
	}
	return &Backend{deps: deps}
}

// DB returns the connection the backend writes to.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// WithLock runs fn while no rows are being queued or written.
func (b *Backend) WithLock(fn func(db *gorm.DB) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return fn(b.deps.DB)
}

// Init creates internal queues and runs schema migration.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return ErrNoDatabase
	}
	b.queues = newQueues()

	b.deps.Logger.Info().Str("dialect", b.deps.DB.Dialector.Name()).Msg("Migrating schema")
	if err := database.Migrate(b.deps.DB); err != nil {
		return err
	}
	return nil
}

// Close flushes anything still queued.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.queues == nil {
		return nil
	}
	return b.flush()
}

// StartRecording inserts the recording row and resets per-recording state.
func (b *Backend) StartRecording(info *core.RecordingInfo) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.queues == nil {
		return fmt.Errorf("backend not initialized")
	}
	if err := b.flush(); err != nil {
		return err
	}

	row := convert.CoreToRecording(info)
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert recording: %w", err)
	}

	b.ctx = convert.NewContext(info)
	b.started = true
	b.frames = 0
	b.snapshots = 0
	b.firstTS, b.lastTS = 0, 0
	b.tracks = make(map[uint64][]core.ObjectSnapshot)

	b.deps.Logger.Info().Str("recording", info.ID).Str("name", info.Name).Msg("Recording started")
	return nil
}

// RecordFrame converts a frame and its snapshots and queues them.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return fmt.Errorf("recording not started")
	}

	index := b.frames
	if index == 0 {
		b.firstTS = f.Timestamp
	}
	b.lastTS = f.Timestamp
	b.frames++

	b.queues.Frames.Push(convert.CoreToFrame(b.ctx, index, *f))
	for _, s := range f.Objects {
		b.queues.Snapshots.Push(convert.CoreToObjectSnapshot(b.ctx, index, s))
		b.tracks[s.ObjectID] = append(b.tracks[s.ObjectID], core.ObjectSnapshot{
			ObjectID:    s.ObjectID,
			TimeOffset:  s.TimeOffset,
			Coordinates: s.Coordinates,
			Properties:  s.Properties,
		})
	}
	b.snapshots += uint(len(f.Objects))

	if b.queues.Snapshots.Len() >= b.deps.BatchSize {
		return b.flush()
	}
	return nil
}

// RecordGlobalUpdate converts and queues an id 0 update.
func (b *Backend) RecordGlobalUpdate(s *core.ObjectSnapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return fmt.Errorf("recording not started")
	}
	b.queues.GlobalUpdates.Push(convert.CoreToGlobalUpdate(b.ctx, *s))
	return nil
}

// EndRecording flushes the queues, writes tracks and warnings and marks the
// recording complete.
func (b *Backend) EndRecording(warnings []core.Warning) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return fmt.Errorf("recording not started")
	}
	if err := b.flush(); err != nil {
		return err
	}

	tracks := make([]model.ObjectTrack, 0, len(b.tracks))
	for id, snaps := range b.tracks {
		tracks = append(tracks, convert.CoreToObjectTrack(b.ctx, id, snaps))
	}
	rows := make([]model.Warning, 0, len(warnings))
	for _, w := range warnings {
		rows = append(rows, convert.CoreToWarning(b.ctx, w))
	}

	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if len(tracks) > 0 {
			if err := tx.CreateInBatches(tracks, b.deps.BatchSize).Error; err != nil {
				return fmt.Errorf("error creating object tracks: %w", err)
			}
		}
		if len(rows) > 0 {
			if err := tx.CreateInBatches(rows, b.deps.BatchSize).Error; err != nil {
				return fmt.Errorf("error creating warnings: %w", err)
			}
		}
		return tx.Model(&model.Recording{}).Where("id = ?", b.ctx.RecordingID).Updates(map[string]any{
			"frame_count":    b.frames,
			"snapshot_count": b.snapshots,
			"object_count":   uint(len(b.tracks)),
			"warning_count":  uint(len(warnings)),
			"duration":       b.lastTS - b.firstTS,
			"complete":       true,
		}).Error
	})
	if err != nil {
		return err
	}

	b.deps.Logger.Info().
		Str("recording", b.ctx.RecordingID).
		Uint("frames", b.frames).
		Uint("snapshots", b.snapshots).
		Int("warnings", len(warnings)).
		Msg("Recording complete")

	b.started = false
	b.tracks = nil
	return nil
}

// flush writes every queued row. Callers hold b.mu.
func (b *Backend) flush() error {
	db := b.deps.DB
	size := b.deps.BatchSize
	if err := writeQueue(db, b.queues.Frames, "frames", size, b.deps.Logger); err != nil {
		return err
	}
	if err := writeQueue(db, b.queues.Snapshots, "object snapshots", size, b.deps.Logger); err != nil {
		return err
	}
	return writeQueue(db, b.queues.GlobalUpdates, "global updates", size, b.deps.Logger)
}

// writeQueue writes all items from a queue to the database in a transaction.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, size int, log zerolog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain(0)
	tx := db.Begin()
	if err := tx.CreateInBatches(items, size).Error; err != nil {
		log.Error().Err(err).Str("table", name).Int("rows", len(items)).Msg("Error writing batch")
		tx.Rollback()
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("error committing %s: %w", name, err)
	}
	log.Debug().Str("table", name).Int("rows", len(items)).Msg("Wrote batch")
	return nil
}
