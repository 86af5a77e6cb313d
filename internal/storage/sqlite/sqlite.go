// Package sqlitestorage implements the storage.Backend interface on SQLite.
// It wraps the GORM backend via composition. With a dump interval set, rows
// go to an in-memory database that is copied to the configured path with
// VACUUM INTO periodically and when each recording ends; otherwise the file
// is written directly.
package sqlitestorage

import (
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/acmi/internal/config"
	"github.com/OCAP2/acmi/internal/database"
	gormstorage "github.com/OCAP2/acmi/internal/storage/gorm"
	"github.com/OCAP2/acmi/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      zerolog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New opens the SQLite database described by cfg.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	path := cfg.Path
	if cfg.DumpInterval > 0 {
		path = ""
	}
	db, err := database.OpenSqlite(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{
			DB:        db,
			Logger:    log,
			BatchSize: cfg.BatchSize,
		}),
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// InMemory reports whether rows are buffered in memory between dumps.
func (b *Backend) InMemory() bool {
	return b.cfg.DumpInterval > 0
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.InMemory() && b.cfg.Path != "" {
		b.wg.Add(1)
		go b.dumpLoop()
	}
	return nil
}

// EndRecording completes the recording and, in memory mode, dumps to disk.
func (b *Backend) EndRecording(warnings []core.Warning) error {
	if err := b.Backend.EndRecording(warnings); err != nil {
		return err
	}
	return b.dump()
}

// Close stops the dump goroutine, flushes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.wg.Wait()

	if err := b.Backend.Close(); err != nil {
		return err
	}
	if err := b.dump(); err != nil {
		return err
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (b *Backend) dump() error {
	if !b.InMemory() || b.cfg.Path == "" {
		return nil
	}
	start := time.Now()
	err := b.WithLock(func(db *gorm.DB) error {
		return database.DumpToDisk(db, b.cfg.Path)
	})
	if err != nil {
		return err
	}
	b.log.Debug().Dur("duration", time.Since(start)).Str("path", b.cfg.Path).Msg("Dumped to disk")
	return nil
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.dump(); err != nil {
				b.log.Error().Err(err).Msg("Error dumping to disk")
			}
		}
	}
}
