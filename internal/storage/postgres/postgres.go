// Package postgres implements the storage.Backend interface on PostgreSQL by
// wrapping the GORM backend with a managed connection.
package postgres

import (
	"fmt"

	"github.com/OCAP2/acmi/internal/config"
	"github.com/OCAP2/acmi/internal/database"
	gormstorage "github.com/OCAP2/acmi/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend is the GORM backend bound to a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
	cfg     config.DBConfig
	batch   int
	log     zerolog.Logger
}

// New creates a Postgres backend. The connection is opened by Init.
func New(cfg config.DBConfig, batchSize int, log zerolog.Logger) *Backend {
	return &Backend{
		manager: database.NewManager(log),
		cfg:     cfg,
		batch:   batchSize,
		log:     log,
	}
}

// Init connects, then migrates the schema through the GORM backend.
func (b *Backend) Init() error {
	if err := b.manager.ConnectPostgres(b.cfg); err != nil {
		return err
	}
	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:        b.manager.DB,
		Logger:    b.log,
		BatchSize: b.batch,
	})
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	return nil
}

// Close flushes pending rows and closes the connection pool.
func (b *Backend) Close() error {
	if b.Backend != nil {
		if err := b.Backend.Close(); err != nil {
			return err
		}
	}
	return b.manager.Close()
}
