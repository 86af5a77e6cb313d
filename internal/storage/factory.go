package storage

import (
	"fmt"

	"github.com/OCAP2/acmi/internal/config"
	"github.com/OCAP2/acmi/internal/influx"
	gormstorage "github.com/OCAP2/acmi/internal/storage/gorm"
	"github.com/OCAP2/acmi/internal/storage/memory"
	"github.com/OCAP2/acmi/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/acmi/internal/storage/sqlite"
	"github.com/rs/zerolog"
)

// Dependencies carries the settings of backends that live outside
// storage.* in the config file.
type Dependencies struct {
	Logger zerolog.Logger
	DB     config.DBConfig
	Influx config.InfluxConfig
}

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg config.StorageConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		batch := cfg.SQLite.BatchSize
		if batch <= 0 {
			batch = gormstorage.DefaultBatchSize
		}
		return postgres.New(deps.DB, batch, deps.Logger), nil
	case "sqlite":
		return sqlitestorage.New(cfg.SQLite, deps.Logger)
	case "influx":
		return influx.New(deps.Influx, deps.Logger), nil
	case "memory", "":
		return memory.New(cfg.Memory), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
