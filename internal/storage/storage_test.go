package storage_test

import (
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/OCAP2/acmi/internal/config"
	"github.com/OCAP2/acmi/internal/database"
	"github.com/OCAP2/acmi/internal/influx"
	"github.com/OCAP2/acmi/internal/storage"
	gormstorage "github.com/OCAP2/acmi/internal/storage/gorm"
	"github.com/OCAP2/acmi/internal/storage/memory"
	"github.com/OCAP2/acmi/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/acmi/internal/storage/sqlite"
	"github.com/OCAP2/acmi/internal/timeline"
	"github.com/OCAP2/acmi/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ storage.Backend    = (*memory.Backend)(nil)
	_ storage.Uploadable = (*memory.Backend)(nil)
	_ storage.Backend    = (*gormstorage.Backend)(nil)
	_ storage.Backend    = (*sqlitestorage.Backend)(nil)
	_ storage.Backend    = (*postgres.Backend)(nil)
	_ storage.Backend    = (*influx.Backend)(nil)
)

const sortie = `FileType=text/acmi/tacview
FileVersion=2.2
0,ReferenceTime=2011-06-02T05:00:00Z
0,ReferenceLongitude=42
0,ReferenceLatitude=41
#0
101,T=0.1|0.2|1000,Name=F-16C,Type=Air+FixedWing
102,T=0.3|0.4|0,Name=SA-11
0,Event=Bookmark|Takeoff
#1.5
101,T=0.11|0.21|1100,IAS=240
bogus line
#3
102,Event=Destroyed|102|101|splash
-102`

func lines(text string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for _, l := range strings.Split(text, "\n") {
			if !yield(l, nil) {
				return
			}
		}
	}
}

// recorder notes the order backend calls arrive in.
type recorder struct {
	calls    []string
	info     *core.RecordingInfo
	frames   []core.Frame
	updates  []core.ObjectSnapshot
	warnings []core.Warning
	failOn   string
}

func (r *recorder) note(call string) error {
	r.calls = append(r.calls, call)
	if call == r.failOn {
		return errors.New("backend failure")
	}
	return nil
}

func (r *recorder) Init() error  { return r.note("init") }
func (r *recorder) Close() error { return r.note("close") }

func (r *recorder) StartRecording(info *core.RecordingInfo) error {
	r.info = info
	return r.note("start")
}

func (r *recorder) RecordFrame(f *core.Frame) error {
	r.frames = append(r.frames, *f)
	return r.note("frame")
}

func (r *recorder) RecordGlobalUpdate(s *core.ObjectSnapshot) error {
	r.updates = append(r.updates, *s)
	return r.note("update")
}

func (r *recorder) EndRecording(warnings []core.Warning) error {
	r.warnings = warnings
	return r.note("end")
}

func TestIngestCallOrder(t *testing.T) {
	r := &recorder{}
	res, err := storage.Ingest(context.Background(), r, "sortie.acmi", "", lines(sortie))
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "update", "frame", "frame", "frame", "end"}, r.calls)
	assert.Equal(t, 3, res.Frames)
	assert.Equal(t, 4, res.Snapshots)
	assert.Equal(t, 1, res.GlobalUpdates)
	assert.Equal(t, 3.0, res.Duration)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, core.WarnUnrecognizedLine, res.Warnings[0].Kind)
	assert.Equal(t, res.Warnings, r.warnings)

	require.NotNil(t, r.info)
	assert.Same(t, res.Info, r.info)
	assert.NotEmpty(t, r.info.ID)
	assert.Equal(t, "sortie.acmi", r.info.Name)
	assert.Equal(t, core.DefaultHeader(), r.info.Header)
	assert.Equal(t, 42.0, r.info.GlobalProperties.Numeric["ReferenceLongitude"])
	assert.False(t, r.info.StartedAt.IsZero())

	require.Len(t, r.updates, 1)
	assert.Equal(t, "Bookmark", r.updates[0].Event.Type)
}

func TestIngestEmptyInput(t *testing.T) {
	r := &recorder{}
	res, err := storage.Ingest(context.Background(), r, "empty.acmi", "", lines(""))
	require.NoError(t, err)
	assert.Equal(t, []string{"start", "end"}, r.calls)
	assert.Equal(t, 0, res.Frames)
	assert.Equal(t, core.DefaultHeader(), r.info.Header)
}

func TestIngestErrors(t *testing.T) {
	t.Run("backend", func(t *testing.T) {
		for _, call := range []string{"start", "update", "frame", "end"} {
			r := &recorder{failOn: call}
			_, err := storage.Ingest(context.Background(), r, "sortie.acmi", "", lines(sortie))
			assert.Error(t, err, call)
		}
	})

	t.Run("read", func(t *testing.T) {
		failing := func(yield func(string, error) bool) {
			if !yield("#0", nil) {
				return
			}
			yield("", errors.New("disk gone"))
		}
		r := &recorder{}
		_, err := storage.Ingest(context.Background(), r, "sortie.acmi", "", failing)
		assert.ErrorContains(t, err, "disk gone")
		assert.NotContains(t, r.calls, "end")
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		r := &recorder{}
		_, err := storage.Ingest(ctx, r, "sortie.acmi", "", lines(sortie))
		assert.ErrorIs(t, err, context.Canceled)
		assert.NotContains(t, r.calls, "end")
	})
}

func TestIngestIntoMemory(t *testing.T) {
	b := memory.New(config.MemoryConfig{OutputDir: t.TempDir(), Format: "json"})
	require.NoError(t, b.Init())

	_, err := storage.Ingest(context.Background(), b, "sortie.acmi", "", lines(sortie),
		timeline.WithCarryForward(false))
	require.NoError(t, err)

	rec := b.Recording()
	require.NotNil(t, rec)
	assert.Len(t, rec.Frames, 3)
	assert.Len(t, rec.GlobalUpdates, 1)
	assert.FileExists(t, b.GetExportedFilePath())
}

func TestIngestIntoSqlite(t *testing.T) {
	db, err := database.OpenSqlite("")
	require.NoError(t, err)
	b := gormstorage.New(gormstorage.Dependencies{DB: db, Logger: zerolog.Nop(), BatchSize: 2})
	require.NoError(t, b.Init())
	defer b.Close()

	res, err := storage.Ingest(context.Background(), b, "sortie.acmi", "", lines(sortie))
	require.NoError(t, err)

	rec, err := gormstorage.Load(db, res.Info.ID)
	require.NoError(t, err)
	require.Len(t, rec.Frames, 3)
	assert.Len(t, rec.Frames[0].Objects, 2)
	assert.Equal(t, 1.5, rec.Frames[1].Timestamp)
	require.Len(t, rec.GlobalUpdates, 1)
	assert.Equal(t, "Bookmark", rec.GlobalUpdates[0].Event.Type)

	recordings, err := gormstorage.ListRecordings(db)
	require.NoError(t, err)
	require.Len(t, recordings, 1)
	assert.True(t, recordings[0].Complete)
	assert.Equal(t, uint(1), recordings[0].WarningCount)
}

func TestNewBackend(t *testing.T) {
	deps := storage.Dependencies{Logger: zerolog.Nop()}

	tests := []struct {
		name    string
		cfg     config.StorageConfig
		want    any
		wantErr string
	}{
		{"memory", config.StorageConfig{Type: "memory"}, &memory.Backend{}, ""},
		{"default", config.StorageConfig{}, &memory.Backend{}, ""},
		{"sqlite", config.StorageConfig{Type: "sqlite", SQLite: config.SQLiteConfig{Path: t.TempDir() + "/acmi.db"}}, &sqlitestorage.Backend{}, ""},
		{"postgres", config.StorageConfig{Type: "postgres"}, &postgres.Backend{}, ""},
		{"influx", config.StorageConfig{Type: "influx"}, &influx.Backend{}, ""},
		{"unknown", config.StorageConfig{Type: "mongo"}, nil, "unknown storage type: mongo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := storage.NewBackend(tt.cfg, deps)
			if tt.wantErr != "" {
				assert.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, b)
			if s, ok := b.(*sqlitestorage.Backend); ok {
				require.NoError(t, s.Init())
				require.NoError(t, s.Close())
			}
		})
	}
}
