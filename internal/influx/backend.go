package influx

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/OCAP2/acmi/internal/config"
	"github.com/OCAP2/acmi/internal/parser"
	"github.com/OCAP2/acmi/pkg/core"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// Measurement names written by the backend.
const (
	MeasurementObject    = "acmi_object"
	MeasurementEvent     = "acmi_event"
	MeasurementRecording = "acmi_recording"
)

// Backend implements storage.Backend by writing one point per snapshot and
// per event.
type Backend struct {
	manager *Manager
	cfg     config.InfluxConfig
	log     zerolog.Logger

	info   *core.RecordingInfo
	base   time.Time
	frames int
	points int
}

// New creates an InfluxDB backend. The connection is opened by StartRecording,
// so the backup file can be named after the recording.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// Init does nothing; connecting happens per recording.
func (b *Backend) Init() error {
	return nil
}

// Close releases the current connection or backup file.
func (b *Backend) Close() error {
	if b.manager == nil {
		return nil
	}
	err := b.manager.Close()
	b.manager = nil
	return err
}

// BackupPath returns the backup file in use, empty when writing to a server.
func (b *Backend) BackupPath() string {
	if b.manager == nil || b.manager.IsValid {
		return ""
	}
	return b.manager.BackupPath
}

// StartRecording connects and anchors point timestamps. Offsets are relative
// to ReferenceTime, or to the time ingestion started when it is missing.
func (b *Backend) StartRecording(info *core.RecordingInfo) error {
	if err := b.Close(); err != nil {
		return err
	}
	b.manager = NewManager(b.cfg, b.log)
	if err := b.manager.Connect(context.Background(), info.ID+".lp.gz"); err != nil {
		return fmt.Errorf("failed to connect to influx: %w", err)
	}

	b.info = info
	b.base = info.StartedAt
	if ref, ok := info.ReferenceTime(); ok {
		b.base = ref
	}
	b.frames = 0
	b.points = 0
	return nil
}

// RecordFrame writes every snapshot of a frame.
func (b *Backend) RecordFrame(f *core.Frame) error {
	if b.info == nil {
		return fmt.Errorf("recording not started")
	}
	b.frames++
	for i := range f.Objects {
		s := &f.Objects[i]
		if err := b.write(SnapshotPoint(b.info.ID, b.base, s)); err != nil {
			return err
		}
		if s.Event != nil {
			if err := b.write(EventPoint(b.info.ID, b.base, s)); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordGlobalUpdate writes the event of an id 0 update, if any.
func (b *Backend) RecordGlobalUpdate(s *core.ObjectSnapshot) error {
	if b.info == nil {
		return fmt.Errorf("recording not started")
	}
	if s.Event == nil {
		return nil
	}
	return b.write(EventPoint(b.info.ID, b.base, s))
}

// EndRecording writes a summary point and flushes.
func (b *Backend) EndRecording(warnings []core.Warning) error {
	if b.info == nil {
		return fmt.Errorf("recording not started")
	}
	p := influxdb2.NewPointWithMeasurement(MeasurementRecording).
		AddTag("recording", b.info.ID).
		AddField("name", b.info.Name).
		AddField("title", b.info.GlobalProperties.Text["Title"]).
		AddField("frames", b.frames).
		AddField("points", b.points).
		AddField("warnings", len(warnings)).
		SetTime(b.base)
	if err := b.write(p); err != nil {
		return err
	}
	if err := b.manager.Flush(); err != nil {
		return err
	}
	b.log.Info().Str("recording", b.info.ID).Int("points", b.points).Msg("Recording written to InfluxDB")
	b.info = nil
	return nil
}

func (b *Backend) write(p *influxdb2_write.Point) error {
	if err := b.manager.WritePoint(p); err != nil {
		return err
	}
	b.points++
	return nil
}

// At converts a frame offset into an absolute timestamp.
func At(base time.Time, offset float64) time.Time {
	return base.Add(time.Duration(offset * float64(time.Second)))
}

// SnapshotPoint converts one snapshot into a point. Coordinate components and
// numeric properties become fields; Name and Type become tags.
func SnapshotPoint(recordingID string, base time.Time, s *core.ObjectSnapshot) *influxdb2_write.Point {
	p := influxdb2.NewPointWithMeasurement(MeasurementObject).
		AddTag("recording", recordingID).
		AddTag("object", parser.FormatObjectID(s.ObjectID)).
		SetTime(At(base, s.TimeOffset))

	if c := s.Coordinates; c != nil {
		fields := []struct {
			name string
			v    *float64
		}{
			{"longitude", c.Longitude}, {"latitude", c.Latitude}, {"altitude", c.Altitude},
			{"roll", c.Roll}, {"pitch", c.Pitch}, {"yaw", c.Yaw},
			{"u", c.U}, {"v", c.V}, {"heading", c.Heading},
		}
		for _, f := range fields {
			if f.v != nil {
				p.AddField(f.name, *f.v)
			}
		}
	}
	if props := s.Properties; props != nil {
		for k, v := range props.Numeric {
			p.AddField(strings.ToLower(k), v)
		}
		for k, v := range props.Text {
			switch k {
			case "Name", "Type", "Coalition", "Country":
				p.AddTag(strings.ToLower(k), v)
			default:
				p.AddField(strings.ToLower(k), v)
			}
		}
	}
	// a point needs at least one field
	p.AddField("seen", true)
	return p.SortTags().SortFields()
}

// EventPoint converts the event of a snapshot into a point.
func EventPoint(recordingID string, base time.Time, s *core.ObjectSnapshot) *influxdb2_write.Point {
	related := make([]string, len(s.Event.RelatedObjectIDs))
	for i, id := range s.Event.RelatedObjectIDs {
		related[i] = parser.FormatObjectID(id)
	}
	return influxdb2.NewPointWithMeasurement(MeasurementEvent).
		AddTag("recording", recordingID).
		AddTag("type", s.Event.Type).
		AddField("object", parser.FormatObjectID(s.ObjectID)).
		AddField("related", strings.Join(related, "|")).
		AddField("text", s.Event.Text).
		SetTime(At(base, s.TimeOffset))
}
