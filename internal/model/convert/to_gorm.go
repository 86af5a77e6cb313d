// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/OCAP2/acmi/internal/geo"
	"github.com/OCAP2/acmi/internal/model"
	"github.com/OCAP2/acmi/pkg/core"
	"gorm.io/datatypes"
)

// Context carries the recording-wide values snapshots are resolved against.
type Context struct {
	RecordingID   string
	ReferenceTime time.Time // zero when the recording has none
	RefLongitude  float64
	RefLatitude   float64
}

// NewContext reads the reference time and position from a recording's
// global properties.
func NewContext(info *core.RecordingInfo) Context {
	ctx := Context{RecordingID: info.ID}
	if t, ok := info.ReferenceTime(); ok {
		ctx.ReferenceTime = t
	}
	ctx.RefLongitude = info.GlobalProperties.Numeric["ReferenceLongitude"]
	ctx.RefLatitude = info.GlobalProperties.Numeric["ReferenceLatitude"]
	return ctx
}

// At returns the absolute time of an offset, invalid when no reference time is known.
func (c Context) At(offset float64) sql.NullTime {
	if c.ReferenceTime.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{
		Time:  c.ReferenceTime.Add(time.Duration(offset * float64(time.Second))),
		Valid: true,
	}
}

// toJSON marshals v for a JSON column, falling back to empty.
func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// propertiesToJSON flattens both maps of a bag into one JSON object.
func propertiesToJSON(p *core.PropertyBag) datatypes.JSON {
	if p == nil || p.Len() == 0 {
		return datatypes.JSON("{}")
	}
	flat := make(map[string]any, p.Len())
	for k, v := range p.Text {
		flat[k] = v
	}
	for k, v := range p.Numeric {
		flat[k] = v
	}
	return toJSON(flat, "{}")
}

// CoreToRecording converts a core.RecordingInfo to a GORM model.Recording.
// Counters are filled in when the recording ends.
func CoreToRecording(info *core.RecordingInfo) model.Recording {
	rec := model.Recording{
		ID:          info.ID,
		Name:        info.Name,
		Entry:       info.Entry,
		FileType:    info.Header.FileType,
		FileVersion: info.Header.FileVersion,
		Title:       info.GlobalProperties.Text["Title"],
		Properties:  propertiesToJSON(&info.GlobalProperties),
	}
	if t, ok := info.ReferenceTime(); ok {
		rec.ReferenceTime = sql.NullTime{Time: t, Valid: true}
	}
	return rec
}

// CoreToFrame converts a core.Frame to a GORM model.Frame.
func CoreToFrame(ctx Context, index uint, f core.Frame) model.Frame {
	return model.Frame{
		RecordingID: ctx.RecordingID,
		FrameIndex:  index,
		Timestamp:   f.Timestamp,
		ObjectCount: uint(len(f.Objects)),
	}
}

// CoreToObjectSnapshot converts a core.ObjectSnapshot to a GORM model.ObjectSnapshot.
// Coordinate columns keep the values as written; Position is absolute and projected.
func CoreToObjectSnapshot(ctx Context, frameIndex uint, s core.ObjectSnapshot) model.ObjectSnapshot {
	row := model.ObjectSnapshot{
		RecordingID: ctx.RecordingID,
		ObjectID:    s.ObjectID,
		FrameIndex:  frameIndex,
		TimeOffset:  s.TimeOffset,
		Time:        ctx.At(s.TimeOffset),
	}

	if c := s.Coordinates; c != nil {
		row.CoordinateSystem = c.System.String()
		row.Longitude = c.Longitude
		row.Latitude = c.Latitude
		row.Altitude = c.Altitude
		row.Roll = c.Roll
		row.Pitch = c.Pitch
		row.Yaw = c.Yaw
		row.U = c.U
		row.V = c.V
		row.Heading = c.Heading
		if pt, err := geo.Point3857(geo.Absolute(c, ctx.RefLongitude, ctx.RefLatitude)); err == nil {
			row.Position = &pt
		}
	}

	if p := s.Properties; p != nil {
		row.TextProperties = toJSON(p.Text, "{}")
		row.NumericProperties = toJSON(p.Numeric, "{}")
	} else {
		row.TextProperties = datatypes.JSON("{}")
		row.NumericProperties = datatypes.JSON("{}")
	}

	row.EventRelated = datatypes.JSON("[]")
	if e := s.Event; e != nil {
		row.HasEvent = true
		row.EventType = e.Type
		row.EventText = e.Text
		row.EventRelated = toJSON(e.RelatedObjectIDs, "[]")
	}
	return row
}

// CoreToGlobalUpdate converts an id 0 snapshot to a GORM model.GlobalUpdate.
func CoreToGlobalUpdate(ctx Context, s core.ObjectSnapshot) model.GlobalUpdate {
	row := model.GlobalUpdate{
		RecordingID:  ctx.RecordingID,
		TimeOffset:   s.TimeOffset,
		Time:         ctx.At(s.TimeOffset),
		Properties:   propertiesToJSON(s.Properties),
		EventRelated: datatypes.JSON("[]"),
	}
	if e := s.Event; e != nil {
		row.EventType = e.Type
		row.EventText = e.Text
		row.EventRelated = toJSON(e.RelatedObjectIDs, "[]")
	}
	return row
}

// CoreToWarning converts a core.Warning to a GORM model.Warning.
func CoreToWarning(ctx Context, w core.Warning) model.Warning {
	return model.Warning{
		RecordingID: ctx.RecordingID,
		Line:        w.Line,
		Kind:        string(w.Kind),
		Message:     w.Message,
	}
}

// CoreToObjectTrack summarizes every snapshot of one object, in frame order,
// as a GORM model.ObjectTrack. The latest Name and Type text properties win.
func CoreToObjectTrack(ctx Context, objectID uint64, snaps []core.ObjectSnapshot) model.ObjectTrack {
	track := model.ObjectTrack{
		RecordingID: ctx.RecordingID,
		ObjectID:    objectID,
		Snapshots:   uint(len(snaps)),
	}
	if len(snaps) == 0 {
		return track
	}
	track.FirstSeen = snaps[0].TimeOffset
	track.LastSeen = snaps[len(snaps)-1].TimeOffset

	absolute := make([]core.ObjectSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if p := s.Properties; p != nil {
			if name, ok := p.Text["Name"]; ok {
				track.Name = name
			}
			if typ, ok := p.Text["Type"]; ok {
				track.Type = typ
			}
		}
		s.Coordinates = geo.Absolute(s.Coordinates, ctx.RefLongitude, ctx.RefLatitude)
		absolute = append(absolute, s)
	}
	track.Path = geo.Track(absolute)
	return track
}
