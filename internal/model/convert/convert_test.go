package convert

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/OCAP2/acmi/internal/model"
	"github.com/OCAP2/acmi/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func f(v float64) *float64 { return &v }

func testInfo() *core.RecordingInfo {
	info := &core.RecordingInfo{
		ID:     "3f0c2a58-4a8e-4d40-9b9a-0d5f6c7e8a11",
		Name:   "flight.zip.acmi",
		Entry:  "flight.acmi",
		Header: core.DefaultHeader(),
	}
	info.GlobalProperties.SetText("ReferenceTime", "2011-06-02T05:00:00Z")
	info.GlobalProperties.SetText("Title", "Sortie")
	info.GlobalProperties.SetNumeric("ReferenceLongitude", 42)
	info.GlobalProperties.SetNumeric("ReferenceLatitude", 41)
	return info
}

func TestNewContext(t *testing.T) {
	ctx := NewContext(testInfo())
	assert.Equal(t, "3f0c2a58-4a8e-4d40-9b9a-0d5f6c7e8a11", ctx.RecordingID)
	assert.Equal(t, 42.0, ctx.RefLongitude)
	assert.Equal(t, 41.0, ctx.RefLatitude)

	at := ctx.At(1.5)
	require.True(t, at.Valid)
	assert.Equal(t, time.Date(2011, 6, 2, 5, 0, 1, 500_000_000, time.UTC), at.Time)

	assert.False(t, NewContext(&core.RecordingInfo{}).At(1).Valid)
}

func TestCoreToRecording(t *testing.T) {
	rec := CoreToRecording(testInfo())

	assert.Equal(t, "3f0c2a58-4a8e-4d40-9b9a-0d5f6c7e8a11", rec.ID)
	assert.Equal(t, "flight.acmi", rec.Entry)
	assert.Equal(t, "text/acmi/tacview", rec.FileType)
	assert.Equal(t, "2.2", rec.FileVersion)
	assert.Equal(t, "Sortie", rec.Title)
	assert.True(t, rec.ReferenceTime.Valid)

	var props map[string]any
	require.NoError(t, json.Unmarshal(rec.Properties, &props))
	assert.Equal(t, "Sortie", props["Title"])
	assert.Equal(t, 42.0, props["ReferenceLongitude"])
}

func TestCoreToRecording_NoGlobals(t *testing.T) {
	rec := CoreToRecording(&core.RecordingInfo{ID: "x", Header: core.DefaultHeader()})
	assert.Equal(t, datatypes.JSON("{}"), rec.Properties)
	assert.False(t, rec.ReferenceTime.Valid)
}

func TestCoreToFrame(t *testing.T) {
	ctx := NewContext(testInfo())
	row := CoreToFrame(ctx, 3, core.Frame{Timestamp: 12.5, Objects: make([]core.ObjectSnapshot, 4)})
	assert.Equal(t, ctx.RecordingID, row.RecordingID)
	assert.Equal(t, uint(3), row.FrameIndex)
	assert.Equal(t, 12.5, row.Timestamp)
	assert.Equal(t, uint(4), row.ObjectCount)
}

func TestCoreToObjectSnapshot(t *testing.T) {
	ctx := NewContext(testInfo())
	snap := core.ObjectSnapshot{
		ObjectID:   0x40a02,
		TimeOffset: 2,
		Coordinates: &core.Coordinates{
			ObjectID:  0x40a02,
			System:    core.CoordComplex | core.CoordSpherical,
			Longitude: f(0.5),
			Latitude:  f(0.25),
			Altitude:  f(1500),
			Roll:      f(1),
			Pitch:     f(2),
			Yaw:       f(3),
		},
		Properties: &core.PropertyBag{
			Text:    map[string]string{"Name": "F-16C"},
			Numeric: map[string]float64{"IAS": 210},
		},
		Event: &core.Event{SourceObjectID: 0x40a02, Type: "Destroyed", RelatedObjectIDs: []uint64{7, 9}, Text: "kill"},
	}

	row := CoreToObjectSnapshot(ctx, 5, snap)

	assert.Equal(t, uint64(0x40a02), row.ObjectID)
	assert.Equal(t, uint(5), row.FrameIndex)
	assert.True(t, row.Time.Valid)
	assert.Equal(t, "complex+spherical", row.CoordinateSystem)
	assert.Equal(t, 0.5, *row.Longitude)
	assert.Nil(t, row.U)
	require.NotNil(t, row.Position)
	xyz, ok := row.Position.Coordinates()
	require.True(t, ok)
	assert.InDelta(t, 4731078.4, xyz.X, 1)
	assert.Equal(t, 1500.0, xyz.Z)

	assert.JSONEq(t, `{"Name":"F-16C"}`, string(row.TextProperties))
	assert.JSONEq(t, `{"IAS":210}`, string(row.NumericProperties))
	assert.True(t, row.HasEvent)
	assert.Equal(t, "Destroyed", row.EventType)
	assert.JSONEq(t, `[7,9]`, string(row.EventRelated))
}

func TestCoreToObjectSnapshot_Bare(t *testing.T) {
	row := CoreToObjectSnapshot(Context{RecordingID: "r"}, 0, core.ObjectSnapshot{ObjectID: 1})

	assert.Empty(t, row.CoordinateSystem)
	assert.Nil(t, row.Position)
	assert.False(t, row.Time.Valid)
	assert.Equal(t, datatypes.JSON("{}"), row.TextProperties)
	assert.Equal(t, datatypes.JSON("{}"), row.NumericProperties)
	assert.False(t, row.HasEvent)
	assert.Equal(t, datatypes.JSON("[]"), row.EventRelated)
}

func TestCoreToObjectSnapshot_FlatWorldHasNoPosition(t *testing.T) {
	snap := core.ObjectSnapshot{
		ObjectID:    2,
		Coordinates: &core.Coordinates{System: core.CoordComplex | core.CoordSpherical | core.CoordFlat, U: f(10), V: f(20), Heading: f(90)},
	}
	row := CoreToObjectSnapshot(Context{}, 0, snap)
	assert.Nil(t, row.Position)
	assert.Equal(t, 10.0, *row.U)
}

func TestCoreToGlobalUpdate(t *testing.T) {
	ctx := NewContext(testInfo())
	snap := core.ObjectSnapshot{
		TimeOffset: 30,
		Properties: &core.PropertyBag{Text: map[string]string{"Comments": "bingo fuel"}},
		Event:      &core.Event{Type: "Bookmark", RelatedObjectIDs: []uint64{}, Text: "merge"},
	}
	row := CoreToGlobalUpdate(ctx, snap)

	assert.Equal(t, 30.0, row.TimeOffset)
	assert.JSONEq(t, `{"Comments":"bingo fuel"}`, string(row.Properties))
	assert.Equal(t, "Bookmark", row.EventType)
	assert.Equal(t, "merge", row.EventText)
	assert.JSONEq(t, `[]`, string(row.EventRelated))
}

func TestCoreToWarning(t *testing.T) {
	row := CoreToWarning(Context{RecordingID: "r"}, core.Warning{Line: 9, Kind: core.WarnTransformArity, Message: "bad"})
	assert.Equal(t, "r", row.RecordingID)
	assert.Equal(t, 9, row.Line)
	assert.Equal(t, "transform_arity", row.Kind)
}

func TestCoreToObjectTrack(t *testing.T) {
	ctx := NewContext(testInfo())
	snaps := []core.ObjectSnapshot{
		{ObjectID: 7, TimeOffset: 0, Properties: &core.PropertyBag{Text: map[string]string{"Name": "Viper", "Type": "Air+FixedWing"}},
			Coordinates: &core.Coordinates{Longitude: f(0), Latitude: f(0), Altitude: f(100)}},
		{ObjectID: 7, TimeOffset: 1, Coordinates: &core.Coordinates{Altitude: f(200)}},
		{ObjectID: 7, TimeOffset: 2, Properties: &core.PropertyBag{Text: map[string]string{"Name": "Viper 1-1"}},
			Coordinates: &core.Coordinates{Longitude: f(0.1)}},
	}

	track := CoreToObjectTrack(ctx, 7, snaps)

	assert.Equal(t, "Viper 1-1", track.Name)
	assert.Equal(t, "Air+FixedWing", track.Type)
	assert.Equal(t, 0.0, track.FirstSeen)
	assert.Equal(t, 2.0, track.LastSeen)
	assert.Equal(t, uint(3), track.Snapshots)
	assert.Equal(t, 3, track.Path.Coordinates().Length())
	assert.Equal(t, 0.0, *snaps[0].Coordinates.Longitude, "input snapshots must not be shifted")
}

func TestCoreToObjectTrack_Empty(t *testing.T) {
	track := CoreToObjectTrack(Context{RecordingID: "r"}, 1, nil)
	assert.Equal(t, uint(0), track.Snapshots)
	assert.True(t, track.Path.IsEmpty())
}

// Round-trip: Core → GORM → Core
func TestObjectSnapshotRoundTrip(t *testing.T) {
	ctx := NewContext(testInfo())
	original := core.ObjectSnapshot{
		ObjectID:   0xff,
		TimeOffset: 4.25,
		Coordinates: &core.Coordinates{
			ObjectID:  0xff,
			System:    core.DefaultCoordinateSystem,
			Longitude: f(0.5),
			Latitude:  f(0.25),
			Altitude:  f(10),
		},
		Properties: &core.PropertyBag{
			Text:    map[string]string{"Name": "Tank"},
			Numeric: map[string]float64{"Health": 0.5},
		},
		Event: &core.Event{SourceObjectID: 0xff, Type: "", RelatedObjectIDs: []uint64{}, Text: ""},
	}

	got, err := ObjectSnapshotToCore(CoreToObjectSnapshot(ctx, 1, original))
	require.NoError(t, err)
	assert.Equal(t, original, got)
}

func TestObjectSnapshotToCore_OnlyID(t *testing.T) {
	got, err := ObjectSnapshotToCore(CoreToObjectSnapshot(Context{}, 0, core.ObjectSnapshot{ObjectID: 3, TimeOffset: 1}))
	require.NoError(t, err)
	assert.Equal(t, core.ObjectSnapshot{ObjectID: 3, TimeOffset: 1}, got)
}

func TestObjectSnapshotToCore_BadJSON(t *testing.T) {
	row := CoreToObjectSnapshot(Context{}, 0, core.ObjectSnapshot{ObjectID: 3})
	row.NumericProperties = datatypes.JSON(`{"Health":"x"}`)

	_, err := ObjectSnapshotToCore(row)
	assert.ErrorContains(t, err, "numeric properties of object 3")
}

func TestRecordingToCore(t *testing.T) {
	header, props, err := RecordingToCore(CoreToRecording(testInfo()))
	require.NoError(t, err)
	assert.Equal(t, core.DefaultHeader(), header)
	assert.Equal(t, "Sortie", props.Text["Title"])
	assert.Equal(t, 42.0, props.Numeric["ReferenceLongitude"])
	assert.Equal(t, 4, props.Len())

	_, _, err = RecordingToCore(model.Recording{ID: "bad", Properties: datatypes.JSON("[")})
	assert.ErrorContains(t, err, "properties of recording bad")
}

func TestGlobalUpdateToCore(t *testing.T) {
	original := core.ObjectSnapshot{
		TimeOffset: 12,
		Properties: &core.PropertyBag{Text: map[string]string{"Briefing": "cap north"}},
		Event:      &core.Event{Type: "Message", RelatedObjectIDs: []uint64{5}, Text: "push"},
	}
	got, err := GlobalUpdateToCore(CoreToGlobalUpdate(Context{}, original))
	require.NoError(t, err)
	assert.Equal(t, original, got)

	bare, err := GlobalUpdateToCore(CoreToGlobalUpdate(Context{}, core.ObjectSnapshot{TimeOffset: 1}))
	require.NoError(t, err)
	assert.Equal(t, core.ObjectSnapshot{TimeOffset: 1}, bare)
}
