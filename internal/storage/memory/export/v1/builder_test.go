package v1

import (
	"testing"

	"github.com/OCAP2/acmi/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func testRecording() (*core.RecordingInfo, *core.Recording) {
	info := &core.RecordingInfo{ID: "rec-1", Name: "flight.acmi"}
	rec := &core.Recording{Header: core.DefaultHeader()}
	rec.GlobalProperties.SetText("Title", "Sortie")
	rec.GlobalProperties.SetText("ReferenceTime", "2011-06-02T05:00:00Z")
	rec.GlobalProperties.SetNumeric("ReferenceLongitude", 42)

	rec.Frames = []core.Frame{
		{Timestamp: 0, Objects: []core.ObjectSnapshot{
			{ObjectID: 0x102, TimeOffset: 0,
				Coordinates: &core.Coordinates{System: core.DefaultCoordinateSystem, Longitude: f(0.1), Latitude: f(0.2), Altitude: f(300)},
				Properties:  &core.PropertyBag{Text: map[string]string{"Name": "F-16C", "Type": "Air+FixedWing"}}},
		}},
		{Timestamp: 2.5, Objects: []core.ObjectSnapshot{
			{ObjectID: 0x101, TimeOffset: 2.5,
				Properties: &core.PropertyBag{Numeric: map[string]float64{"Health": 1}}},
			{ObjectID: 0x102, TimeOffset: 2.5,
				Event: &core.Event{SourceObjectID: 0x102, Type: "Destroyed", RelatedObjectIDs: []uint64{0x101}, Text: "splash"}},
		}},
	}
	rec.GlobalUpdates = []core.ObjectSnapshot{
		{ObjectID: 0, TimeOffset: 1, Event: &core.Event{Type: "Bookmark", RelatedObjectIDs: []uint64{}, Text: "merge"}},
		{ObjectID: 0, TimeOffset: 2, Properties: &core.PropertyBag{Text: map[string]string{"Comments": "no event"}}},
	}
	return info, rec
}

func TestBuildEmptyRecording(t *testing.T) {
	export := Build(&core.RecordingInfo{ID: "empty"}, &core.Recording{Header: core.DefaultHeader()})

	assert.Equal(t, FormatVersion, export.FormatVersion)
	assert.Equal(t, "text/acmi/tacview", export.FileType)
	assert.Empty(t, export.Frames)
	assert.NotNil(t, export.Objects)
	assert.NotNil(t, export.Events)
	assert.NotNil(t, export.Warnings)
	assert.Equal(t, 0.0, export.Duration)
	assert.Empty(t, export.Properties)
}

func TestBuildMetadata(t *testing.T) {
	info, rec := testRecording()
	export := Build(info, rec)

	assert.Equal(t, "rec-1", export.ID)
	assert.Equal(t, "flight.acmi", export.Name)
	assert.Equal(t, "Sortie", export.Title)
	assert.Equal(t, "2011-06-02T05:00:00Z", export.ReferenceTime)
	assert.Equal(t, 42.0, export.Properties["ReferenceLongitude"])
	assert.Equal(t, 2.5, export.Duration)
}

func TestBuildFrames(t *testing.T) {
	info, rec := testRecording()
	export := Build(info, rec)

	require.Len(t, export.Frames, 2)
	first := export.Frames[0].Objects[0]
	require.NotNil(t, first.Transform)
	assert.Equal(t, "simple+spherical", first.Transform.System)
	assert.Equal(t, 300.0, *first.Transform.Altitude)
	assert.Nil(t, first.Transform.Roll)
	assert.Equal(t, "F-16C", first.Text["Name"])
	assert.Nil(t, first.Numeric)

	second := export.Frames[1].Objects
	require.Len(t, second, 2)
	assert.Nil(t, second[0].Transform)
	assert.Equal(t, 1.0, second[0].Numeric["Health"])
}

func TestBuildObjects(t *testing.T) {
	info, rec := testRecording()
	export := Build(info, rec)

	require.Len(t, export.Objects, 2)
	assert.Equal(t, Object{ID: 0x101, FirstSeen: 2.5, LastSeen: 2.5, Updates: 1}, export.Objects[0])
	assert.Equal(t, Object{ID: 0x102, Name: "F-16C", Type: "Air+FixedWing", FirstSeen: 0, LastSeen: 2.5, Updates: 2}, export.Objects[1])
}

func TestBuildEventsInTimeOrder(t *testing.T) {
	info, rec := testRecording()
	export := Build(info, rec)

	require.Len(t, export.Events, 2)
	assert.Equal(t, Event{Time: 1, ObjectID: 0, Type: "Bookmark", Related: []uint64{}, Text: "merge"}, export.Events[0])
	assert.Equal(t, Event{Time: 2.5, ObjectID: 0x102, Type: "Destroyed", Related: []uint64{0x101}, Text: "splash"}, export.Events[1])
}

func TestAddWarnings(t *testing.T) {
	info, rec := testRecording()
	export := Build(info, rec)
	export.AddWarnings([]core.Warning{
		{Line: 4, Kind: core.WarnTransformArity, Message: "bad transform"},
		{Line: 9, Kind: core.WarnOrphanUpdate, Message: "no frame"},
	})

	require.Len(t, export.Warnings, 2)
	assert.Equal(t, Warning{Line: 4, Kind: "transform_arity", Message: "bad transform"}, export.Warnings[0])
	assert.Equal(t, "orphan_update", export.Warnings[1].Kind)
}
