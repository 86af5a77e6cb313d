package parser

import (
	"errors"
	"testing"

	"github.com/OCAP2/acmi/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestSplitPayload_Escaping(t *testing.T) {
	for _, h := range []Helper{ReferenceHelper{}, FastHelper{}} {
		p := NewParser(nil, h)
		assert.Equal(t, []string{`A=1\,2`, "B=3"}, p.SplitPayload(`A=1\,2,B=3`))
		assert.Equal(t, []string{""}, p.SplitPayload(""))
		assert.Equal(t, []string{"", "A=1", ""}, p.SplitPayload(",A=1,"))
	}
}

func TestDecodeTransform(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name      string
		value     string
		want      core.Coordinates
		wantIssue bool
	}{
		{
			name:  "simple spherical",
			value: "41.5|42.25|1000",
			want: core.Coordinates{
				ObjectID: 7, System: core.CoordSimple | core.CoordSpherical,
				Longitude: ptr(41.5), Latitude: ptr(42.25), Altitude: ptr(1000),
			},
		},
		{
			name:  "simple flat",
			value: "1|2|3|4|5",
			want: core.Coordinates{
				ObjectID: 7, System: core.CoordSimple | core.CoordSpherical | core.CoordFlat,
				Longitude: ptr(1), Latitude: ptr(2), Altitude: ptr(3), U: ptr(4), V: ptr(5),
			},
		},
		{
			name:  "complex spherical",
			value: "1|2|3|4|5|6",
			want: core.Coordinates{
				ObjectID: 7, System: core.CoordComplex | core.CoordSpherical,
				Longitude: ptr(1), Latitude: ptr(2), Altitude: ptr(3),
				Roll: ptr(4), Pitch: ptr(5), Yaw: ptr(6),
			},
		},
		{
			name:  "complex flat",
			value: "1|2|3|4|5|6|7|8|9",
			want: core.Coordinates{
				ObjectID: 7, System: core.CoordComplex | core.CoordSpherical | core.CoordFlat,
				Longitude: ptr(1), Latitude: ptr(2), Altitude: ptr(3),
				Roll: ptr(4), Pitch: ptr(5), Yaw: ptr(6),
				U: ptr(7), V: ptr(8), Heading: ptr(9),
			},
		},
		{
			name:  "unchanged components stay nil",
			value: "|42|",
			want: core.Coordinates{
				ObjectID: 7, System: core.CoordSimple | core.CoordSpherical,
				Latitude: ptr(42),
			},
		},
		{
			name:      "four components",
			value:     "1|2|3|4",
			want:      core.Coordinates{ObjectID: 7, System: core.DefaultCoordinateSystem},
			wantIssue: true,
		},
		{
			name:      "single component",
			value:     "1",
			want:      core.Coordinates{ObjectID: 7, System: core.DefaultCoordinateSystem},
			wantIssue: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issue := p.DecodeTransform(7, tt.value)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			if tt.wantIssue {
				require.NotNil(t, issue)
				assert.Equal(t, core.WarnTransformArity, issue.Kind)
				assert.True(t, got.IsEmpty())
			} else {
				assert.Nil(t, issue)
			}
		})
	}
}

func TestDecodeEvent(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name       string
		value      string
		want       core.Event
		wantIssues int
	}{
		{
			name:  "message",
			value: "Message|705|Maverick has violated ATC directives",
			want: core.Event{SourceObjectID: 1, Type: "Message",
				RelatedObjectIDs: []uint64{0x705}, Text: "Maverick has violated ATC directives"},
		},
		{
			name:  "bookmark without ids",
			value: "Bookmark|Starting precautionary landing practice",
			want: core.Event{SourceObjectID: 1, Type: "Bookmark",
				RelatedObjectIDs: []uint64{}, Text: "Starting precautionary landing practice"},
		},
		{
			name:  "multiple ids with blanks",
			value: "LeftArea|1a||2b|",
			want: core.Event{SourceObjectID: 1, Type: "LeftArea",
				RelatedObjectIDs: []uint64{0x1a, 0x2b}, Text: ""},
		},
		{
			name:       "bad id skipped",
			value:      "Destroyed|zz|3|boom",
			want:       core.Event{SourceObjectID: 1, Type: "Destroyed", RelatedObjectIDs: []uint64{3}, Text: "boom"},
			wantIssues: 1,
		},
		{
			name:  "single segment",
			value: "Timeout",
			want:  core.Event{SourceObjectID: 1, RelatedObjectIDs: []uint64{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, issues := p.DecodeEvent(1, tt.value)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
			assert.Len(t, issues, tt.wantIssues)
		})
	}
}

func TestDecodeObject(t *testing.T) {
	p := newTestParser()

	d, err := p.DecodeObject(0x102, `T=1|2|3,Name=F-16C,Health=0.5,Pilot=Viper\, Jr.,Custom=12,Event=Message|102|hi`)
	require.NoError(t, err)
	require.NotNil(t, d.Coordinates)
	require.NotNil(t, d.Properties)
	require.NotNil(t, d.Event)
	assert.Empty(t, d.Issues)

	assert.Equal(t, 1.0, *d.Coordinates.Longitude)
	assert.Equal(t, map[string]string{
		"Name":   "F-16C",
		"Pilot":  `Viper\, Jr.`,
		"Custom": "12",
	}, d.Properties.Text)
	assert.Equal(t, map[string]float64{"Health": 0.5}, d.Properties.Numeric)
	assert.Equal(t, "Message", d.Event.Type)
	assert.Equal(t, []uint64{0x102}, d.Event.RelatedObjectIDs)
}

func TestDecodeObject_OnlyPresentParts(t *testing.T) {
	p := newTestParser()

	d, err := p.DecodeObject(1, "T=1|2|3")
	require.NoError(t, err)
	assert.NotNil(t, d.Coordinates)
	assert.Nil(t, d.Properties)
	assert.Nil(t, d.Event)

	d, err = p.DecodeObject(1, "Name=A")
	require.NoError(t, err)
	assert.Nil(t, d.Coordinates)
	assert.NotNil(t, d.Properties)

	d, err = p.DecodeObject(1, "")
	require.NoError(t, err)
	assert.Equal(t, Decoded{}, d)
}

func TestDecodeObject_MalformedSegment(t *testing.T) {
	p := newTestParser()

	d, err := p.DecodeObject(1, "Name=A,garbage,T=1|2")
	require.NoError(t, err)
	require.Len(t, d.Issues, 2)
	assert.Equal(t, core.WarnMalformedSegment, d.Issues[0].Kind)
	assert.Equal(t, core.WarnTransformArity, d.Issues[1].Kind)
	assert.Equal(t, "A", d.Properties.Text["Name"])
}

func TestDecodeObject_SchemaViolation(t *testing.T) {
	p := newTestParser()

	_, err := p.DecodeObject(0x2a, "Name=A,Health=abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaViolation))

	var sv *SchemaViolation
	require.True(t, errors.As(err, &sv))
	assert.Equal(t, uint64(0x2a), sv.ObjectID)
	assert.Equal(t, "Health", sv.Key)
	assert.Equal(t, "abc", sv.Value)
	assert.Contains(t, err.Error(), "Health")

	sv.Line = 12
	assert.Contains(t, sv.Error(), "line 12")
}

func TestDecodeObject_UnknownNumericLookingKeyIsText(t *testing.T) {
	p := newTestParser()

	d, err := p.DecodeObject(1, "Callsign2=123")
	require.NoError(t, err)
	assert.Equal(t, "123", d.Properties.Text["Callsign2"])
	assert.Empty(t, d.Properties.Numeric)
}

func TestDecodeGlobal(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name    string
		payload string
		wantOK  bool
		want    core.PropertyBag
		wantErr bool
	}{
		{
			name:    "text",
			payload: "DataSource=DCS 2.9",
			wantOK:  true,
			want:    core.PropertyBag{Text: map[string]string{"DataSource": "DCS 2.9"}},
		},
		{
			name:    "numeric",
			payload: "ReferenceLongitude=10",
			wantOK:  true,
			want:    core.PropertyBag{Numeric: map[string]float64{"ReferenceLongitude": 10}},
		},
		{
			name:    "mixed line",
			payload: "ReferenceLatitude=-5.5,Title=Test",
			wantOK:  true,
			want: core.PropertyBag{
				Text:    map[string]string{"Title": "Test"},
				Numeric: map[string]float64{"ReferenceLatitude": -5.5},
			},
		},
		{name: "unknown key", payload: "UnknownKey=Y"},
		{name: "one unknown key", payload: "Title=A,Name=B"},
		{name: "empty", payload: ""},
		{name: "malformed", payload: "Title"},
		{name: "bad numeric", payload: "ReferenceLongitude=east", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := p.DecodeGlobal(tt.payload)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrSchemaViolation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
