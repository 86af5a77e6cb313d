package index

import (
	"strconv"
	"strings"

	"github.com/OCAP2/acmi/pkg/core"
)

// Column name prefixes and fixed columns.
const (
	ColumnObjectID   = "object_id"
	ColumnTimeOffset = "time_offset"

	prefixCoordinates = "coordinates."
	prefixText        = "properties.text."
	prefixNumeric     = "properties.numeric."
	prefixEvent       = "event."
)

// Value is one cell of a flattened snapshot. Valid is false when the
// snapshot does not carry the column.
type Value struct {
	Text  string
	Valid bool
}

// accessor reads one flattened column from a snapshot.
type accessor func(s *core.ObjectSnapshot) Value

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func floatValue(v *float64) Value {
	if v == nil {
		return Value{}
	}
	return Value{Text: formatFloat(*v), Valid: true}
}

func coordinate(get func(c *core.Coordinates) *float64) accessor {
	return func(s *core.ObjectSnapshot) Value {
		if s.Coordinates == nil {
			return Value{}
		}
		return floatValue(get(s.Coordinates))
	}
}

func event(get func(e *core.Event) string) accessor {
	return func(s *core.ObjectSnapshot) Value {
		if s.Event == nil {
			return Value{}
		}
		return Value{Text: get(s.Event), Valid: true}
	}
}

// fixedColumns maps every non-property column to its accessor.
var fixedColumns = map[string]accessor{
	ColumnObjectID: func(s *core.ObjectSnapshot) Value {
		return Value{Text: strconv.FormatUint(s.ObjectID, 10), Valid: true}
	},
	ColumnTimeOffset: func(s *core.ObjectSnapshot) Value {
		return Value{Text: formatFloat(s.TimeOffset), Valid: true}
	},

	"coordinates.system": func(s *core.ObjectSnapshot) Value {
		if s.Coordinates == nil {
			return Value{}
		}
		return Value{Text: s.Coordinates.System.String(), Valid: true}
	},
	"coordinates.longitude": coordinate(func(c *core.Coordinates) *float64 { return c.Longitude }),
	"coordinates.latitude":  coordinate(func(c *core.Coordinates) *float64 { return c.Latitude }),
	"coordinates.altitude":  coordinate(func(c *core.Coordinates) *float64 { return c.Altitude }),
	"coordinates.roll":      coordinate(func(c *core.Coordinates) *float64 { return c.Roll }),
	"coordinates.pitch":     coordinate(func(c *core.Coordinates) *float64 { return c.Pitch }),
	"coordinates.yaw":       coordinate(func(c *core.Coordinates) *float64 { return c.Yaw }),
	"coordinates.u":         coordinate(func(c *core.Coordinates) *float64 { return c.U }),
	"coordinates.v":         coordinate(func(c *core.Coordinates) *float64 { return c.V }),
	"coordinates.heading":   coordinate(func(c *core.Coordinates) *float64 { return c.Heading }),

	"event.type": event(func(e *core.Event) string { return e.Type }),
	"event.text": event(func(e *core.Event) string { return e.Text }),
	"event.related_object_ids": event(func(e *core.Event) string {
		ids := make([]string, len(e.RelatedObjectIDs))
		for i, id := range e.RelatedObjectIDs {
			ids[i] = strconv.FormatUint(id, 10)
		}
		return strings.Join(ids, "|")
	}),
}

// lookup resolves a column name to its accessor.
func lookup(name string) (accessor, bool) {
	if a, ok := fixedColumns[name]; ok {
		return a, true
	}
	if key, ok := strings.CutPrefix(name, prefixText); ok && key != "" {
		return func(s *core.ObjectSnapshot) Value {
			if s.Properties == nil {
				return Value{}
			}
			v, ok := s.Properties.Text[key]
			return Value{Text: v, Valid: ok}
		}, true
	}
	if key, ok := strings.CutPrefix(name, prefixNumeric); ok && key != "" {
		return func(s *core.ObjectSnapshot) Value {
			if s.Properties == nil {
				return Value{}
			}
			v, ok := s.Properties.Numeric[key]
			if !ok {
				return Value{}
			}
			return Value{Text: formatFloat(v), Valid: true}
		}, true
	}
	return nil, false
}

// observed lists the columns a snapshot populates, object_id and
// time_offset excluded.
func observed(s *core.ObjectSnapshot, add func(string)) {
	if c := s.Coordinates; c != nil {
		add("coordinates.system")
		for name, v := range map[string]*float64{
			"coordinates.longitude": c.Longitude,
			"coordinates.latitude":  c.Latitude,
			"coordinates.altitude":  c.Altitude,
			"coordinates.roll":      c.Roll,
			"coordinates.pitch":     c.Pitch,
			"coordinates.yaw":       c.Yaw,
			"coordinates.u":         c.U,
			"coordinates.v":         c.V,
			"coordinates.heading":   c.Heading,
		} {
			if v != nil {
				add(name)
			}
		}
	}
	if p := s.Properties; p != nil {
		for k := range p.Text {
			add(prefixText + k)
		}
		for k := range p.Numeric {
			add(prefixNumeric + k)
		}
	}
	if s.Event != nil {
		add("event.type")
		add("event.text")
		add("event.related_object_ids")
	}
}
