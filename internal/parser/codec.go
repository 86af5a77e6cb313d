package parser

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/OCAP2/acmi/internal/registry"
	"github.com/OCAP2/acmi/pkg/core"
)

// Issue is a non-fatal decode problem; the caller attaches the line number.
type Issue struct {
	Kind    core.WarningKind
	Message string
}

// Decoded is everything carried by one object update payload.
// Nil parts were absent from the line.
type Decoded struct {
	Coordinates *core.Coordinates
	Properties  *core.PropertyBag
	Event       *core.Event
	Issues      []Issue
}

// Parser decodes update payloads into model structs.
// It holds no per-recording state and is safe for concurrent use.
type Parser struct {
	logger *slog.Logger
	helper Helper
}

// NewParser creates a parser. A nil logger falls back to slog.Default and a
// nil helper to ReferenceHelper.
func NewParser(logger *slog.Logger, helper Helper) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	if helper == nil {
		helper = ReferenceHelper{}
	}
	return &Parser{
		logger: logger,
		helper: helper,
	}
}

// segment is one key=value pair of a payload.
type segment struct {
	key   string
	value string
}

// SplitPayload splits a payload on unescaped commas. Escaped commas stay in
// the segment text as written.
func (p *Parser) SplitPayload(payload string) []string {
	return p.helper.SplitEscaped(payload)
}

// segments splits a payload and cuts each piece on its first '='.
// Blank pieces are dropped; pieces without '=' are reported.
func (p *Parser) segments(payload string) ([]segment, []Issue) {
	var (
		out    []segment
		issues []Issue
	)
	for _, raw := range p.helper.SplitEscaped(payload) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		k, v, ok := strings.Cut(raw, "=")
		if !ok {
			issues = append(issues, Issue{
				Kind:    core.WarnMalformedSegment,
				Message: fmt.Sprintf("segment %q has no '='", raw),
			})
			continue
		}
		out = append(out, segment{key: strings.TrimSpace(k), value: strings.TrimSpace(v)})
	}
	return out, issues
}

// DecodeObject decodes the payload of an update line for object id.
// A registry-numeric key with a non-numeric value returns *SchemaViolation.
func (p *Parser) DecodeObject(id uint64, payload string) (Decoded, error) {
	var d Decoded

	segs, issues := p.segments(payload)
	d.Issues = append(d.Issues, issues...)

	for _, s := range segs {
		switch s.key {
		case registry.TransformKey:
			coords, issue := p.DecodeTransform(id, s.value)
			d.Coordinates = coords
			if issue != nil {
				d.Issues = append(d.Issues, *issue)
			}
		case registry.EventKey:
			event, evIssues := p.DecodeEvent(id, s.value)
			d.Event = event
			d.Issues = append(d.Issues, evIssues...)
		default:
			if d.Properties == nil {
				d.Properties = &core.PropertyBag{}
			}
			if registry.Classify(s.key).IsNumeric() {
				v, err := strconv.ParseFloat(s.value, 64)
				if err != nil {
					return Decoded{}, &SchemaViolation{ObjectID: id, Key: s.key, Value: s.value, Err: err}
				}
				d.Properties.SetNumeric(s.key, v)
				continue
			}
			// registered text and unknown keys are both stored verbatim
			d.Properties.SetText(s.key, s.value)
		}
	}

	for _, issue := range d.Issues {
		p.logger.Warn("Skipped part of object update",
			"objectID", FormatObjectID(id),
			"kind", issue.Kind,
			"detail", issue.Message)
	}
	return d, nil
}

// DecodeGlobal decodes a payload against the global registry. ok is false
// when the payload is empty or any key is not a global key; in that case
// nothing is returned and the line must be treated as an ordinary update.
func (p *Parser) DecodeGlobal(payload string) (props core.PropertyBag, ok bool, err error) {
	segs, issues := p.segments(payload)
	if len(segs) == 0 || len(issues) > 0 {
		return core.PropertyBag{}, false, nil
	}
	for _, s := range segs {
		if !registry.IsGlobal(s.key) {
			return core.PropertyBag{}, false, nil
		}
	}

	for _, s := range segs {
		if registry.ClassifyGlobal(s.key).IsNumeric() {
			v, err := strconv.ParseFloat(s.value, 64)
			if err != nil {
				return core.PropertyBag{}, false, &SchemaViolation{
					ObjectID: core.GlobalObjectID, Key: s.key, Value: s.value, Err: err,
				}
			}
			props.SetNumeric(s.key, v)
			continue
		}
		props.SetText(s.key, s.value)
	}
	return props, true, nil
}

// DecodeTransform decodes a T= value. The populated fields depend only on
// the number of '|' components:
//
//	3: lon|lat|alt
//	5: lon|lat|alt|u|v
//	6: lon|lat|alt|roll|pitch|yaw
//	9: lon|lat|alt|roll|pitch|yaw|u|v|heading
//
// Any other count returns empty coordinates and an issue. Blank or invalid
// components stay nil.
func (p *Parser) DecodeTransform(id uint64, value string) (*core.Coordinates, *Issue) {
	coords := &core.Coordinates{ObjectID: id, System: core.DefaultCoordinateSystem}
	parts := strings.Split(value, "|")

	f := func(i int) *float64 {
		v := p.helper.ParseFloat(parts[i], math.NaN())
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}

	switch len(parts) {
	case 3:
		coords.System = core.CoordSimple | core.CoordSpherical
		coords.Longitude, coords.Latitude, coords.Altitude = f(0), f(1), f(2)
	case 5:
		coords.System = core.CoordSimple | core.CoordSpherical | core.CoordFlat
		coords.Longitude, coords.Latitude, coords.Altitude = f(0), f(1), f(2)
		coords.U, coords.V = f(3), f(4)
	case 6:
		coords.System = core.CoordComplex | core.CoordSpherical
		coords.Longitude, coords.Latitude, coords.Altitude = f(0), f(1), f(2)
		coords.Roll, coords.Pitch, coords.Yaw = f(3), f(4), f(5)
	case 9:
		coords.System = core.CoordComplex | core.CoordSpherical | core.CoordFlat
		coords.Longitude, coords.Latitude, coords.Altitude = f(0), f(1), f(2)
		coords.Roll, coords.Pitch, coords.Yaw = f(3), f(4), f(5)
		coords.U, coords.V, coords.Heading = f(6), f(7), f(8)
	default:
		return coords, &Issue{
			Kind:    core.WarnTransformArity,
			Message: fmt.Sprintf("transform %q has %d components, want 3, 5, 6 or 9", value, len(parts)),
		}
	}
	return coords, nil
}

// DecodeEvent decodes an Event= value: type|id|id|...|text. With fewer than
// two components both type and text are empty.
func (p *Parser) DecodeEvent(id uint64, value string) (*core.Event, []Issue) {
	event := &core.Event{SourceObjectID: id, RelatedObjectIDs: []uint64{}}
	parts := strings.Split(value, "|")
	if len(parts) < 2 {
		return event, nil
	}

	event.Type = parts[0]
	event.Text = parts[len(parts)-1]

	var issues []Issue
	for _, raw := range parts[1 : len(parts)-1] {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		related, err := ParseObjectID(raw)
		if err != nil {
			issues = append(issues, Issue{
				Kind:    core.WarnEventObjectID,
				Message: fmt.Sprintf("event object id %q is not hexadecimal", raw),
			})
			continue
		}
		event.RelatedObjectIDs = append(event.RelatedObjectIDs, related)
	}
	return event, issues
}
