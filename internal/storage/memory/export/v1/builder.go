package v1

import (
	"cmp"
	"maps"
	"slices"

	"github.com/OCAP2/acmi/pkg/core"
)

// Build creates an Export from a recording and the info it was started with
func Build(info *core.RecordingInfo, rec *core.Recording) Export {
	export := Export{
		FormatVersion: FormatVersion,
		ID:            info.ID,
		Name:          info.Name,
		Entry:         info.Entry,
		FileType:      rec.Header.FileType,
		FileVersion:   rec.Header.FileVersion,
		Title:         rec.GlobalProperties.Text["Title"],
		ReferenceTime: rec.GlobalProperties.Text["ReferenceTime"],
		Properties:    flatten(&rec.GlobalProperties),
		Objects:       make([]Object, 0),
		Frames:        make([]Frame, 0, len(rec.Frames)),
		Events:        make([]Event, 0),
		Warnings:      make([]Warning, 0),
	}
	if n := len(rec.Frames); n > 0 {
		export.Duration = rec.Frames[n-1].Timestamp - rec.Frames[0].Timestamp
	}

	objects := make(map[uint64]*Object)
	for _, f := range rec.Frames {
		frame := Frame{Time: f.Timestamp, Objects: make([]Snapshot, 0, len(f.Objects))}
		for _, s := range f.Objects {
			frame.Objects = append(frame.Objects, snapshot(s))
			track(objects, s)
			if s.Event != nil {
				export.Events = append(export.Events, event(s))
			}
		}
		export.Frames = append(export.Frames, frame)
	}

	for _, s := range rec.GlobalUpdates {
		if s.Event != nil {
			export.Events = append(export.Events, event(s))
		}
	}
	// global updates are collected apart from frames
	slices.SortStableFunc(export.Events, func(a, b Event) int {
		return cmp.Compare(a.Time, b.Time)
	})

	for _, id := range slices.Sorted(maps.Keys(objects)) {
		export.Objects = append(export.Objects, *objects[id])
	}
	return export
}

// AddWarnings appends decode warnings in line order
func (e *Export) AddWarnings(warnings []core.Warning) {
	for _, w := range warnings {
		e.Warnings = append(e.Warnings, Warning{Line: w.Line, Kind: string(w.Kind), Message: w.Message})
	}
}

func snapshot(s core.ObjectSnapshot) Snapshot {
	out := Snapshot{ID: s.ObjectID}
	if c := s.Coordinates; c != nil {
		out.Transform = &Transform{
			System:    c.System.String(),
			Longitude: c.Longitude,
			Latitude:  c.Latitude,
			Altitude:  c.Altitude,
			Roll:      c.Roll,
			Pitch:     c.Pitch,
			Yaw:       c.Yaw,
			U:         c.U,
			V:         c.V,
			Heading:   c.Heading,
		}
	}
	if p := s.Properties; p != nil {
		if len(p.Text) > 0 {
			out.Text = p.Text
		}
		if len(p.Numeric) > 0 {
			out.Numeric = p.Numeric
		}
	}
	return out
}

func event(s core.ObjectSnapshot) Event {
	return Event{
		Time:     s.TimeOffset,
		ObjectID: s.ObjectID,
		Type:     s.Event.Type,
		Related:  s.Event.RelatedObjectIDs,
		Text:     s.Event.Text,
	}
}

func track(objects map[uint64]*Object, s core.ObjectSnapshot) {
	obj, ok := objects[s.ObjectID]
	if !ok {
		obj = &Object{ID: s.ObjectID, FirstSeen: s.TimeOffset}
		objects[s.ObjectID] = obj
	}
	obj.LastSeen = s.TimeOffset
	obj.Updates++
	if p := s.Properties; p != nil {
		if name, ok := p.Text["Name"]; ok {
			obj.Name = name
		}
		if typ, ok := p.Text["Type"]; ok {
			obj.Type = typ
		}
	}
}

func flatten(p *core.PropertyBag) map[string]any {
	out := make(map[string]any, p.Len())
	for k, v := range p.Text {
		out[k] = v
	}
	for k, v := range p.Numeric {
		out[k] = v
	}
	return out
}
