package convert

import (
	"encoding/json"
	"fmt"

	"github.com/OCAP2/acmi/internal/model"
	"github.com/OCAP2/acmi/pkg/core"
)

// ObjectSnapshotToCore converts a stored row back into a core.ObjectSnapshot.
func ObjectSnapshotToCore(row model.ObjectSnapshot) (core.ObjectSnapshot, error) {
	s := core.ObjectSnapshot{
		ObjectID:   row.ObjectID,
		TimeOffset: row.TimeOffset,
	}

	if row.CoordinateSystem != "" {
		s.Coordinates = &core.Coordinates{
			ObjectID:  row.ObjectID,
			System:    core.ParseCoordinateSystem(row.CoordinateSystem),
			Longitude: row.Longitude,
			Latitude:  row.Latitude,
			Altitude:  row.Altitude,
			Roll:      row.Roll,
			Pitch:     row.Pitch,
			Yaw:       row.Yaw,
			U:         row.U,
			V:         row.V,
			Heading:   row.Heading,
		}
	}

	props := &core.PropertyBag{}
	if len(row.TextProperties) > 0 {
		if err := json.Unmarshal(row.TextProperties, &props.Text); err != nil {
			return s, fmt.Errorf("text properties of object %d: %w", row.ObjectID, err)
		}
	}
	if len(row.NumericProperties) > 0 {
		if err := json.Unmarshal(row.NumericProperties, &props.Numeric); err != nil {
			return s, fmt.Errorf("numeric properties of object %d: %w", row.ObjectID, err)
		}
	}
	if len(props.Text) == 0 {
		props.Text = nil
	}
	if len(props.Numeric) == 0 {
		props.Numeric = nil
	}
	if props.Len() > 0 {
		s.Properties = props
	}

	if row.HasEvent {
		e := &core.Event{
			SourceObjectID:   row.ObjectID,
			Type:             row.EventType,
			RelatedObjectIDs: []uint64{},
			Text:             row.EventText,
		}
		if len(row.EventRelated) > 0 {
			if err := json.Unmarshal(row.EventRelated, &e.RelatedObjectIDs); err != nil {
				return s, fmt.Errorf("event of object %d: %w", row.ObjectID, err)
			}
		}
		s.Event = e
	}
	return s, nil
}

// propertiesFromJSON splits a flattened JSON object back into a bag:
// strings become text properties, numbers numeric ones.
func propertiesFromJSON(data []byte) (core.PropertyBag, error) {
	var bag core.PropertyBag
	if len(data) == 0 {
		return bag, nil
	}
	var flat map[string]any
	if err := json.Unmarshal(data, &flat); err != nil {
		return bag, err
	}
	for k, v := range flat {
		switch val := v.(type) {
		case string:
			bag.SetText(k, val)
		case float64:
			bag.SetNumeric(k, val)
		}
	}
	return bag, nil
}

// RecordingToCore rebuilds the header and global properties of a stored recording.
func RecordingToCore(row model.Recording) (core.Header, core.PropertyBag, error) {
	header := core.Header{FileType: row.FileType, FileVersion: row.FileVersion}
	props, err := propertiesFromJSON(row.Properties)
	if err != nil {
		return header, props, fmt.Errorf("properties of recording %s: %w", row.ID, err)
	}
	return header, props, nil
}

// GlobalUpdateToCore converts a stored global update back into an id 0 snapshot.
func GlobalUpdateToCore(row model.GlobalUpdate) (core.ObjectSnapshot, error) {
	s := core.ObjectSnapshot{ObjectID: core.GlobalObjectID, TimeOffset: row.TimeOffset}

	props, err := propertiesFromJSON(row.Properties)
	if err != nil {
		return s, fmt.Errorf("global update properties: %w", err)
	}
	if props.Len() > 0 {
		s.Properties = &props
	}

	if row.EventType != "" || row.EventText != "" {
		e := &core.Event{
			SourceObjectID:   core.GlobalObjectID,
			Type:             row.EventType,
			RelatedObjectIDs: []uint64{},
			Text:             row.EventText,
		}
		if len(row.EventRelated) > 0 {
			if err := json.Unmarshal(row.EventRelated, &e.RelatedObjectIDs); err != nil {
				return s, fmt.Errorf("global update event: %w", err)
			}
		}
		s.Event = e
	}
	return s, nil
}
