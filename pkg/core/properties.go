// pkg/core/properties.go
package core

import "time"

// PropertyBag holds text and numeric attributes. A key lives in at most one map.
type PropertyBag struct {
	Text    map[string]string
	Numeric map[string]float64
}

// SetText stores a text value, allocating the map on first use.
func (p *PropertyBag) SetText(key, value string) {
	if p.Text == nil {
		p.Text = make(map[string]string)
	}
	p.Text[key] = value
	delete(p.Numeric, key)
}

// SetNumeric stores a numeric value, allocating the map on first use.
func (p *PropertyBag) SetNumeric(key string, value float64) {
	if p.Numeric == nil {
		p.Numeric = make(map[string]float64)
	}
	p.Numeric[key] = value
	delete(p.Text, key)
}

// Len returns the number of keys across both maps.
func (p *PropertyBag) Len() int {
	return len(p.Text) + len(p.Numeric)
}

// Merge copies every key of other into p.
func (p *PropertyBag) Merge(other *PropertyBag) {
	if other == nil {
		return
	}
	for k, v := range other.Text {
		p.SetText(k, v)
	}
	for k, v := range other.Numeric {
		p.SetNumeric(k, v)
	}
}

// Time parses a text property holding an ISO 8601 timestamp such as
// ReferenceTime or RecordingTime.
func (p *PropertyBag) Time(key string) (time.Time, bool) {
	if p == nil {
		return time.Time{}, false
	}
	v, ok := p.Text[key]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy of p.
func (p *PropertyBag) Clone() *PropertyBag {
	if p == nil {
		return nil
	}
	out := &PropertyBag{}
	out.Merge(p)
	return out
}

// Event is a decoded Event= property.
type Event struct {
	SourceObjectID   uint64
	Type             string
	RelatedObjectIDs []uint64
	Text             string
}
