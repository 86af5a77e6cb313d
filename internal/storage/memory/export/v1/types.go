// Package v1 contains the v1 file export format for decoded recordings.
package v1

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root structure for the v1 format.
// The same field names are used for JSON and CBOR.
type Export struct {
	FormatVersion int            `json:"formatVersion"`
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Entry         string         `json:"entry,omitempty"`
	FileType      string         `json:"fileType"`
	FileVersion   string         `json:"fileVersion"`
	Title         string         `json:"title,omitempty"`
	ReferenceTime string         `json:"referenceTime,omitempty"`
	Properties    map[string]any `json:"properties"`
	Duration      float64        `json:"duration"`
	Objects       []Object       `json:"objects"`
	Frames        []Frame        `json:"frames"`
	Events        []Event        `json:"events"`
	Warnings      []Warning      `json:"warnings"`
}

// Object summarizes one object id over the whole recording
type Object struct {
	ID        uint64  `json:"id"`
	Name      string  `json:"name,omitempty"`
	Type      string  `json:"type,omitempty"`
	FirstSeen float64 `json:"firstSeen"`
	LastSeen  float64 `json:"lastSeen"`
	Updates   int     `json:"updates"`
}

// Frame is one frame and the snapshots written in it
type Frame struct {
	Time    float64    `json:"time"`
	Objects []Snapshot `json:"objects"`
}

// Snapshot is one object update. Only the parts present on the line are set.
type Snapshot struct {
	ID        uint64             `json:"id"`
	Transform *Transform         `json:"transform,omitempty"`
	Text      map[string]string  `json:"text,omitempty"`
	Numeric   map[string]float64 `json:"numeric,omitempty"`
}

// Transform carries the components a T= value set
type Transform struct {
	System    string   `json:"system"`
	Longitude *float64 `json:"lon,omitempty"`
	Latitude  *float64 `json:"lat,omitempty"`
	Altitude  *float64 `json:"alt,omitempty"`
	Roll      *float64 `json:"roll,omitempty"`
	Pitch     *float64 `json:"pitch,omitempty"`
	Yaw       *float64 `json:"yaw,omitempty"`
	U         *float64 `json:"u,omitempty"`
	V         *float64 `json:"v,omitempty"`
	Heading   *float64 `json:"heading,omitempty"`
}

// Event is an Event= property, from an object or from the global object
type Event struct {
	Time     float64  `json:"time"`
	ObjectID uint64   `json:"objectId"`
	Type     string   `json:"type"`
	Related  []uint64 `json:"related,omitempty"`
	Text     string   `json:"text,omitempty"`
}

// Warning is a skipped input problem
type Warning struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
