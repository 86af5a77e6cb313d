package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Recording{},
	&Frame{},
	&ObjectSnapshot{},
	&GlobalUpdate{},
	&ObjectTrack{},
	&Warning{},
}

// Recording is one decoded ACMI file
type Recording struct {
	ID            string         `json:"id" gorm:"primaryKey;size:36"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Name          string         `json:"name" gorm:"size:255"`
	Entry         string         `json:"entry" gorm:"size:255"` // archive member, empty for plain files
	FileType      string         `json:"fileType" gorm:"size:64"`
	FileVersion   string         `json:"fileVersion" gorm:"size:16"`
	Title         string         `json:"title" gorm:"size:255;index:idx_recording_title"`
	ReferenceTime sql.NullTime   `json:"referenceTime"`
	Properties    datatypes.JSON `json:"properties"` // global property bag
	FrameCount    uint           `json:"frameCount"`
	SnapshotCount uint           `json:"snapshotCount"`
	ObjectCount   uint           `json:"objectCount"`
	WarningCount  uint           `json:"warningCount"`
	Duration      float64        `json:"duration"` // seconds between first and last frame
	Complete      bool           `json:"complete"`
}

func (*Recording) TableName() string {
	return "recordings"
}

// Frame is a frame marker and the number of snapshots it carried
type Frame struct {
	ID          uint    `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID string  `json:"recordingId" gorm:"size:36;index:idx_frame_recording_index,priority:1"`
	FrameIndex  uint    `json:"frameIndex" gorm:"index:idx_frame_recording_index,priority:2"`
	Timestamp   float64 `json:"timestamp"`
	ObjectCount uint    `json:"objectCount"`
}

func (*Frame) TableName() string {
	return "frames"
}

// ObjectSnapshot is one update line as stored in the database.
// Position is the projected EPSG:3857 location, stored as WKB.
type ObjectSnapshot struct {
	ID                uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID       string         `json:"recordingId" gorm:"size:36;index:idx_snapshot_recording_object,priority:1"`
	ObjectID          uint64         `json:"objectId" gorm:"index:idx_snapshot_recording_object,priority:2"`
	FrameIndex        uint           `json:"frameIndex" gorm:"index:idx_snapshot_frame"`
	TimeOffset        float64        `json:"timeOffset"`
	Time              sql.NullTime   `json:"time"` // ReferenceTime + TimeOffset
	CoordinateSystem  string         `json:"coordinateSystem" gorm:"size:32"`
	Longitude         *float64       `json:"longitude"`
	Latitude          *float64       `json:"latitude"`
	Altitude          *float64       `json:"altitude"`
	Roll              *float64       `json:"roll"`
	Pitch             *float64       `json:"pitch"`
	Yaw               *float64       `json:"yaw"`
	U                 *float64       `json:"u"`
	V                 *float64       `json:"v"`
	Heading           *float64       `json:"heading"`
	Position          *geom.Point    `json:"position" gorm:"type:bytes"`
	TextProperties    datatypes.JSON `json:"textProperties"`
	NumericProperties datatypes.JSON `json:"numericProperties"`
	HasEvent          bool           `json:"hasEvent"`
	EventType         string         `json:"eventType" gorm:"size:64;index:idx_snapshot_event_type"`
	EventText         string         `json:"eventText"`
	EventRelated      datatypes.JSON `json:"eventRelated"`
}

func (*ObjectSnapshot) TableName() string {
	return "object_snapshots"
}

// GlobalUpdate is an id 0 line seen after the global property block
type GlobalUpdate struct {
	ID           uint           `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID  string         `json:"recordingId" gorm:"size:36;index:idx_global_update_recording"`
	TimeOffset   float64        `json:"timeOffset"`
	Time         sql.NullTime   `json:"time"`
	Properties   datatypes.JSON `json:"properties"`
	EventType    string         `json:"eventType" gorm:"size:64"`
	EventText    string         `json:"eventText"`
	EventRelated datatypes.JSON `json:"eventRelated"`
}

func (*GlobalUpdate) TableName() string {
	return "global_updates"
}

// ObjectTrack is the projected path of one object over a whole recording
type ObjectTrack struct {
	RecordingID string          `json:"recordingId" gorm:"primaryKey;size:36"`
	ObjectID    uint64          `json:"objectId" gorm:"primaryKey;autoIncrement:false"`
	Name        string          `json:"name" gorm:"size:255"`
	Type        string          `json:"type" gorm:"size:255"`
	FirstSeen   float64         `json:"firstSeen"`
	LastSeen    float64         `json:"lastSeen"`
	Snapshots   uint            `json:"snapshots"`
	Path        geom.LineString `json:"path" gorm:"type:bytes"`
}

func (*ObjectTrack) TableName() string {
	return "object_tracks"
}

// Warning is a skipped input problem
type Warning struct {
	ID          uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	RecordingID string `json:"recordingId" gorm:"size:36;index:idx_warning_recording"`
	Line        int    `json:"line"`
	Kind        string `json:"kind" gorm:"size:32"`
	Message     string `json:"message"`
}

func (*Warning) TableName() string {
	return "warnings"
}
