package gormstorage

import (
	"fmt"

	"github.com/OCAP2/acmi/internal/model"
	"github.com/OCAP2/acmi/internal/model/convert"
	"github.com/OCAP2/acmi/pkg/core"
	"gorm.io/gorm"
)

// ListRecordings returns every stored recording, newest first.
func ListRecordings(db *gorm.DB) ([]model.Recording, error) {
	var rows []model.Recording
	if err := db.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list recordings: %w", err)
	}
	return rows, nil
}

// Load rebuilds a stored recording, frames in order and snapshots in the
// order they were written.
func Load(db *gorm.DB, recordingID string) (*core.Recording, error) {
	var row model.Recording
	if err := db.First(&row, "id = ?", recordingID).Error; err != nil {
		return nil, fmt.Errorf("failed to find recording %s: %w", recordingID, err)
	}

	header, props, err := convert.RecordingToCore(row)
	if err != nil {
		return nil, err
	}
	rec := &core.Recording{Header: header, GlobalProperties: props}

	var frames []model.Frame
	if err := db.Where("recording_id = ?", recordingID).Order("frame_index").Find(&frames).Error; err != nil {
		return nil, fmt.Errorf("failed to load frames: %w", err)
	}
	rec.Frames = make([]core.Frame, len(frames))
	for i, f := range frames {
		rec.Frames[i] = core.Frame{Timestamp: f.Timestamp, Objects: make([]core.ObjectSnapshot, 0, f.ObjectCount)}
	}

	var snaps []model.ObjectSnapshot
	if err := db.Where("recording_id = ?", recordingID).Order("frame_index, id").Find(&snaps).Error; err != nil {
		return nil, fmt.Errorf("failed to load object snapshots: %w", err)
	}
	for _, s := range snaps {
		if int(s.FrameIndex) >= len(rec.Frames) {
			return nil, fmt.Errorf("snapshot %d references missing frame %d", s.ID, s.FrameIndex)
		}
		snap, err := convert.ObjectSnapshotToCore(s)
		if err != nil {
			return nil, err
		}
		rec.Frames[s.FrameIndex].Objects = append(rec.Frames[s.FrameIndex].Objects, snap)
	}

	var updates []model.GlobalUpdate
	if err := db.Where("recording_id = ?", recordingID).Order("id").Find(&updates).Error; err != nil {
		return nil, fmt.Errorf("failed to load global updates: %w", err)
	}
	for _, u := range updates {
		snap, err := convert.GlobalUpdateToCore(u)
		if err != nil {
			return nil, err
		}
		rec.GlobalUpdates = append(rec.GlobalUpdates, snap)
	}
	return rec, nil
}
