package storage

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/OCAP2/acmi/internal/timeline"
	"github.com/OCAP2/acmi/pkg/core"
	"github.com/google/uuid"
)

// Result summarizes one ingested recording.
type Result struct {
	Info          *core.RecordingInfo
	Frames        int
	Snapshots     int
	GlobalUpdates int
	Duration      float64 // timestamp of the last frame
	Warnings      []core.Warning
}

// Ingest decodes lines and hands the recording to b frame by frame. The
// recording is started as soon as the global property block is complete, so
// backends never hold more than they choose to buffer. b must be initialized.
//
// On error the recording is left unfinished; EndRecording is only called
// after the last frame.
func Ingest(ctx context.Context, b Backend, name, entry string, lines iter.Seq2[string, error], opts ...timeline.Option) (*Result, error) {
	res := &Result{}

	var pending []core.ObjectSnapshot
	var started bool
	var updateErr error

	record := func(s core.ObjectSnapshot) error {
		res.GlobalUpdates++
		return b.RecordGlobalUpdate(&s)
	}
	opts = append(opts, timeline.WithGlobalUpdateFunc(func(s core.ObjectSnapshot) {
		if !started {
			pending = append(pending, s)
			return
		}
		if updateErr == nil {
			updateErr = record(s)
		}
	}))

	builder, err := timeline.NewBuilder(opts...)
	if err != nil {
		return nil, err
	}

	start := func() error {
		globals := builder.Globals()
		res.Info = &core.RecordingInfo{
			ID:               uuid.NewString(),
			Name:             name,
			Entry:            entry,
			Header:           builder.Header(),
			GlobalProperties: *globals.Clone(),
			StartedAt:        time.Now().UTC(),
		}
		if err := b.StartRecording(res.Info); err != nil {
			return fmt.Errorf("starting recording: %w", err)
		}
		started = true
		for _, s := range pending {
			if err := record(s); err != nil {
				return err
			}
		}
		pending = nil
		return nil
	}

	for frame, err := range builder.Frames(lines) {
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !started {
			if err := start(); err != nil {
				return nil, err
			}
		}
		if updateErr != nil {
			return nil, updateErr
		}
		if err := b.RecordFrame(&frame); err != nil {
			return nil, fmt.Errorf("recording frame %d: %w", res.Frames, err)
		}
		res.Frames++
		res.Snapshots += len(frame.Objects)
		res.Duration = frame.Timestamp
	}

	if !started {
		if err := start(); err != nil {
			return nil, err
		}
	}
	if updateErr != nil {
		return nil, updateErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res.Warnings = builder.Warnings()
	if err := b.EndRecording(res.Warnings); err != nil {
		return nil, fmt.Errorf("ending recording: %w", err)
	}
	return res, nil
}
