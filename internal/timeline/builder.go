// Package timeline turns classified ACMI lines into frames of object snapshots.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"slices"

	"github.com/OCAP2/acmi/internal/parser"
	"github.com/OCAP2/acmi/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrBuilderReused is returned when Frames or Build is called twice on one Builder.
var ErrBuilderReused = errors.New("timeline builder already consumed its input")

type state uint8

const (
	awaitingHeader state = iota
	awaitingGlobals
	streaming
)

func (s state) String() string {
	switch s {
	case awaitingHeader:
		return "awaiting-header"
	case awaitingGlobals:
		return "awaiting-globals"
	default:
		return "streaming"
	}
}

// Builder is a single-use state machine over the lines of one recording.
// It is not safe for concurrent use.
type Builder struct {
	logger       *slog.Logger
	helper       parser.Helper
	parser       *parser.Parser
	meter        metric.Meter
	carryForward bool

	onHeader       func(core.Header)
	onWarn         func(core.Warning)
	onGlobalUpdate func(core.ObjectSnapshot)

	state         state
	used          bool
	line          int
	header        core.Header
	globals       core.PropertyBag
	globalUpdates []core.ObjectSnapshot
	warnings      []core.Warning

	current  *core.Frame
	lastTime float64
	alive    map[uint64]struct{}

	// carry-forward only
	tracked map[uint64]core.ObjectSnapshot
	touched map[uint64]struct{}

	linesProcessed metric.Int64Counter
	framesEmitted  metric.Int64Counter
	warningCount   metric.Int64Counter
}

// NewBuilder creates a Builder. Without options it logs to slog.Default,
// uses the reference helper and reports to the global OTel meter.
func NewBuilder(opts ...Option) (*Builder, error) {
	b := &Builder{
		header:  core.DefaultHeader(),
		alive:   make(map[uint64]struct{}),
		tracked: make(map[uint64]core.ObjectSnapshot),
		touched: make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}
	if b.meter == nil {
		b.meter = meter()
	}
	b.parser = parser.NewParser(b.logger, b.helper)

	var err error
	b.linesProcessed, err = b.meter.Int64Counter(
		"acmi.lines.processed",
		metric.WithDescription("Total input lines processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating lines counter: %w", err)
	}

	b.framesEmitted, err = b.meter.Int64Counter(
		"acmi.frames.emitted",
		metric.WithDescription("Total frames emitted"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	b.warningCount, err = b.meter.Int64Counter(
		"acmi.warnings",
		metric.WithDescription("Total structural warnings"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating warnings counter: %w", err)
	}

	return b, nil
}

// Frames consumes lines and yields each frame once it is closed by the next
// frame marker or by the end of input. The sequence is forward-only. A
// non-nil error ends it; no further frames follow.
func (b *Builder) Frames(lines iter.Seq2[string, error]) iter.Seq2[core.Frame, error] {
	return func(yield func(core.Frame, error) bool) {
		if b.used {
			yield(core.Frame{}, ErrBuilderReused)
			return
		}
		b.used = true

		for text, err := range lines {
			if err != nil {
				yield(core.Frame{}, fmt.Errorf("reading line %d: %w", b.line+1, err))
				return
			}
			b.line++
			b.linesProcessed.Add(context.Background(), 1)

			frame, emit, err := b.step(text)
			if err != nil {
				yield(core.Frame{}, err)
				return
			}
			if emit && !yield(frame, nil) {
				return
			}
		}

		b.closeHeader()
		if frame, ok := b.closeFrame(); ok {
			yield(frame, nil)
		}
	}
}

// Build consumes every line and returns the complete recording. On a fatal
// error no recording is returned.
func (b *Builder) Build(lines iter.Seq2[string, error]) (*core.Recording, error) {
	var frames []core.Frame
	for frame, err := range b.Frames(lines) {
		if err != nil {
			return nil, err
		}
		frames = append(frames, frame)
	}
	return &core.Recording{
		Header:           b.header,
		GlobalProperties: b.globals,
		Frames:           frames,
		GlobalUpdates:    b.globalUpdates,
	}, nil
}

// Header returns the declarations read so far, defaults filling the gaps.
func (b *Builder) Header() core.Header {
	return b.header
}

// Globals returns the global property block.
func (b *Builder) Globals() core.PropertyBag {
	return b.globals
}

// GlobalUpdates returns id 0 updates seen after the global property block.
func (b *Builder) GlobalUpdates() []core.ObjectSnapshot {
	return slices.Clone(b.globalUpdates)
}

// Warnings returns every structural warning recorded so far.
func (b *Builder) Warnings() []core.Warning {
	return slices.Clone(b.warnings)
}

// Alive returns the ids updated in the current frame and not removed since,
// in ascending order.
func (b *Builder) Alive() []uint64 {
	return slices.Sorted(maps.Keys(b.alive))
}

// step processes one line and returns a frame when the line closed one.
func (b *Builder) step(text string) (core.Frame, bool, error) {
	rec := parser.Classify(text, b.state == awaitingHeader)

	switch r := rec.(type) {
	case parser.Blank, parser.Comment:
		return core.Frame{}, false, nil
	case parser.HeaderField:
		switch r.Key {
		case parser.HeaderFileType:
			b.header.FileType = r.Value
		case parser.HeaderFileVersion:
			b.header.FileVersion = r.Value
		}
		return core.Frame{}, false, nil
	case parser.Unrecognized:
		b.closeHeader()
		b.warn(core.WarnUnrecognizedLine, fmt.Sprintf("%s: %q", r.Reason, r.Line))
		return core.Frame{}, false, nil
	}

	b.closeHeader()

	switch r := rec.(type) {
	case parser.FrameBegin:
		b.endGlobals()
		frame, emit := b.beginFrame(r.Timestamp)
		return frame, emit, nil
	case parser.ObjectRemoval:
		b.endGlobals()
		delete(b.alive, r.ID)
		delete(b.tracked, r.ID)
		return core.Frame{}, false, nil
	case parser.ObjectUpdate:
		if b.state == awaitingGlobals && r.ID == core.GlobalObjectID {
			props, ok, err := b.parser.DecodeGlobal(r.Payload)
			if err != nil {
				return core.Frame{}, false, b.atLine(err)
			}
			if ok {
				b.globals.Merge(&props)
				return core.Frame{}, false, nil
			}
		}
		b.endGlobals()
		return core.Frame{}, false, b.update(r)
	}
	return core.Frame{}, false, nil
}

func (b *Builder) closeHeader() {
	if b.state != awaitingHeader {
		return
	}
	b.state = awaitingGlobals
	b.logger.Debug("Header parsed", "fileType", b.header.FileType, "fileVersion", b.header.FileVersion)
	if b.onHeader != nil {
		b.onHeader(b.header)
	}
}

func (b *Builder) endGlobals() {
	if b.state != awaitingGlobals {
		return
	}
	b.state = streaming
	b.logger.Debug("Global properties complete", "count", b.globals.Len(), "line", b.line)
}

func (b *Builder) beginFrame(ts float64) (core.Frame, bool) {
	prev, emit := b.closeFrame()
	if emit && ts < b.lastTime {
		b.warn(core.WarnFrameOrder, fmt.Sprintf("frame time %g is before previous frame %g", ts, b.lastTime))
		ts = b.lastTime
	}
	b.current = &core.Frame{Timestamp: ts}
	b.lastTime = ts
	clear(b.alive)
	return prev, emit
}

// closeFrame detaches the open frame, if any.
func (b *Builder) closeFrame() (core.Frame, bool) {
	if b.current == nil {
		return core.Frame{}, false
	}
	frame := *b.current
	b.current = nil

	if b.carryForward {
		for _, id := range slices.Sorted(maps.Keys(b.tracked)) {
			if _, ok := b.touched[id]; ok {
				continue
			}
			snap := b.tracked[id]
			snap.TimeOffset = frame.Timestamp
			frame.Objects = append(frame.Objects, snap)
		}
		clear(b.touched)
	}

	b.framesEmitted.Add(context.Background(), 1)
	return frame, true
}

func (b *Builder) update(r parser.ObjectUpdate) error {
	d, err := b.parser.DecodeObject(r.ID, r.Payload)
	if err != nil {
		return b.atLine(err)
	}
	for _, issue := range d.Issues {
		b.record(issue.Kind, issue.Message)
	}

	snap := core.ObjectSnapshot{
		ObjectID:    r.ID,
		Coordinates: d.Coordinates,
		Properties:  d.Properties,
		Event:       d.Event,
	}

	if r.ID == core.GlobalObjectID {
		if b.current != nil {
			snap.TimeOffset = b.current.Timestamp
		}
		b.globalUpdates = append(b.globalUpdates, snap)
		if b.onGlobalUpdate != nil {
			b.onGlobalUpdate(snap)
		}
		return nil
	}

	if b.current == nil {
		b.warn(core.WarnOrphanUpdate, fmt.Sprintf("update for object %s before the first frame", parser.FormatObjectID(r.ID)))
		return nil
	}

	snap.TimeOffset = b.current.Timestamp
	b.current.Objects = append(b.current.Objects, snap)
	b.alive[r.ID] = struct{}{}

	if b.carryForward {
		b.touched[r.ID] = struct{}{}
		b.track(snap)
	}
	return nil
}

// track merges snap into the carried state of its object.
func (b *Builder) track(snap core.ObjectSnapshot) {
	prev, ok := b.tracked[snap.ObjectID]
	if !ok {
		b.tracked[snap.ObjectID] = core.ObjectSnapshot{
			ObjectID:    snap.ObjectID,
			Coordinates: snap.Coordinates.Overlay(nil),
			Properties:  snap.Properties.Clone(),
		}
		return
	}
	merged := core.ObjectSnapshot{
		ObjectID:    snap.ObjectID,
		Coordinates: prev.Coordinates.Overlay(snap.Coordinates),
		Properties:  prev.Properties.Clone(),
	}
	if snap.Properties != nil {
		if merged.Properties == nil {
			merged.Properties = &core.PropertyBag{}
		}
		merged.Properties.Merge(snap.Properties)
	}
	b.tracked[snap.ObjectID] = merged
}

// atLine stamps the current line number on a schema violation.
func (b *Builder) atLine(err error) error {
	var sv *parser.SchemaViolation
	if errors.As(err, &sv) {
		sv.Line = b.line
	}
	return err
}

// warn records a builder warning and logs it.
func (b *Builder) warn(kind core.WarningKind, msg string) {
	b.logger.Warn("Skipped malformed input", "line", b.line, "kind", kind, "detail", msg)
	b.record(kind, msg)
}

// record stores a warning the codec has already logged.
func (b *Builder) record(kind core.WarningKind, msg string) {
	w := core.Warning{Line: b.line, Kind: kind, Message: msg}
	b.warnings = append(b.warnings, w)
	b.warningCount.Add(context.Background(), 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	if b.onWarn != nil {
		b.onWarn(w)
	}
}
