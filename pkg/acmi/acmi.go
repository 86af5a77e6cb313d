// Package acmi reads Tacview ACMI flight recordings.
//
// Load decodes a whole file into an indexed recording. Stream hands frames to
// a callback as soon as they are complete, for files too large to hold.
package acmi

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/OCAP2/acmi/internal/index"
	"github.com/OCAP2/acmi/internal/parser"
	"github.com/OCAP2/acmi/internal/source"
	"github.com/OCAP2/acmi/internal/timeline"
	"github.com/OCAP2/acmi/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

type (
	// Indexed answers per-object queries over a decoded recording.
	Indexed = index.Recording
	// ExportOptions selects ids and columns for CSV export.
	ExportOptions = index.ExportOptions
	// Value is one flattened cell.
	Value = index.Value
	// SchemaViolation is the fatal error for a malformed numeric property.
	SchemaViolation = parser.SchemaViolation
	// ReadError wraps an I/O fault of the input.
	ReadError = source.ReadError
)

var (
	ErrNotFound        = source.ErrNotFound
	ErrReadFailure     = source.ErrReadFailure
	ErrSchemaViolation = parser.ErrSchemaViolation
	ErrUnknownColumn   = index.ErrUnknownColumn
)

// Options tunes decoding. The zero value is valid.
type Options struct {
	Logger       *slog.Logger
	FastPath     bool // use the allocation-free helper
	CarryForward bool // list every live object in every frame
	Meter        metric.Meter

	OnHeader       func(core.Header)
	OnWarning      func(core.Warning)
	OnGlobalUpdate func(core.ObjectSnapshot)
}

func (o Options) builder() (*timeline.Builder, error) {
	opts := []timeline.Option{
		timeline.WithLogger(o.Logger),
		timeline.WithHelper(parser.NewHelper(o.FastPath)),
		timeline.WithCarryForward(o.CarryForward),
	}
	if o.Meter != nil {
		opts = append(opts, timeline.WithMeter(o.Meter))
	}
	if o.OnHeader != nil {
		opts = append(opts, timeline.WithHeaderFunc(o.OnHeader))
	}
	if o.OnWarning != nil {
		opts = append(opts, timeline.WithWarnFunc(o.OnWarning))
	}
	if o.OnGlobalUpdate != nil {
		opts = append(opts, timeline.WithGlobalUpdateFunc(o.OnGlobalUpdate))
	}
	return timeline.NewBuilder(opts...)
}

// Recording is a fully decoded file.
type Recording struct {
	*index.Recording
	Warnings []core.Warning
	Name     string // path or reader name
	Entry    string // archive entry, "" for plain text
}

// Load decodes the recording at path, plain or zipped.
func Load(path string, opts Options) (*Recording, error) {
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()
	return load(src, opts)
}

// LoadReader decodes a recording from r. name is used in error messages.
func LoadReader(name string, r io.Reader, opts Options) (*Recording, error) {
	src, err := source.FromReader(name, r)
	if err != nil {
		return nil, err
	}
	return load(src, opts)
}

func load(src *source.Source, opts Options) (*Recording, error) {
	b, err := opts.builder()
	if err != nil {
		return nil, err
	}
	rec, err := b.Build(src.Lines())
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", src.Name(), err)
	}
	return &Recording{
		Recording: index.New(rec),
		Warnings:  b.Warnings(),
		Name:      src.Name(),
		Entry:     src.Entry(),
	}, nil
}

// Summary describes a streamed recording once all frames were delivered.
type Summary struct {
	Header           core.Header
	GlobalProperties core.PropertyBag
	GlobalUpdates    []core.ObjectSnapshot
	Warnings         []core.Warning
	Frames           int
}

// Stream decodes the recording at path and calls fn for each frame in order.
// It stops at the first error from fn, from decoding or from ctx.
func Stream(ctx context.Context, path string, opts Options, fn func(core.Frame) error) (*Summary, error) {
	src, err := source.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	b, err := opts.builder()
	if err != nil {
		return nil, err
	}

	sum := &Summary{}
	for frame, err := range b.Frames(src.Lines()) {
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", src.Name(), err)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := fn(frame); err != nil {
			return nil, err
		}
		sum.Frames++
	}

	sum.Header = b.Header()
	sum.GlobalProperties = b.Globals()
	sum.GlobalUpdates = b.GlobalUpdates()
	sum.Warnings = b.Warnings()
	return sum, nil
}
