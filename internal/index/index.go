// Package index provides per-object queries and tabular export over a
// decoded recording.
package index

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/OCAP2/acmi/pkg/core"
)

// ErrUnknownColumn is returned for a column name no accessor serves.
var ErrUnknownColumn = errors.New("unknown column")

type ref struct {
	frame  int
	object int
}

// Recording indexes a completed recording by object id. The index is built
// on first query; afterwards all methods are safe for concurrent use.
// The wrapped recording must not be modified.
type Recording struct {
	rec *core.Recording

	once    sync.Once
	byID    map[uint64][]ref
	ids     []uint64
	columns []string
	total   int
}

// New wraps rec without building the index yet.
func New(rec *core.Recording) *Recording {
	return &Recording{rec: rec}
}

// Decoded returns the wrapped recording.
func (r *Recording) Decoded() *core.Recording {
	return r.rec
}

func (r *Recording) build() {
	r.once.Do(func() {
		r.byID = make(map[uint64][]ref)
		cols := make(map[string]struct{})
		add := func(name string) { cols[name] = struct{}{} }

		for fi := range r.rec.Frames {
			objects := r.rec.Frames[fi].Objects
			for oi := range objects {
				id := objects[oi].ObjectID
				r.byID[id] = append(r.byID[id], ref{frame: fi, object: oi})
				observed(&objects[oi], add)
				r.total++
			}
		}

		r.ids = slices.Sorted(maps.Keys(r.byID))
		r.columns = append([]string{ColumnObjectID, ColumnTimeOffset}, slices.Sorted(maps.Keys(cols))...)
	})
}

func (r *Recording) at(x ref) *core.ObjectSnapshot {
	return &r.rec.Frames[x.frame].Objects[x.object]
}

// IDs returns every distinct object id in ascending order.
func (r *Recording) IDs() []uint64 {
	r.build()
	return slices.Clone(r.ids)
}

// Count returns the number of snapshots recorded for id.
func (r *Recording) Count(id uint64) int {
	r.build()
	return len(r.byID[id])
}

// Len returns the number of snapshots across all frames.
func (r *Recording) Len() int {
	r.build()
	return r.total
}

// Snapshots returns the snapshots of id in frame order.
func (r *Recording) Snapshots(id uint64) []core.ObjectSnapshot {
	r.build()
	refs := r.byID[id]
	if len(refs) == 0 {
		return nil
	}
	out := make([]core.ObjectSnapshot, len(refs))
	for i, x := range refs {
		out[i] = *r.at(x)
	}
	return out
}

// Columns returns object_id and time_offset followed by the sorted union
// of every flattened column observed on any snapshot.
func (r *Recording) Columns() []string {
	r.build()
	return slices.Clone(r.columns)
}

// Column returns one value per snapshot of id, in frame order.
func (r *Recording) Column(id uint64, name string) ([]Value, error) {
	get, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownColumn, name)
	}
	r.build()
	refs := r.byID[id]
	out := make([]Value, len(refs))
	for i, x := range refs {
		out[i] = get(r.at(x))
	}
	return out, nil
}

// All yields every snapshot with its flat position, frame by frame.
func (r *Recording) All() iter.Seq2[int, core.ObjectSnapshot] {
	return func(yield func(int, core.ObjectSnapshot) bool) {
		i := 0
		for _, frame := range r.rec.Frames {
			for _, obj := range frame.Objects {
				if !yield(i, obj) {
					return
				}
				i++
			}
		}
	}
}

// Slice returns the flattened snapshots in [start, end). Negative bounds
// count from the end; out-of-range bounds are clamped.
func (r *Recording) Slice(start, end int) []core.ObjectSnapshot {
	n := r.Len()
	start, end = clamp(start, n), clamp(end, n)
	if start >= end {
		return nil
	}
	out := make([]core.ObjectSnapshot, 0, end-start)
	for i, obj := range r.All() {
		if i >= end {
			break
		}
		if i >= start {
			out = append(out, obj)
		}
	}
	return out
}

func clamp(i, n int) int {
	if i < 0 {
		i += n
	}
	return max(0, min(i, n))
}
