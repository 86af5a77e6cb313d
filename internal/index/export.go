package index

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// ExportOptions selects what WriteCSV emits.
type ExportOptions struct {
	// IDs lists objects in output order. Nil means every id ascending;
	// an empty non-nil slice selects nothing.
	IDs []uint64
	// Columns lists the output columns. Nil means Columns().
	Columns []string
	// Delimiter defaults to ','.
	Delimiter rune
	// Header writes the column names as the first row.
	Header bool
}

// WriteCSV writes one row per snapshot of the selected ids, grouped by id
// and in frame order within an id. Cells a snapshot lacks are empty.
// An empty selection writes nothing, not even the header.
func (r *Recording) WriteCSV(w io.Writer, opts ExportOptions) error {
	ids := opts.IDs
	if ids == nil {
		ids = r.IDs()
	}
	columns := opts.Columns
	if columns == nil {
		columns = r.Columns()
	}
	if len(ids) == 0 || len(columns) == 0 {
		return nil
	}

	getters := make([]accessor, len(columns))
	for i, name := range columns {
		get, ok := lookup(name)
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnknownColumn, name)
		}
		getters[i] = get
	}

	cw := csv.NewWriter(w)
	if opts.Delimiter != 0 {
		cw.Comma = opts.Delimiter
	}

	if opts.Header {
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	r.build()
	row := make([]string, len(columns))
	for _, id := range ids {
		for _, x := range r.byID[id] {
			snap := r.at(x)
			for i, get := range getters {
				row[i] = get(snap).Text
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("writing row for object %d: %w", id, err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

// ExportCSV is WriteCSV into a string.
func (r *Recording) ExportCSV(opts ExportOptions) (string, error) {
	var sb strings.Builder
	if err := r.WriteCSV(&sb, opts); err != nil {
		return "", err
	}
	return sb.String(), nil
}
