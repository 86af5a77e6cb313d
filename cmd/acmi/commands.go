package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/OCAP2/acmi/internal/api"
	"github.com/OCAP2/acmi/internal/config"
	"github.com/OCAP2/acmi/internal/database"
	"github.com/OCAP2/acmi/internal/logging"
	"github.com/OCAP2/acmi/internal/model"
	"github.com/OCAP2/acmi/internal/parser"
	"github.com/OCAP2/acmi/internal/source"
	"github.com/OCAP2/acmi/internal/storage"
	gormstorage "github.com/OCAP2/acmi/internal/storage/gorm"
	"github.com/OCAP2/acmi/internal/timeline"
	"github.com/OCAP2/acmi/pkg/acmi"
	"github.com/OCAP2/acmi/pkg/core"
	"github.com/spf13/pflag"
)

func (e *env) options() acmi.Options {
	pc := config.GetParserConfig()
	return acmi.Options{
		Logger:       e.Logger(),
		FastPath:     pc.FastPath,
		CarryForward: pc.CarryForward,
	}
}

// file returns the single positional argument.
func (e *env) file(args []string) (string, error) {
	if len(args) != 1 {
		fmt.Fprintf(e.stderr, "expected exactly one input file, got %d\n", len(args))
		return "", errUsage
	}
	e.input = args[0]
	return args[0], nil
}

func (e *env) load(args []string) (*acmi.Recording, error) {
	path, err := e.file(args)
	if err != nil {
		return nil, err
	}
	rec, err := acmi.Load(path, e.options())
	if err != nil {
		return nil, err
	}
	if n := len(rec.Warnings); n > 0 {
		e.Logger().WarnContext(e.ctx, "Recording decoded with warnings", "count", n)
	}
	return rec, nil
}

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

var framesCommand = &command{
	name:    "frames",
	summary: "print one line per frame",
	exec: func(e *env, args []string) error {
		path, err := e.file(args)
		if err != nil {
			return err
		}
		tw := table(e.stdout)
		fmt.Fprintln(tw, "FRAME\tTIME\tOBJECTS\tEVENTS")
		index := 0
		sum, err := acmi.Stream(e.ctx, path, e.options(), func(f core.Frame) error {
			events := 0
			for _, s := range f.Objects {
				if s.Event != nil {
					events++
				}
			}
			fmt.Fprintf(tw, "%d\t%g\t%d\t%d\n", index, f.Timestamp, len(f.Objects), events)
			index++
			return nil
		})
		if err != nil {
			return err
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		e.Logger().InfoContext(e.ctx, "Frames streamed", "frames", sum.Frames, "warnings", len(sum.Warnings))
		return nil
	},
}

var idsCommand = &command{
	name:    "ids",
	summary: "list object ids with their snapshot counts",
	exec: func(e *env, args []string) error {
		rec, err := e.load(args)
		if err != nil {
			return err
		}
		tw := table(e.stdout)
		fmt.Fprintln(tw, "ID\tSNAPSHOTS")
		for _, id := range rec.IDs() {
			fmt.Fprintf(tw, "%s\t%d\n", parser.FormatObjectID(id), rec.Count(id))
		}
		return tw.Flush()
	},
}

var columnsCommand = &command{
	name:    "columns",
	summary: "list the flattened column names",
	exec: func(e *env, args []string) error {
		rec, err := e.load(args)
		if err != nil {
			return err
		}
		for _, c := range rec.Columns() {
			fmt.Fprintln(e.stdout, c)
		}
		return nil
	},
}

var exportCommand = &command{
	name:    "export",
	summary: "write snapshots as CSV",
	addFlags: func(fs *pflag.FlagSet) {
		fs.StringSlice("ids", nil, "hexadecimal object ids to export, in order (default all)")
		fs.StringSlice("columns", nil, "columns to export, in order (default all)")
		fs.String("delimiter", ",", "field delimiter")
		fs.Bool("header", true, "write a header row")
		fs.StringP("output", "o", "", "output file (default stdout)")
	},
	exec: func(e *env, args []string) error {
		opts, err := exportOptions(e.flags)
		if err != nil {
			return err
		}
		rec, err := e.load(args)
		if err != nil {
			return err
		}

		out := e.stdout
		if name, _ := e.flags.GetString("output"); name != "" {
			f, err := os.Create(name)
			if err != nil {
				return fmt.Errorf("creating output: %w", err)
			}
			defer f.Close()
			out = f
		}
		return rec.WriteCSV(out, opts)
	},
}

func exportOptions(fs *pflag.FlagSet) (acmi.ExportOptions, error) {
	var opts acmi.ExportOptions

	if fs.Changed("ids") {
		raw, _ := fs.GetStringSlice("ids")
		opts.IDs = make([]uint64, 0, len(raw))
		for _, text := range raw {
			id, err := parser.ParseObjectID(strings.TrimSpace(text))
			if err != nil {
				return opts, fmt.Errorf("invalid object id %q: %w", text, err)
			}
			opts.IDs = append(opts.IDs, id)
		}
	}
	if fs.Changed("columns") {
		opts.Columns, _ = fs.GetStringSlice("columns")
	}

	delim, _ := fs.GetString("delimiter")
	if delim == `\t` {
		delim = "\t"
	}
	r, size := utf8.DecodeRuneInString(delim)
	if size == 0 || size != len(delim) {
		return opts, fmt.Errorf("delimiter must be a single character, got %q", delim)
	}
	opts.Delimiter = r
	opts.Header, _ = fs.GetBool("header")
	return opts, nil
}

var storeCommand = &command{
	name:    "store",
	summary: "stream a recording into the configured storage backend",
	addFlags: func(fs *pflag.FlagSet) {
		fs.String("storage", "", "backend: memory, sqlite, postgres or influx")
		fs.String("output-dir", "", "memory backend export directory")
		fs.String("format", "", "memory backend export format: json or cbor")
		fs.String("compression", "", "memory backend compression: none, gzip, zstd or snappy")
		fs.String("sqlite-path", "", "sqlite database file")
		fs.Int("batch-size", 0, "rows per insert for sqlite and postgres")
		fs.Bool("upload", false, "upload the exported file to the archive at api.url")
		fs.String("api-url", "", "recording archive base URL")
		fs.String("tag", "", "tag sent with the upload")
	},
	exec: func(e *env, args []string) error {
		path, err := e.file(args)
		if err != nil {
			return err
		}
		src, err := source.Open(path)
		if err != nil {
			return err
		}
		defer src.Close()

		cfg := config.GetStorageConfig()
		backend, err := storage.NewBackend(cfg, storage.Dependencies{
			Logger: logging.NewZerolog(e.stderr, config.GetString("logLevel"), "storage"),
			DB:     config.GetDBConfig(),
			Influx: config.GetInfluxConfig(),
		})
		if err != nil {
			return err
		}
		if err := backend.Init(); err != nil {
			return fmt.Errorf("initializing %s storage: %w", cfg.Type, err)
		}
		defer func() {
			if err := backend.Close(); err != nil {
				e.Logger().ErrorContext(e.ctx, "Closing storage failed", "error", err)
			}
		}()

		pc := config.GetParserConfig()
		res, err := storage.Ingest(e.ctx, backend, src.Name(), src.Entry(), src.Lines(),
			timeline.WithLogger(e.Logger()),
			timeline.WithHelper(parser.NewHelper(pc.FastPath)),
			timeline.WithCarryForward(pc.CarryForward),
		)
		if err != nil {
			return err
		}

		tw := table(e.stdout)
		fmt.Fprintf(tw, "recording\t%s\n", res.Info.ID)
		fmt.Fprintf(tw, "storage\t%s\n", cfg.Type)
		fmt.Fprintf(tw, "frames\t%d\n", res.Frames)
		fmt.Fprintf(tw, "snapshots\t%d\n", res.Snapshots)
		fmt.Fprintf(tw, "global updates\t%d\n", res.GlobalUpdates)
		fmt.Fprintf(tw, "warnings\t%d\n", len(res.Warnings))
		u, uploadable := backend.(storage.Uploadable)
		if uploadable && u.GetExportedFilePath() != "" {
			fmt.Fprintf(tw, "file\t%s\n", u.GetExportedFilePath())
		}
		if b, ok := backend.(interface{ BackupPath() string }); ok && b.BackupPath() != "" {
			fmt.Fprintf(tw, "backup\t%s\n", b.BackupPath())
		}
		if err := tw.Flush(); err != nil {
			return err
		}

		if upload, _ := e.flags.GetBool("upload"); !upload {
			return nil
		}
		if !uploadable || u.GetExportedFilePath() == "" {
			return fmt.Errorf("storage %q does not produce a file to upload", cfg.Type)
		}
		return e.upload(u.GetExportedFilePath(), res)
	},
}

func (e *env) upload(path string, res *storage.Result) error {
	ac := config.GetAPIConfig()
	if ac.URL == "" {
		return fmt.Errorf("api.url is not set")
	}
	client := api.New(ac.URL, ac.Key)
	if err := client.Healthcheck(); err != nil {
		return err
	}
	meta := api.Metadata{
		RecordingID: res.Info.ID,
		Title:       res.Info.GlobalProperties.Text["Title"],
		Source:      res.Info.Name,
		Duration:    res.Duration,
		Tag:         ac.Tag,
	}
	if err := client.Upload(path, meta); err != nil {
		return err
	}
	e.Logger().InfoContext(e.ctx, "Recording uploaded", "url", ac.URL, "file", path)
	fmt.Fprintf(e.stdout, "uploaded\t%s\n", ac.URL)
	return nil
}

var infoCommand = &command{
	name:    "info",
	summary: "print header, global properties and warnings",
	exec: func(e *env, args []string) error {
		rec, err := e.load(args)
		if err != nil {
			return err
		}
		decoded := rec.Decoded()

		tw := table(e.stdout)
		fmt.Fprintf(tw, "FileType\t%s\n", decoded.Header.FileType)
		fmt.Fprintf(tw, "FileVersion\t%s\n", decoded.Header.FileVersion)
		if rec.Entry != "" {
			fmt.Fprintf(tw, "Entry\t%s\n", rec.Entry)
		}
		for _, k := range slices.Sorted(maps.Keys(decoded.GlobalProperties.Text)) {
			fmt.Fprintf(tw, "%s\t%s\n", k, decoded.GlobalProperties.Text[k])
		}
		for _, k := range slices.Sorted(maps.Keys(decoded.GlobalProperties.Numeric)) {
			fmt.Fprintf(tw, "%s\t%g\n", k, decoded.GlobalProperties.Numeric[k])
		}
		fmt.Fprintf(tw, "Frames\t%d\n", len(decoded.Frames))
		fmt.Fprintf(tw, "Objects\t%d\n", len(rec.IDs()))
		fmt.Fprintf(tw, "Snapshots\t%d\n", rec.Len())
		fmt.Fprintf(tw, "GlobalUpdates\t%d\n", len(decoded.GlobalUpdates))
		fmt.Fprintf(tw, "Warnings\t%d\n", len(rec.Warnings))
		if err := tw.Flush(); err != nil {
			return err
		}

		for _, w := range rec.Warnings {
			fmt.Fprintf(e.stdout, "line %d: %s: %s\n", w.Line, w.Kind, w.Message)
		}

		counters, err := e.otel.Counters(e.ctx)
		if err != nil {
			return err
		}
		for _, name := range slices.Sorted(maps.Keys(counters)) {
			fmt.Fprintf(e.stdout, "%s %d\n", name, counters[name])
		}
		return nil
	},
}

var recordingsCommand = &command{
	name:    "recordings",
	summary: "list recordings stored in the sqlite or postgres backend",
	addFlags: func(fs *pflag.FlagSet) {
		fs.String("storage", "", "backend: sqlite or postgres")
		fs.String("sqlite-path", "", "sqlite database file")
	},
	exec: func(e *env, args []string) error {
		if len(args) != 0 {
			fmt.Fprintf(e.stderr, "unexpected argument %q\n", args[0])
			return errUsage
		}

		var rows []model.Recording
		switch kind := config.GetString("storage.type"); kind {
		case "sqlite":
			path := config.GetStorageConfig().SQLite.Path
			if _, err := os.Stat(path); err != nil {
				return fmt.Errorf("sqlite database: %w", err)
			}
			db, err := database.OpenSqlite(path)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}
			if rows, err = gormstorage.ListRecordings(db); err != nil {
				return err
			}
		case "postgres":
			m := database.NewManager(logging.NewZerolog(e.stderr, config.GetString("logLevel"), "database"))
			if err := m.ConnectPostgres(config.GetDBConfig()); err != nil {
				return err
			}
			defer m.Close()
			var err error
			if rows, err = gormstorage.ListRecordings(m.DB); err != nil {
				return err
			}
		default:
			return fmt.Errorf("storage %q does not keep a recording table", kind)
		}

		tw := table(e.stdout)
		fmt.Fprintln(tw, "ID\tNAME\tTITLE\tFRAMES\tSNAPSHOTS\tWARNINGS\tCOMPLETE")
		for _, r := range rows {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\t%t\n",
				r.ID, r.Name, r.Title, r.FrameCount, r.SnapshotCount, r.WarningCount, r.Complete)
		}
		return tw.Flush()
	},
}
