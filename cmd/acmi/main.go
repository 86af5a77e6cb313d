// acmi decodes Tacview ACMI flight recordings.
//
// Usage:
//
//	acmi <command> [flags] <file>
//
// Settings are read from acmi.cfg.json in the --config directory when it
// exists. Flags override the file.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/OCAP2/acmi/internal/config"
	"github.com/OCAP2/acmi/internal/logging"
	intOtel "github.com/OCAP2/acmi/internal/otel"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
)

// ProgramName prefixes log files.
const ProgramName = "acmi"

// errUsage is returned after help text has been printed for bad arguments.
var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

// command is one subcommand. addFlags registers its own flags next to the
// shared ones; exec runs with the parsed positional arguments.
type command struct {
	name     string
	summary  string
	addFlags func(fs *pflag.FlagSet)
	exec     func(env *env, args []string) error
}

var commands = []*command{
	framesCommand,
	idsCommand,
	columnsCommand,
	exportCommand,
	storeCommand,
	infoCommand,
	recordingsCommand,
}

func lookup(name string) *command {
	for _, c := range commands {
		if c.name == name {
			return c
		}
	}
	return nil
}

// env is what every command runs with once flags and config are resolved.
type env struct {
	ctx    context.Context
	stdout io.Writer
	stderr io.Writer
	flags  *pflag.FlagSet
	logs   *logging.SlogManager
	otel   *intOtel.Provider
	input  string
}

// Logger returns the configured slog logger.
func (e *env) Logger() *slog.Logger {
	return e.logs.Logger()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(stderr)
		if len(args) == 0 {
			return errUsage
		}
		return nil
	}

	cmd := lookup(args[0])
	if cmd == nil {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		printUsage(stderr)
		return errUsage
	}

	fs := pflag.NewFlagSet(ProgramName+" "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	fs.String("log-level", "", "log level (debug, info, warn, error)")
	fs.String("logs-dir", "", "directory for log files, empty to log to stderr only")
	fs.Bool("fast", false, "use the allocation-free property helper")
	fs.Bool("carry-forward", false, "list every live object in every frame")
	if cmd.addFlags != nil {
		cmd.addFlags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return errUsage
	}

	if err := loadConfig(*configDir, fs); err != nil {
		return err
	}

	ctx = logging.ContextWithAttrs(ctx, slog.String("command", cmd.name))
	e := &env{ctx: ctx, stdout: stdout, stderr: stderr, flags: fs}
	closeLogs, err := e.setupLogging()
	if err != nil {
		return err
	}
	defer closeLogs()

	return cmd.exec(e, fs.Args())
}

// loadConfig reads the config file when present and applies flags that
// were set explicitly on top of it.
func loadConfig(dir string, fs *pflag.FlagSet) error {
	if err := config.Load(dir); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
		config.SetDefaults()
	}

	overrides := map[string]string{
		"log-level":     "logLevel",
		"logs-dir":      "logsDir",
		"fast":          "parser.fastPath",
		"carry-forward": "parser.carryForward",
		"storage":       "storage.type",
		"output-dir":    "storage.memory.outputDir",
		"format":        "storage.memory.format",
		"compression":   "storage.memory.compression",
		"sqlite-path":   "storage.sqlite.path",
		"batch-size":    "storage.sqlite.batchSize",
		"api-url":       "api.url",
		"tag":           "api.tag",
	}
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := overrides[f.Name]; ok {
			config.Set(key, f.Value.String())
		}
	})
	return nil
}

// setupLogging builds the slog sinks, the OTel provider and the optional
// GELF writer. The returned func flushes and closes them.
func (e *env) setupLogging() (func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	sinks := logging.Sinks{
		Console: e.stderr,
		Context: func(context.Context) []slog.Attr {
			if e.input == "" {
				return nil
			}
			return []slog.Attr{slog.String("input", e.input)}
		},
	}

	var logFile *os.File
	if dir := config.GetString("logsDir"); dir != "" {
		f, err := logging.OpenLogFile(dir, ProgramName, time.Now())
		if err != nil {
			return cleanup, err
		}
		logFile = f
		sinks.File = f
		closers = append(closers, func() { _ = f.Close() })
	}

	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := gelf.NewWriter(gl.Address)
		if err != nil {
			fmt.Fprintf(e.stderr, "graylog disabled: %v\n", err)
		} else {
			sinks.GELF = w
			closers = append(closers, func() { _ = w.Close() })
		}
	}

	oc := config.GetOTelConfig()
	cfg := intOtel.Config{
		Enabled:      oc.Enabled,
		ServiceName:  oc.ServiceName,
		BatchTimeout: oc.BatchTimeout,
		Endpoint:     oc.Endpoint,
		Insecure:     oc.Insecure,
	}
	if logFile != nil {
		cfg.LogWriter = logFile
	}
	provider, err := intOtel.New(cfg)
	if err != nil {
		fmt.Fprintf(e.stderr, "telemetry disabled: %v\n", err)
		provider, _ = intOtel.New(intOtel.Config{})
	}
	e.otel = provider
	if mp := provider.MeterProvider(); mp != nil {
		otel.SetMeterProvider(mp)
	}
	sinks.Provider = provider.LoggerProvider()

	e.logs = logging.NewSlogManager()
	e.logs.Setup(config.GetString("logLevel"), sinks)
	slog.SetDefault(e.logs.Logger())

	closers = append(closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.logs.Flush(ctx)
		_ = provider.Shutdown(ctx)
	})
	return cleanup, nil
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage:\n  %s <command> [flags] <file>\n\nCommands:\n", ProgramName)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-11s %s\n", c.name, c.summary)
	}
	fmt.Fprintf(w, "\nRun '%s <command> --help' for the flags of a command.\n", ProgramName)
}
