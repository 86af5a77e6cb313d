package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// InstrumentationName identifies records sent through the OTel bridge.
const InstrumentationName = "acmi"

// Sinks lists the outputs a SlogManager writes to. Nil fields are skipped.
type Sinks struct {
	Console  io.Writer // text records, usually os.Stderr
	File     io.Writer // text records
	GELF     io.Writer // JSON records, e.g. a Graylog GELF writer
	Provider *sdklog.LoggerProvider
	Context  ContextProvider // attributes added to every record
}

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// ParseLevel converts a string log level to slog.Level.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. It can be called again to replace
// every sink.
func (m *SlogManager) Setup(level string, sinks Sinks) {
	lvl := ParseLevel(level)
	m.logProvider = sinks.Provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if sinks.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(sinks.Console, handlerOpts))
	}
	if sinks.File != nil {
		handlers = append(handlers, slog.NewTextHandler(sinks.File, handlerOpts))
	}
	if sinks.GELF != nil {
		handlers = append(handlers, slog.NewJSONHandler(sinks.GELF, handlerOpts))
	}
	if sinks.Provider != nil {
		handlers = append(handlers, otelslog.NewHandler(InstrumentationName, otelslog.WithLoggerProvider(sinks.Provider)))
	}

	handler := NewContextHandler(NewMultiHandler(handlers...), sinks.Context)

	m.logger = slog.New(handler)
	m.logger.Debug("Logging initialized", "level", lvl.String())
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}
