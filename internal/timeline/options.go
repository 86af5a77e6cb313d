package timeline

import (
	"log/slog"

	"github.com/OCAP2/acmi/internal/parser"
	"github.com/OCAP2/acmi/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for warnings.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithHelper selects the float/split implementation used by the codec.
func WithHelper(h parser.Helper) Option {
	return func(b *Builder) {
		b.helper = h
	}
}

// WithCarryForward makes every frame list all live objects. Objects not
// updated in a frame are re-emitted with their merged last known state
// until a removal line drops them.
func WithCarryForward(enabled bool) Option {
	return func(b *Builder) {
		b.carryForward = enabled
	}
}

// WithMeter overrides the global OTel meter.
func WithMeter(m metric.Meter) Option {
	return func(b *Builder) {
		b.meter = m
	}
}

// WithHeaderFunc registers a callback run once, when the header is complete.
func WithHeaderFunc(fn func(core.Header)) Option {
	return func(b *Builder) {
		b.onHeader = fn
	}
}

// WithWarnFunc registers a callback receiving every structural warning.
func WithWarnFunc(fn func(core.Warning)) Option {
	return func(b *Builder) {
		b.onWarn = fn
	}
}

// WithGlobalUpdateFunc registers a callback for id 0 updates seen after the
// global property block.
func WithGlobalUpdateFunc(fn func(core.ObjectSnapshot)) Option {
	return func(b *Builder) {
		b.onGlobalUpdate = fn
	}
}
