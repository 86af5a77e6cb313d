package timeline

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/acmi/internal/timeline"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}
