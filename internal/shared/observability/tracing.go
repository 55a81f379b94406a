package observability

import (
	"go.opentelemetry.io/otel"
)

// Tracer is the process-wide tracer. Without an installed provider the spans
// are no-ops.
var Tracer = otel.Tracer("ssd")
