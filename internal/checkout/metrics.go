// internal/checkout/metrics.go
package checkout

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type metrics struct {
	issued   metric.Int64Counter
	failures metric.Int64Counter
}

func newMetrics() *metrics {
	meter := otel.Meter("librastore/checkout")
	m := &metrics{}
	// Instrument creation only fails on invalid names; fall back to no-ops.
	var err error
	if m.issued, err = meter.Int64Counter("librastore.invoices.issued",
		metric.WithDescription("Invoices issued by successful purchases")); err != nil {
		m.issued = nil
	}
	if m.failures, err = meter.Int64Counter("librastore.checkout.failures",
		metric.WithDescription("Purchases rejected or rolled back")); err != nil {
		m.failures = nil
	}
	return m
}

func (m *metrics) invoiceIssued(ctx context.Context) {
	if m.issued != nil {
		m.issued.Add(ctx, 1)
	}
}

func (m *metrics) checkoutFailed(ctx context.Context, reason string) {
	if m.failures != nil {
		m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
}
