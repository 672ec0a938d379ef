package rentals

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Telemetry holds the sync engine's OpenTelemetry instruments. A nil
// *Telemetry is valid and records nothing, so metrics stay optional in
// tests.
type Telemetry struct {
	passCounter   metric.Int64Counter
	syncCounter   metric.Int64Counter
	syncDuration  metric.Float64Histogram
	blockedRanges metric.Int64Histogram
}

// NewTelemetry creates the sync metrics on the global meter provider.
func NewTelemetry() (*Telemetry, error) {
	meter := otel.Meter("rentals-sync-service")

	passCounter, err := meter.Int64Counter(
		"rentals.sync.passes",
		metric.WithDescription("Total number of batch sync passes started"),
		metric.WithUnit("{pass}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pass counter: %w", err)
	}

	syncCounter, err := meter.Int64Counter(
		"rentals.sync.properties",
		metric.WithDescription("Property sync attempts by outcome"),
		metric.WithUnit("{sync}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sync counter: %w", err)
	}

	syncDuration, err := meter.Float64Histogram(
		"rentals.sync.duration",
		metric.WithDescription("Duration of one property sync in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	blockedRanges, err := meter.Int64Histogram(
		"rentals.sync.blocked_ranges",
		metric.WithDescription("Blocked ranges persisted per successful sync"),
		metric.WithUnit("{range}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create blocked ranges histogram: %w", err)
	}

	return &Telemetry{
		passCounter:   passCounter,
		syncCounter:   syncCounter,
		syncDuration:  syncDuration,
		blockedRanges: blockedRanges,
	}, nil
}

// RecordPass counts the start of a batch pass.
func (t *Telemetry) RecordPass(ctx context.Context) {
	if t == nil {
		return
	}
	t.passCounter.Add(ctx, 1)
}

// RecordSync counts one property sync attempt with its outcome.
func (t *Telemetry) RecordSync(ctx context.Context, outcome string, seconds float64, rangeCount int) {
	if t == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	t.syncCounter.Add(ctx, 1, attrs)
	if outcome != "skipped" {
		t.syncDuration.Record(ctx, seconds, attrs)
	}
	if outcome == "ok" {
		t.blockedRanges.Record(ctx, int64(rangeCount))
	}
}
