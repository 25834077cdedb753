package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFetchesTotal     = "pulseboard.fetches.total"
	metricFetchDuration    = "pulseboard.fetch.duration.seconds"
	metricAccountsGated    = "pulseboard.accounts.gated.total"
	metricFetchesInflight  = "pulseboard.fetches.inflight"
	metricTimelinesBuilt   = "pulseboard.timelines.generated.total"
	metricSnapshotsWritten = "pulseboard.snapshots.written.total"
	metricInvocationsTotal = "pulseboard.invocations.total"
	metricNewItemsPerMerge = "pulseboard.merge.new_items"

	attrPlatform = "platform"
	attrOutcome  = "outcome"

	// Fetch outcome labels.
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// fetchDurationBoundaries covers fast cache-warm fetches up to the 30s
// per-adapter deadline.
var fetchDurationBoundaries = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30}

// IngestMetrics holds the instruments recorded during an ingestion
// invocation.
type IngestMetrics struct {
	fetchesTotal     metric.Int64Counter
	fetchDuration    metric.Float64Histogram
	accountsGated    metric.Int64Counter
	fetchesInflight  metric.Int64UpDownCounter
	timelinesBuilt   metric.Int64Counter
	snapshotsWritten metric.Int64Counter
	invocationsTotal metric.Int64Counter
	newItemsPerMerge metric.Float64Histogram
}

// NewIngestMetrics creates the ingestion instruments from the given meter.
func NewIngestMetrics(mt metric.Meter) (*IngestMetrics, error) {
	b := newMetricBuilder(mt)

	im := &IngestMetrics{
		fetchesTotal:     b.counter(metricFetchesTotal, "Provider fetches by platform and outcome", "{fetch}"),
		fetchDuration:    b.histogram(metricFetchDuration, "Provider fetch duration in seconds", "s", fetchDurationBoundaries...),
		accountsGated:    b.counter(metricAccountsGated, "Accounts skipped by the rate policy gate", "{account}"),
		fetchesInflight:  b.upDownCounter(metricFetchesInflight, "Provider fetches currently in flight", "{fetch}"),
		timelinesBuilt:   b.counter(metricTimelinesBuilt, "Timeline artifacts generated", "{timeline}"),
		snapshotsWritten: b.counter(metricSnapshotsWritten, "Corpus snapshots written", "{snapshot}"),
		invocationsTotal: b.counter(metricInvocationsTotal, "Ingestion invocations", "{invocation}"),
		newItemsPerMerge: b.histogram(metricNewItemsPerMerge, "New items contributed by one merge", "{item}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return im, nil
}

// RecordFetch records one settled provider fetch.
func (im *IngestMetrics) RecordFetch(ctx context.Context, p, outcome string, duration time.Duration) {
	if im == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrPlatform, p),
		attribute.String(attrOutcome, outcome),
	)

	im.fetchesTotal.Add(ctx, 1, attrs)
	im.fetchDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordGated records an account skipped by the fetch gate.
func (im *IngestMetrics) RecordGated(ctx context.Context, p string) {
	if im == nil {
		return
	}

	im.accountsGated.Add(ctx, 1, metric.WithAttributes(attribute.String(attrPlatform, p)))
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (im *IngestMetrics) TrackInflight(ctx context.Context, p string) func() {
	if im == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrPlatform, p))
	im.fetchesInflight.Add(ctx, 1, attrs)

	return func() { im.fetchesInflight.Add(ctx, -1, attrs) }
}

// RecordSnapshot counts one corpus snapshot write.
func (im *IngestMetrics) RecordSnapshot(ctx context.Context, p string) {
	if im == nil {
		return
	}

	im.snapshotsWritten.Add(ctx, 1, metric.WithAttributes(attribute.String(attrPlatform, p)))
}

// RecordMerge records how many new items one merge contributed.
func (im *IngestMetrics) RecordMerge(ctx context.Context, p string, newItems int) {
	if im == nil {
		return
	}

	im.newItemsPerMerge.Record(ctx, float64(newItems),
		metric.WithAttributes(attribute.String(attrPlatform, p)))
}

// RecordInvocation counts one completed invocation and its timelines.
func (im *IngestMetrics) RecordInvocation(ctx context.Context, timelines int) {
	if im == nil {
		return
	}

	im.invocationsTotal.Add(ctx, 1)
	im.timelinesBuilt.Add(ctx, int64(timelines))
}
