package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *IngestMetrics) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	im, err := NewIngestMetrics(provider.Meter(meterName))
	require.NoError(t, err)

	return reader, im
}

func collectMetricNames(t *testing.T, reader *sdkmetric.ManualReader) map[string]bool {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := make(map[string]bool)

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			names[m.Name] = true
		}
	}

	return names
}

func TestIngestMetrics_RecordsInstruments(t *testing.T) {
	t.Parallel()

	reader, im := newTestMeter(t)
	ctx := context.Background()

	im.RecordFetch(ctx, "github", OutcomeSuccess, 150*time.Millisecond)
	im.RecordGated(ctx, "reddit")
	im.RecordSnapshot(ctx, "github")
	im.RecordMerge(ctx, "github", 3)
	im.RecordInvocation(ctx, 2)

	done := im.TrackInflight(ctx, "bluesky")
	done()

	names := collectMetricNames(t, reader)

	assert.True(t, names[metricFetchesTotal])
	assert.True(t, names[metricFetchDuration])
	assert.True(t, names[metricAccountsGated])
	assert.True(t, names[metricFetchesInflight])
	assert.True(t, names[metricSnapshotsWritten])
	assert.True(t, names[metricNewItemsPerMerge])
	assert.True(t, names[metricInvocationsTotal])
	assert.True(t, names[metricTimelinesBuilt])
}

func TestIngestMetrics_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var im *IngestMetrics

	ctx := context.Background()

	im.RecordFetch(ctx, "github", OutcomeFailure, time.Second)
	im.RecordGated(ctx, "github")
	im.RecordSnapshot(ctx, "github")
	im.RecordMerge(ctx, "github", 0)
	im.RecordInvocation(ctx, 0)
	im.TrackInflight(ctx, "github")()
}
