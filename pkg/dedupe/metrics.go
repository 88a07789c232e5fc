package dedupe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/fyrsmithlabs/dedupd/pkg/dedupe"

// Metrics holds the engine's instrumentation. All instruments come from the
// global meter provider; without an installed SDK they are no-ops.
type Metrics struct {
	meter          metric.Meter
	logger         *zap.Logger
	runDuration    metric.Float64Histogram
	pairsEvaluated metric.Int64Counter
	groupsEmitted  metric.Int64Counter
	invalidVectors metric.Int64Counter
}

// NewMetrics creates a Metrics instance for the engine.
func NewMetrics(logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Metrics{
		meter:  otel.Meter(instrumentationName),
		logger: logger,
	}
	m.init()
	return m
}

func (m *Metrics) init() {
	var err error

	m.runDuration, err = m.meter.Float64Histogram(
		"dedupd.engine.run_duration_seconds",
		metric.WithDescription("Duration of a full detection run, labeled by outcome (ok, error)"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 15.0, 60.0),
	)
	if err != nil {
		m.logger.Warn("failed to create run duration histogram", zap.Error(err))
	}

	m.pairsEvaluated, err = m.meter.Int64Counter(
		"dedupd.engine.pairs_evaluated_total",
		metric.WithDescription("Total candidate pairs scored by the similarity calculator"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		m.logger.Warn("failed to create pairs counter", zap.Error(err))
	}

	m.groupsEmitted, err = m.meter.Int64Counter(
		"dedupd.engine.groups_total",
		metric.WithDescription("Total duplicate groups emitted"),
		metric.WithUnit("{group}"),
	)
	if err != nil {
		m.logger.Warn("failed to create groups counter", zap.Error(err))
	}

	m.invalidVectors, err = m.meter.Int64Counter(
		"dedupd.engine.invalid_vectors_total",
		metric.WithDescription("Embeddings rejected for NaN/Inf components and degraded to hash-only comparison"),
		metric.WithUnit("{vector}"),
	)
	if err != nil {
		m.logger.Warn("failed to create invalid vectors counter", zap.Error(err))
	}
}

// RecordRun records the outcome of one detection run.
func (m *Metrics) RecordRun(ctx context.Context, duration time.Duration, pairs, groups int, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))

	if m.runDuration != nil {
		m.runDuration.Record(ctx, duration.Seconds(), attrs)
	}
	if m.pairsEvaluated != nil {
		m.pairsEvaluated.Add(ctx, int64(pairs), attrs)
	}
	if m.groupsEmitted != nil && err == nil {
		m.groupsEmitted.Add(ctx, int64(groups))
	}
}

// RecordInvalidVector counts one rejected embedding.
func (m *Metrics) RecordInvalidVector(ctx context.Context) {
	if m.invalidVectors != nil {
		m.invalidVectors.Add(ctx, 1)
	}
}
