package observability

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	RecycleStatsName = "xrecycle"
	statsVersion     = "v1.0.0"
)

// RecycleStats counts how well a pool avoids allocations.
// All methods are nil-safe, a nil *RecycleStats means stats are disabled.
type RecycleStats struct {
	attrs    metric.MeasurementOption
	hits     metric.Int64Counter       // obtained from the spares
	misses   metric.Int64Counter       // spares empty, a new instance is allocated
	recycled metric.Int64Counter       // returned and kept for reuse
	dropped  metric.Int64Counter       // returned but discarded
	idle     metric.Int64UpDownCounter // spares currently kept
}

// NewRecycleStats builds the instruments from the global meter provider.
// The meter is named "xrecycle/<kind>" and every measurement carries
// the pool name as attribute, so several pools may share one kind.
func NewRecycleStats(kind, name string) *RecycleStats {
	builder := &strings.Builder{}
	builder.WriteString(RecycleStatsName)
	builder.WriteString("/")
	if len(strings.TrimSpace(kind)) > 0 {
		builder.WriteString(kind)
	} else {
		builder.WriteString("default")
	}
	name = lo.Ternary(len(strings.TrimSpace(name)) > 0, name, "default")

	meter := otel.Meter(
		builder.String(),
		metric.WithInstrumentationVersion(statsVersion),
	)
	return &RecycleStats{
		attrs: metric.WithAttributeSet(attribute.NewSet(
			attribute.String("xrecycle.pool.name", name),
		)),
		hits: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrecycle.obtain.hits",
			metric.WithDescription(`Instances served from the recycled spares.`),
		)),
		misses: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrecycle.obtain.misses",
			metric.WithDescription(`Instances allocated because there was no spare.`),
		)),
		recycled: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrecycle.recycled",
			metric.WithDescription(`Instances returned and kept for reuse.`),
		)),
		dropped: lo.Must[metric.Int64Counter](meter.Int64Counter(
			"xrecycle.dropped",
			metric.WithDescription(`Instances returned but discarded by the spares cap or a clear.`),
		)),
		idle: lo.Must[metric.Int64UpDownCounter](meter.Int64UpDownCounter(
			"xrecycle.idle",
			metric.WithDescription(`Spares currently kept by the pool.`),
		)),
	}
}

func (stats *RecycleStats) RecordHit() {
	if stats == nil {
		return
	}
	stats.hits.Add(context.Background(), 1, stats.attrs)
	stats.idle.Add(context.Background(), -1, stats.attrs)
}

func (stats *RecycleStats) RecordMiss() {
	if stats == nil {
		return
	}
	stats.misses.Add(context.Background(), 1, stats.attrs)
}

func (stats *RecycleStats) RecordRecycled() {
	if stats == nil {
		return
	}
	stats.recycled.Add(context.Background(), 1, stats.attrs)
	stats.idle.Add(context.Background(), 1, stats.attrs)
}

// RecordIdle adjusts the idle spares without counting a recycle,
// e.g. pre-allocated instances.
func (stats *RecycleStats) RecordIdle(delta int64) {
	if stats == nil || delta == 0 {
		return
	}
	stats.idle.Add(context.Background(), delta, stats.attrs)
}

// RecordDropped counts discarded instances. Pass kept=true when they were
// counted as idle before, so the idle gauge goes down as well.
func (stats *RecycleStats) RecordDropped(count int64, kept bool) {
	if stats == nil || count <= 0 {
		return
	}
	stats.dropped.Add(context.Background(), count, stats.attrs)
	if kept {
		stats.idle.Add(context.Background(), -count, stats.attrs)
	}
}
