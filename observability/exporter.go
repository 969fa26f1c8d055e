package observability

// https://opentelemetry.io/docs/languages/go/exporters/

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/multierr"
)

type ShutdownFunc func(ctx context.Context) error

// NewConsoleMetricsExporter serves for test/dev environment.
// The recycle stats are printed periodically by stdout (or the writer option).
func NewConsoleMetricsExporter(interval, timeout time.Duration, opts ...stdoutmetric.Option) (ShutdownFunc, error) {
	exporter, err := stdoutmetric.New(opts...)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(metric.NewPeriodicReader(
		exporter,
		metric.WithInterval(interval),
		metric.WithTimeout(timeout),
	)))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// NewPrometheusMetricsExporter serves for the product environment and the stats
// are fetched by HTTP from the prometheus default registry.
func NewPrometheusMetricsExporter(opts ...prometheus.Option) (ShutdownFunc, error) {
	exporter, err := prometheus.New(opts...)
	if err != nil {
		return nil, err
	}
	mp := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(mp)
	return mp.Shutdown, nil
}

// ShutdownAll calls every callback even if some of them fail.
func ShutdownAll(ctx context.Context, callbacks ...ShutdownFunc) error {
	var merr error
	for _, cb := range callbacks {
		if cb == nil {
			continue
		}
		merr = multierr.Append(merr, cb(ctx))
	}
	return merr
}
