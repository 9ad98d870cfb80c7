package config

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/f1plots/f1dash-service-manager-go/log"
	"github.com/f1plots/f1dash-service-manager-go/version"
)

// Telemetry holds the otel providers created by SetupTelemetry.
type Telemetry struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
}

// Shutdown flushes and stops the otel providers.
func (t *Telemetry) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if t.meterProvider != nil {
		if err := t.meterProvider.Shutdown(ctx); err != nil {
			log.Warn("could not shutdown meter provider", log.ErrorField(err))
		}
	}
	if t.tracerProvider != nil {
		if err := t.tracerProvider.Shutdown(ctx); err != nil {
			log.Warn("could not shutdown tracer provider", log.ErrorField(err))
		}
	}
}

// SetupTelemetry initializes the otel providers. Data is exported via grpc to
// TelemetryEndpoint. If no endpoint is configured the data is written to
// stdout (useful for local development only).
func SetupTelemetry(ctx context.Context) (*Telemetry, error) {
	res, err := newResource(ctx)
	if err != nil {
		return nil, err
	}
	ret := &Telemetry{}
	if ret.meterProvider, err = newMeterProvider(ctx, res); err != nil {
		return nil, err
	}
	if ret.tracerProvider, err = newTracerProvider(ctx, res); err != nil {
		return nil, err
	}
	otel.SetMeterProvider(ret.meterProvider)
	otel.SetTracerProvider(ret.tracerProvider)
	return ret, nil
}

func newResource(ctx context.Context) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("f1dash-service-manager"),
			semconv.ServiceVersion(version.Version),
		))
}

//nolint:whitespace // can't make the linters happy
func newMeterProvider(
	ctx context.Context, res *resource.Resource,
) (*sdkmetric.MeterProvider, error) {
	var reader sdkmetric.Reader
	if TelemetryEndpoint != "" {
		exp, err := otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(TelemetryEndpoint),
			otlpmetricgrpc.WithInsecure())
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exp,
			sdkmetric.WithInterval(15*time.Second))
	} else {
		exp, err := stdoutmetric.New()
		if err != nil {
			return nil, err
		}
		reader = sdkmetric.NewPeriodicReader(exp,
			sdkmetric.WithInterval(15*time.Second))
	}
	return sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	), nil
}

//nolint:whitespace // can't make the linters happy
func newTracerProvider(
	ctx context.Context, res *resource.Resource,
) (*sdktrace.TracerProvider, error) {
	var exp sdktrace.SpanExporter
	var err error
	if TelemetryEndpoint != "" {
		exp, err = otlptracegrpc.New(ctx,
			otlptracegrpc.WithEndpoint(TelemetryEndpoint),
			otlptracegrpc.WithInsecure())
	} else {
		exp, err = stdouttrace.New()
	}
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exp),
	), nil
}
