package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/sweet/internal/core/ports"
)

// Provider owns the SDK tracer provider of one build session.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Setup installs a global tracer provider whose spans are reported to renderer.
func Setup(renderer ports.Renderer) *Provider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(NewBridge(renderer)),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}
}

// Shutdown ends span processing.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}
