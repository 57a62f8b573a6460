package pipeline

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/argus/internal/notify"
)

func swapTracerProvider(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	return exporter
}

func TestProcess_CreatesLLMSpan(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.
	exporter := swapTracerProvider(t)

	provider := &fakeProvider{response: goodResponse}
	svc, _ := newTestService(t, svcOpts{
		provider:  provider,
		notifiers: []notify.Notifier{&fakeNotifier{}},
	})

	if _, err := svc.Process(context.Background(), event()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	var found bool
	for _, s := range exporter.GetSpans() {
		if s.Name != "llm.call" {
			continue
		}
		found = true

		attrs := make(map[string]any)
		for _, a := range s.Attributes {
			attrs[string(a.Key)] = a.Value.AsInterface()
		}
		if v := attrs["gen_ai.operation.name"]; v != "llm.call" {
			t.Errorf("gen_ai.operation.name = %v, want llm.call", v)
		}
		if v := attrs["gen_ai.provider.name"]; v != "fake" {
			t.Errorf("gen_ai.provider.name = %v, want fake", v)
		}
		if v := attrs["argus.alert.rule"]; v != "Terminal shell in container" {
			t.Errorf("argus.alert.rule = %v", v)
		}
	}
	if !found {
		t.Fatal("no llm.call span recorded")
	}
}

func TestProcess_LLMSpanRecordsError(t *testing.T) {
	// Not parallel: swaps the global OTel tracer provider.
	exporter := swapTracerProvider(t)

	provider := &fakeProvider{err: errors.New("rate limited")}
	svc, _ := newTestService(t, svcOpts{
		provider:  provider,
		notifiers: []notify.Notifier{&fakeNotifier{}},
	})

	if _, err := svc.Process(context.Background(), event()); err != nil {
		t.Fatalf("Process: %v", err)
	}

	for _, s := range exporter.GetSpans() {
		if s.Name != "llm.call" {
			continue
		}
		if len(s.Events) == 0 {
			t.Error("expected error event on llm.call span")
		}
		return
	}
	t.Fatal("no llm.call span recorded")
}
