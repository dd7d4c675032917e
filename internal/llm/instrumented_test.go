package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"campusattend/internal/metrics"
)

type stubBackend struct {
	text string
	err  error
	got  Request
}

func (s *stubBackend) Generate(_ context.Context, req Request) (string, error) {
	s.got = req
	return s.text, s.err
}

func (s *stubBackend) Provider() string           { return "stub" }
func (s *stubBackend) Model() string              { return "stub-1" }
func (s *stubBackend) Ping(context.Context) error { return nil }

func TestInstrumentedCountsOutcomes(t *testing.T) {
	ok := Instrument(&stubBackend{text: "fine"})
	text, err := ok.Generate(context.Background(), Request{Operation: "chat_test", Prompt: "hi"})
	if err != nil || text != "fine" {
		t.Fatalf("unexpected result %q %v", text, err)
	}
	if n := testutil.ToFloat64(metrics.GenerationRequests.WithLabelValues("stub", "chat_test", "ok")); n != 1 {
		t.Fatalf("expected one ok call, got %v", n)
	}

	empty := Instrument(&stubBackend{err: &UpstreamError{Provider: "stub", Err: &EmptyResponseError{}}})
	if _, err := empty.Generate(context.Background(), Request{Operation: "chat_test"}); err == nil {
		t.Fatalf("expected error")
	}
	if n := testutil.ToFloat64(metrics.GenerationRequests.WithLabelValues("stub", "chat_test", "empty")); n != 1 {
		t.Fatalf("expected one empty call, got %v", n)
	}

	boom := errors.New("boom")
	failing := Instrument(&stubBackend{err: boom})
	if _, err := failing.Generate(context.Background(), Request{Operation: "chat_test"}); !errors.Is(err, boom) {
		t.Fatalf("expected error passed through, got %v", err)
	}
	if n := testutil.ToFloat64(metrics.GenerationRequests.WithLabelValues("stub", "chat_test", "error")); n != 1 {
		t.Fatalf("expected one failed call, got %v", n)
	}
}
