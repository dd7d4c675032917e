package llm

import (
	"context"
	"errors"
	"time"

	"campusattend/internal/logging"
	"campusattend/internal/metrics"
)

// Instrumented records logs and metrics around every call of the wrapped backend.
type Instrumented struct {
	Backend
}

// Instrument wraps b.
func Instrument(b Backend) *Instrumented {
	return &Instrumented{Backend: b}
}

func (i *Instrumented) Generate(ctx context.Context, req Request) (string, error) {
	log := logging.FromContext(ctx).With(
		"provider", i.Provider(),
		"model", i.Model(),
		"operation", req.Operation,
	)
	log.Info("generation started", "prompt_chars", len(req.Prompt))

	start := time.Now()
	text, err := i.Backend.Generate(ctx, req)
	elapsed := time.Since(start)
	metrics.GenerationDuration.WithLabelValues(i.Provider(), req.Operation).Observe(elapsed.Seconds())

	if err != nil {
		outcome := "error"
		var empty *EmptyResponseError
		if errors.As(err, &empty) {
			outcome = "empty"
			log.Warn("generation returned no text", "candidates", empty.Candidates, "finish_reasons", empty.FinishReasons)
		} else {
			log.Error("generation failed", "error", err, "elapsed", elapsed)
		}
		metrics.GenerationRequests.WithLabelValues(i.Provider(), req.Operation, outcome).Inc()
		return "", err
	}

	metrics.GenerationRequests.WithLabelValues(i.Provider(), req.Operation, "ok").Inc()
	log.Info("generation finished", "reply_chars", len(text), "elapsed", elapsed)
	return text, nil
}
