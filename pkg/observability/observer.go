package observability

import (
	"log/slog"

	"github.com/frage-dev/frage/pkg/chat"
	"github.com/frage-dev/frage/pkg/debug"
)

// Observer implements chat.Observer with slog logging and Prometheus
// metrics. All callbacks are safe for concurrent use; the underlying
// metric vectors and slog handlers synchronize internally.
type Observer struct {
	logger *slog.Logger
}

var _ chat.Observer = (*Observer)(nil)

// NewObserver creates an Observer. A nil logger uses slog.Default.
func NewObserver(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger}
}

// RequestStarted implements chat.Observer.
func (o *Observer) RequestStarted(mode, model string) {
	if mode == "stream" {
		StreamsActive.Inc()
	}
	debug.Log("client", "request started", "mode", mode, "model", model)
}

// RequestFinished implements chat.Observer.
func (o *Observer) RequestFinished(mode, model string, outcome chat.Outcome) {
	if mode == "stream" {
		StreamsActive.Dec()
	}

	status := "ok"
	if outcome.Err != nil {
		status = "error"
	}
	RequestsTotal.WithLabelValues(mode, model, status).Inc()
	RequestDuration.WithLabelValues(mode, model).Observe(outcome.Duration.Seconds())

	if outcome.Usage != nil {
		TokensTotal.WithLabelValues(model, "input").Add(float64(outcome.Usage.PromptTokens))
		TokensTotal.WithLabelValues(model, "output").Add(float64(outcome.Usage.CompletionTokens))
	}

	if outcome.Err != nil {
		o.logger.Error("completion call failed",
			"mode", mode,
			"model", model,
			"duration", outcome.Duration,
			"events", outcome.Events,
			"error", outcome.Err,
		)
		return
	}

	o.logger.Info("completion call finished",
		"mode", mode,
		"model", model,
		"duration", outcome.Duration,
		"events", outcome.Events,
	)
}

// StreamEvent implements chat.Observer.
func (o *Observer) StreamEvent(model string) {
	StreamEventsTotal.WithLabelValues(model).Inc()
	debug.Trace("streaming", "chunk yielded", "model", model)
}
