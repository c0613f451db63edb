package chat

import (
	"time"

	"github.com/frage-dev/frage/pkg/api"
)

// Observer receives notifications about client operations after the fact.
// The request and stream code paths hold no logging or metrics dependency
// themselves; everything observable flows through this interface.
//
// Implementations must be safe for concurrent use; stream callbacks fire
// from the background reader goroutine.
type Observer interface {
	// RequestStarted fires before the HTTP request is sent.
	// Mode is "complete" or "stream".
	RequestStarted(mode, model string)

	// RequestFinished fires once per call: after the response is parsed
	// in one-shot mode, or after the event channel is closed in
	// streaming mode.
	RequestFinished(mode, model string, outcome Outcome)

	// StreamEvent fires for each chunk yielded to the consumer.
	StreamEvent(model string)
}

// Outcome summarizes a finished call for the observer.
type Outcome struct {
	Duration time.Duration
	Usage    *api.Usage
	Events   int // yielded stream chunks; 0 in one-shot mode
	Err      error
}

// NopObserver is an Observer that does nothing. It is the default when no
// observer is configured.
type NopObserver struct{}

func (NopObserver) RequestStarted(mode, model string)                   {}
func (NopObserver) RequestFinished(mode, model string, outcome Outcome) {}
func (NopObserver) StreamEvent(model string)                            {}
