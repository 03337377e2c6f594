package notify

// Package notify is the real-time alert collaborator: it consumes
// alert-eligible prediction results produced by the scoring engine and
// fans them out to subscribers. Delivery is the notifier's decision; the
// engine never dispatches anything itself.

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/villagedev/health-ai/internal/metrics"
)

// Event is one dispatched health alert.
type Event struct {
	ID           string    `json:"id"`
	PredictionID string    `json:"prediction_id"`
	Severity     int       `json:"severity"`
	Likelihood   float64   `json:"likelihood"`
	Factors      []string  `json:"factors"`
	CreatedAt    time.Time `json:"created_at"`
}

// Sink delivers alert events somewhere (websocket hub, Kafka topic).
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
}

// Notifier queues alert events and delivers them to all sinks off the
// request path.
type Notifier struct {
	log   *zap.Logger
	sinks []Sink
	ch    chan Event
	done  chan struct{}
}

// New creates a notifier over the given sinks.
func New(log *zap.Logger, sinks ...Sink) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Notifier{
		log:   log,
		sinks: sinks,
		ch:    make(chan Event, 256),
		done:  make(chan struct{}),
	}
}

// Start launches the delivery loop.
func (n *Notifier) Start(ctx context.Context) {
	go func() {
		defer close(n.done)
		for {
			select {
			case ev, ok := <-n.ch:
				if !ok {
					return
				}
				n.deliver(ctx, ev)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Dispatch enqueues an alert event without blocking the request path; if
// the queue is full the event is dropped and logged.
func (n *Notifier) Dispatch(predictionID string, severity int, likelihood float64, factors []string) {
	ev := Event{
		ID:           uuid.NewString(),
		PredictionID: predictionID,
		Severity:     severity,
		Likelihood:   likelihood,
		Factors:      factors,
		CreatedAt:    time.Now().UTC(),
	}
	select {
	case n.ch <- ev:
	default:
		n.log.Warn("alert queue full, dropping event",
			zap.String("prediction_id", predictionID),
			zap.Int("severity", severity))
	}
}

// Stop drains the queue and waits for the loop to exit.
func (n *Notifier) Stop() {
	close(n.ch)
	<-n.done
}

func (n *Notifier) deliver(ctx context.Context, ev Event) {
	for _, sink := range n.sinks {
		if err := sink.Publish(ctx, ev); err != nil {
			metrics.AlertsPublished.WithLabelValues(sink.Name(), "error").Inc()
			n.log.Warn("alert delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("event_id", ev.ID),
				zap.Error(err))
			continue
		}
		metrics.AlertsPublished.WithLabelValues(sink.Name(), "ok").Inc()
	}
}
