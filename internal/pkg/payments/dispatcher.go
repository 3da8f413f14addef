package payments

import (
	"context"
	"log"

	"github.com/AshleyDunne/PayDesk/internal/pkg/fulfillment"
)

// Dispatcher routes a decoded envelope to the pipeline that handles its
// kind. The switch is exhaustive over EventKind.
type Dispatcher struct {
	engine *fulfillment.Service
}

// NewDispatcher creates a dispatcher around the fulfillment service.
func NewDispatcher(engine *fulfillment.Service) *Dispatcher {
	return &Dispatcher{engine: engine}
}

// Process executes the pipeline for the envelope's event kind. Unhandled
// kinds are logged and succeed, so the provider stops redelivering them.
func (d *Dispatcher) Process(ctx context.Context, envelope Envelope) error {
	switch envelope.Kind() {
	case EventCheckoutCompleted:
		session, err := ParseCheckoutCompleted(envelope.Data)
		if err != nil {
			return err
		}
		_, err = d.engine.Fulfill(ctx, session)
		return err
	case EventChargeRefunded:
		refund, err := ParseChargeRefunded(envelope.Data)
		if err != nil {
			return err
		}
		return d.engine.Reverse(ctx, refund)
	case EventUnhandled:
		log.Printf("payments: ignoring unhandled event type %q (id=%s)", envelope.Type, envelope.ID)
		return nil
	}
	return nil
}
