package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/AshleyDunne/PayDesk/internal/pkg/fulfillment"
)

// Provider event type strings this engine dispatches on. Everything else is
// recorded in the ledger and ignored.
const (
	EventTypeCheckoutCompleted = "checkout.session.completed"
	EventTypeChargeRefunded    = "charge.refunded"
)

// EventKind is the closed set of event classes the engine understands.
// Adding a new handled event type means extending this enum and every switch
// over it, which the compiler will point out.
type EventKind int

const (
	EventUnhandled EventKind = iota
	EventCheckoutCompleted
	EventChargeRefunded
)

func (k EventKind) String() string {
	switch k {
	case EventCheckoutCompleted:
		return "checkout_completed"
	case EventChargeRefunded:
		return "charge_refunded"
	default:
		return "unhandled"
	}
}

// Envelope is the outer shape of every inbound provider webhook.
type Envelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Kind maps the provider's event type string onto the closed EventKind set.
func (e Envelope) Kind() EventKind {
	switch strings.ToLower(strings.TrimSpace(e.Type)) {
	case EventTypeCheckoutCompleted:
		return EventCheckoutCompleted
	case EventTypeChargeRefunded:
		return EventChargeRefunded
	default:
		return EventUnhandled
	}
}

// ParseEnvelope decodes the raw webhook body into an Envelope.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return Envelope{}, fmt.Errorf("invalid event envelope: %w", err)
	}
	if strings.TrimSpace(e.Type) == "" {
		return Envelope{}, errors.New("event envelope has no type")
	}
	return e, nil
}

type checkoutSessionPayload struct {
	SessionID     string            `json:"session_id"`
	PaymentID     string            `json:"payment_id"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	CustomerEmail string            `json:"customer_email"`
	CustomerName  string            `json:"customer_name"`
	Metadata      map[string]string `json:"metadata"`
}

type refundPayload struct {
	PaymentID      string `json:"payment_id"`
	AmountRefunded int64  `json:"amount_refunded"`
	Currency       string `json:"currency"`
}

// ParseCheckoutCompleted decodes a checkout.session.completed payload into
// the pipeline's normalized session shape.
func ParseCheckoutCompleted(data []byte) (fulfillment.CheckoutSession, error) {
	var p checkoutSessionPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fulfillment.CheckoutSession{}, fmt.Errorf("invalid checkout session payload: %w", err)
	}
	metadata := p.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return fulfillment.CheckoutSession{
		SessionID:     p.SessionID,
		PaymentID:     p.PaymentID,
		AmountTotal:   p.AmountTotal,
		Currency:      p.Currency,
		CustomerEmail: p.CustomerEmail,
		CustomerName:  p.CustomerName,
		Metadata:      metadata,
	}, nil
}

// ParseChargeRefunded decodes a charge.refunded payload.
func ParseChargeRefunded(data []byte) (fulfillment.RefundEvent, error) {
	var p refundPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return fulfillment.RefundEvent{}, fmt.Errorf("invalid refund payload: %w", err)
	}
	return fulfillment.RefundEvent{
		PaymentID:      p.PaymentID,
		AmountRefunded: p.AmountRefunded,
		Currency:       p.Currency,
	}, nil
}
