package payments

import (
	"testing"
)

func TestParseEnvelope(t *testing.T) {
	raw := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"session_id":"cs_1"}}`)

	envelope, err := ParseEnvelope(raw)
	if err != nil {
		t.Fatalf("ParseEnvelope failed: %v", err)
	}
	if envelope.ID != "evt_1" || envelope.Type != "checkout.session.completed" {
		t.Fatalf("unexpected envelope: %+v", envelope)
	}
	if len(envelope.Data) == 0 {
		t.Fatalf("envelope data not captured")
	}
}

func TestParseEnvelopeRejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: `{{{`},
		{name: "empty body", raw: ``},
		{name: "missing type", raw: `{"id":"evt_1","data":{}}`},
		{name: "blank type", raw: `{"id":"evt_1","type":"  "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseEnvelope([]byte(tt.raw)); err == nil {
				t.Fatalf("expected error for %q", tt.raw)
			}
		})
	}
}

func TestEnvelopeKind(t *testing.T) {
	tests := []struct {
		eventType string
		want      EventKind
	}{
		{eventType: "checkout.session.completed", want: EventCheckoutCompleted},
		{eventType: " Checkout.Session.Completed ", want: EventCheckoutCompleted},
		{eventType: "charge.refunded", want: EventChargeRefunded},
		{eventType: "invoice.paid", want: EventUnhandled},
		{eventType: "customer.created", want: EventUnhandled},
	}
	for _, tt := range tests {
		e := Envelope{Type: tt.eventType}
		if got := e.Kind(); got != tt.want {
			t.Fatalf("Kind(%q) = %v, want %v", tt.eventType, got, tt.want)
		}
	}
}

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind EventKind
		want string
	}{
		{kind: EventCheckoutCompleted, want: "checkout_completed"},
		{kind: EventChargeRefunded, want: "charge_refunded"},
		{kind: EventUnhandled, want: "unhandled"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Fatalf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestParseCheckoutCompleted(t *testing.T) {
	data := []byte(`{
		"session_id": "cs_1",
		"payment_id": "pi_1",
		"amount_total": 3900,
		"currency": "aud",
		"customer_email": "jamie@example.com",
		"customer_name": "Jamie",
		"metadata": {"user_id": "42", "product_id": "7"}
	}`)

	session, err := ParseCheckoutCompleted(data)
	if err != nil {
		t.Fatalf("ParseCheckoutCompleted failed: %v", err)
	}
	if session.SessionID != "cs_1" || session.PaymentID != "pi_1" {
		t.Fatalf("unexpected session ids: %+v", session)
	}
	if session.AmountTotal != 3900 || session.Currency != "aud" {
		t.Fatalf("unexpected amount: %d %s", session.AmountTotal, session.Currency)
	}
	if session.Metadata["user_id"] != "42" || session.Metadata["product_id"] != "7" {
		t.Fatalf("metadata not carried over: %v", session.Metadata)
	}
}

func TestParseCheckoutCompletedWithoutMetadata(t *testing.T) {
	session, err := ParseCheckoutCompleted([]byte(`{"session_id":"cs_1"}`))
	if err != nil {
		t.Fatalf("ParseCheckoutCompleted failed: %v", err)
	}
	if session.Metadata == nil {
		t.Fatalf("metadata must never be nil")
	}
	if _, err := ParseCheckoutCompleted([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}

func TestParseChargeRefunded(t *testing.T) {
	refund, err := ParseChargeRefunded([]byte(`{"payment_id":"pi_1","amount_refunded":3900,"currency":"aud"}`))
	if err != nil {
		t.Fatalf("ParseChargeRefunded failed: %v", err)
	}
	if refund.PaymentID != "pi_1" || refund.AmountRefunded != 3900 {
		t.Fatalf("unexpected refund: %+v", refund)
	}
	if _, err := ParseChargeRefunded([]byte(`[]`)); err == nil {
		t.Fatalf("expected error for invalid payload")
	}
}
