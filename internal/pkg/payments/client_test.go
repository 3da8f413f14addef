package payments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestGetCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions/cs_1" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk_test" {
			t.Errorf("missing bearer auth, got %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"payment_id": "pi_1",
			"amount_total": 3900,
			"currency": "aud",
			"customer_email": "jamie@example.com",
			"metadata": {"user_id": "42", "product_id": "7"}
		}`))
	}))
	defer srv.Close()

	client := &HTTPClient{
		APIBaseURL: srv.URL,
		SecretKey:  "sk_test",
		HTTP:       &http.Client{Timeout: 2 * time.Second},
	}

	session, err := client.GetCheckoutSession(context.Background(), "cs_1")
	if err != nil {
		t.Fatalf("GetCheckoutSession failed: %v", err)
	}
	// The session id is filled in from the request when the response omits it.
	if session.SessionID != "cs_1" {
		t.Fatalf("session id = %q, want cs_1", session.SessionID)
	}
	if session.PaymentID != "pi_1" || session.AmountTotal != 3900 {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.Metadata["user_id"] != "42" {
		t.Fatalf("metadata not decoded: %v", session.Metadata)
	}
}

func TestGetCheckoutSessionErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"no such session"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := &HTTPClient{
		APIBaseURL: srv.URL,
		SecretKey:  "sk_test",
		HTTP:       &http.Client{Timeout: 2 * time.Second},
	}
	ctx := context.Background()

	if _, err := client.GetCheckoutSession(ctx, "cs_missing"); err == nil {
		t.Fatalf("expected error for non-2xx response")
	}
	if _, err := client.GetCheckoutSession(ctx, "  "); err == nil {
		t.Fatalf("expected error for empty session id")
	}

	unconfigured := &HTTPClient{APIBaseURL: srv.URL, HTTP: http.DefaultClient}
	if _, err := unconfigured.GetCheckoutSession(ctx, "cs_1"); err == nil {
		t.Fatalf("expected error for missing secret key")
	}
}
