package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AshleyDunne/PayDesk/internal/pkg/env"
	"github.com/AshleyDunne/PayDesk/internal/pkg/fulfillment"
)

const defaultProviderAPIBaseURL = "https://api.stripe.com"

// Client is the capability for talking back to the payment provider. It is
// constructor-injected wherever it is needed; there is no package-level
// client instance.
type Client interface {
	GetCheckoutSession(ctx context.Context, sessionID string) (fulfillment.CheckoutSession, error)
}

// HTTPClient is the REST implementation of Client.
type HTTPClient struct {
	APIBaseURL string
	SecretKey  string

	HTTP *http.Client
}

// NewClientFromEnv builds a provider client from environment configuration.
func NewClientFromEnv() *HTTPClient {
	return &HTTPClient{
		APIBaseURL: strings.TrimRight(env.GetEnv("PAYMENT_API_BASE_URL", defaultProviderAPIBaseURL), "/"),
		SecretKey:  strings.TrimSpace(env.GetEnv("PAYMENT_SECRET_KEY", "")),
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// GetCheckoutSession fetches a checkout session from the provider API. Used
// by the admin replay path when an event was lost and fulfillment has to be
// re-driven from the provider's copy of the session.
func (c *HTTPClient) GetCheckoutSession(ctx context.Context, sessionID string) (fulfillment.CheckoutSession, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return fulfillment.CheckoutSession{}, errors.New("session id is required")
	}
	if c.SecretKey == "" {
		return fulfillment.CheckoutSession{}, errors.New("PAYMENT_SECRET_KEY is not configured")
	}

	url := fmt.Sprintf("%s/v1/checkout/sessions/%s", c.APIBaseURL, id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fulfillment.CheckoutSession{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fulfillment.CheckoutSession{}, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fulfillment.CheckoutSession{}, fmt.Errorf("checkout session fetch failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var payload checkoutSessionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return fulfillment.CheckoutSession{}, err
	}
	if strings.TrimSpace(payload.SessionID) == "" {
		payload.SessionID = id
	}
	metadata := payload.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return fulfillment.CheckoutSession{
		SessionID:     payload.SessionID,
		PaymentID:     payload.PaymentID,
		AmountTotal:   payload.AmountTotal,
		Currency:      payload.Currency,
		CustomerEmail: payload.CustomerEmail,
		CustomerName:  payload.CustomerName,
		Metadata:      metadata,
	}, nil
}
