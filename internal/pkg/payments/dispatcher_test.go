package payments

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/AshleyDunne/PayDesk/app/models"
	"github.com/AshleyDunne/PayDesk/internal/pkg/fulfillment"
)

// memStore is a minimal in-memory fulfillment.Repository, enough to drive
// the dispatcher end to end from raw webhook bodies.
type memStore struct {
	products     map[uint]*models.Product
	orders       []*models.Order
	lineItems    []models.OrderLineItem
	entitlements []*models.Entitlement
	auditLogs    []models.AuditLog
	nextID       uint
}

func newMemStore(products ...*models.Product) *memStore {
	m := make(map[uint]*models.Product, len(products))
	for _, p := range products {
		m[p.ID] = p
	}
	return &memStore{products: m, nextID: 1}
}

func (s *memStore) GetOrderByProviderSessionID(sessionID string) (*models.Order, error) {
	for _, o := range s.orders {
		if o.ProviderSessionID == sessionID {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) GetOrderByProviderPaymentID(paymentID string) (*models.Order, error) {
	for _, o := range s.orders {
		if o.ProviderPaymentID != nil && *o.ProviderPaymentID == paymentID {
			return o, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) GetOrderWithDetails(orderID uint) (*models.Order, error) {
	for _, o := range s.orders {
		if o.ID == orderID {
			full := *o
			for _, item := range s.lineItems {
				if item.OrderID == orderID {
					full.LineItems = append(full.LineItems, item)
				}
			}
			return &full, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) GetProductByID(productID uint) (*models.Product, error) {
	if p, ok := s.products[productID]; ok {
		return p, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *memStore) CreateOrder(order *models.Order) error {
	order.ID = s.nextID
	s.nextID++
	s.orders = append(s.orders, order)
	return nil
}

func (s *memStore) CreateLineItems(items []models.OrderLineItem) error {
	s.lineItems = append(s.lineItems, items...)
	return nil
}

func (s *memStore) UpsertEntitlement(e *models.Entitlement) error {
	e.Active = true
	for _, stored := range s.entitlements {
		if stored.UserID == e.UserID && stored.ProductID == e.ProductID {
			stored.Active = true
			stored.OrderID = e.OrderID
			stored.RevokedAt = nil
			stored.RevokeReason = ""
			*e = *stored
			return nil
		}
	}
	e.ID = s.nextID
	s.nextID++
	stored := *e
	s.entitlements = append(s.entitlements, &stored)
	return nil
}

func (s *memStore) MarkOrderRefunded(orderID uint, at time.Time) (bool, error) {
	for _, o := range s.orders {
		if o.ID == orderID && o.Status != models.OrderStatusRefunded {
			o.Status = models.OrderStatusRefunded
			refundedAt := at
			o.RefundedAt = &refundedAt
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) DeactivateEntitlementsByOrder(orderID uint, reason string, at time.Time) (int64, error) {
	var n int64
	for _, e := range s.entitlements {
		if e.OrderID != nil && *e.OrderID == orderID && e.Active {
			e.Active = false
			revokedAt := at
			e.RevokedAt = &revokedAt
			e.RevokeReason = reason
			n++
		}
	}
	return n, nil
}

func (s *memStore) CreateAuditLog(entry *models.AuditLog) error {
	s.auditLogs = append(s.auditLogs, *entry)
	return nil
}

func (s *memStore) Transact(fn func(fulfillment.Repository) error) error {
	return fn(s)
}

func TestDispatcherProcessesPurchaseThenRefund(t *testing.T) {
	store := newMemStore(&models.Product{ID: 7, Name: "Video Course", Slug: "video-course", Price: 3900, Currency: "AUD", Active: true})
	dispatcher := NewDispatcher(fulfillment.NewService(store, nil))
	ctx := context.Background()

	checkoutBody := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {
			"session_id": "cs_1",
			"payment_id": "pi_1",
			"amount_total": 3900,
			"currency": "aud",
			"customer_email": "jamie@example.com",
			"metadata": {"user_id": "42", "product_id": "7"}
		}
	}`)
	envelope, err := ParseEnvelope(checkoutBody)
	if err != nil {
		t.Fatalf("ParseEnvelope failed: %v", err)
	}
	if err := dispatcher.Process(ctx, envelope); err != nil {
		t.Fatalf("Process(checkout) failed: %v", err)
	}

	if len(store.orders) != 1 {
		t.Fatalf("orders = %d, want 1", len(store.orders))
	}
	order := store.orders[0]
	if order.Total != 3900 || order.Currency != "AUD" || order.Status != models.OrderStatusCompleted {
		t.Fatalf("unexpected order: %+v", order)
	}
	if len(store.entitlements) != 1 || !store.entitlements[0].Active {
		t.Fatalf("checkout must activate the entitlement")
	}

	refundBody := []byte(`{
		"id": "evt_2",
		"type": "charge.refunded",
		"data": {"payment_id": "pi_1", "amount_refunded": 3900, "currency": "aud"}
	}`)
	envelope, err = ParseEnvelope(refundBody)
	if err != nil {
		t.Fatalf("ParseEnvelope failed: %v", err)
	}
	if err := dispatcher.Process(ctx, envelope); err != nil {
		t.Fatalf("Process(refund) failed: %v", err)
	}

	if order.Status != models.OrderStatusRefunded {
		t.Fatalf("refund must flip the order to refunded, got %q", order.Status)
	}
	if store.entitlements[0].Active {
		t.Fatalf("refund must deactivate the entitlement")
	}
	if store.entitlements[0].RevokeReason != models.RevokeReasonRefund {
		t.Fatalf("revoke reason = %q, want %q", store.entitlements[0].RevokeReason, models.RevokeReasonRefund)
	}
}

func TestDispatcherIgnoresUnhandledKinds(t *testing.T) {
	store := newMemStore()
	dispatcher := NewDispatcher(fulfillment.NewService(store, nil))

	envelope := Envelope{ID: "evt_3", Type: "invoice.paid"}
	if err := dispatcher.Process(context.Background(), envelope); err != nil {
		t.Fatalf("unhandled kinds must succeed: %v", err)
	}
	if len(store.orders) != 0 {
		t.Fatalf("unhandled kinds must not write anything")
	}
}

func TestDispatcherRejectsMalformedPayloads(t *testing.T) {
	store := newMemStore()
	dispatcher := NewDispatcher(fulfillment.NewService(store, nil))

	envelope := Envelope{ID: "evt_4", Type: EventTypeCheckoutCompleted, Data: []byte(`"not an object"`)}
	if err := dispatcher.Process(context.Background(), envelope); err == nil {
		t.Fatalf("expected error for malformed checkout payload")
	}
	envelope = Envelope{ID: "evt_5", Type: EventTypeChargeRefunded, Data: []byte(`[]`)}
	if err := dispatcher.Process(context.Background(), envelope); err == nil {
		t.Fatalf("expected error for malformed refund payload")
	}
}
