package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/AshleyDunne/PayDesk/app/models"
	"gorm.io/gorm"
)

// Notifier dispatches user-facing confirmation messages. Implementations
// must record failures themselves; the pipelines treat every send as
// best-effort.
type Notifier interface {
	SendPurchaseConfirmation(ctx context.Context, order *models.Order) error
	SendRefundConfirmation(ctx context.Context, order *models.Order) error
}

// Service implements the fulfillment and reversal pipelines: it turns
// verified provider events into Order + Entitlement state, exactly once.
type Service struct {
	repo     Repository
	notifier Notifier
}

// NewService creates a fulfillment service from an injected repository and notifier.
func NewService(repo Repository, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

// NewServiceFromDB creates a fulfillment service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, notifier Notifier) *Service {
	return NewService(NewRepository(db), notifier)
}

// Fulfill materializes a completed checkout session into one Order, its line
// items and one entitlement per purchased product, atomically. Processing the
// same session any number of times produces exactly one of each: the ledger
// dedupes whole events, and the provider_session_id lookup here is the second
// line of defense for replays that bypass the ledger.
func (s *Service) Fulfill(ctx context.Context, session CheckoutSession) (*models.Order, error) {
	sessionID := strings.TrimSpace(session.SessionID)
	if sessionID == "" {
		return nil, ErrMissingSessionID
	}
	email := strings.TrimSpace(session.CustomerEmail)
	if email == "" {
		return nil, ErrMissingCustomerEmail
	}
	userID, err := parseUserID(session.Metadata)
	if err != nil {
		return nil, err
	}
	productIDs, err := parseProductIDs(session.Metadata)
	if err != nil {
		return nil, err
	}

	// Duplicate-order guard, checked before opening the transaction.
	if existing, err := s.repo.GetOrderByProviderSessionID(sessionID); err == nil {
		log.Printf("fulfillment: session %s already fulfilled as order %d, skipping", sessionID, existing.ID)
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now()
	var paymentID *string
	if p := strings.TrimSpace(session.PaymentID); p != "" {
		paymentID = &p
	}

	order := &models.Order{
		UserID:            &userID,
		Status:            models.OrderStatusCompleted,
		Total:             session.AmountTotal,
		Currency:          strings.ToUpper(strings.TrimSpace(session.Currency)),
		ProviderSessionID: sessionID,
		ProviderPaymentID: paymentID,
		CustomerEmail:     email,
		CustomerName:      strings.TrimSpace(session.CustomerName),
		FulfilledAt:       &now,
	}

	err = s.repo.Transact(func(tx Repository) error {
		items := make([]models.OrderLineItem, 0, len(productIDs))
		products := make([]*models.Product, 0, len(productIDs))
		for _, productID := range productIDs {
			product, err := tx.GetProductByID(productID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: product %d", ErrProductNotFound, productID)
				}
				return err
			}
			products = append(products, product)
		}

		if err := tx.CreateOrder(order); err != nil {
			return err
		}

		for _, product := range products {
			items = append(items, models.OrderLineItem{
				OrderID:     order.ID,
				ProductID:   product.ID,
				ProductName: product.Name,
				Amount:      product.Price,
				Currency:    product.Currency,
			})
		}
		if err := tx.CreateLineItems(items); err != nil {
			return err
		}

		for _, product := range products {
			orderID := order.ID
			entitlement := &models.Entitlement{
				UserID:    userID,
				ProductID: product.ID,
				OrderID:   &orderID,
				// One-time purchases are lifetime grants.
				ExpiresAt: nil,
			}
			if err := tx.UpsertEntitlement(entitlement); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit, outside the transaction: the order and entitlement are
	// authoritative now, a notification outage must not undo them.
	full, err := s.repo.GetOrderWithDetails(order.ID)
	if err != nil {
		log.Printf("fulfillment: order %d committed but reload for notification failed: %v", order.ID, err)
		return order, nil
	}
	if s.notifier != nil {
		if err := s.notifier.SendPurchaseConfirmation(ctx, full); err != nil {
			log.Printf("fulfillment: purchase confirmation for order %d failed: %v", full.ID, err)
		}
	}
	return full, nil
}

// Reverse flips the order behind a refunded charge to its terminal refunded
// state and deactivates the entitlements that order granted. Deactivation is
// scoped to entitlements still pointing at this order; access re-granted by a
// later order survives a delayed refund of an earlier one.
func (s *Service) Reverse(ctx context.Context, event RefundEvent) error {
	paymentID := strings.TrimSpace(event.PaymentID)
	if paymentID == "" {
		log.Print("reversal: refund event without payment id, ignoring")
		return nil
	}

	order, err := s.repo.GetOrderByProviderPaymentID(paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// A refund for an order this system never fulfilled (for example
			// cross-environment event leakage) must not block redelivery.
			log.Printf("reversal: no order for payment %s, ignoring refund", paymentID)
			return nil
		}
		return err
	}
	if order.IsRefunded() {
		log.Printf("reversal: order %d already refunded, skipping", order.ID)
		return nil
	}

	now := time.Now()
	applied := false
	err = s.repo.Transact(func(tx Repository) error {
		// The status guard on the update is the real idempotency barrier:
		// the pre-check above can race a parallel delivery of the same
		// event, the conditional write cannot.
		changed, err := tx.MarkOrderRefunded(order.ID, now)
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		applied = true
		revoked, err := tx.DeactivateEntitlementsByOrder(order.ID, models.RevokeReasonRefund, now)
		if err != nil {
			return err
		}

		detail, _ := json.Marshal(map[string]interface{}{
			"payment_id":           paymentID,
			"amount_refunded":      event.AmountRefunded,
			"currency":             strings.ToUpper(strings.TrimSpace(event.Currency)),
			"entitlements_revoked": revoked,
		})
		orderID := order.ID
		return tx.CreateAuditLog(&models.AuditLog{
			Actor:   "payments:webhook",
			Action:  models.AuditActionRefund,
			OrderID: &orderID,
			Detail:  string(detail),
		})
	})
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("reversal: order %d was refunded by a parallel delivery, skipping", order.ID)
		return nil
	}

	full, err := s.repo.GetOrderWithDetails(order.ID)
	if err != nil {
		log.Printf("reversal: order %d refunded but reload for notification failed: %v", order.ID, err)
		return nil
	}
	if s.notifier != nil {
		if err := s.notifier.SendRefundConfirmation(ctx, full); err != nil {
			log.Printf("reversal: refund confirmation for order %d failed: %v", full.ID, err)
		}
	}
	return nil
}

func parseUserID(metadata map[string]string) (uint, error) {
	raw := strings.TrimSpace(metadata[MetadataKeyUserID])
	if raw == "" {
		return 0, ErrMissingUserMetadata
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrMissingUserMetadata, raw)
	}
	return uint(id), nil
}

func parseProductIDs(metadata map[string]string) ([]uint, error) {
	raw := strings.TrimSpace(metadata[MetadataKeyProductID])
	if raw == "" {
		return nil, ErrMissingProductData
	}
	parts := strings.Split(raw, ",")
	ids := make([]uint, 0, len(parts))
	seen := make(map[uint]struct{}, len(parts))
	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		id, err := strconv.ParseUint(p, 10, 64)
		if err != nil || id == 0 {
			return nil, fmt.Errorf("%w: %q", ErrMissingProductData, raw)
		}
		if _, ok := seen[uint(id)]; ok {
			continue
		}
		seen[uint(id)] = struct{}{}
		ids = append(ids, uint(id))
	}
	if len(ids) == 0 {
		return nil, ErrMissingProductData
	}
	return ids, nil
}
