package entitlements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AshleyDunne/PayDesk/app/models"
	"gorm.io/gorm"
)

// Service is the entitlement access oracle: the read path the rest of the
// application uses to answer "does user U currently have access to product
// P", plus the admin grant/revoke entry points. Admin actions reuse the same
// pair-upsert and pair-deactivate helpers as the payment pipelines, so manual
// corrections and payment-driven changes cannot diverge in behavior.
type Service struct {
	repo  Repository
	cache AccessCache
}

// NewService creates an entitlements service from an injected repository and cache.
func NewService(repo Repository, accessCache AccessCache) *Service {
	if accessCache == nil {
		accessCache = NopCache{}
	}
	return &Service{repo: repo, cache: accessCache}
}

// NewServiceFromDB creates an entitlements service from a GORM DB handle,
// backed by the shared Redis access cache.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db), NewRedisCache())
}

// HasAccess reports whether the user currently holds an active, unexpired
// entitlement for the product. An entitlement found expired is lazily
// revoked on the spot, so expired grants self-heal without a background
// sweep. This path always hits the database: it gates actual content
// delivery and must not serve stale grants.
func (s *Service) HasAccess(ctx context.Context, userID, productID uint) (bool, error) {
	_ = ctx
	e, err := s.repo.GetByPair(userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !e.Active {
		return false, nil
	}
	now := time.Now()
	if e.IsExpired(now) {
		if _, err := s.repo.RevokeIfExpired(e.ID, now); err != nil {
			return false, err
		}
		s.cache.Invalidate(accessCacheKey(userID, productID))
		return false, nil
	}
	return true, nil
}

// HasAccessBulk answers access for many products in one query. This is the
// read-only fast path for UI rendering: results may be cached for a short
// window and expired entitlements are filtered, not revoked. Only the
// single-item path mutates on expiry.
func (s *Service) HasAccessBulk(ctx context.Context, userID uint, productIDs []uint) (map[uint]bool, error) {
	_ = ctx
	result := make(map[uint]bool, len(productIDs))
	missing := make([]uint, 0, len(productIDs))
	for _, productID := range productIDs {
		if v, ok := s.cache.GetBool(accessCacheKey(userID, productID)); ok {
			result[productID] = v
			continue
		}
		result[productID] = false
		missing = append(missing, productID)
	}
	if len(missing) == 0 {
		return result, nil
	}

	active, err := s.repo.ListActiveProductIDs(userID, missing, time.Now())
	if err != nil {
		return nil, err
	}
	activeSet := make(map[uint]struct{}, len(active))
	for _, id := range active {
		activeSet[id] = struct{}{}
	}
	for _, productID := range missing {
		_, ok := activeSet[productID]
		result[productID] = ok
		s.cache.SetBool(accessCacheKey(userID, productID), ok, bulkCacheTTL)
	}
	return result, nil
}

// ListActiveEntitlements returns the user's active, unexpired entitlements
// with their product summaries.
func (s *Service) ListActiveEntitlements(ctx context.Context, userID uint) ([]models.Entitlement, error) {
	_ = ctx
	return s.repo.ListActiveByUser(userID, time.Now())
}

// GrantInput describes a manual entitlement grant.
type GrantInput struct {
	UserID    uint
	ProductID uint
	OrderID   *uint
	ExpiresAt *time.Time
	Actor     string
	Reason    string
}

// Grant creates or reactivates the entitlement row for the pair. Customer
// support corrections land here and go through the exact upsert the
// fulfillment pipeline uses.
func (s *Service) Grant(ctx context.Context, in GrantInput) (*models.Entitlement, error) {
	_ = ctx
	if in.UserID == 0 || in.ProductID == 0 {
		return nil, errors.New("user_id and product_id are required")
	}
	e := &models.Entitlement{
		UserID:    in.UserID,
		ProductID: in.ProductID,
		OrderID:   in.OrderID,
		ExpiresAt: in.ExpiresAt,
	}
	if err := s.repo.UpsertEntitlement(e); err != nil {
		return nil, err
	}

	if err := s.auditEntitlement(models.AuditActionEntitlementGranted, e, in.Actor, in.Reason); err != nil {
		return nil, err
	}
	s.cache.Invalidate(accessCacheKey(in.UserID, in.ProductID))
	return e, nil
}

// Revoke deactivates the entitlement for the pair, stamping the revocation
// reason. The row itself stays as audit trail. Returns false when no active
// entitlement existed.
func (s *Service) Revoke(ctx context.Context, userID, productID uint, actor, reason string) (bool, error) {
	_ = ctx
	if userID == 0 || productID == 0 {
		return false, errors.New("user_id and product_id are required")
	}
	if strings.TrimSpace(reason) == "" {
		reason = models.RevokeReasonManual
	}
	revoked, err := s.repo.DeactivateByPair(userID, productID, reason, time.Now())
	if err != nil {
		return false, err
	}
	if revoked {
		e, err := s.repo.GetByPair(userID, productID)
		if err != nil {
			return true, err
		}
		if err := s.auditEntitlement(models.AuditActionEntitlementRevoked, e, actor, reason); err != nil {
			return true, err
		}
	}
	s.cache.Invalidate(accessCacheKey(userID, productID))
	return revoked, nil
}

func (s *Service) auditEntitlement(action string, e *models.Entitlement, actor, reason string) error {
	if strings.TrimSpace(actor) == "" {
		actor = "admin"
	}
	detail, _ := json.Marshal(map[string]interface{}{
		"user_id":    e.UserID,
		"product_id": e.ProductID,
		"reason":     reason,
	})
	entitlementID := e.ID
	entry := &models.AuditLog{
		Actor:         actor,
		Action:        action,
		OrderID:       e.OrderID,
		EntitlementID: &entitlementID,
		Detail:        string(detail),
	}
	if err := s.repo.CreateAuditLog(entry); err != nil {
		return fmt.Errorf("entitlement %s saved but audit entry failed: %w", action, err)
	}
	return nil
}
