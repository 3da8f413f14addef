package entitlements

import (
	"time"

	"github.com/AshleyDunne/PayDesk/app/models"
	"gorm.io/gorm"
)

// Repository provides DB operations used by the access oracle and the admin
// grant/revoke entry points.
type Repository interface {
	GetByPair(userID, productID uint) (*models.Entitlement, error)
	RevokeIfExpired(entitlementID uint, at time.Time) (bool, error)
	ListActiveProductIDs(userID uint, productIDs []uint, now time.Time) ([]uint, error)
	ListActiveByUser(userID uint, now time.Time) ([]models.Entitlement, error)
	UpsertEntitlement(e *models.Entitlement) error
	DeactivateByPair(userID, productID uint, reason string, at time.Time) (bool, error)
	CreateAuditLog(entry *models.AuditLog) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates an entitlements repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetByPair(userID, productID uint) (*models.Entitlement, error) {
	var e models.Entitlement
	err := r.db.Where("user_id = ? AND product_id = ?", userID, productID).First(&e).Error
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *gormRepository) RevokeIfExpired(entitlementID uint, at time.Time) (bool, error) {
	return models.RevokeEntitlementIfExpired(r.db, entitlementID, at)
}

func (r *gormRepository) ListActiveProductIDs(userID uint, productIDs []uint, now time.Time) ([]uint, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	err := r.db.Model(&models.Entitlement{}).
		Where("user_id = ? AND product_id IN ? AND active = ?", userID, productIDs, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Pluck("product_id", &ids).Error
	return ids, err
}

func (r *gormRepository) ListActiveByUser(userID uint, now time.Time) ([]models.Entitlement, error) {
	var list []models.Entitlement
	err := r.db.
		Preload("Product").
		Where("user_id = ? AND active = ?", userID, true).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

func (r *gormRepository) UpsertEntitlement(e *models.Entitlement) error {
	return models.UpsertEntitlement(r.db, e)
}

func (r *gormRepository) DeactivateByPair(userID, productID uint, reason string, at time.Time) (bool, error) {
	return models.DeactivateEntitlementByPair(r.db, userID, productID, reason, at)
}

func (r *gormRepository) CreateAuditLog(entry *models.AuditLog) error {
	return models.CreateAuditLog(r.db, entry)
}
