package fulfillment

import (
	"time"

	"github.com/AshleyDunne/PayDesk/app/models"
	"gorm.io/gorm"
)

// Repository provides the DB operations used by the fulfillment and reversal
// pipelines. Transact runs fn against a repository bound to one database
// transaction; any error rolls the whole unit of work back.
type Repository interface {
	GetOrderByProviderSessionID(sessionID string) (*models.Order, error)
	GetOrderByProviderPaymentID(paymentID string) (*models.Order, error)
	GetOrderWithDetails(orderID uint) (*models.Order, error)
	GetProductByID(productID uint) (*models.Product, error)
	CreateOrder(order *models.Order) error
	CreateLineItems(items []models.OrderLineItem) error
	UpsertEntitlement(e *models.Entitlement) error
	MarkOrderRefunded(orderID uint, at time.Time) (bool, error)
	DeactivateEntitlementsByOrder(orderID uint, reason string, at time.Time) (int64, error)
	CreateAuditLog(entry *models.AuditLog) error
	Transact(fn func(Repository) error) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a fulfillment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetOrderByProviderSessionID(sessionID string) (*models.Order, error) {
	return models.FindOrderByProviderSessionID(r.db, sessionID)
}

func (r *gormRepository) GetOrderByProviderPaymentID(paymentID string) (*models.Order, error) {
	return models.FindOrderByProviderPaymentID(r.db, paymentID)
}

func (r *gormRepository) GetOrderWithDetails(orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.
		Preload("LineItems").
		Preload("Entitlements").
		First(&order, orderID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *gormRepository) GetProductByID(productID uint) (*models.Product, error) {
	var product models.Product
	if err := r.db.First(&product, productID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *gormRepository) CreateOrder(order *models.Order) error {
	return r.db.Create(order).Error
}

func (r *gormRepository) CreateLineItems(items []models.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.Create(&items).Error
}

func (r *gormRepository) UpsertEntitlement(e *models.Entitlement) error {
	return models.UpsertEntitlement(r.db, e)
}

// MarkOrderRefunded flips the order to refunded in one conditional write.
// The status guard makes two racing deliveries of the same refund event
// safe: exactly one of them observes a changed row.
func (r *gormRepository) MarkOrderRefunded(orderID uint, at time.Time) (bool, error) {
	tx := r.db.Model(&models.Order{}).
		Where("id = ? AND status <> ?", orderID, models.OrderStatusRefunded).
		Updates(map[string]interface{}{
			"status":      models.OrderStatusRefunded,
			"refunded_at": at,
		})
	return tx.RowsAffected > 0, tx.Error
}

func (r *gormRepository) DeactivateEntitlementsByOrder(orderID uint, reason string, at time.Time) (int64, error) {
	return models.DeactivateEntitlementsByOrder(r.db, orderID, reason, at)
}

func (r *gormRepository) CreateAuditLog(entry *models.AuditLog) error {
	return models.CreateAuditLog(r.db, entry)
}

func (r *gormRepository) Transact(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&gormRepository{db: tx})
	})
}
