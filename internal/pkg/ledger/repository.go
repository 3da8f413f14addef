package ledger

import (
	"time"

	"github.com/AshleyDunne/PayDesk/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides DB operations used by the ledger service.
type Repository interface {
	CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error)
	MarkProcessed(id uint) error
	MarkFailed(id uint, processingError string) error
	ListFailedEvents(limit int) ([]models.PaymentEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

// CreateEventIfNotExists inserts the event unless a row with the same
// (provider, provider_event_id) already exists. The insert-or-ignore runs as
// a single statement, so two concurrent deliveries of the same event race
// safely: exactly one of them observes created=true.
func (r *gormRepository) CreateEventIfNotExists(event *models.PaymentEvent) (bool, *models.PaymentEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}

	// An unverified delivery may have claimed this event id first (a forged
	// request can only store signature_valid=false). When the authentic,
	// signature-verified delivery arrives before the row is processed, take
	// its payload as the one to keep.
	if !created && !stored.Processed && event.SignatureValid && !stored.SignatureValid {
		updates := map[string]interface{}{
			"payload_json":    event.PayloadJSON,
			"event_type":      event.EventType,
			"signature_valid": true,
		}
		if err := r.db.Model(&models.PaymentEvent{}).Where("id = ?", stored.ID).Updates(updates).Error; err != nil {
			return false, nil, err
		}
		stored.PayloadJSON = event.PayloadJSON
		stored.EventType = event.EventType
		stored.SignatureValid = true
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkProcessed(id uint) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed":        true,
		"processed_at":     &now,
		"processing_error": "",
	}
	return r.db.Model(&models.PaymentEvent{}).Where("id = ?", id).Updates(updates).Error
}

// MarkFailed records the failure detail. processed_at stays null: it is the
// timestamp of successful completion, not of the last attempt.
func (r *gormRepository) MarkFailed(id uint, processingError string) error {
	updates := map[string]interface{}{
		"processed":        false,
		"processed_at":     nil,
		"processing_error": processingError,
	}
	return r.db.Model(&models.PaymentEvent{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ListFailedEvents(limit int) ([]models.PaymentEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []models.PaymentEvent
	err := r.db.
		Where("processed = ? AND processing_error <> ''", false).
		Order("received_at DESC").
		Limit(limit).
		Find(&events).Error
	return events, err
}
