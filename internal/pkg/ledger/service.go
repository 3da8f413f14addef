package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/AshleyDunne/PayDesk/app/models"
	"gorm.io/gorm"
)

// EventInput is the normalized input for ledger persistence.
type EventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}

// Service is the idempotency ledger: it records every inbound provider event
// before any side effect of processing begins and gates redeliveries.
type Service struct {
	repo Repository
}

// NewService creates a ledger service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// NewServiceFromDB creates a ledger service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// RecordAndCheck upserts the ledger row for an inbound event and reports
// whether it was already processed to completion. A row that exists but is
// not processed (a prior attempt crashed mid-processing) is handed back for
// reprocessing; the downstream pipelines are idempotent, so the retry
// converges instead of double-applying.
func (s *Service) RecordAndCheck(ctx context.Context, in EventInput) (*models.PaymentEvent, bool, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return nil, false, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		// Providers occasionally omit the delivery id header; fall back to a
		// payload hash so redeliveries of the identical body still dedupe.
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.PaymentEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	_, stored, err := s.repo.CreateEventIfNotExists(event)
	if err != nil {
		return nil, false, err
	}
	return stored, stored.Processed, nil
}

// MarkProcessed records that the pipeline transaction for this event
// committed successfully.
func (s *Service) MarkProcessed(ctx context.Context, eventID uint) error {
	_ = ctx
	if eventID == 0 {
		return errors.New("event id is required")
	}
	return s.repo.MarkProcessed(eventID)
}

// MarkFailed stores the failure detail and leaves processed=false so the
// provider's next redelivery retries the event.
func (s *Service) MarkFailed(ctx context.Context, eventID uint, processingErr error) error {
	_ = ctx
	if eventID == 0 {
		return errors.New("event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkFailed(eventID, errMsg)
}

// ListFailedEvents returns the most recent events whose last processing
// attempt errored. Used by the admin surface to spot events stuck in retry.
func (s *Service) ListFailedEvents(ctx context.Context, limit int) ([]models.PaymentEvent, error) {
	_ = ctx
	return s.repo.ListFailedEvents(limit)
}
