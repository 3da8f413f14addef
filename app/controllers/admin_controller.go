package controllers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AshleyDunne/PayDesk/internal/pkg/database"
	"github.com/AshleyDunne/PayDesk/internal/pkg/entitlements"
	"github.com/AshleyDunne/PayDesk/internal/pkg/fulfillment"
	"github.com/AshleyDunne/PayDesk/internal/pkg/ledger"
	"github.com/AshleyDunne/PayDesk/internal/pkg/mail"
	"github.com/AshleyDunne/PayDesk/internal/pkg/metrics/counter"
	"github.com/AshleyDunne/PayDesk/internal/pkg/middleware"
	"github.com/AshleyDunne/PayDesk/internal/pkg/payments"
)

type grantEntitlementRequest struct {
	UserID    uint   `json:"user_id" validate:"required,gt=0"`
	ProductID uint   `json:"product_id" validate:"required,gt=0"`
	ExpiresAt string `json:"expires_at" validate:"omitempty"`
	Reason    string `json:"reason" validate:"required,min=3,max=200"`
}

type revokeEntitlementRequest struct {
	UserID    uint   `json:"user_id" validate:"required,gt=0"`
	ProductID uint   `json:"product_id" validate:"required,gt=0"`
	Reason    string `json:"reason" validate:"required,min=3,max=200"`
}

type replayOrderRequest struct {
	SessionID string `json:"session_id" validate:"required,min=3"`
}

// HandleAdminGrantEntitlement grants (or reactivates) an entitlement as a
// customer-support correction. It goes through the exact pair-upsert the
// fulfillment pipeline uses.
func HandleAdminGrantEntitlement(c *fiber.Ctx) error {
	var req grantEntitlementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	var expiresAt *time.Time
	if req.ExpiresAt != "" {
		t, err := time.Parse(time.RFC3339, req.ExpiresAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": "expires_at must be RFC3339"})
		}
		expiresAt = &t
	}

	svc := entitlements.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	e, err := svc.Grant(ctx, entitlements.GrantInput{
		UserID:    req.UserID,
		ProductID: req.ProductID,
		ExpiresAt: expiresAt,
		Actor:     adminActor(c),
		Reason:    req.Reason,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "grant_failed", "message": err.Error()})
	}
	return c.JSON(fiber.Map{
		"ok":         true,
		"user_id":    e.UserID,
		"product_id": e.ProductID,
		"active":     e.Active,
		"expires_at": formatTimePtr(e.ExpiresAt),
	})
}

// HandleAdminRevokeEntitlement deactivates an entitlement with a reason. The
// row stays as audit trail.
func HandleAdminRevokeEntitlement(c *fiber.Ctx) error {
	var req revokeEntitlementRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	svc := entitlements.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	revoked, err := svc.Revoke(ctx, req.UserID, req.ProductID, adminActor(c), req.Reason)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "revoke_failed", "message": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "revoked": revoked})
}

// HandleAdminReplayOrder re-fetches a checkout session from the provider and
// runs fulfillment for it. Covers events the webhook path never recorded;
// the order-level idempotency guard makes replaying an already-fulfilled
// session a no-op.
func HandleAdminReplayOrder(c *fiber.Ctx) error {
	var req replayOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid JSON body"})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "validation_failed", "message": err.Error()})
	}

	client := payments.NewClientFromEnv()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	session, err := client.GetCheckoutSession(ctx, req.SessionID)
	if err != nil {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "session_fetch_failed", "message": err.Error()})
	}

	db := database.GetDB()
	engine := fulfillment.NewServiceFromDB(db, mail.NewEmailNotifier(db))
	order, err := engine.Fulfill(ctx, session)
	if err != nil {
		status := fiber.StatusInternalServerError
		if fulfillment.IsNonRetryable(err) {
			status = fiber.StatusUnprocessableEntity
		}
		return c.Status(status).JSON(fiber.Map{"error": "replay_failed", "message": err.Error()})
	}
	return c.JSON(fiber.Map{"ok": true, "order_uuid": order.UUID, "order_status": order.Status})
}

// HandleAdminEventStats exposes webhook processing counters and the most
// recent events stuck in retry.
func HandleAdminEventStats(c *fiber.Ctx) error {
	days, err := strconv.Atoi(c.Query("days", "7"))
	if err != nil || days <= 0 || days > 90 {
		days = 7
	}

	stats, err := counter.Snapshot(days)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "stats_unavailable"})
	}

	ledgerSvc := ledger.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	failed, err := ledgerSvc.ListFailedEvents(ctx, 20)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed_events_unavailable"})
	}
	failedOut := make([]fiber.Map, 0, len(failed))
	for _, ev := range failed {
		failedOut = append(failedOut, fiber.Map{
			"provider_event_id": ev.ProviderEventID,
			"event_type":        ev.EventType,
			"error":             ev.ProcessingError,
			"received_at":       ev.ReceivedAt.UTC().Format(time.RFC3339),
		})
	}

	return c.JSON(fiber.Map{"days": stats, "failed_events": failedOut})
}

func adminActor(c *fiber.Ctx) string {
	return fmt.Sprintf("admin:%d", middleware.UserIDFromContext(c))
}
