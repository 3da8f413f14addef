package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AshleyDunne/PayDesk/app/models"
	"github.com/AshleyDunne/PayDesk/internal/pkg/database"
	"github.com/AshleyDunne/PayDesk/internal/pkg/env"
	"github.com/AshleyDunne/PayDesk/internal/pkg/fulfillment"
	"github.com/AshleyDunne/PayDesk/internal/pkg/ledger"
	"github.com/AshleyDunne/PayDesk/internal/pkg/mail"
	"github.com/AshleyDunne/PayDesk/internal/pkg/metrics/counter"
	"github.com/AshleyDunne/PayDesk/internal/pkg/payments"
)

// HandlePaymentWebhook receives provider webhooks. Flow: verify signature,
// record the event in the idempotency ledger, dispatch to the matching
// pipeline, then mark the ledger row processed or failed. Duplicates
// short-circuit after the ledger check.
func HandlePaymentWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	eventID := firstHeaderValue(c, "X-Payment-Event-Id", "X-Webhook-Delivery")
	signature := strings.TrimSpace(c.Get("X-Payment-Signature"))
	secret := env.GetEnv("PAYMENT_WEBHOOK_SECRET", "")

	_ = counter.AddEventReceived()

	envelope, parseErr := payments.ParseEnvelope(rawBody)
	eventType := ""
	if parseErr == nil {
		eventType = envelope.Type
		if eventID == "" {
			eventID = envelope.ID
		}
	}

	ledgerSvc := ledger.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	signatureValid := payments.VerifyWebhookSignature(rawBody, signature, secret)
	stored, alreadyProcessed, err := ledgerSvc.RecordAndCheck(ctx, ledger.EventInput{
		Provider:        models.PaymentProviderStripe,
		ProviderEventID: eventID,
		EventType:       eventType,
		PayloadJSON:     string(rawBody),
		SignatureValid:  signatureValid,
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}
	if alreadyProcessed {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}
	if !signatureValid {
		_ = ledgerSvc.MarkFailed(ctx, stored.ID, errors.New("invalid webhook signature"))
		_ = counter.AddEventFailed()
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if parseErr != nil {
		_ = ledgerSvc.MarkFailed(ctx, stored.ID, parseErr)
		_ = counter.AddEventFailed()
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if envelope.Kind() == payments.EventUnhandled {
		_ = ledgerSvc.MarkProcessed(ctx, stored.ID)
		_ = counter.AddEventIgnored()
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	}

	db := database.GetDB()
	engine := fulfillment.NewServiceFromDB(db, mail.NewEmailNotifier(db))
	dispatcher := payments.NewDispatcher(engine)

	if procErr := dispatcher.Process(ctx, envelope); procErr != nil {
		_ = ledgerSvc.MarkFailed(ctx, stored.ID, procErr)
		_ = counter.AddEventFailed()
		if fulfillment.IsNonRetryable(procErr) {
			// A misconfigured checkout: redelivery cannot fix it, but the
			// provider will keep resending until its retry schedule expires.
			// The ledger row keeps the failure detail for the admin surface.
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "event_rejected", "message": procErr.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "event_processing_failed"})
	}

	_ = ledgerSvc.MarkProcessed(ctx, stored.ID)
	_ = counter.AddEventProcessed()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
}
