package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/AshleyDunne/PayDesk/internal/pkg/database"
	"github.com/AshleyDunne/PayDesk/internal/pkg/entitlements"
	"github.com/AshleyDunne/PayDesk/internal/pkg/middleware"
)

// HandleAccessCheck answers whether the authenticated user has access to a
// single product. This is the gating path: it consults the database and
// self-heals expired grants.
func HandleAccessCheck(c *fiber.Ctx) error {
	userID := middleware.UserIDFromContext(c)
	productID, err := parseUintParam(c, "product_id")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid product_id"})
	}

	svc := entitlements.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hasAccess, err := svc.HasAccess(ctx, userID, productID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "access_check_failed"})
	}
	return c.JSON(fiber.Map{"product_id": productID, "has_access": hasAccess})
}

// HandleAccessCheckBulk answers access for a comma-separated product id list
// in one round trip. Results may be up to the cache TTL stale; UI rendering
// is the intended consumer.
func HandleAccessCheckBulk(c *fiber.Ctx) error {
	userID := middleware.UserIDFromContext(c)
	productIDs, err := parseUintList(c.Query("product_ids"))
	if err != nil || len(productIDs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "product_ids query parameter is required"})
	}

	svc := entitlements.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	access, err := svc.HasAccessBulk(ctx, userID, productIDs)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "access_check_failed"})
	}
	return c.JSON(fiber.Map{"access": access})
}

// HandleListEntitlements returns the authenticated user's active
// entitlements with product summaries.
func HandleListEntitlements(c *fiber.Ctx) error {
	userID := middleware.UserIDFromContext(c)

	svc := entitlements.NewServiceFromDB(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	list, err := svc.ListActiveEntitlements(ctx, userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "entitlement_list_failed"})
	}

	out := make([]fiber.Map, 0, len(list))
	for _, e := range list {
		out = append(out, fiber.Map{
			"product_id":   e.ProductID,
			"product_name": e.Product.Name,
			"product_slug": e.Product.Slug,
			"order_id":     e.OrderID,
			"expires_at":   formatTimePtr(e.ExpiresAt),
			"granted_at":   e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return c.JSON(fiber.Map{"entitlements": out})
}
