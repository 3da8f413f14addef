package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/AshleyDunne/PayDesk/app/controllers"
	"github.com/AshleyDunne/PayDesk/internal/pkg/middleware"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping response body.
type Pong struct {
	Ping string `json:"ping"`
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetEntitlementAccess answers a single-product access check for the
// authenticated user. This is the gating path and always consults the
// database.
func (s *APIServer) GetEntitlementAccess(c *fiber.Ctx) error {
	return controllers.HandleAccessCheck(c)
}

// GetEntitlementAccessBulk answers access for several products at once.
// Cached, intended for UI rendering.
func (s *APIServer) GetEntitlementAccessBulk(c *fiber.Ctx) error {
	return controllers.HandleAccessCheckBulk(c)
}

// GetEntitlements lists the authenticated user's active entitlements.
func (s *APIServer) GetEntitlements(c *fiber.Ctx) error {
	return controllers.HandleListEntitlements(c)
}

// GetProducts lists the active catalog.
func (s *APIServer) GetProducts(c *fiber.Ctx) error {
	return controllers.HandleListProducts(c)
}

// PostAdminEntitlementGrant grants an entitlement as a support correction.
func (s *APIServer) PostAdminEntitlementGrant(c *fiber.Ctx) error {
	return controllers.HandleAdminGrantEntitlement(c)
}

// PostAdminEntitlementRevoke deactivates an entitlement with a reason.
func (s *APIServer) PostAdminEntitlementRevoke(c *fiber.Ctx) error {
	return controllers.HandleAdminRevokeEntitlement(c)
}

// PostAdminOrderReplay re-runs fulfillment for a checkout session.
func (s *APIServer) PostAdminOrderReplay(c *fiber.Ctx) error {
	return controllers.HandleAdminReplayOrder(c)
}

// GetAdminEventStats exposes webhook counters and recent failed events.
func (s *APIServer) GetAdminEventStats(c *fiber.Ctx) error {
	return controllers.HandleAdminEventStats(c)
}

// RegisterHandlers wires the v1 routes onto the given router group. The
// caller attaches API key auth; admin routes additionally require the
// admin role.
func RegisterHandlers(router fiber.Router, s *APIServer) {
	router.Get("/ping", s.GetPing)

	router.Get("/products", s.GetProducts)
	router.Get("/entitlements", s.GetEntitlements)
	router.Get("/entitlements/access", s.GetEntitlementAccessBulk)
	router.Get("/entitlements/access/:product_id", s.GetEntitlementAccess)

	admin := router.Group("/admin", middleware.RequireAdmin)
	admin.Post("/entitlements/grant", s.PostAdminEntitlementGrant)
	admin.Post("/entitlements/revoke", s.PostAdminEntitlementRevoke)
	admin.Post("/orders/replay", s.PostAdminOrderReplay)
	admin.Get("/events/stats", s.GetAdminEventStats)
}
