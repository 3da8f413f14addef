package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AshleyDunne/PayDesk/app/controllers"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Payment provider webhooks (no auth middleware, signature-verified in
	// the controller; rate limiting would break provider redelivery)
	app.Post("/webhooks/payments", controllers.HandlePaymentWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
