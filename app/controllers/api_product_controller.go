package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/AshleyDunne/PayDesk/app/repository"
)

// HandleListProducts returns the active catalog, the product ids clients
// pass to the access-check endpoints.
func HandleListProducts(c *fiber.Ctx) error {
	repo := repository.GetGlobalFactory().GetProductRepository()
	products, err := repo.GetActive()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "product_list_failed"})
	}

	out := make([]fiber.Map, 0, len(products))
	for _, p := range products {
		out = append(out, fiber.Map{
			"id":       p.ID,
			"name":     p.Name,
			"slug":     p.Slug,
			"price":    p.Price,
			"currency": p.Currency,
		})
	}
	return c.JSON(fiber.Map{"products": out})
}
