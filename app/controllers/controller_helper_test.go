package controllers

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUintList(t *testing.T) {
	ids, err := parseUintList("1,2,3")
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, ids)

	ids, err = parseUintList(" 7 , ,9 ")
	require.NoError(t, err)
	assert.Equal(t, []uint{7, 9}, ids)

	ids, err = parseUintList("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = parseUintList("1,abc")
	assert.Error(t, err)
}

func TestFirstHeaderValue(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got := firstHeaderValue(c, "X-Payment-Event-Id", "X-Webhook-Delivery")
		return c.SendString(got)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Webhook-Delivery", "dlv_2")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	body := make([]byte, 16)
	n, _ := resp.Body.Read(body)
	assert.Equal(t, "dlv_2", string(body[:n]))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Payment-Event-Id", "evt_1")
	req.Header.Set("X-Webhook-Delivery", "dlv_2")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	n, _ = resp.Body.Read(body)
	assert.Equal(t, "evt_1", string(body[:n]))
}

func TestParseUintParam(t *testing.T) {
	app := fiber.New()
	app.Get("/products/:product_id", func(c *fiber.Ctx) error {
		id, err := parseUintParam(c, "product_id")
		if err != nil {
			return c.SendStatus(fiber.StatusBadRequest)
		}
		return c.JSON(fiber.Map{"id": id})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/products/42", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/products/abc", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestFormatTimePtr(t *testing.T) {
	assert.Nil(t, formatTimePtr(nil))

	ts := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, "2025-03-14T09:26:53Z", formatTimePtr(&ts))
}
