package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/papershelf/papershelf/internal/config"
	"github.com/papershelf/papershelf/internal/services"
	"gorm.io/gorm"
)

// HealthHandler handles the liveness/readiness route
type HealthHandler struct {
	Cfg   *config.Config
	DB    *gorm.DB
	DocDB *gorm.DB
}

// Check handles GET /health
// @Summary Service health
// @Description Pings the relational store, the document store and the auth provider.
// @Tags Health
// @Produce json
// @Success 200 {object} services.HealthCheckResult
// @Failure 503 {object} services.HealthCheckResult
// @Router /health [get]
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	result := services.HealthCheck(h.Cfg, h.DB, h.DocDB)
	status := fiber.StatusOK
	if result.Status != "healthy" {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(result)
}
