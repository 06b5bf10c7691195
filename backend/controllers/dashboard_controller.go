package controllers

import (
	"github.com/gofiber/fiber/v2"

	"project/backend/config"
	"project/backend/services"
	"project/backend/utils"
)

type DashboardController struct {
	Engine *services.Engine
	Cfg    *config.Config
}

func NewDashboardController(engine *services.Engine, cfg *config.Config) *DashboardController {
	return &DashboardController{Engine: engine, Cfg: cfg}
}

// GetDashboard godoc
// @Summary Get the user dashboard
// @Description Returns streaks, per-subject progress, recent activity, certificates and derived statistics
// @Tags dashboard
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /dashboard [get]
func (dc *DashboardController) GetDashboard(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, dc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	dashboard, err := dc.Engine.GetDashboard(userID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to build dashboard")
	}

	return utils.Success(c, fiber.StatusOK, dashboard)
}
