package controllers

import (
	"github.com/gofiber/fiber/v2"

	"project/backend/config"
	"project/backend/services"
	"project/backend/utils"
)

type ProgressController struct {
	Engine *services.Engine
	Cfg    *config.Config
}

func NewProgressController(engine *services.Engine, cfg *config.Config) *ProgressController {
	return &ProgressController{Engine: engine, Cfg: cfg}
}

// GetProgress godoc
// @Summary Get user progress for a subject
// @Description Returns the progress record for the given subject, or a zero record when there is no history yet
// @Tags progress
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	subject := c.Query("subject")
	if subject == "" {
		return utils.BadRequest(c, "subject query parameter is required")
	}

	record, err := pc.Engine.GetProgress(userID, subject)
	if err != nil {
		return utils.InternalServerError(c, "Failed to fetch progress")
	}

	return utils.Success(c, fiber.StatusOK, record)
}

// GetProgressOverview возвращает прогресс по всем предметам пользователя
func (pc *ProgressController) GetProgressOverview(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	records, err := pc.Engine.Tracker.ListProgress(userID)
	if err != nil {
		return utils.InternalServerError(c, "Failed to fetch progress")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"subjects": records,
	})
}
