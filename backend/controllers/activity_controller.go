package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/datatypes"

	"project/backend/config"
	"project/backend/models"
	"project/backend/services"
	"project/backend/utils"
)

type ActivityController struct {
	Engine *services.Engine
	Cfg    *config.Config
}

func NewActivityController(engine *services.Engine, cfg *config.Config) *ActivityController {
	return &ActivityController{Engine: engine, Cfg: cfg}
}

type recordActivityInput struct {
	ActivityType     string                 `json:"activity_type"`
	Subject          string                 `json:"subject"`
	ChapterID        string                 `json:"chapter_id"`
	LessonID         string                 `json:"lesson_id"`
	ExerciseID       string                 `json:"exercise_id"`
	QuizID           string                 `json:"quiz_id"`
	ResourceID       string                 `json:"resource_id"`
	Score            *int                   `json:"score"`
	TimeSpentSeconds int                    `json:"time_spent_seconds"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// RecordActivity godoc
// @Summary Record one activity event
// @Description Appends the event to the activity log and updates progress and daily analytics
// @Tags activity
// @Accept json
// @Produce json
// @Success 201 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 422 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /activity [post]
func (ac *ActivityController) RecordActivity(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input recordActivityInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	event := &models.ActivityEvent{
		UserID:          userID,
		ActivityType:    models.ActivityType(input.ActivityType),
		Subject:         input.Subject,
		ChapterID:       input.ChapterID,
		LessonID:        input.LessonID,
		ExerciseID:      input.ExerciseID,
		QuizID:          input.QuizID,
		ResourceID:      input.ResourceID,
		Score:           input.Score,
		TimeSpentSecond: input.TimeSpentSeconds,
		Metadata:        datatypes.JSONMap(input.Metadata),
	}

	eventID, err := ac.Engine.RecordActivity(event)
	if err != nil {
		var validationErr *services.ValidationError
		if errors.As(err, &validationErr) {
			return utils.ValidationError(c, validationErr)
		}
		return utils.InternalServerError(c, "Could not record activity")
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{
		"event_id": eventID,
	})
}

// GetActivityHistory returns the caller's recent events, newest first.
func (ac *ActivityController) GetActivityHistory(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	events, err := ac.Engine.Log.Query(services.ActivityFilter{
		UserID:  userID,
		Subject: c.Query("subject"),
		Limit:   limit,
		Offset:  offset,
	})
	if err != nil {
		return utils.InternalServerError(c, "Failed to fetch activity history")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"activities": events,
	})
}
