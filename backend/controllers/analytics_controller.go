package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"project/backend/config"
	"project/backend/services"
	"project/backend/utils"
)

type AnalyticsController struct {
	Engine *services.Engine
	Cfg    *config.Config
}

func NewAnalyticsController(engine *services.Engine, cfg *config.Config) *AnalyticsController {
	return &AnalyticsController{Engine: engine, Cfg: cfg}
}

// GetAdminAnalytics возвращает аналитику по всей платформе (только для админов)
func (ac *AnalyticsController) GetAdminAnalytics(c *fiber.Ctx) error {
	startDate := c.Query("start_date")
	endDate := c.Query("end_date")

	// Парсим даты или устанавливаем значения по умолчанию
	var start, end time.Time
	var err error
	if startDate == "" {
		start = time.Now().UTC().AddDate(0, -1, 0) // Последний месяц по умолчанию
	} else {
		start, err = time.Parse("2006-01-02", startDate)
		if err != nil {
			return utils.BadRequest(c, "Invalid start_date format. Use YYYY-MM-DD")
		}
	}

	if endDate == "" {
		end = time.Now().UTC()
	} else {
		end, err = time.Parse("2006-01-02", endDate)
		if err != nil {
			return utils.BadRequest(c, "Invalid end_date format. Use YYYY-MM-DD")
		}
	}

	if end.Before(start) {
		return utils.BadRequest(c, "end_date must not be before start_date")
	}

	analytics, err := ac.Engine.GetAdminAnalytics(start, end)
	if err != nil {
		return utils.InternalServerError(c, "Failed to build analytics")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"daily_stats":       analytics.DailyStats,
		"total_users":       analytics.TotalUsers,
		"course_engagement": analytics.CourseEngagement,
		"completion_rates":  analytics.CompletionRates,
		"period": fiber.Map{
			"start_date": start.Format("2006-01-02"),
			"end_date":   end.Format("2006-01-02"),
		},
	})
}
