package routes

import (
	"github.com/gofiber/fiber/v2"

	"project/backend/config"
	"project/backend/controllers"
	"project/backend/middleware"
	"project/backend/services"
)

func SetupRoutes(app *fiber.App, engine *services.Engine, cfg *config.Config) {
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(cfg)

	// Activity routes
	activityController := controllers.NewActivityController(engine, cfg)
	app.Post("/api/activity", authMiddleware, activityController.RecordActivity)
	app.Get("/api/activity", authMiddleware, activityController.GetActivityHistory)

	// Progress routes
	progressController := controllers.NewProgressController(engine, cfg)
	app.Get("/api/progress", authMiddleware, progressController.GetProgress)
	app.Get("/api/progress/overview", authMiddleware, progressController.GetProgressOverview)

	// Dashboard routes
	dashboardController := controllers.NewDashboardController(engine, cfg)
	app.Get("/api/dashboard", authMiddleware, dashboardController.GetDashboard)

	// Admin analytics routes
	analyticsController := controllers.NewAnalyticsController(engine, cfg)
	app.Get("/api/admin/analytics", authMiddleware, adminMiddleware, analyticsController.GetAdminAnalytics)
}
