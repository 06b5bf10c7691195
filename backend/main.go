package main

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"project/backend/config"
	"project/backend/middleware"
	"project/backend/routes"
	"project/backend/services"
	"project/backend/utils"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Initialize logger
	logger := utils.InitLogger()

	// Build the aggregation engine
	provider := services.NewCourseProvider(db)
	notifier := services.NewLogNotifier(logger)
	providerTimeout := time.Duration(cfg.ProviderTimeoutMS) * time.Millisecond
	engine := services.NewEngine(db, provider, notifier, logger, providerTimeout)

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, engine, cfg)

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
