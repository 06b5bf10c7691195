package controllers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"project/backend/config"
	"project/backend/models"
	"project/backend/routes"
	"project/backend/services"
	"project/backend/utils"
)

func setupApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, utils.MigrateModels(db))

	cfg := &config.Config{
		JWTSecret:         "test-secret",
		AdminUserID:       1,
		ProviderTimeoutMS: 1000,
	}

	logger := log.New(io.Discard, "", 0)
	provider := services.NewCourseProvider(db)
	notifier := services.NewLogNotifier(logger)
	engine := services.NewEngine(db, provider, notifier, logger, time.Second)

	app := fiber.New()
	routes.SetupRoutes(app, engine, cfg)
	return app, db, cfg
}

func seedCourse(t *testing.T, db *gorm.DB) {
	t.Helper()
	course := models.Course{
		Subject:    "Math",
		Title:      "Mathematics",
		ClassLevel: "grade-7",
		Chapters: []models.Chapter{
			{
				ID:            "math-ch1",
				Title:         "Algebra",
				SequenceOrder: 1,
				Lessons: []models.Lesson{
					{ID: "math-l1", Title: "Variables", SequenceOrder: 1},
					{ID: "math-l2", Title: "Equations", SequenceOrder: 2},
				},
			},
		},
	}
	require.NoError(t, db.Create(&course).Error)
}

func authToken(t *testing.T, cfg *config.Config, userID uint) string {
	t.Helper()
	token, err := utils.GenerateJWTToken(userID, cfg)
	require.NoError(t, err)
	return token
}

func postActivity(t *testing.T, app *fiber.App, token string, body map[string]interface{}) {
	t.Helper()
	jsonData, _ := json.Marshal(body)
	req := httptest.NewRequest("POST", "/api/activity", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestRecordActivityEndpoint(t *testing.T) {
	app, db, cfg := setupApp(t)
	seedCourse(t, db)
	token := authToken(t, cfg, 2)

	jsonData, _ := json.Marshal(map[string]interface{}{
		"activity_type":      "lesson_complete",
		"subject":            "math",
		"lesson_id":          "math-l1",
		"time_spent_seconds": 120,
	})
	req := httptest.NewRequest("POST", "/api/activity", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	data := result["data"].(map[string]interface{})
	assert.NotEmpty(t, data["event_id"])
}

func TestRecordActivityEndpointValidation(t *testing.T) {
	app, _, cfg := setupApp(t)
	token := authToken(t, cfg, 2)

	// lesson_complete without lesson_id must be rejected.
	jsonData, _ := json.Marshal(map[string]interface{}{
		"activity_type": "lesson_complete",
		"subject":       "math",
	})
	req := httptest.NewRequest("POST", "/api/activity", bytes.NewBuffer(jsonData))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRecordActivityRequiresAuth(t *testing.T) {
	app, _, _ := setupApp(t)

	req := httptest.NewRequest("POST", "/api/activity", bytes.NewBufferString("{}"))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGetProgressEndpoint(t *testing.T) {
	app, db, cfg := setupApp(t)
	seedCourse(t, db)
	token := authToken(t, cfg, 2)

	postActivity(t, app, token, map[string]interface{}{
		"activity_type": "lesson_complete",
		"subject":       "math",
		"lesson_id":     "math-l1",
	})

	req := httptest.NewRequest("GET", "/api/progress?subject=math", nil)
	req.Header.Set("Authorization", token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	data := result["data"].(map[string]interface{})
	assert.Equal(t, float64(50), data["percentage"])
}

func TestGetDashboardEndpoint(t *testing.T) {
	app, db, cfg := setupApp(t)
	seedCourse(t, db)
	token := authToken(t, cfg, 2)

	postActivity(t, app, token, map[string]interface{}{
		"activity_type": "lesson_complete",
		"subject":       "math",
		"lesson_id":     "math-l1",
	})
	postActivity(t, app, token, map[string]interface{}{
		"activity_type": "lesson_complete",
		"subject":       "math",
		"lesson_id":     "math-l2",
	})

	req := httptest.NewRequest("GET", "/api/dashboard", nil)
	req.Header.Set("Authorization", token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	data := result["data"].(map[string]interface{})

	certificates := data["certificates"].([]interface{})
	require.Len(t, certificates, 1)
	progress := data["course_progress"].([]interface{})
	require.Len(t, progress, 1)
	assert.Equal(t, float64(100), progress[0].(map[string]interface{})["percentage"])
}

func TestAdminAnalyticsAuthorization(t *testing.T) {
	app, db, cfg := setupApp(t)
	seedCourse(t, db)

	adminToken := authToken(t, cfg, 1)
	userToken := authToken(t, cfg, 2)

	postActivity(t, app, userToken, map[string]interface{}{
		"activity_type": "course_view",
		"subject":       "math",
	})

	// Non-admin caller is rejected.
	req := httptest.NewRequest("GET", "/api/admin/analytics", nil)
	req.Header.Set("Authorization", userToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Admin gets the rollups.
	req = httptest.NewRequest("GET", "/api/admin/analytics", nil)
	req.Header.Set("Authorization", adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var result map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	data := result["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["total_users"])
	dailyStats := data["daily_stats"].([]interface{})
	require.Len(t, dailyStats, 1)
}
