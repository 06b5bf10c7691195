package services

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"project/backend/models"
	"project/backend/utils"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// Single connection keeps the in-memory database shared and serializes
	// sqlite writes under concurrent tests.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, utils.MigrateModels(db))
	return db
}

func newTestLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB, *recordingNotifier) {
	t.Helper()
	db := newTestDB(t)
	notifier := &recordingNotifier{}
	engine := NewEngine(db, NewCourseProvider(db), notifier, newTestLogger(), 2*time.Second)
	return engine, db, notifier
}

// recordingNotifier captures notification kinds for assertions.
type recordingNotifier struct {
	mu    sync.Mutex
	kinds []string
}

func (n *recordingNotifier) Notify(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, notification.Kind())
}

func (n *recordingNotifier) Kinds() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.kinds...)
}

// failingProvider simulates a structure provider outage.
type failingProvider struct{}

func (failingProvider) GetCourseStructure(ctx context.Context, subject string) (*models.CourseStructure, error) {
	return nil, &TransientDependencyError{Dependency: "course_structure", Err: errors.New("connection refused")}
}

// seedMathCourse creates subject "Math": one chapter with two lessons and no
// exercises or quizzes.
func seedMathCourse(t *testing.T, db *gorm.DB) {
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

// seedScienceCourse creates subject "Science": one chapter with two lessons,
// one exercise and one quiz (four items total).
func seedScienceCourse(t *testing.T, db *gorm.DB) {
	t.Helper()
	course := models.Course{
		Subject:    "Science",
		Title:      "General Science",
		ClassLevel: "grade-8",
		Chapters: []models.Chapter{
			{
				ID:            "sci-ch1",
				Title:         "Physics",
				SequenceOrder: 1,
				Lessons: []models.Lesson{
					{
						ID:            "sci-l1",
						Title:         "Motion",
						SequenceOrder: 1,
						Exercises:     []models.Exercise{{ID: "sci-e1", Title: "Speed problems"}},
						Quizzes:       []models.Quiz{{ID: "sci-q1", Title: "Motion quiz"}},
					},
					{ID: "sci-l2", Title: "Forces", SequenceOrder: 2},
				},
			},
		},
	}
	require.NoError(t, db.Create(&course).Error)
}

func intPtr(v int) *int { return &v }

func lessonComplete(userID uint, subject, lessonID string) *models.ActivityEvent {
	return &models.ActivityEvent{
		UserID:       userID,
		ActivityType: models.ActivityLessonComplete,
		Subject:      subject,
		LessonID:     lessonID,
	}
}
