package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"project/backend/models"
)

func TestRunningAverageFromSumAndCount(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	for _, score := range []int{80, 60, 100} {
		_, err := engine.RecordActivity(&models.ActivityEvent{
			UserID:       1,
			ActivityType: models.ActivityQuizAttempt,
			Subject:      "math",
			QuizID:       "math-q1",
			Score:        intPtr(score),
		})
		require.NoError(t, err)
	}

	day := TruncateToDay(time.Now())
	var rollup models.DailyAnalytics
	require.NoError(t, engine.Rollup.db.Where("date = ?", day).First(&rollup).Error)
	assert.Equal(t, 3, rollup.TotalQuizzesAttempted)
	assert.InDelta(t, 80.0, rollup.AverageScore(), 0.001)
}

func TestCountersMatchActivityTypes(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedMathCourse(t, db)

	events := []*models.ActivityEvent{
		{UserID: 1, ActivityType: models.ActivityCourseView, Subject: "math"},
		{UserID: 1, ActivityType: models.ActivityChapterView, Subject: "math", ChapterID: "math-ch1"},
		{UserID: 1, ActivityType: models.ActivityLessonView, Subject: "math", LessonID: "math-l1"},
		lessonComplete(1, "math", "math-l1"),
		{UserID: 1, ActivityType: models.ActivityExerciseComplete, Subject: "math", ExerciseID: "e1"},
		{UserID: 1, ActivityType: models.ActivityQuizAttempt, Subject: "math", QuizID: "q1", Score: intPtr(50)},
		{UserID: 1, ActivityType: models.ActivityQuizComplete, Subject: "math", QuizID: "q1"},
	}
	for _, event := range events {
		_, err := engine.RecordActivity(event)
		require.NoError(t, err)
	}

	day := TruncateToDay(time.Now())
	var rollup models.DailyAnalytics
	require.NoError(t, engine.Rollup.db.Where("date = ?", day).First(&rollup).Error)
	assert.Equal(t, 1, rollup.TotalCoursesViewed)
	assert.Equal(t, 1, rollup.TotalChaptersViewed)
	assert.Equal(t, 1, rollup.TotalLessonsViewed)
	assert.Equal(t, 1, rollup.TotalLessonsCompleted)
	assert.Equal(t, 1, rollup.TotalExercisesCompleted)
	assert.Equal(t, 1, rollup.TotalQuizzesAttempted)
	assert.Equal(t, 1, rollup.TotalQuizzesCompleted)
	assert.Equal(t, 1, rollup.DailyActiveUsers)
}

func TestSubjectEngagementHasNoDuplicateRows(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedMathCourse(t, db)

	// Concurrent first views of a subject unseen today.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.RecordActivity(&models.ActivityEvent{
				UserID:       1,
				ActivityType: models.ActivityCourseView,
				Subject:      "math",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	day := TruncateToDay(time.Now())
	var rollup models.DailyAnalytics
	require.NoError(t, engine.Rollup.db.Where("date = ?", day).First(&rollup).Error)

	rows := models.DecodeSubjectEngagement(rollup.SubjectEngagement)
	require.Len(t, rows, 1)
	assert.Equal(t, "math", rows[0].Subject)
	assert.Equal(t, 20, rows[0].Views)
	assert.Equal(t, 20, rows[0].ClassLevelDistribution["grade-7"])
}

func TestDayBucketingIsUTC(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	activityLog := engine.Log

	// 23:30 UTC and 00:30 UTC next day land in different buckets, even when
	// the timestamp arrives in a non-UTC zone.
	offset := time.FixedZone("UTC+3", 3*60*60)
	lateEvening := time.Date(2026, 8, 21, 2, 30, 0, 0, offset) // 23:30 UTC Aug 20
	nextMorning := time.Date(2026, 8, 21, 0, 30, 0, 0, time.UTC)

	for _, createdAt := range []time.Time{lateEvening, nextMorning} {
		event := &models.ActivityEvent{
			UserID:       1,
			ActivityType: models.ActivityCourseView,
			Subject:      "math",
			CreatedAt:    createdAt,
		}
		_, err := activityLog.Append(event)
		require.NoError(t, err)
		require.NoError(t, engine.Rollup.ApplyEvent(event))
	}

	var rollups []models.DailyAnalytics
	require.NoError(t, engine.Rollup.db.Order("date").Find(&rollups).Error)
	require.Len(t, rollups, 2)
	assert.Equal(t, time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), rollups[0].Date.UTC())
	assert.Equal(t, time.Date(2026, 8, 21, 0, 0, 0, 0, time.UTC), rollups[1].Date.UTC())
}

func TestDailyActiveUsersIsExactDistinctCount(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	for _, userID := range []uint{1, 1, 2, 3, 3, 3} {
		_, err := engine.RecordActivity(&models.ActivityEvent{
			UserID:       userID,
			ActivityType: models.ActivityCourseView,
			Subject:      "math",
		})
		require.NoError(t, err)
	}

	day := TruncateToDay(time.Now())
	var rollup models.DailyAnalytics
	require.NoError(t, engine.Rollup.db.Where("date = ?", day).First(&rollup).Error)
	assert.Equal(t, 3, rollup.DailyActiveUsers)
}

func TestCompletionRateRefreshesOnLessonComplete(t *testing.T) {
	engine, db, _ := newTestEngine(t)
	seedMathCourse(t, db)

	// A view creates the engagement row, then user 1 finishes the course
	// while user 2 only starts it.
	_, err := engine.RecordActivity(&models.ActivityEvent{UserID: 1, ActivityType: models.ActivityCourseView, Subject: "math"})
	require.NoError(t, err)
	_, err = engine.RecordActivity(lessonComplete(1, "math", "math-l1"))
	require.NoError(t, err)
	_, err = engine.RecordActivity(lessonComplete(2, "math", "math-l1"))
	require.NoError(t, err)
	_, err = engine.RecordActivity(lessonComplete(1, "math", "math-l2"))
	require.NoError(t, err)

	day := TruncateToDay(time.Now())
	var rollup models.DailyAnalytics
	require.NoError(t, engine.Rollup.db.Where("date = ?", day).First(&rollup).Error)

	rows := models.DecodeSubjectEngagement(rollup.SubjectEngagement)
	require.Len(t, rows, 1)
	assert.InDelta(t, 50.0, rows[0].CompletionRate, 0.001) // 1 of 2 tracked users at 100%
}

func TestGetRangeReturnsOldestFirst(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	for dayOffset := 2; dayOffset >= 0; dayOffset-- {
		createdAt := time.Now().UTC().AddDate(0, 0, -dayOffset)
		event := &models.ActivityEvent{
			UserID:       1,
			ActivityType: models.ActivityCourseView,
			Subject:      "math",
			CreatedAt:    createdAt,
		}
		_, err := engine.Log.Append(event)
		require.NoError(t, err)
		require.NoError(t, engine.Rollup.ApplyEvent(event))
	}

	rollups, err := engine.Rollup.GetRange(time.Now().UTC().AddDate(0, 0, -2), time.Now().UTC())
	require.NoError(t, err)
	require.Len(t, rollups, 3)
	assert.True(t, rollups[0].Date.Before(rollups[1].Date))
	assert.True(t, rollups[1].Date.Before(rollups[2].Date))
}
