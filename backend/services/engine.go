package services

import (
	"log"
	"sort"
	"time"

	"gorm.io/gorm"

	"project/backend/models"
)

// Engine ties the activity log, progress tracker, daily rollup and dashboard
// calculator together. RecordActivity is the single ingest path: the append
// is durable before any aggregation runs, and aggregation failures never fail
// the call.
type Engine struct {
	Log     *ActivityLog
	Tracker *ProgressTracker
	Rollup  *DailyRollup
	Stats   *DashboardStats

	db     *gorm.DB
	logger *log.Logger
}

func NewEngine(db *gorm.DB, provider CourseStructureProvider, notifier Notifier, logger *log.Logger, providerTimeout time.Duration) *Engine {
	activityLog := NewActivityLog(db, logger)
	engine := &Engine{
		Log:     activityLog,
		Tracker: NewProgressTracker(db, provider, notifier, logger, providerTimeout),
		Rollup:  NewDailyRollup(db, activityLog, provider, logger),
		Stats:   NewDashboardStats(activityLog),
		db:      db,
		logger:  logger,
	}
	engine.Tracker.onCertificate = engine.recordSynthetic
	return engine
}

// RecordActivity ingests one external event. Only the log append can fail the
// call; tracker and rollup errors are logged and swallowed since both can be
// re-derived from the log.
func (e *Engine) RecordActivity(event *models.ActivityEvent) (string, error) {
	if event.ActivityType == models.ActivityCertificateEarned {
		return "", &ValidationError{
			Field:  "activity_type",
			Reason: "certificate_earned is issued by the platform, not submitted",
		}
	}

	id, err := e.Log.Append(event)
	if err != nil {
		return "", err
	}

	if err := e.Tracker.ApplyEvent(event); err != nil {
		e.logger.Printf("engine: progress update failed for event %s: %v", id, err)
	}
	if err := e.Rollup.ApplyEvent(event); err != nil {
		e.logger.Printf("engine: rollup update failed for event %s: %v", id, err)
	}
	return id, nil
}

// recordSynthetic logs a tracker-issued certificate_earned event and feeds it
// to the rollup. It deliberately never goes back through the tracker, which
// closes the certificate feedback loop.
func (e *Engine) recordSynthetic(event *models.ActivityEvent) {
	id, err := e.Log.Append(event)
	if err != nil {
		e.logger.Printf("engine: failed to log synthetic %s event: %v", event.ActivityType, err)
		return
	}
	if err := e.Rollup.ApplyEvent(event); err != nil {
		e.logger.Printf("engine: rollup update failed for synthetic event %s: %v", id, err)
	}
}

// GetProgress proxies to the tracker (default-zero record for unknown pairs).
func (e *Engine) GetProgress(userID uint, subject string) (*models.ProgressRecord, error) {
	return e.Tracker.GetProgress(userID, subject)
}

// Certificate is one earned certificate on the dashboard.
type Certificate struct {
	Subject  string     `json:"subject"`
	IssuedAt *time.Time `json:"issued_at"`
}

// DashboardResponse is the full per-user dashboard payload.
type DashboardResponse struct {
	Stats               StreakInfo              `json:"stats"`
	CourseProgress      []models.ProgressRecord `json:"course_progress"`
	RecentActivities    []models.ActivityEvent  `json:"recent_activities"`
	Certificates        []Certificate           `json:"certificates"`
	ActivityByDayOfWeek []DayOfWeekCount        `json:"activity_by_day_of_week"`
	SubjectDistribution []SubjectShare          `json:"subject_distribution"`
	PerformanceMetrics  PerformanceMetrics      `json:"performance_metrics"`
	ProgressTrend       []TrendDay              `json:"progress_trend"`
}

const recentActivityLimit = 10

// GetDashboard assembles the dashboard for one user.
func (e *Engine) GetDashboard(userID uint) (*DashboardResponse, error) {
	streaks, err := e.Stats.Streaks(userID)
	if err != nil {
		return nil, err
	}
	progress, err := e.Tracker.ListProgress(userID)
	if err != nil {
		return nil, err
	}
	recent, err := e.Log.Query(ActivityFilter{UserID: userID, Limit: recentActivityLimit})
	if err != nil {
		return nil, err
	}
	histogram, err := e.Stats.ActivityByDayOfWeek(userID)
	if err != nil {
		return nil, err
	}
	distribution, err := e.Stats.SubjectDistribution(userID)
	if err != nil {
		return nil, err
	}
	performance, err := e.Stats.Performance(userID)
	if err != nil {
		return nil, err
	}
	trend, err := e.Stats.ProgressTrend(userID)
	if err != nil {
		return nil, err
	}

	var certificates []Certificate
	for _, record := range progress {
		if record.CertificateIssued {
			certificates = append(certificates, Certificate{
				Subject:  record.Subject,
				IssuedAt: record.CertificateIssuedAt,
			})
		}
	}

	return &DashboardResponse{
		Stats:               streaks,
		CourseProgress:      progress,
		RecentActivities:    recent,
		Certificates:        certificates,
		ActivityByDayOfWeek: histogram,
		SubjectDistribution: distribution,
		PerformanceMetrics:  performance,
		ProgressTrend:       trend,
	}, nil
}

// DailyStats is one serialized rollup row (the stored (sum, count) pair is
// exposed as its mean).
type DailyStats struct {
	Date                    string                        `json:"date"`
	TotalCoursesViewed      int                           `json:"total_courses_viewed"`
	TotalChaptersViewed     int                           `json:"total_chapters_viewed"`
	TotalLessonsViewed      int                           `json:"total_lessons_viewed"`
	TotalLessonsCompleted   int                           `json:"total_lessons_completed"`
	TotalExercisesCompleted int                           `json:"total_exercises_completed"`
	TotalQuizzesAttempted   int                           `json:"total_quizzes_attempted"`
	TotalQuizzesCompleted   int                           `json:"total_quizzes_completed"`
	DailyActiveUsers        int                           `json:"daily_active_users"`
	AverageScore            float64                       `json:"average_score"`
	SubjectEngagement       []models.SubjectEngagementRow `json:"subject_engagement"`
}

// SubjectEngagementSummary aggregates views per subject across a range.
type SubjectEngagementSummary struct {
	Subject string `json:"subject"`
	Views   int    `json:"views"`
}

// SubjectCompletionRate is the completion picture for one subject.
type SubjectCompletionRate struct {
	Subject           string  `json:"subject"`
	TrackedUsers      int64   `json:"tracked_users"`
	CompletedUsers    int64   `json:"completed_users"`
	AveragePercentage float64 `json:"average_percentage"`
}

// AdminAnalyticsResponse is the privileged platform-wide view. Authorization
// is enforced by middleware, not here.
type AdminAnalyticsResponse struct {
	DailyStats       []DailyStats               `json:"daily_stats"`
	TotalUsers       int64                      `json:"total_users"`
	CourseEngagement []SubjectEngagementSummary `json:"course_engagement"`
	CompletionRates  []SubjectCompletionRate    `json:"completion_rates"`
}

// GetAdminAnalytics builds the admin view for [from, to].
func (e *Engine) GetAdminAnalytics(from, to time.Time) (*AdminAnalyticsResponse, error) {
	rollups, err := e.Rollup.GetRange(from, to)
	if err != nil {
		return nil, err
	}

	response := &AdminAnalyticsResponse{}
	viewsBySubject := make(map[string]int)
	for _, rollup := range rollups {
		engagement := models.DecodeSubjectEngagement(rollup.SubjectEngagement)
		for _, row := range engagement {
			viewsBySubject[row.Subject] += row.Views
		}
		response.DailyStats = append(response.DailyStats, DailyStats{
			Date:                    rollup.Date.Format("2006-01-02"),
			TotalCoursesViewed:      rollup.TotalCoursesViewed,
			TotalChaptersViewed:     rollup.TotalChaptersViewed,
			TotalLessonsViewed:      rollup.TotalLessonsViewed,
			TotalLessonsCompleted:   rollup.TotalLessonsCompleted,
			TotalExercisesCompleted: rollup.TotalExercisesCompleted,
			TotalQuizzesAttempted:   rollup.TotalQuizzesAttempted,
			TotalQuizzesCompleted:   rollup.TotalQuizzesCompleted,
			DailyActiveUsers:        rollup.DailyActiveUsers,
			AverageScore:            rollup.AverageScore(),
			SubjectEngagement:       engagement,
		})
	}
	for subject, views := range viewsBySubject {
		response.CourseEngagement = append(response.CourseEngagement, SubjectEngagementSummary{
			Subject: subject,
			Views:   views,
		})
	}
	sort.Slice(response.CourseEngagement, func(i, j int) bool {
		a, b := response.CourseEngagement[i], response.CourseEngagement[j]
		if a.Views != b.Views {
			return a.Views > b.Views
		}
		return a.Subject < b.Subject
	})

	total, err := e.Log.CountDistinctUsersAll()
	if err != nil {
		return nil, err
	}
	response.TotalUsers = total

	rates, err := e.completionRates()
	if err != nil {
		return nil, err
	}
	response.CompletionRates = rates
	return response, nil
}

func (e *Engine) completionRates() ([]SubjectCompletionRate, error) {
	var rates []SubjectCompletionRate
	err := e.db.Model(&models.ProgressRecord{}).
		Select("subject, COUNT(*) AS tracked_users, SUM(CASE WHEN percentage = 100 THEN 1 ELSE 0 END) AS completed_users, AVG(percentage) AS average_percentage").
		Group("subject").
		Order("subject").
		Scan(&rates).Error
	if err != nil {
		return nil, err
	}
	return rates, nil
}
