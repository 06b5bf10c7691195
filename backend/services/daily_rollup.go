package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"project/backend/models"
)

// DailyRollup maintains one platform-wide DailyAnalytics row per UTC calendar
// day. Updates for a day are serialized on that day's mutex, which makes the
// find-or-append over subject engagement and the (sum, count) score update
// atomic per bucket.
type DailyRollup struct {
	db       *gorm.DB
	log      *ActivityLog
	provider CourseStructureProvider
	locks    *keyedMutex
	logger   *log.Logger
	now      func() time.Time
}

func NewDailyRollup(db *gorm.DB, activityLog *ActivityLog, provider CourseStructureProvider, logger *log.Logger) *DailyRollup {
	return &DailyRollup{
		db:       db,
		log:      activityLog,
		provider: provider,
		locks:    newKeyedMutex(),
		logger:   logger,
		now:      time.Now,
	}
}

// TruncateToDay buckets a timestamp to its UTC calendar day. UTC is the
// reference timezone for all day bucketing on the platform.
func TruncateToDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ApplyEvent folds one event into its day bucket.
func (r *DailyRollup) ApplyEvent(event *models.ActivityEvent) error {
	day := TruncateToDay(event.CreatedAt)
	unlock := r.locks.Lock("day|" + day.Format("2006-01-02"))
	defer unlock()

	rollup, err := r.loadOrCreate(day)
	if err != nil {
		return err
	}

	switch event.ActivityType {
	case models.ActivityCourseView:
		rollup.TotalCoursesViewed++
		r.bumpSubjectEngagement(rollup, event.Subject)
	case models.ActivityChapterView:
		rollup.TotalChaptersViewed++
	case models.ActivityLessonView:
		rollup.TotalLessonsViewed++
	case models.ActivityLessonComplete:
		rollup.TotalLessonsCompleted++
		r.refreshCompletionRate(rollup, event.Subject)
	case models.ActivityExerciseComplete:
		rollup.TotalExercisesCompleted++
	case models.ActivityQuizAttempt:
		rollup.TotalQuizzesAttempted++
		if event.Score != nil {
			rollup.ScoreSum += int64(*event.Score)
			rollup.ScoreCount++
		}
	case models.ActivityQuizComplete:
		rollup.TotalQuizzesCompleted++
	}

	// Exact recount from the log; counters cannot deduplicate users safely.
	active, err := r.log.CountDistinctUsers(day, day.AddDate(0, 0, 1))
	if err != nil {
		r.logger.Printf("rollup: active user recount failed for %s: %v", day.Format("2006-01-02"), err)
	} else {
		rollup.DailyActiveUsers = int(active)
	}

	return r.db.Save(rollup).Error
}

func (r *DailyRollup) loadOrCreate(day time.Time) (*models.DailyAnalytics, error) {
	var rollup models.DailyAnalytics
	err := r.db.Where("date = ?", day).First(&rollup).Error
	if err == nil {
		return &rollup, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	rollup = models.DailyAnalytics{Date: day}
	if err := r.db.Create(&rollup).Error; err != nil {
		return nil, err
	}
	return &rollup, nil
}

// bumpSubjectEngagement increments views for the subject's row in today's
// bucket, appending a new row on first sight. Runs under the day lock, so
// concurrent first views of a new subject cannot create duplicate rows.
func (r *DailyRollup) bumpSubjectEngagement(rollup *models.DailyAnalytics, subject string) {
	if subject == "" {
		return
	}
	subject = normalizeSubject(subject)
	rows := models.DecodeSubjectEngagement(rollup.SubjectEngagement)

	classLevel := r.lookupClassLevel(subject)
	for i := range rows {
		if rows[i].Subject == subject {
			rows[i].Views++
			if classLevel != "" {
				if rows[i].ClassLevelDistribution == nil {
					rows[i].ClassLevelDistribution = make(map[string]int)
				}
				rows[i].ClassLevelDistribution[classLevel]++
			}
			rollup.SubjectEngagement = models.EncodeSubjectEngagement(rows)
			return
		}
	}

	row := models.SubjectEngagementRow{
		Subject:                subject,
		Views:                  1,
		ClassLevelDistribution: make(map[string]int),
	}
	if classLevel != "" {
		row.ClassLevelDistribution[classLevel] = 1
	}
	row.CompletionRate = r.subjectCompletionRate(subject)
	rows = append(rows, row)
	rollup.SubjectEngagement = models.EncodeSubjectEngagement(rows)
}

// refreshCompletionRate updates the subject's completion rate after a lesson
// completion, when the ratio can actually move.
func (r *DailyRollup) refreshCompletionRate(rollup *models.DailyAnalytics, subject string) {
	if subject == "" {
		return
	}
	subject = normalizeSubject(subject)
	rows := models.DecodeSubjectEngagement(rollup.SubjectEngagement)
	for i := range rows {
		if rows[i].Subject == subject {
			rows[i].CompletionRate = r.subjectCompletionRate(subject)
			rollup.SubjectEngagement = models.EncodeSubjectEngagement(rows)
			return
		}
	}
}

// subjectCompletionRate is completed progress records over all progress
// records for the subject, as a percentage.
func (r *DailyRollup) subjectCompletionRate(subject string) float64 {
	var total, completed int64
	r.db.Model(&models.ProgressRecord{}).Where("subject = ?", subject).Count(&total)
	if total == 0 {
		return 0
	}
	r.db.Model(&models.ProgressRecord{}).Where("subject = ? AND percentage = 100", subject).Count(&completed)
	return 100 * float64(completed) / float64(total)
}

func (r *DailyRollup) lookupClassLevel(subject string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	structure, err := r.provider.GetCourseStructure(ctx, subject)
	if err != nil {
		return ""
	}
	return structure.ClassLevel
}

// GetRange returns rollups for [from, to] inclusive, oldest first.
func (r *DailyRollup) GetRange(from, to time.Time) ([]models.DailyAnalytics, error) {
	var rollups []models.DailyAnalytics
	err := r.db.
		Where("date >= ? AND date <= ?", TruncateToDay(from), TruncateToDay(to)).
		Order("date").
		Find(&rollups).Error
	if err != nil {
		return nil, err
	}
	return rollups, nil
}
