package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"project/backend/models"
)

// ProgressTracker maintains one ProgressRecord per (user, subject) and drives
// the one-way certificate transition. All writes for a key run under that
// key's mutex, so set insertions are never lost; the certificate flip is
// additionally guarded by a compare-and-set at the database level.
type ProgressTracker struct {
	db              *gorm.DB
	provider        CourseStructureProvider
	notifier        Notifier
	locks           *keyedMutex
	logger          *log.Logger
	providerTimeout time.Duration
	now             func() time.Time

	// onCertificate routes the synthetic certificate_earned event back to the
	// engine (log + rollup only — never to this tracker).
	onCertificate func(event *models.ActivityEvent)
}

func NewProgressTracker(db *gorm.DB, provider CourseStructureProvider, notifier Notifier, logger *log.Logger, providerTimeout time.Duration) *ProgressTracker {
	return &ProgressTracker{
		db:              db,
		provider:        provider,
		notifier:        notifier,
		locks:           newKeyedMutex(),
		logger:          logger,
		providerTimeout: providerTimeout,
		now:             time.Now,
	}
}

func progressKey(userID uint, subject string) string {
	return fmt.Sprintf("%d|%s", userID, subject)
}

// ApplyEvent folds one event into the (user, subject) record.
func (t *ProgressTracker) ApplyEvent(event *models.ActivityEvent) error {
	if event.Subject == "" {
		return nil // not a progress-relevant event
	}
	if event.ActivityType == models.ActivityCertificateEarned {
		// Synthetic feedback event; carries no completable item.
		return nil
	}

	subject := normalizeSubject(event.Subject)
	unlock := t.locks.Lock(progressKey(event.UserID, subject))
	defer unlock()

	record, err := t.loadOrCreate(event.UserID, subject)
	if err != nil {
		return err
	}

	t.applyCounters(record, event)
	if err := t.db.Save(record).Error; err != nil {
		return err
	}

	// Percentage is a derived, recoverable cache: provider failures leave the
	// counters persisted above untouched and keep the previous value.
	if err := t.recompute(record, subject); err != nil {
		t.logger.Printf("progress: recompute skipped for user %d subject %q: %v",
			event.UserID, subject, err)
		return nil
	}

	if record.Percentage == 100 && !record.CertificateIssued {
		t.issueCertificate(record)
	}
	return nil
}

func (t *ProgressTracker) loadOrCreate(userID uint, subject string) (*models.ProgressRecord, error) {
	var record models.ProgressRecord
	err := t.db.Where("user_id = ? AND subject = ?", userID, subject).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	record = models.ProgressRecord{
		UserID:         userID,
		Subject:        subject,
		LastAccessedAt: t.now().UTC(),
	}
	if err := t.db.Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// applyCounters is step 2: scalar updates plus set insertion. Inserting an id
// that is already present is a no-op, which is what makes retried deliveries
// of the same event safe.
func (t *ProgressTracker) applyCounters(record *models.ProgressRecord, event *models.ActivityEvent) {
	record.LastAccessedAt = t.now().UTC()
	record.TotalTimeSpentSeconds += int64(event.TimeSpentSecond)

	switch event.ActivityType {
	case models.ActivityLessonComplete:
		record.CompletedLessonIDs = addToSet(record.CompletedLessonIDs, event.LessonID)
	case models.ActivityExerciseComplete:
		record.CompletedExerciseIDs = addToSet(record.CompletedExerciseIDs, event.ExerciseID)
	case models.ActivityQuizComplete:
		record.CompletedQuizIDs = addToSet(record.CompletedQuizIDs, event.QuizID)
	case models.ActivityQuizAttempt:
		if event.Score != nil && *event.Score >= passingQuizScore {
			record.CompletedQuizIDs = addToSet(record.CompletedQuizIDs, event.QuizID)
		}
	}
}

// passingQuizScore is the threshold above which a quiz attempt counts as a
// completion for progress purposes.
const passingQuizScore = 70

func addToSet(raw datatypes.JSON, id string) datatypes.JSON {
	set := models.DecodeIDSet(raw)
	set[id] = struct{}{}
	return models.EncodeIDSet(set)
}

// recompute is steps 3–4: fetch the structure tree and persist the full
// chapter breakdown plus the overall percentage. It re-reads the record's
// current sets from the database rather than trusting any copy captured
// before the counter write.
func (t *ProgressTracker) recompute(record *models.ProgressRecord, subject string) error {
	ctx, cancel := context.WithTimeout(context.Background(), t.providerTimeout)
	defer cancel()

	structure, err := t.provider.GetCourseStructure(ctx, subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fmt.Errorf("subject unknown to structure provider: %w", err)
		}
		return &TransientDependencyError{Dependency: "course_structure", Err: err}
	}

	var fresh models.ProgressRecord
	if err := t.db.First(&fresh, record.ID).Error; err != nil {
		return err
	}

	chapters, overall := computeBreakdown(structure, &fresh)

	completedChapters := models.DecodeIDSet(fresh.CompletedChapterIDs)
	for _, chapter := range chapters {
		if chapter.Completed {
			completedChapters[chapter.ChapterID] = struct{}{}
		}
	}

	fresh.PerChapterProgress = models.EncodeChapterProgress(chapters)
	fresh.Percentage = overall
	fresh.CompletedChapterIDs = models.EncodeIDSet(completedChapters)
	if err := t.db.Save(&fresh).Error; err != nil {
		return err
	}
	*record = fresh
	return nil
}

// computeBreakdown aggregates completion over the chapter tree. A chapter is
// completed only when it has at least one lesson and every lesson, exercise
// and quiz under it is completed.
func computeBreakdown(structure *models.CourseStructure, record *models.ProgressRecord) ([]models.ChapterProgress, int) {
	lessons := models.DecodeIDSet(record.CompletedLessonIDs)
	exercises := models.DecodeIDSet(record.CompletedExerciseIDs)
	quizzes := models.DecodeIDSet(record.CompletedQuizIDs)

	chapters := make([]models.ChapterProgress, 0, len(structure.Chapters))
	var totalItems, totalCompleted int

	for _, chapter := range structure.Chapters {
		cp := models.ChapterProgress{ChapterID: chapter.ID, Title: chapter.Title}
		for _, lesson := range chapter.Lessons {
			cp.LessonsTotal++
			if _, ok := lessons[lesson.ID]; ok {
				cp.LessonsCompleted++
			}
			for _, exID := range lesson.Exercises {
				cp.ExercisesTotal++
				if _, ok := exercises[exID]; ok {
					cp.ExercisesCompleted++
				}
			}
			for _, quizID := range lesson.Quizzes {
				cp.QuizzesTotal++
				if _, ok := quizzes[quizID]; ok {
					cp.QuizzesCompleted++
				}
			}
		}

		items := cp.LessonsTotal + cp.ExercisesTotal + cp.QuizzesTotal
		completed := cp.LessonsCompleted + cp.ExercisesCompleted + cp.QuizzesCompleted
		cp.Percentage = roundPercentage(completed, items)
		cp.Completed = cp.LessonsTotal >= 1 && completed == items

		totalItems += items
		totalCompleted += completed
		chapters = append(chapters, cp)
	}

	return chapters, roundPercentage(totalCompleted, totalItems)
}

func roundPercentage(completed, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Round(100 * float64(completed) / float64(total)))
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct
}

// issueCertificate is step 5. The UPDATE is conditioned on the flag still
// being false so that concurrent completions issue exactly one certificate.
func (t *ProgressTracker) issueCertificate(record *models.ProgressRecord) {
	issuedAt := t.now().UTC()
	result := t.db.Model(&models.ProgressRecord{}).
		Where("id = ? AND certificate_issued = ?", record.ID, false).
		Updates(map[string]interface{}{
			"certificate_issued":    true,
			"certificate_issued_at": issuedAt,
		})
	if result.Error != nil {
		t.logger.Printf("progress: certificate update failed for record %d: %v", record.ID, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		return // lost the race, certificate already issued
	}

	record.CertificateIssued = true
	record.CertificateIssuedAt = &issuedAt

	score := 100
	synthetic := &models.ActivityEvent{
		UserID:       record.UserID,
		ActivityType: models.ActivityCertificateEarned,
		Subject:      record.Subject,
		Score:        &score,
		Metadata:     map[string]interface{}{"source": "progress_tracker"},
		CreatedAt:    issuedAt,
	}
	if t.onCertificate != nil {
		t.onCertificate(synthetic)
	}
	if t.notifier != nil {
		t.notifier.Notify(CourseCompletedNotification{UserID: record.UserID, Subject: record.Subject})
		t.notifier.Notify(CertificateNotification{UserID: record.UserID, Subject: record.Subject, IssuedAt: issuedAt})
	}
}

// GetProgress returns the record for (user, subject), or a default-zero
// record when the user has no history for the subject yet.
func (t *ProgressTracker) GetProgress(userID uint, subject string) (*models.ProgressRecord, error) {
	normalized := normalizeSubject(subject)
	var record models.ProgressRecord
	err := t.db.Where("user_id = ? AND subject = ?", userID, normalized).First(&record).Error
	if err == nil {
		return &record, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.ProgressRecord{UserID: userID, Subject: normalized}, nil
	}
	return nil, err
}

// ListProgress returns all subject records for a user.
func (t *ProgressTracker) ListProgress(userID uint) ([]models.ProgressRecord, error) {
	var records []models.ProgressRecord
	if err := t.db.Where("user_id = ?", userID).Order("subject").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
