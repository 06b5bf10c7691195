package services

import (
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"project/backend/models"
)

// ActivityLog is the append-only source of truth. Every aggregate view can be
// re-derived from it; rows are never updated or deleted.
type ActivityLog struct {
	db       *gorm.DB
	validate *validator.Validate
	logger   *log.Logger
}

func NewActivityLog(db *gorm.DB, logger *log.Logger) *ActivityLog {
	return &ActivityLog{
		db:       db,
		validate: validator.New(),
		logger:   logger,
	}
}

// Append validates and durably stores one event, returning its id. The id and
// CreatedAt are assigned here; CreatedAt is the authoritative timestamp for
// day bucketing downstream.
func (l *ActivityLog) Append(event *models.ActivityEvent) (string, error) {
	if !event.ActivityType.Valid() {
		return "", &ValidationError{Field: "activity_type", Reason: "unknown activity type " + string(event.ActivityType)}
	}
	if err := l.validate.Struct(event); err != nil {
		return "", &ValidationError{Reason: err.Error()}
	}
	if field := event.MissingField(); field != "" {
		return "", &ValidationError{Field: field, Reason: "required for " + string(event.ActivityType)}
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if err := l.db.Create(event).Error; err != nil {
		return "", err
	}
	return event.ID, nil
}

// ActivityFilter narrows a Query. Zero values mean "no constraint".
type ActivityFilter struct {
	UserID  uint
	Types   []models.ActivityType
	Subject string
	From    time.Time
	To      time.Time // exclusive
	Limit   int
	Offset  int
}

// Query returns matching events newest first.
func (l *ActivityLog) Query(filter ActivityFilter) ([]models.ActivityEvent, error) {
	q := l.db.Model(&models.ActivityEvent{})
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Types) > 0 {
		q = q.Where("activity_type IN ?", filter.Types)
	}
	if filter.Subject != "" {
		q = q.Where("LOWER(subject) = ?", normalizeSubject(filter.Subject))
	}
	if !filter.From.IsZero() {
		q = q.Where("created_at >= ?", filter.From)
	}
	if !filter.To.IsZero() {
		q = q.Where("created_at < ?", filter.To)
	}
	q = q.Order("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var events []models.ActivityEvent
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// CountDistinctUsers counts users with any event in [from, to). Exact, not
// probabilistic.
func (l *ActivityLog) CountDistinctUsers(from, to time.Time) (int64, error) {
	var count int64
	err := l.db.Model(&models.ActivityEvent{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}

// CountDistinctUsersAll counts every user that ever produced an event.
func (l *ActivityLog) CountDistinctUsersAll() (int64, error) {
	var count int64
	err := l.db.Model(&models.ActivityEvent{}).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}
