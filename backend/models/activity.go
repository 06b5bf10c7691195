package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityType перечисляет все типы событий активности
type ActivityType string

const (
	ActivityCourseView        ActivityType = "course_view"
	ActivityChapterView       ActivityType = "chapter_view"
	ActivityLessonView        ActivityType = "lesson_view"
	ActivityLessonComplete    ActivityType = "lesson_complete"
	ActivityExerciseAttempt   ActivityType = "exercise_attempt"
	ActivityExerciseComplete  ActivityType = "exercise_complete"
	ActivityQuizAttempt       ActivityType = "quiz_attempt"
	ActivityQuizComplete      ActivityType = "quiz_complete"
	ActivityResourceAccess    ActivityType = "resource_access"
	ActivityDiscussionPost    ActivityType = "discussion_post"
	ActivityDiscussionReply   ActivityType = "discussion_reply"
	ActivityCertificateEarned ActivityType = "certificate_earned"
)

// AllActivityTypes used for enum validation
var AllActivityTypes = []ActivityType{
	ActivityCourseView, ActivityChapterView, ActivityLessonView,
	ActivityLessonComplete, ActivityExerciseAttempt, ActivityExerciseComplete,
	ActivityQuizAttempt, ActivityQuizComplete, ActivityResourceAccess,
	ActivityDiscussionPost, ActivityDiscussionReply, ActivityCertificateEarned,
}

func (t ActivityType) Valid() bool {
	for _, at := range AllActivityTypes {
		if t == at {
			return true
		}
	}
	return false
}

// subjectScoped types require the Subject field on the event
var subjectScoped = map[ActivityType]bool{
	ActivityCourseView:        true,
	ActivityChapterView:       true,
	ActivityLessonView:        true,
	ActivityLessonComplete:    true,
	ActivityExerciseAttempt:   true,
	ActivityExerciseComplete:  true,
	ActivityQuizAttempt:       true,
	ActivityQuizComplete:      true,
	ActivityCertificateEarned: true,
}

func (t ActivityType) SubjectScoped() bool {
	return subjectScoped[t]
}

// ActivityEvent is the append-only record of one learner action. Rows are
// never updated or deleted; every aggregate view is derived from them.
type ActivityEvent struct {
	ID              string            `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID          uint              `gorm:"not null;index:idx_activity_user" json:"user_id" validate:"required"`
	ActivityType    ActivityType      `gorm:"type:varchar(32);not null;index:idx_activity_type" json:"activity_type" validate:"required,oneof=course_view chapter_view lesson_view lesson_complete exercise_attempt exercise_complete quiz_attempt quiz_complete resource_access discussion_post discussion_reply certificate_earned"`
	Subject         string            `gorm:"type:varchar(100);index:idx_activity_subject" json:"subject,omitempty"`
	ChapterID       string            `gorm:"type:varchar(64)" json:"chapter_id,omitempty"`
	LessonID        string            `gorm:"type:varchar(64)" json:"lesson_id,omitempty"`
	ExerciseID      string            `gorm:"type:varchar(64)" json:"exercise_id,omitempty"`
	QuizID          string            `gorm:"type:varchar(64)" json:"quiz_id,omitempty"`
	ResourceID      string            `gorm:"type:varchar(64)" json:"resource_id,omitempty"`
	Score           *int              `json:"score,omitempty" validate:"omitempty,min=0,max=100"`
	TimeSpentSecond int               `gorm:"column:time_spent_seconds;default:0" json:"time_spent_seconds" validate:"min=0"`
	Metadata        datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt       time.Time         `gorm:"index:idx_activity_created" json:"created_at"`
}

func (ActivityEvent) TableName() string {
	return "activity_events"
}

// MissingField returns the name of a type-specific required field that is
// empty, or "" when the event is complete for its type.
func (e *ActivityEvent) MissingField() string {
	if e.ActivityType.SubjectScoped() && e.Subject == "" {
		return "subject"
	}
	switch e.ActivityType {
	case ActivityChapterView:
		if e.ChapterID == "" {
			return "chapter_id"
		}
	case ActivityLessonView, ActivityLessonComplete:
		if e.LessonID == "" {
			return "lesson_id"
		}
	case ActivityExerciseAttempt, ActivityExerciseComplete:
		if e.ExerciseID == "" {
			return "exercise_id"
		}
	case ActivityQuizAttempt, ActivityQuizComplete:
		if e.QuizID == "" {
			return "quiz_id"
		}
	case ActivityResourceAccess:
		if e.ResourceID == "" {
			return "resource_id"
		}
	}
	return ""
}
