package models

import (
	"encoding/json"
	"sort"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ProgressRecord is the per-(user, subject) aggregate. Created lazily on the
// first subject-scoped event and kept forever. Completion sets only grow;
// CertificateIssued flips false→true exactly once.
type ProgressRecord struct {
	gorm.Model
	UserID                uint           `gorm:"not null;uniqueIndex:idx_progress_user_subject" json:"user_id"`
	Subject               string         `gorm:"type:varchar(100);not null;uniqueIndex:idx_progress_user_subject" json:"subject"`
	Percentage            int            `gorm:"default:0" json:"percentage"`
	CompletedChapterIDs   datatypes.JSON `json:"completed_chapter_ids"`
	CompletedLessonIDs    datatypes.JSON `json:"completed_lesson_ids"`
	CompletedExerciseIDs  datatypes.JSON `json:"completed_exercise_ids"`
	CompletedQuizIDs      datatypes.JSON `json:"completed_quiz_ids"`
	PerChapterProgress    datatypes.JSON `json:"per_chapter_progress"`
	TotalTimeSpentSeconds int64          `gorm:"default:0" json:"total_time_spent_seconds"`
	LastAccessedAt        time.Time      `json:"last_accessed_at"`
	CertificateIssued     bool           `gorm:"default:false" json:"certificate_issued"`
	CertificateIssuedAt   *time.Time     `json:"certificate_issued_at,omitempty"`
}

func (ProgressRecord) TableName() string {
	return "progress_records"
}

// ChapterProgress is one row of the persisted chapter breakdown.
type ChapterProgress struct {
	ChapterID          string `json:"chapter_id"`
	Title              string `json:"title"`
	Percentage         int    `json:"percentage"`
	LessonsTotal       int    `json:"lessons_total"`
	LessonsCompleted   int    `json:"lessons_completed"`
	ExercisesTotal     int    `json:"exercises_total"`
	ExercisesCompleted int    `json:"exercises_completed"`
	QuizzesTotal       int    `json:"quizzes_total"`
	QuizzesCompleted   int    `json:"quizzes_completed"`
	Completed          bool   `json:"completed"`
}

// DecodeIDSet reads a JSON id array column into set form. A nil or empty
// column decodes to an empty set.
func DecodeIDSet(raw datatypes.JSON) map[string]struct{} {
	set := make(map[string]struct{})
	if len(raw) == 0 {
		return set
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return set
	}
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// EncodeIDSet writes a set back to its JSON column form, sorted so the stored
// representation is stable regardless of insertion order.
func EncodeIDSet(set map[string]struct{}) datatypes.JSON {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	raw, _ := json.Marshal(ids)
	return raw
}

// DecodeChapterProgress reads the persisted breakdown column.
func DecodeChapterProgress(raw datatypes.JSON) []ChapterProgress {
	if len(raw) == 0 {
		return nil
	}
	var chapters []ChapterProgress
	if err := json.Unmarshal(raw, &chapters); err != nil {
		return nil
	}
	return chapters
}

// EncodeChapterProgress writes the breakdown column.
func EncodeChapterProgress(chapters []ChapterProgress) datatypes.JSON {
	raw, _ := json.Marshal(chapters)
	return raw
}
