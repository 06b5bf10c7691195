package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DailyAnalytics is the platform-wide rollup for one UTC calendar day.
// Created lazily on the first event of the day, mutated throughout it.
// Scores are kept as a (sum, count) pair so concurrent updates commute;
// the mean is only ever computed at read time.
type DailyAnalytics struct {
	gorm.Model
	Date                    time.Time      `gorm:"uniqueIndex;not null" json:"date"` // UTC midnight
	TotalCoursesViewed      int            `gorm:"default:0" json:"total_courses_viewed"`
	TotalChaptersViewed     int            `gorm:"default:0" json:"total_chapters_viewed"`
	TotalLessonsViewed      int            `gorm:"default:0" json:"total_lessons_viewed"`
	TotalLessonsCompleted   int            `gorm:"default:0" json:"total_lessons_completed"`
	TotalExercisesCompleted int            `gorm:"default:0" json:"total_exercises_completed"`
	TotalQuizzesAttempted   int            `gorm:"default:0" json:"total_quizzes_attempted"`
	TotalQuizzesCompleted   int            `gorm:"default:0" json:"total_quizzes_completed"`
	DailyActiveUsers        int            `gorm:"default:0" json:"daily_active_users"`
	ScoreSum                int64          `gorm:"default:0" json:"-"`
	ScoreCount              int64          `gorm:"default:0" json:"-"`
	SubjectEngagement       datatypes.JSON `json:"subject_engagement"`
}

func (DailyAnalytics) TableName() string {
	return "daily_analytics"
}

// AverageScore returns the running mean over that day's scored quiz attempts.
func (d *DailyAnalytics) AverageScore() float64 {
	if d.ScoreCount == 0 {
		return 0
	}
	return float64(d.ScoreSum) / float64(d.ScoreCount)
}

// SubjectEngagementRow is one entry of the per-day subject engagement array.
type SubjectEngagementRow struct {
	Subject                string         `json:"subject"`
	Views                  int            `json:"views"`
	CompletionRate         float64        `json:"completion_rate"`
	ClassLevelDistribution map[string]int `json:"class_level_distribution"`
}

func DecodeSubjectEngagement(raw datatypes.JSON) []SubjectEngagementRow {
	if len(raw) == 0 {
		return nil
	}
	var rows []SubjectEngagementRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil
	}
	return rows
}

func EncodeSubjectEngagement(rows []SubjectEngagementRow) datatypes.JSON {
	raw, _ := json.Marshal(rows)
	return raw
}
