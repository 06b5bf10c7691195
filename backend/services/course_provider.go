package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"project/backend/models"
)

// CourseStructureProvider exposes the chapter/lesson/exercise/quiz tree for a
// subject. The engine treats it as an external collaborator: unknown subjects
// and outages both degrade to "skip percentage recomputation".
type CourseStructureProvider interface {
	GetCourseStructure(ctx context.Context, subject string) (*models.CourseStructure, error)
}

type courseProvider struct {
	db *gorm.DB
}

// NewCourseProvider returns the default provider backed by the read-only
// course tables.
func NewCourseProvider(db *gorm.DB) CourseStructureProvider {
	return &courseProvider{db: db}
}

func normalizeSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

func (p *courseProvider) GetCourseStructure(ctx context.Context, subject string) (*models.CourseStructure, error) {
	var course models.Course
	err := p.db.WithContext(ctx).
		Preload("Chapters", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order")
		}).
		Preload("Chapters.Lessons", func(db *gorm.DB) *gorm.DB {
			return db.Order("sequence_order")
		}).
		Preload("Chapters.Lessons.Exercises").
		Preload("Chapters.Lessons.Quizzes").
		Where("LOWER(subject) = ?", normalizeSubject(subject)).
		First(&course).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, &TransientDependencyError{Dependency: "course_structure", Err: err}
	}

	structure := &models.CourseStructure{
		Subject:    course.Subject,
		ClassLevel: course.ClassLevel,
	}
	for _, chapter := range course.Chapters {
		cs := models.ChapterStructure{ID: chapter.ID, Title: chapter.Title}
		for _, lesson := range chapter.Lessons {
			ls := models.LessonStructure{ID: lesson.ID}
			for _, ex := range lesson.Exercises {
				ls.Exercises = append(ls.Exercises, ex.ID)
			}
			for _, quiz := range lesson.Quizzes {
				ls.Quizzes = append(ls.Quizzes, quiz.ID)
			}
			cs.Lessons = append(cs.Lessons, ls)
		}
		structure.Chapters = append(structure.Chapters, cs)
	}
	return structure, nil
}
