package models

import "gorm.io/gorm"

// Course structure tables. Content CRUD lives in another service; the engine
// only reads these to derive completion percentages.

type Course struct {
	gorm.Model
	Subject    string    `gorm:"type:varchar(100);not null;index" json:"subject"`
	Title      string    `json:"title"`
	ClassLevel string    `gorm:"type:varchar(32)" json:"class_level"`
	Chapters   []Chapter `gorm:"foreignKey:CourseID" json:"chapters"`
}

type Chapter struct {
	ID            string   `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CourseID      uint     `gorm:"not null;index" json:"course_id"`
	Title         string   `json:"title"`
	SequenceOrder int      `json:"sequence_order"`
	Lessons       []Lesson `gorm:"foreignKey:ChapterID" json:"lessons"`
}

type Lesson struct {
	ID            string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ChapterID     string     `gorm:"type:varchar(64);not null;index" json:"chapter_id"`
	Title         string     `json:"title"`
	SequenceOrder int        `json:"sequence_order"`
	Exercises     []Exercise `gorm:"foreignKey:LessonID" json:"exercises"`
	Quizzes       []Quiz     `gorm:"foreignKey:LessonID" json:"quizzes"`
}

type Exercise struct {
	ID       string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	LessonID string `gorm:"type:varchar(64);not null;index" json:"lesson_id"`
	Title    string `json:"title"`
}

type Quiz struct {
	ID       string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	LessonID string `gorm:"type:varchar(64);not null;index" json:"lesson_id"`
	Title    string `json:"title"`
}

// CourseStructure is the read-only tree handed out by the structure provider.

type CourseStructure struct {
	Subject    string             `json:"subject"`
	ClassLevel string             `json:"class_level"`
	Chapters   []ChapterStructure `json:"chapters"`
}

type ChapterStructure struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Lessons []LessonStructure `json:"lessons"`
}

type LessonStructure struct {
	ID        string   `json:"id"`
	Exercises []string `json:"exercises"`
	Quizzes   []string `json:"quizzes"`
}
