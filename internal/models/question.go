package models

import "time"

// Question is a teacher-authored prompt students answer for marks.
type Question struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	Text             string    `gorm:"type:text;not null" json:"text"`
	MaxMarks         int       `gorm:"not null" json:"max_marks"`
	DiagramsRequired bool      `gorm:"not null;default:false" json:"diagrams_required"`
	ExamplesRequired bool      `gorm:"not null;default:false" json:"examples_required"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Submissions      []Submission
}
