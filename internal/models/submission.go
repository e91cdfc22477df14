package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Submission holds one graded answer. The mark breakdown is written exactly
// once, when the grading pipeline succeeds, and never updated afterwards.
type Submission struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	QuestionID        uint           `gorm:"not null;index" json:"question_id"`
	StudentID         uint           `gorm:"not null;index" json:"student_id"`
	Answer            string         `gorm:"type:text;not null" json:"answer"`
	MaxMarks          int            `gorm:"not null" json:"max_marks"`
	IntroductionMarks float64        `json:"introduction_marks"`
	MainBodyMarks     float64        `json:"main_body_marks"`
	ConclusionMarks   float64        `json:"conclusion_marks"`
	ExamplesMarks     float64        `json:"examples_marks"`
	DiagramsMarks     float64        `json:"diagrams_marks"`
	TotalMarks        float64        `json:"total_marks"`
	AIDetectionScore  float64        `json:"ai_detection_score"`
	Rubric            datatypes.JSON `gorm:"type:json" json:"-"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	Question          Question       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"question"`
	Student           Student        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// SetRubric stores the full per-section breakdown (marks and feedback) next
// to the flattened mark columns.
func (s *Submission) SetRubric(breakdown interface{}) error {
	data, err := json.Marshal(breakdown)
	if err != nil {
		return err
	}

	s.Rubric = datatypes.JSON(data)
	return nil
}

// RubricBreakdown decodes the stored rubric into the provided destination.
func (s Submission) RubricBreakdown(dest interface{}) error {
	if len(s.Rubric) == 0 {
		return nil
	}

	return json.Unmarshal(s.Rubric, dest)
}
