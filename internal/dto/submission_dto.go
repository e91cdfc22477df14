package dto

import (
	"time"

	"github.com/examark/examark-api/internal/models"
)

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	QuestionID *uint `query:"question_id"`
	StudentID  *uint `query:"student_id"`
}

// QuestionLite summarizes a question in submission responses.
type QuestionLite struct {
	ID       uint   `json:"id"`
	Title    string `json:"title"`
	MaxMarks int    `json:"max_marks"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID               uint                     `json:"id"`
	QuestionID       uint                     `json:"question_id"`
	StudentID        uint                     `json:"student_id"`
	Answer           string                   `json:"answer"`
	MaxMarks         int                      `json:"max_marks"`
	TotalMarks       float64                  `json:"total_marks"`
	AIDetectionScore float64                  `json:"ai_detection_score"`
	Sections         map[string]SectionResult `json:"sections,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	Question         QuestionLite             `json:"question"`
	Student          StudentLite              `json:"student"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:               model.ID,
		QuestionID:       model.QuestionID,
		StudentID:        model.StudentID,
		Answer:           model.Answer,
		MaxMarks:         model.MaxMarks,
		TotalMarks:       model.TotalMarks,
		AIDetectionScore: model.AIDetectionScore,
		CreatedAt:        model.CreatedAt,
	}

	var sections map[string]SectionResult
	if err := model.RubricBreakdown(&sections); err == nil && len(sections) > 0 {
		response.Sections = sections
	}

	if model.Question.ID != 0 {
		response.Question = QuestionLite{
			ID:       model.Question.ID,
			Title:    model.Question.Title,
			MaxMarks: model.Question.MaxMarks,
		}
	}

	if model.Student.ID != 0 {
		response.Student = StudentLite{
			ID:    model.Student.ID,
			Name:  model.Student.Name,
			Email: model.Student.Email,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts submission models into DTOs.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}

	return responses
}
