package dto

import (
	"time"

	"github.com/examark/examark-api/internal/models"
)

// QuestionCreateRequest describes the payload for authoring a question.
type QuestionCreateRequest struct {
	Title            string `json:"title" validate:"required,min=3,max=255"`
	Text             string `json:"text" validate:"required,min=10"`
	MaxMarks         int    `json:"max_marks" validate:"required,gt=0,lte=100"`
	DiagramsRequired bool   `json:"diagrams_required"`
	ExamplesRequired bool   `json:"examples_required"`
}

// QuestionUpdateRequest carries partial updates to a question.
type QuestionUpdateRequest struct {
	Title            *string `json:"title" validate:"omitempty,min=3,max=255"`
	Text             *string `json:"text" validate:"omitempty,min=10"`
	MaxMarks         *int    `json:"max_marks" validate:"omitempty,gt=0,lte=100"`
	DiagramsRequired *bool   `json:"diagrams_required"`
	ExamplesRequired *bool   `json:"examples_required"`
}

// QuestionResponse is returned to API clients when viewing questions.
type QuestionResponse struct {
	ID               uint      `json:"id"`
	Title            string    `json:"title"`
	Text             string    `json:"text"`
	MaxMarks         int       `json:"max_marks"`
	DiagramsRequired bool      `json:"diagrams_required"`
	ExamplesRequired bool      `json:"examples_required"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewQuestionResponse converts a Question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:               model.ID,
		Title:            model.Title,
		Text:             model.Text,
		MaxMarks:         model.MaxMarks,
		DiagramsRequired: model.DiagramsRequired,
		ExamplesRequired: model.ExamplesRequired,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// NewQuestionResponseSlice converts question models into DTOs.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}

	return responses
}
