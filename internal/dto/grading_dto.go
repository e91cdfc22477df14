package dto

import "github.com/examark/examark-api/internal/grading"

// GradeRequest submits one answer for grading against a question's rubric.
type GradeRequest struct {
	QuestionID uint   `json:"question_id" validate:"required,gt=0"`
	StudentID  uint   `json:"student_id" validate:"required,gt=0"`
	Answer     string `json:"answer" validate:"required,min=1"`
}

// SectionResult is one scaled rubric section in an API response.
type SectionResult struct {
	Marks    float64 `json:"marks"`
	Feedback string  `json:"feedback"`
}

// GradingResponse is returned after a successful grading run.
type GradingResponse struct {
	SubmissionID     uint          `json:"submission_id"`
	QuestionID       uint          `json:"question_id"`
	StudentID        uint          `json:"student_id"`
	MaxMarks         int           `json:"max_marks"`
	Introduction     SectionResult `json:"introduction"`
	MainBody         SectionResult `json:"main_body"`
	Conclusion       SectionResult `json:"conclusion"`
	Examples         SectionResult `json:"examples"`
	Diagrams         SectionResult `json:"diagrams"`
	TotalMarks       float64       `json:"total_marks"`
	AIDetectionScore float64       `json:"ai_detection_score"`
}

// ReviewResponse carries free-form improvement feedback for a submission.
type ReviewResponse struct {
	SubmissionID uint   `json:"submission_id"`
	Feedback     string `json:"feedback"`
}

func newSectionResult(section grading.ScaledSection) SectionResult {
	return SectionResult{Marks: section.Marks, Feedback: section.Feedback}
}

// NewGradingResponse combines a pipeline result with submission metadata.
func NewGradingResponse(submissionID uint, req GradeRequest, maxMarks int, result grading.Result) GradingResponse {
	return GradingResponse{
		SubmissionID:     submissionID,
		QuestionID:       req.QuestionID,
		StudentID:        req.StudentID,
		MaxMarks:         maxMarks,
		Introduction:     newSectionResult(result.Introduction),
		MainBody:         newSectionResult(result.MainBody),
		Conclusion:       newSectionResult(result.Conclusion),
		Examples:         newSectionResult(result.Examples),
		Diagrams:         newSectionResult(result.Diagrams),
		TotalMarks:       result.TotalMarks,
		AIDetectionScore: result.AIDetectionScore,
	}
}
