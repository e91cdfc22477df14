package grading

import "encoding/json"

// Rubric section names. Every grading response must carry all five.
const (
	SectionIntroduction = "introduction"
	SectionMainBody     = "main_body"
	SectionConclusion   = "conclusion"
	SectionExamples     = "examples"
	SectionDiagrams     = "diagrams"
)

// baseScale is the universal per-section scale the model grades against
// before marks are rescaled to a question's actual point value.
const baseScale = 10.0

// DefaultFeedback substitutes for a section whose feedback the model omitted.
const DefaultFeedback = "No feedback available"

// RawSection is one rubric section as returned by the model, before scaling.
// Marks stays raw JSON until scaling so that a non-numeric value is handled
// by the scaler's clamping rules instead of failing normalization.
type RawSection struct {
	Marks    json.RawMessage `json:"marks"`
	Feedback string          `json:"feedback"`
}

// RawRubric is the validated shape of a grading response on the 0-10 base
// scale, fully keyed: every section is present after normalization, repaired
// with defaults where the model left gaps.
type RawRubric struct {
	Introduction     RawSection
	MainBody         RawSection
	Conclusion       RawSection
	Examples         RawSection
	Diagrams         RawSection
	AIDetectionScore json.RawMessage
}

// ScaledSection is a section result rescaled to the question's max marks.
type ScaledSection struct {
	Marks    float64 `json:"marks"`
	Feedback string  `json:"feedback"`
}

// Result is the final mark breakdown for one graded answer. It is built once
// per grading request and never mutated afterwards.
type Result struct {
	Introduction     ScaledSection `json:"introduction"`
	MainBody         ScaledSection `json:"main_body"`
	Conclusion       ScaledSection `json:"conclusion"`
	Examples         ScaledSection `json:"examples"`
	Diagrams         ScaledSection `json:"diagrams"`
	TotalMarks       float64       `json:"total_marks"`
	AIDetectionScore float64       `json:"ai_detection_score"`
}
