package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidDetectionScore indicates the ai_detection_score field could not
// be coerced to a number. The submission record depends on this field, so the
// failure is fatal rather than retryable.
var ErrInvalidDetectionScore = errors.New("invalid ai detection score in response")

// Section weights on the base scale. Introduction and main body carry 40%
// each, the conclusion 20%; examples and diagrams are bonus on top.
const (
	weightIntroduction = 0.4
	weightMainBody     = 0.4
	weightConclusion   = 0.2

	bonusShareRequired  = 0.2
	bonusShareVoluntary = 0.1
)

const feedbackMarksError = "Error calculating marks"

// Scale converts a raw rubric graded on the 0-10 base scale into a Result
// rescaled to maxMarks. Base sections are capped at their weight share of
// maxMarks; bonus sections are only awarded when the model reported nonzero
// raw marks and are capped at 20% of maxMarks when the question requires
// them, 10% when provided voluntarily. The grand total never exceeds
// maxMarks, even though the bonus is additive.
func Scale(raw RawRubric, maxMarks float64, diagramsRequired, examplesRequired bool) (Result, error) {
	factor := maxMarks / baseScale

	result := Result{
		Introduction: scaleBase(raw.Introduction, factor, maxMarks*weightIntroduction),
		MainBody:     scaleBase(raw.MainBody, factor, maxMarks*weightMainBody),
		Conclusion:   scaleBase(raw.Conclusion, factor, maxMarks*weightConclusion),
		Examples:     scaleBonus(raw.Examples, SectionExamples, factor, maxMarks, examplesRequired),
		Diagrams:     scaleBonus(raw.Diagrams, SectionDiagrams, factor, maxMarks, diagramsRequired),
	}

	score, err := coerceNumber(raw.AIDetectionScore)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrInvalidDetectionScore, err)
	}
	result.AIDetectionScore = clamp(score, 0, 1)

	base := result.Introduction.Marks + result.MainBody.Marks + result.Conclusion.Marks
	bonus := result.Examples.Marks + result.Diagrams.Marks
	result.TotalMarks = math.Min(base+bonus, maxMarks)

	return result, nil
}

func scaleBase(section RawSection, factor, ceiling float64) ScaledSection {
	marks, err := coerceNumber(section.Marks)
	if err != nil {
		return ScaledSection{Feedback: feedbackMarksError}
	}

	marks = clamp(marks, 0, baseScale)

	return ScaledSection{
		Marks:    math.Min(marks*factor, ceiling),
		Feedback: section.Feedback,
	}
}

func scaleBonus(section RawSection, name string, factor, maxMarks float64, required bool) ScaledSection {
	marks, err := coerceNumber(section.Marks)
	if err != nil {
		return ScaledSection{Feedback: feedbackMarksError}
	}

	// Bonus is only awarded when the model reports actual content was found.
	if marks <= 0 {
		return ScaledSection{Feedback: fmt.Sprintf("No %s provided", name)}
	}

	share := bonusShareVoluntary
	if required {
		share = bonusShareRequired
	}

	marks = clamp(marks, 0, baseScale)

	return ScaledSection{
		Marks:    math.Min(marks*factor, maxMarks*share),
		Feedback: section.Feedback,
	}
}

// coerceNumber accepts absent values, JSON numbers, and numeric strings.
// Anything else is a conversion failure the caller decides how to handle.
func coerceNumber(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, nil
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return number, nil
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if parsed, perr := strconv.ParseFloat(strings.TrimSpace(text), 64); perr == nil {
			return parsed, nil
		}
	}

	return 0, fmt.Errorf("value %s is not numeric", string(raw))
}

func clamp(value, low, high float64) float64 {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
