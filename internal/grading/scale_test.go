package grading

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func section(marks, feedback string) RawSection {
	return RawSection{Marks: json.RawMessage(marks), Feedback: feedback}
}

func fullRubric(intro, body, conclusion, examples, diagrams string) RawRubric {
	return RawRubric{
		Introduction:     section(intro, "intro feedback"),
		MainBody:         section(body, "body feedback"),
		Conclusion:       section(conclusion, "conclusion feedback"),
		Examples:         section(examples, "examples feedback"),
		Diagrams:         section(diagrams, "diagrams feedback"),
		AIDetectionScore: json.RawMessage("0.1"),
	}
}

func TestScaleEndToEndScenario(t *testing.T) {
	rubric := fullRubric("8", "9", "7", "0", "0")

	result, err := Scale(rubric, 10, false, false)
	require.NoError(t, err)

	require.InDelta(t, 4.0, result.Introduction.Marks, 1e-9)
	require.InDelta(t, 4.0, result.MainBody.Marks, 1e-9)
	require.InDelta(t, 2.0, result.Conclusion.Marks, 1e-9)
	require.Zero(t, result.Examples.Marks)
	require.Zero(t, result.Diagrams.Marks)
	require.InDelta(t, 10.0, result.TotalMarks, 1e-9)
	require.InDelta(t, 0.1, result.AIDetectionScore, 1e-9)
}

func TestScaleIsDeterministic(t *testing.T) {
	rubric := fullRubric("6", "7.5", "4", "3", "2")

	first, err := Scale(rubric, 25, true, false)
	require.NoError(t, err)
	second, err := Scale(rubric, 25, true, false)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestScaleCapInvariant(t *testing.T) {
	// Perfect scores everywhere would overshoot without the hard cap.
	rubric := fullRubric("10", "10", "10", "10", "10")

	result, err := Scale(rubric, 50, true, true)
	require.NoError(t, err)

	require.LessOrEqual(t, result.Introduction.Marks, 50*0.4)
	require.LessOrEqual(t, result.MainBody.Marks, 50*0.4)
	require.LessOrEqual(t, result.Conclusion.Marks, 50*0.2)
	require.LessOrEqual(t, result.Examples.Marks, 50*0.2)
	require.LessOrEqual(t, result.Diagrams.Marks, 50*0.2)
	require.InDelta(t, 50.0, result.TotalMarks, 1e-9)
}

func TestScaleClampInvariant(t *testing.T) {
	cases := []struct {
		name     string
		marks    string
		expected float64
		feedback string
	}{
		{name: "negative", marks: "-5", expected: 0, feedback: "intro feedback"},
		{name: "above scale", marks: "15", expected: 4, feedback: "intro feedback"},
		{name: "non numeric", marks: `"abc"`, expected: 0, feedback: feedbackMarksError},
		{name: "numeric string", marks: `"7"`, expected: 2.8, feedback: "intro feedback"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rubric := fullRubric(tc.marks, "5", "5", "0", "0")

			result, err := Scale(rubric, 10, false, false)
			require.NoError(t, err)
			require.InDelta(t, tc.expected, result.Introduction.Marks, 1e-9)
			require.Equal(t, tc.feedback, result.Introduction.Feedback)
		})
	}
}

func TestScaleBonusGate(t *testing.T) {
	for _, maxMarks := range []float64{5, 10, 100} {
		rubric := fullRubric("8", "8", "8", "0", "-2")

		result, err := Scale(rubric, maxMarks, true, true)
		require.NoError(t, err)
		require.Zero(t, result.Examples.Marks)
		require.Equal(t, "No examples provided", result.Examples.Feedback)
		require.Zero(t, result.Diagrams.Marks)
		require.Equal(t, "No diagrams provided", result.Diagrams.Feedback)
	}
}

func TestScaleRequiredVersusVoluntaryBonusCeiling(t *testing.T) {
	rubric := fullRubric("5", "5", "5", "0", "10")

	required, err := Scale(rubric, 20, true, false)
	require.NoError(t, err)
	require.InDelta(t, 4.0, required.Diagrams.Marks, 1e-9)

	voluntary, err := Scale(rubric, 20, false, false)
	require.NoError(t, err)
	require.InDelta(t, 2.0, voluntary.Diagrams.Marks, 1e-9)
}

func TestScaleRequiredExamplesCeiling(t *testing.T) {
	rubric := fullRubric("5", "5", "5", "10", "0")

	result, err := Scale(rubric, 20, false, true)
	require.NoError(t, err)
	require.InDelta(t, 4.0, result.Examples.Marks, 1e-9)
}

func TestScaleInvalidDetectionScore(t *testing.T) {
	rubric := fullRubric("8", "8", "8", "0", "0")
	rubric.AIDetectionScore = json.RawMessage(`"very likely"`)

	_, err := Scale(rubric, 10, false, false)
	require.ErrorIs(t, err, ErrInvalidDetectionScore)
}

func TestScaleDetectionScoreCoercion(t *testing.T) {
	rubric := fullRubric("8", "8", "8", "0", "0")
	rubric.AIDetectionScore = json.RawMessage(`"0.4"`)

	result, err := Scale(rubric, 10, false, false)
	require.NoError(t, err)
	require.InDelta(t, 0.4, result.AIDetectionScore, 1e-9)

	rubric.AIDetectionScore = json.RawMessage("3")
	result, err = Scale(rubric, 10, false, false)
	require.NoError(t, err)
	require.InDelta(t, 1.0, result.AIDetectionScore, 1e-9)
}

func TestScaleMissingMarksCountAsZero(t *testing.T) {
	rubric := fullRubric("8", "8", "8", "0", "0")
	rubric.MainBody = RawSection{Feedback: DefaultFeedback}

	result, err := Scale(rubric, 10, false, false)
	require.NoError(t, err)
	require.Zero(t, result.MainBody.Marks)
	require.Equal(t, DefaultFeedback, result.MainBody.Feedback)
}
