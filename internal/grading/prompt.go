package grading

import (
	"fmt"
	"strings"
)

// buildGradePrompt asks the model to grade every section out of 10 on the
// base scale. Scaling to the question's actual max marks happens locally, so
// the prompt states this explicitly to keep the model from rescaling itself.
func buildGradePrompt(req Request) string {
	builder := strings.Builder{}
	builder.WriteString("Grade this answer based on the following criteria:\n")
	builder.WriteString("Question: ")
	builder.WriteString(req.Question)
	builder.WriteString("\nStudent's Answer: ")
	builder.WriteString(req.Answer)
	builder.WriteString(fmt.Sprintf("\nMaximum marks: 10 (will be scaled to %d)\n", req.MaxMarks))

	builder.WriteString("\nBase marking distribution (total 10 marks):\n")
	builder.WriteString("- introduction (40%): clarity, context setting, and thesis statement\n")
	builder.WriteString("- main_body (40%): content accuracy, depth of understanding, and logical flow\n")
	builder.WriteString("- conclusion (20%): summary, closure, and connection to the introduction\n")

	builder.WriteString("\nBonus marks beyond the base total:\n")
	builder.WriteString("- examples: ")
	builder.WriteString(bonusPolicy(req.ExamplesRequired))
	builder.WriteString("\n- diagrams: ")
	builder.WriteString(bonusPolicy(req.DiagramsRequired))
	builder.WriteString("\n")

	builder.WriteString("\nRespond with a JSON object keyed by section name " +
		"(introduction, main_body, conclusion, examples, diagrams), each an object " +
		"with \"marks\" (0-10) and \"feedback\" (string), plus an " +
		"\"ai_detection_score\" field between 0 and 1.\n")
	builder.WriteString("Important: grade every section out of 10 marks; scaling is applied later.")

	return builder.String()
}

func bonusPolicy(required bool) string {
	if required {
		return "required by the question, grade out of 10"
	}
	return "voluntary, grade out of 10 only if actually provided"
}

// buildReviewPrompt asks for free-form improvement feedback; the response is
// passed through verbatim with no structural validation.
func buildReviewPrompt(req Request) string {
	builder := strings.Builder{}
	builder.WriteString("Provide detailed feedback and improvement suggestions for this answer:\n")
	builder.WriteString("Question: ")
	builder.WriteString(req.Question)
	builder.WriteString("\nStudent's Answer: ")
	builder.WriteString(req.Answer)
	builder.WriteString("\n\nFocus on:\n")
	builder.WriteString("1. Strengths and what was done well\n")
	builder.WriteString("2. Areas needing improvement\n")
	builder.WriteString("3. Specific suggestions for each section\n")
	builder.WriteString("4. How to improve examples and diagrams\n")
	builder.WriteString("5. Writing style and clarity\n")
	builder.WriteString("6. Critical thinking and analysis\n")
	builder.WriteString("\nProvide actionable feedback that will help the student improve their answer quality.")

	return builder.String()
}
