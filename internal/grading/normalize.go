package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResponse indicates the model returned no usable text.
	ErrEmptyResponse = errors.New("empty response from model")
	// ErrNoJSONFound indicates the response contains no JSON object at all.
	ErrNoJSONFound = errors.New("no JSON object found in response")
	// ErrInvalidJSON indicates the embedded JSON object failed to parse.
	ErrInvalidJSON = errors.New("invalid JSON in response")
)

// MissingSectionError reports a rubric section absent from the model response.
type MissingSectionError struct {
	Section string
}

func (e *MissingSectionError) Error() string {
	return fmt.Sprintf("rubric section %q missing from response", e.Section)
}

var requiredSections = []string{
	SectionIntroduction,
	SectionMainBody,
	SectionConclusion,
	SectionExamples,
	SectionDiagrams,
}

// Normalize parses the unstructured text of a grading response into a
// RawRubric. The model wraps its JSON in prose or markdown fences often
// enough that the object is located by slicing from the first '{' to the
// last '}' before parsing strictly.
//
// Structural failures (no JSON, unparseable JSON, a missing section key)
// return an error and are worth a full retry of the model call. A section
// that is present but malformed is repaired in place instead: zero marks,
// placeholder feedback.
func Normalize(raw string) (RawRubric, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RawRubric{}, ErrEmptyResponse
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end <= start {
		return RawRubric{}, ErrNoJSONFound
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &fields); err != nil {
		return RawRubric{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	sections := make(map[string]RawSection, len(requiredSections))
	for _, name := range requiredSections {
		value, ok := fields[name]
		if !ok {
			return RawRubric{}, &MissingSectionError{Section: name}
		}
		sections[name] = decodeSection(value)
	}

	rubric := RawRubric{
		Introduction:     sections[SectionIntroduction],
		MainBody:         sections[SectionMainBody],
		Conclusion:       sections[SectionConclusion],
		Examples:         sections[SectionExamples],
		Diagrams:         sections[SectionDiagrams],
		AIDetectionScore: json.RawMessage("0"),
	}

	if score, ok := fields["ai_detection_score"]; ok && len(score) > 0 {
		rubric.AIDetectionScore = score
	}

	return rubric, nil
}

// decodeSection applies the field-level repair rule: a section value that is
// not an object, or whose fields do not decode, falls back to zero marks and
// placeholder feedback rather than failing the whole response.
func decodeSection(value json.RawMessage) RawSection {
	var section RawSection
	if err := json.Unmarshal(value, &section); err != nil {
		return RawSection{Feedback: DefaultFeedback}
	}

	if strings.TrimSpace(section.Feedback) == "" {
		section.Feedback = DefaultFeedback
	}

	return section
}
