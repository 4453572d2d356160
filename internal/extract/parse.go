package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"question-extract/internal/models"

	"github.com/rs/zerolog/log"
)

// ParseError records one completion substring that could not be decoded.
// Parse errors are per-substring and never abort the remaining substrings.
type ParseError struct {
	Offset int
	Detail string
}

func (e ParseError) String() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Detail)
}

// questionsWrapper matches the instructed {"questions":[...]} envelope. The
// pointer distinguishes a present-but-empty array from an absent field.
type questionsWrapper struct {
	Questions *[]models.QuestionCandidate `json:"questions"`
}

// Parse extracts question candidates from raw completion text. The model is
// told to emit pure JSON but routinely wraps it in markdown fences or
// explanatory prose, emits a bare array or object instead of the envelope, or
// concatenates several objects; all of these are tolerated. Substrings that
// fail to decode are reported without discarding the rest.
func Parse(raw string) ([]models.QuestionCandidate, []ParseError) {
	content := StripFences(raw)
	if content == "" {
		return nil, nil
	}

	// Fast path: the whole cleaned completion is valid JSON.
	if candidates, ok := decodeWhole(content); ok {
		return candidates, nil
	}

	// Otherwise scan for balanced-brace JSON substrings and attempt each
	// one independently.
	spans := scanObjects(content)
	if len(spans) == 0 {
		return nil, []ParseError{{Offset: 0, Detail: "no JSON object found in completion"}}
	}

	var candidates []models.QuestionCandidate
	var errs []ParseError
	for _, span := range spans {
		sub := content[span[0]:span[1]]
		found, err := decodeObject([]byte(sub))
		if err != nil {
			errs = append(errs, ParseError{Offset: span[0], Detail: err.Error()})
			continue
		}
		candidates = append(candidates, found...)
	}
	if len(errs) > 0 {
		log.Debug().Int("failed_substrings", len(errs)).Int("candidates", len(candidates)).
			Msg("partial parse of completion text")
	}
	return candidates, errs
}

// StripFences removes markdown code fences and stray "json" language tags
// that models add despite instructions.
func StripFences(raw string) string {
	content := strings.TrimSpace(raw)
	if content == "" {
		return ""
	}
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || trimmed == "json" {
			continue
		}
		lines = append(lines, line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func decodeWhole(content string) ([]models.QuestionCandidate, bool) {
	data := []byte(content)
	switch content[0] {
	case '[':
		var list []models.QuestionCandidate
		if err := json.Unmarshal(data, &list); err == nil {
			return list, true
		}
	case '{':
		found, err := decodeObject(data)
		if err == nil {
			return found, true
		}
	}
	return nil, false
}

// decodeObject decodes one JSON object as either the questions envelope or a
// single bare question.
func decodeObject(data []byte) ([]models.QuestionCandidate, error) {
	var wrapper questionsWrapper
	if err := json.Unmarshal(data, &wrapper); err == nil && wrapper.Questions != nil {
		return *wrapper.Questions, nil
	}

	var one models.QuestionCandidate
	if err := json.Unmarshal(data, &one); err != nil {
		return nil, err
	}
	if strings.TrimSpace(one.Content) == "" && len(one.Options) == 0 {
		return nil, fmt.Errorf("object carries no question fields")
	}
	return []models.QuestionCandidate{one}, nil
}

// scanObjects returns the [start,end) spans of top-level balanced-brace
// substrings, aware of JSON string literals and escapes.
func scanObjects(s string) [][2]int {
	var spans [][2]int
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		b := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
			}
			continue
		}
		switch b {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 {
					spans = append(spans, [2]int{start, i + 1})
				}
			}
		}
	}
	return spans
}
