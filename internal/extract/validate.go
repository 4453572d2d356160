package extract

import (
	"fmt"
	"strings"

	"question-extract/internal/config"
	"question-extract/internal/models"
)

// Validation rule names, recorded on rejections.
const (
	RuleInvalidType    = "invalid_type"
	RuleMissingContent = "missing_content"
	RuleInvalidOptions = "invalid_options"
)

// Rejection is one candidate refused by a hard validation rule.
type Rejection struct {
	Rule   string
	Detail string
}

func (r Rejection) String() string {
	return r.Rule + ": " + r.Detail
}

// Validator turns parsed candidates into well-formed question records.
// Hard rules reject the candidate; soft gaps (difficulty, explanation,
// classification fields) are filled from the configured defaults.
type Validator struct {
	Defaults config.DefaultsConfig
}

// Validate checks one candidate. On success it returns a record with all
// content fields populated; identity, ordering and timestamps are stamped
// later during assembly.
func (v *Validator) Validate(c models.QuestionCandidate) (models.QuestionRecord, *Rejection) {
	content := strings.TrimSpace(c.Content)
	if content == "" {
		return models.QuestionRecord{}, &Rejection{Rule: RuleMissingContent, Detail: "empty question content"}
	}

	qType, rej := v.resolveType(c, content)
	if rej != nil {
		return models.QuestionRecord{}, rej
	}

	options := buildOptions(c.Options)
	if qType == models.TypeTrueFalse && len(options) == 0 {
		options = trueFalseOptions()
	}

	answers := trimAnswers(c.CorrectAnswer)

	switch qType {
	case models.TypeSingle, models.TypeMultiple:
		if rej := checkOptions(options, answers); rej != nil {
			return models.QuestionRecord{}, rej
		}
	case models.TypeFillInTheBlank, models.TypeShortAnswer:
		options = nil
	}

	rec := models.QuestionRecord{
		Title:         firstNonEmpty(strings.TrimSpace(c.Title), v.Defaults.Title),
		Content:       content,
		Type:          qType,
		Options:       options,
		CorrectAnswer: answers,
		Explanation:   strings.TrimSpace(c.Explanation),
		Difficulty:    models.NormalizeDifficulty(c.Difficulty),
		Subject:       firstNonEmpty(strings.TrimSpace(c.Subject), v.Defaults.Subject),
		Module:        firstNonEmpty(strings.TrimSpace(c.Module), v.Defaults.Module),
		SubModule:     firstNonEmpty(strings.TrimSpace(c.SubModule), v.Defaults.SubModule),
		Tags:          c.Tags,
	}
	if rec.CorrectAnswer == nil {
		rec.CorrectAnswer = []string{}
	}
	if len(rec.Tags) == 0 {
		rec.Tags = v.Defaults.Tags
	}
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	return rec, nil
}

// resolveType normalizes an explicit type label, or infers the type from the
// question when the label is absent. An explicit label outside the
// enumeration is a hard rejection; inference follows the markers exam banks
// embed in the question text.
func (v *Validator) resolveType(c models.QuestionCandidate, content string) (models.QuestionType, *Rejection) {
	if label := strings.TrimSpace(c.Type); label != "" {
		t, ok := models.NormalizeType(label)
		if !ok {
			return "", &Rejection{Rule: RuleInvalidType, Detail: fmt.Sprintf("unknown question type %q", label)}
		}
		return t, nil
	}

	switch {
	case strings.Contains(content, "【判断】"):
		return models.TypeTrueFalse, nil
	case strings.Contains(content, "【多选】"), len(c.CorrectAnswer) > 1:
		return models.TypeMultiple, nil
	case len(c.Options) == 0:
		return models.TypeShortAnswer, nil
	default:
		return models.TypeSingle, nil
	}
}

// checkOptions enforces the hard rules for choice questions: at least two
// options, unique keys, and a non-empty answer set drawn from those keys.
func checkOptions(options []models.Option, answers []string) *Rejection {
	if len(options) < 2 {
		return &Rejection{Rule: RuleInvalidOptions, Detail: fmt.Sprintf("choice question has %d options", len(options))}
	}
	keys := make(map[string]struct{}, len(options))
	for _, opt := range options {
		if _, dup := keys[opt.Key]; dup {
			return &Rejection{Rule: RuleInvalidOptions, Detail: fmt.Sprintf("duplicate option key %q", opt.Key)}
		}
		keys[opt.Key] = struct{}{}
	}
	if len(answers) == 0 {
		return &Rejection{Rule: RuleInvalidOptions, Detail: "choice question has no correct answer"}
	}
	for _, a := range answers {
		if _, ok := keys[a]; !ok {
			return &Rejection{Rule: RuleInvalidOptions, Detail: fmt.Sprintf("correct answer %q is not an option key", a)}
		}
	}
	return nil
}

func buildOptions(candidates []models.OptionCandidate) []models.Option {
	var options []models.Option
	for _, oc := range candidates {
		key := strings.TrimSpace(oc.EffectiveKey())
		content := strings.TrimSpace(oc.Content)
		if key == "" && content == "" {
			continue
		}
		options = append(options, models.Option{Key: key, Content: content})
	}
	return options
}

// trueFalseOptions supplies the canonical judgment options when the source
// document omits them.
func trueFalseOptions() []models.Option {
	return []models.Option{
		{Key: "A", Content: "正确"},
		{Key: "B", Content: "错误"},
	}
}

func trimAnswers(answers models.StringList) []string {
	var out []string
	for _, a := range answers {
		if a = strings.TrimSpace(a); a != "" {
			out = append(out, a)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
