package models

import "strings"

// QuestionType is the closed question type enumeration.
type QuestionType string

const (
	TypeSingle         QuestionType = "single"
	TypeMultiple       QuestionType = "multiple"
	TypeTrueFalse      QuestionType = "true_false"
	TypeFillInTheBlank QuestionType = "fill_in_the_blank"
	TypeShortAnswer    QuestionType = "short_answer"
)

// Difficulty is the closed difficulty enumeration.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// questionTypeLabels maps source-document type labels to the enumeration.
// Exam banks commonly mark questions with Chinese labels; the mapping mirrors
// what the upstream corpus uses.
var questionTypeLabels = map[string]QuestionType{
	"single":            TypeSingle,
	"multiple":          TypeMultiple,
	"true_false":        TypeTrueFalse,
	"fill_in_the_blank": TypeFillInTheBlank,
	"short_answer":      TypeShortAnswer,
	"单选":                TypeSingle,
	"单选题":               TypeSingle,
	"多选":                TypeMultiple,
	"多选题":               TypeMultiple,
	"判断":                TypeTrueFalse,
	"判断题":               TypeTrueFalse,
	"填空题":               TypeFillInTheBlank,
	"简答题":               TypeShortAnswer,
}

var difficultyLabels = map[string]Difficulty{
	"easy":   DifficultyEasy,
	"medium": DifficultyMedium,
	"hard":   DifficultyHard,
	"简单":     DifficultyEasy,
	"中等":     DifficultyMedium,
	"困难":     DifficultyHard,
}

// NormalizeType maps a raw type label to the enumeration. Returns false when
// the label is unknown or empty; callers then fall back to inference from the
// question content.
func NormalizeType(label string) (QuestionType, bool) {
	t, ok := questionTypeLabels[strings.TrimSpace(label)]
	return t, ok
}

// NormalizeDifficulty maps a raw difficulty label, defaulting to medium for
// unknown or empty labels.
func NormalizeDifficulty(label string) Difficulty {
	if d, ok := difficultyLabels[strings.TrimSpace(label)]; ok {
		return d
	}
	return DifficultyMedium
}

// ValidType reports whether t belongs to the enumeration.
func ValidType(t QuestionType) bool {
	switch t {
	case TypeSingle, TypeMultiple, TypeTrueFalse, TypeFillInTheBlank, TypeShortAnswer:
		return true
	}
	return false
}
