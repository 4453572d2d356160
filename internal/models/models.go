package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Segment is one piece of extracted document text with its page index,
// matching the intermediate JSON emitted by PDF extraction tools
// ([{"type":"text","text":...,"page_idx":...}]).
type Segment struct {
	Type      string `json:"type"`
	Text      string `json:"text"`
	TextLevel int    `json:"text_level,omitempty"`
	PageIndex int    `json:"page_idx"`
}

// TextChunk is a unit of source text submitted as one completion request.
// Immutable once produced. Sub is set on chunks produced by splitting an
// over-length chunk, with SubIndex counting from zero in original order;
// ordering is (SequenceIndex, SubIndex).
type TextChunk struct {
	SourceID        string
	SequenceIndex   int
	Sub             bool
	SubIndex        int
	RawText         string
	EstimatedTokens int
}

// Ref renders the chunk identity as "3", or "3.0", "3.1" for split sub-chunks.
func (c TextChunk) Ref() string {
	if c.Sub {
		return fmt.Sprintf("%d.%d", c.SequenceIndex, c.SubIndex)
	}
	return fmt.Sprintf("%d", c.SequenceIndex)
}

// CompletionRequest is one fully self-contained prompt for the backend.
type CompletionRequest struct {
	Chunk       TextChunk
	Prompt      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// FailureKind classifies a non-fatal chunk or candidate failure.
type FailureKind string

const (
	BackendUnavailable FailureKind = "backend_unavailable"
	BackendRejected    FailureKind = "backend_rejected"
	ParseFailure       FailureKind = "parse_failure"
	ValidationFailure  FailureKind = "validation_failure"
	Duplicate          FailureKind = "duplicate"
	Cancelled          FailureKind = "cancelled"
)

// CompletionResult carries either the raw completion text or a classified
// failure, never both.
type CompletionResult struct {
	Chunk   TextChunk
	RawText string
	Failure FailureKind
	Detail  string
}

func (r CompletionResult) Failed() bool { return r.Failure != "" }

// StringList tolerates a bare string where an array was expected; the model
// frequently emits "correctAnswer": "A" instead of ["A"].
type StringList []string

func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*s = nil
		} else {
			*s = []string{one}
		}
		return nil
	}
	return fmt.Errorf("correctAnswer: expected string or array, got %s", string(data))
}

// OptionCandidate is an unvalidated answer option. Some completions name the
// key field "label"; both are accepted.
type OptionCandidate struct {
	Key     string `json:"key"`
	Label   string `json:"label,omitempty"`
	Content string `json:"content"`
}

// EffectiveKey returns the option key, falling back to the label synonym.
func (o OptionCandidate) EffectiveKey() string {
	if o.Key != "" {
		return o.Key
	}
	return o.Label
}

// QuestionCandidate is a parsed but not yet validated question. Fields may be
// partially populated; validation decides acceptance. Unknown fields in the
// completion are ignored by json decoding.
type QuestionCandidate struct {
	Title         string            `json:"title"`
	Content       string            `json:"content"`
	Type          string            `json:"type"`
	Options       []OptionCandidate `json:"options"`
	CorrectAnswer StringList        `json:"correctAnswer"`
	Explanation   string            `json:"explanation"`
	Difficulty    string            `json:"difficulty"`
	Subject       string            `json:"subject"`
	Module        string            `json:"module"`
	SubModule     string            `json:"subModule"`
	Tags          []string          `json:"tags"`
}

// Option is a validated, identified answer option.
type Option struct {
	ID      string `json:"_id"`
	Key     string `json:"key"`
	Content string `json:"content"`
}

// Stats is the zeroed per-question statistics block expected by the importer.
type Stats struct {
	TotalAttempts   int `json:"totalAttempts"`
	CorrectAttempts int `json:"correctAttempts"`
	Accuracy        int `json:"accuracy"`
}

// QuestionRecord is a validated, fully stamped question ready for storage.
// JSON tags follow the import collection schema.
type QuestionRecord struct {
	ID            string       `json:"_id"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	Type          QuestionType `json:"type"`
	Options       []Option     `json:"options,omitempty"`
	CorrectAnswer []string     `json:"correctAnswer"`
	Explanation   string       `json:"explanation"`
	Difficulty    Difficulty   `json:"difficulty"`
	Subject       string       `json:"subject"`
	Module        string       `json:"module"`
	SubModule     string       `json:"subModule"`
	Tags          []string     `json:"tags"`
	Order         int          `json:"order"`
	IsActive      bool         `json:"isActive"`
	Stats         Stats        `json:"stats"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Fingerprint is the normalized content identity used for duplicate
// suppression: lowercased with all whitespace runs collapsed.
func (q QuestionRecord) Fingerprint() string {
	return ContentFingerprint(q.Content)
}

// ContentFingerprint normalizes question content for duplicate comparison.
func ContentFingerprint(content string) string {
	return strings.Join(strings.Fields(strings.ToLower(content)), " ")
}

// Pipeline stages, recorded on failures so a failed chunk can be replayed
// against the right component.
const (
	StageRequest  = "request"
	StageParse    = "parse"
	StageValidate = "validate"
	StageAssemble = "assemble"
)

// ChunkFailure is one non-fatal failure with enough context to reproduce it.
type ChunkFailure struct {
	SourceID string      `json:"sourceId"`
	ChunkRef string      `json:"chunkRef"`
	Stage    string      `json:"stage"`
	Kind     FailureKind `json:"kind"`
	Reason   string      `json:"reason"`
}

// BatchReport is the final result of one pipeline invocation.
type BatchReport struct {
	TotalChunks int              `json:"totalChunks"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	Records     []QuestionRecord `json:"records"`
	Failures    []ChunkFailure   `json:"failures"`
}
