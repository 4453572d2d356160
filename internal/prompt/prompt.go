package prompt

import (
	"strings"

	"question-extract/internal/models"

	"github.com/tmc/langchaingo/llms"
)

// SchemaSpec is the target-schema description embedded verbatim in every
// request so each request is self-contained and independently retryable.
type SchemaSpec string

// DefaultSchema mirrors the import collection shape the validator enforces.
const DefaultSchema SchemaSpec = `{
  "questions": [
    {
      "content": "question stem",
      "type": "one of: single, multiple, true_false, fill_in_the_blank, short_answer",
      "options": [
        {"key": "A", "content": "option text"},
        {"key": "B", "content": "option text"}
      ],
      "correctAnswer": ["A"],
      "explanation": "why the answer is correct",
      "difficulty": "one of: easy, medium, hard"
    }
  ]
}`

const systemInstructions = `You are an exam question extraction expert. Identify complete questions in the text and convert them to JSON.

Recognition rules:
- Question stems start with a number (such as "1." or "2.")
- Type markers may appear in the stem: 【单选】 (single choice), 【多选】 (multiple choice), 【判断】 (true/false)
- Options begin with A, B, C, D
- Skip fragments, page headers, page footers, tables of contents and other unrelated content

Output requirements:
- Output standard JSON only, with no markdown fences
- Every question must have a complete stem; choice questions must include their options
- If no complete question is found, return an empty questions array
- "type" must be one of: single, multiple, true_false, fill_in_the_blank, short_answer
- "difficulty" must be one of: easy, medium, hard`

// Builder turns text chunks into completion requests, splitting chunks that
// exceed the prompt token budget.
type Builder struct {
	Model           string
	Schema          SchemaSpec
	MaxPromptTokens int
	MaxTokens       int
	Temperature     float32
}

// EstimateTokens counts tokens for the configured model.
func (b *Builder) EstimateTokens(text string) int {
	return llms.CountTokens(b.Model, text)
}

// Build produces one request per chunk, or several when the chunk exceeds
// the token budget. Identical chunk and schema always yield byte-identical
// prompts.
func (b *Builder) Build(chunk models.TextChunk) []models.CompletionRequest {
	budget := b.MaxPromptTokens
	if budget <= 0 || chunk.EstimatedTokens <= budget {
		return []models.CompletionRequest{b.request(chunk)}
	}

	parts := splitText(chunk.RawText, budget, b.EstimateTokens)
	requests := make([]models.CompletionRequest, 0, len(parts))
	for i, part := range parts {
		sub := models.TextChunk{
			SourceID:        chunk.SourceID,
			SequenceIndex:   chunk.SequenceIndex,
			Sub:             true,
			SubIndex:        i,
			RawText:         part,
			EstimatedTokens: b.EstimateTokens(part),
		}
		requests = append(requests, b.request(sub))
	}
	return requests
}

func (b *Builder) request(chunk models.TextChunk) models.CompletionRequest {
	return models.CompletionRequest{
		Chunk:       chunk,
		Prompt:      RenderPrompt(chunk.RawText, b.Schema),
		Model:       b.Model,
		MaxTokens:   b.MaxTokens,
		Temperature: b.Temperature,
	}
}

// SystemPrompt is the fixed instruction message sent with every request.
func SystemPrompt() string {
	return systemInstructions
}

// RenderPrompt assembles the user message: extraction directions, the output
// schema, and the chunk text. Pure string assembly, no maps, so the result is
// deterministic.
func RenderPrompt(text string, schema SchemaSpec) string {
	var sb strings.Builder
	sb.WriteString("Extract all complete exam questions from the following text. Only keep questions with a full stem; skip fragments.\n\n")
	sb.WriteString("Output format:\n")
	sb.WriteString(string(schema))
	sb.WriteString("\n\nText:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nOutput JSON only:")
	return sb.String()
}

// splitText divides text into the minimum number of sequential parts that
// each fit the token budget, preferring paragraph boundaries, then sentence
// boundaries, then a hard rune split for pathological input.
func splitText(text string, budget int, count func(string) int) []string {
	var parts []string
	var current strings.Builder
	currentTokens := 0

	flush := func() {
		if current.Len() > 0 {
			parts = append(parts, strings.TrimSpace(current.String()))
			current.Reset()
			currentTokens = 0
		}
	}

	for _, block := range paragraphs(text) {
		blockTokens := count(block)
		if blockTokens > budget {
			// Paragraph alone exceeds the budget: break it into sentences.
			for _, sentence := range sentences(block) {
				sentTokens := count(sentence)
				if sentTokens > budget {
					flush()
					parts = append(parts, hardSplit(sentence, budget, count)...)
					continue
				}
				if currentTokens+sentTokens > budget {
					flush()
				}
				current.WriteString(sentence)
				currentTokens += sentTokens
			}
			continue
		}
		if currentTokens+blockTokens > budget {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(block)
		currentTokens += blockTokens
	}
	flush()

	if len(parts) == 0 {
		return []string{text}
	}
	return parts
}

func paragraphs(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

// sentences splits on sentence-ending punctuation (ASCII and CJK), keeping
// the delimiter with the preceding sentence.
func sentences(text string) []string {
	var out []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		switch r {
		case '。', '！', '？', '；', '.', '!', '?', ';':
			if s := current.String(); strings.TrimSpace(s) != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := current.String(); strings.TrimSpace(s) != "" {
		out = append(out, s)
	}
	return out
}

// hardSplit cuts a boundary-free run into budget-sized pieces by halving
// until each piece fits.
func hardSplit(text string, budget int, count func(string) int) []string {
	if count(text) <= budget {
		return []string{text}
	}
	runes := []rune(text)
	if len(runes) < 2 {
		return []string{text}
	}
	mid := len(runes) / 2
	left := hardSplit(string(runes[:mid]), budget, count)
	right := hardSplit(string(runes[mid:]), budget, count)
	return append(left, right...)
}
