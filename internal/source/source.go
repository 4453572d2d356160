package source

import (
	"fmt"
	"strings"

	"question-extract/internal/models"
)

// Options bounds chunk construction. A chunk closes when it reaches
// MaxSegments text segments or MaxChars of formatted text, whichever comes
// first. EstimateTokens, when set, stamps the token estimate used by the
// prompt builder's split decision.
type Options struct {
	MaxSegments    int
	MaxChars       int
	EstimateTokens func(string) int
}

// Chunks normalizes extracted text segments into an ordered sequence of
// immutable text chunks. Segment text is numbered line by line ("1. ...")
// the way the completion prompt expects, and empty segments are dropped.
func Chunks(sourceID string, segments []models.Segment, opts Options) []models.TextChunk {
	if opts.MaxSegments <= 0 {
		opts.MaxSegments = 50
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 15000
	}

	var chunks []models.TextChunk
	var lines []string
	chars := 0
	lineNo := 0

	flush := func() {
		if len(lines) == 0 {
			return
		}
		text := strings.Join(lines, "\n")
		chunk := models.TextChunk{
			SourceID:      sourceID,
			SequenceIndex: len(chunks),
			RawText:       text,
		}
		if opts.EstimateTokens != nil {
			chunk.EstimatedTokens = opts.EstimateTokens(text)
		}
		chunks = append(chunks, chunk)
		lines = nil
		chars = 0
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}
		lineNo++
		line := fmt.Sprintf("%d. %s", lineNo, text)
		if len(lines) >= opts.MaxSegments || chars+len(line) > opts.MaxChars {
			flush()
		}
		lines = append(lines, line)
		chars += len(line)
	}
	flush()

	return chunks
}
