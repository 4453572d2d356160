package parser

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"

	"question-extract/internal/models"

	"github.com/rs/zerolog/log"
)

// Intermediate JSON as produced by PDF extraction tools: a list of
// {"type":"text","text":...,"page_idx":...} records. Real-world files also
// show up as bare string arrays, single objects, or near-JSON with unquoted
// keys, so parsing degrades gracefully through repair steps instead of
// failing outright.

var (
	unquotedKeyRe = regexp.MustCompile(`(\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
	ellipsisRe    = regexp.MustCompile(`,?\s*…\s*}`)
	textFieldRe   = regexp.MustCompile(`"?text"?\s*:\s*"([^"]*)"`)
)

// ParseSegmentJSON reads an intermediate JSON file into text segments.
func ParseSegmentJSON(filePath string) ([]models.Segment, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	segments, err := DecodeSegments(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filePath, err)
	}
	return segments, nil
}

// DecodeSegments decodes segment JSON, repairing common format defects.
func DecodeSegments(data []byte) ([]models.Segment, error) {
	content := strings.TrimSpace(string(data))
	if content == "" {
		return nil, nil
	}

	if segments, ok := decodeStrict(content); ok {
		return segments, nil
	}

	log.Debug().Msg("segment JSON not strictly valid, attempting repair")

	// Repair unquoted keys ({ type: "text" } style) and stray ellipses,
	// then retry a strict decode.
	fixed := unquotedKeyRe.ReplaceAllString(content, `$1"$2":`)
	fixed = ellipsisRe.ReplaceAllString(fixed, "}")
	if segments, ok := decodeStrict(fixed); ok {
		return segments, nil
	}

	segments := decodeLines(fixed)
	if len(segments) == 0 {
		return nil, fmt.Errorf("no parseable segments")
	}
	log.Debug().Int("segments", len(segments)).Msg("recovered segments line by line")
	return segments, nil
}

func decodeStrict(content string) ([]models.Segment, bool) {
	var segments []models.Segment
	if err := json.Unmarshal([]byte(content), &segments); err == nil {
		return normalizeSegments(segments), true
	}

	var texts []string
	if err := json.Unmarshal([]byte(content), &texts); err == nil {
		segments = make([]models.Segment, 0, len(texts))
		for _, t := range texts {
			segments = append(segments, models.Segment{Type: "text", Text: t})
		}
		return normalizeSegments(segments), true
	}

	var one models.Segment
	if err := json.Unmarshal([]byte(content), &one); err == nil && one.Text != "" {
		return normalizeSegments([]models.Segment{one}), true
	}
	return nil, false
}

// decodeLines salvages one-object-per-line near-JSON, skipping line numbers
// and anything unrecoverable.
func decodeLines(content string) []models.Segment {
	var segments []models.Segment
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if line == "" || isDigits(line) {
			continue
		}
		if tab := strings.IndexByte(line, '\t'); tab > 0 && isDigits(line[:tab]) {
			line = strings.TrimSpace(line[tab+1:])
		}
		if !strings.HasPrefix(line, "{") {
			continue
		}

		var seg models.Segment
		if err := json.Unmarshal([]byte(line), &seg); err == nil && strings.TrimSpace(seg.Text) != "" {
			segments = append(segments, seg)
			continue
		}
		// Last resort: pull the text field out with a regexp.
		if m := textFieldRe.FindStringSubmatch(line); m != nil && strings.TrimSpace(m[1]) != "" {
			segments = append(segments, models.Segment{Type: "text", Text: m[1]})
		}
	}
	return normalizeSegments(segments)
}

func normalizeSegments(in []models.Segment) []models.Segment {
	var out []models.Segment
	for _, seg := range in {
		if strings.TrimSpace(seg.Text) == "" {
			continue
		}
		if seg.Type == "" {
			seg.Type = "text"
		}
		out = append(out, seg)
	}
	return out
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
