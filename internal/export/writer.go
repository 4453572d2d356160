package export

import (
	"encoding/json"
	"os"

	"github.com/rs/zerolog/log"

	"question-extract/internal/models"
)

// WriteJSON writes records as an indented JSON array. HTML escaping is off so
// CJK question text and comparison operators survive readably.
func WriteJSON(path string, records []models.QuestionRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return err
	}

	log.Info().Str("path", path).Int("records", len(records)).Msg("wrote question records")
	return nil
}

// WriteReport writes the full batch report, failures included, next to the
// records so failed chunks can be inspected and replayed.
func WriteReport(path string, report models.BatchReport) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// ReadRecords loads a previously written records file, for merge and import
// runs over already-extracted output.
func ReadRecords(path string) ([]models.QuestionRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []models.QuestionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}
