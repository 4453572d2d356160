package assemble

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"question-extract/internal/models"
)

// Item pairs a validated question with the chunk it came from, so duplicate
// suppression can report which chunk lost the race.
type Item struct {
	Chunk  models.TextChunk
	Record models.QuestionRecord
}

// Assembler stamps validated questions into storage-ready records: identity,
// zero-based order, activation flag, zeroed statistics and one shared
// timestamp per batch. NewID and Now are injectable so a fixed seed produces
// byte-identical output.
type Assembler struct {
	NewID func() string
	Now   func() time.Time
	Dedup bool
}

func New(dedup bool) *Assembler {
	return &Assembler{
		NewID: uuid.NewString,
		Now:   func() time.Time { return time.Now().UTC() },
		Dedup: dedup,
	}
}

// Assemble merges validated items into final records. Items are ordered by
// chunk position first, preserving candidate order within a chunk, so the
// same inputs always yield the same order values regardless of which chunk
// finished first. With Dedup set, a question whose normalized content was
// already seen is dropped and reported as a non-fatal failure.
func (a *Assembler) Assemble(items []Item) ([]models.QuestionRecord, []models.ChunkFailure) {
	sort.SliceStable(items, func(i, j int) bool {
		ci, cj := items[i].Chunk, items[j].Chunk
		if ci.SequenceIndex != cj.SequenceIndex {
			return ci.SequenceIndex < cj.SequenceIndex
		}
		return ci.SubIndex < cj.SubIndex
	})

	now := a.now()
	seen := make(map[string]struct{}, len(items))
	records := make([]models.QuestionRecord, 0, len(items))
	var failures []models.ChunkFailure

	for _, item := range items {
		rec := item.Record

		if a.Dedup {
			fp := rec.Fingerprint()
			if _, dup := seen[fp]; dup {
				log.Debug().Str("chunk", item.Chunk.Ref()).Str("content", rec.Content).
					Msg("dropping duplicate question")
				failures = append(failures, models.ChunkFailure{
					SourceID: item.Chunk.SourceID,
					ChunkRef: item.Chunk.Ref(),
					Stage:    models.StageAssemble,
					Kind:     models.Duplicate,
					Reason:   fmt.Sprintf("duplicate of earlier question: %.80s", rec.Content),
				})
				continue
			}
			seen[fp] = struct{}{}
		}

		rec.ID = a.newID()
		for i := range rec.Options {
			rec.Options[i].ID = a.newID()
		}
		rec.Order = len(records)
		rec.IsActive = true
		rec.Stats = models.Stats{}
		rec.CreatedAt = now
		rec.UpdatedAt = now
		records = append(records, rec)
	}

	return records, failures
}

func (a *Assembler) newID() string {
	if a.NewID != nil {
		return a.NewID()
	}
	return uuid.NewString()
}

func (a *Assembler) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
