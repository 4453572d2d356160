package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"question-extract/internal/assemble"
	"question-extract/internal/backend"
	"question-extract/internal/extract"
	"question-extract/internal/models"
	"question-extract/internal/prompt"
)

// ErrNoQuestions is returned when the whole batch produced zero records.
var ErrNoQuestions = errors.New("no questions extracted")

// ErrBadConfiguration is returned when the very first request is rejected
// outright (bad credentials or a malformed request); retrying the remaining
// chunks against the same configuration would fail identically.
var ErrBadConfiguration = errors.New("backend rejected first request, aborting batch")

// Orchestrator drives chunks through the pipeline: prompt construction,
// completion with retries, parsing, validation and final assembly. Failures
// are contained per chunk; one bad chunk never aborts its siblings.
type Orchestrator struct {
	Builder     *prompt.Builder
	Client      *backend.Client
	Validator   *extract.Validator
	Assembler   *assemble.Assembler
	Concurrency int
	// KeepTypes restricts the output to the listed question types; empty
	// keeps everything.
	KeepTypes []string

	done  atomic.Int64
	total atomic.Int64
}

// Done reports how many requests have finished so far.
func (o *Orchestrator) Done() int64 { return o.done.Load() }

// Total reports how many requests the current run will issue.
func (o *Orchestrator) Total() int64 { return o.total.Load() }

// outcome is everything one request contributes to the final report.
type outcome struct {
	items    []assemble.Item
	failures []models.ChunkFailure
	failed   bool
}

// Run processes all chunks and returns the batch report. The report is
// always populated, even alongside a non-nil error.
func (o *Orchestrator) Run(ctx context.Context, chunks []models.TextChunk) (models.BatchReport, error) {
	var requests []models.CompletionRequest
	for _, chunk := range chunks {
		requests = append(requests, o.Builder.Build(chunk)...)
	}
	o.total.Store(int64(len(requests)))
	o.done.Store(0)

	report := models.BatchReport{TotalChunks: len(requests)}
	if len(requests) == 0 {
		return report, ErrNoQuestions
	}

	outcomes := make([]outcome, len(requests))

	// Probe with the first request before fanning out: a rejection here
	// means the configuration itself is broken and the rest of the batch
	// would only repeat the same failure.
	outcomes[0] = o.process(ctx, requests[0])
	if rejected(outcomes[0]) {
		for i := 1; i < len(requests); i++ {
			outcomes[i] = cancelledOutcome(requests[i], "batch aborted: first request rejected")
			o.done.Add(1)
		}
		o.merge(&report, outcomes)
		return report, ErrBadConfiguration
	}

	concurrency := o.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i := 1; i < len(requests); i++ {
		g.Go(func() error {
			outcomes[i] = o.process(gctx, requests[i])
			return nil
		})
	}
	g.Wait()

	o.merge(&report, outcomes)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if len(report.Records) == 0 {
		return report, ErrNoQuestions
	}
	return report, nil
}

// process runs one request to completion and classifies everything it yields.
func (o *Orchestrator) process(ctx context.Context, req models.CompletionRequest) outcome {
	defer o.done.Add(1)

	if ctx.Err() != nil {
		return cancelledOutcome(req, ctx.Err().Error())
	}

	result := o.Client.Execute(ctx, req)
	if result.Failed() {
		return outcome{
			failed: true,
			failures: []models.ChunkFailure{{
				SourceID: req.Chunk.SourceID,
				ChunkRef: req.Chunk.Ref(),
				Stage:    models.StageRequest,
				Kind:     result.Failure,
				Reason:   result.Detail,
			}},
		}
	}

	var out outcome
	candidates, parseErrs := extract.Parse(result.RawText)
	for _, perr := range parseErrs {
		out.failures = append(out.failures, models.ChunkFailure{
			SourceID: req.Chunk.SourceID,
			ChunkRef: req.Chunk.Ref(),
			Stage:    models.StageParse,
			Kind:     models.ParseFailure,
			Reason:   perr.String(),
		})
	}

	for _, candidate := range candidates {
		rec, rej := o.Validator.Validate(candidate)
		if rej != nil {
			out.failures = append(out.failures, models.ChunkFailure{
				SourceID: req.Chunk.SourceID,
				ChunkRef: req.Chunk.Ref(),
				Stage:    models.StageValidate,
				Kind:     models.ValidationFailure,
				Reason:   rej.String(),
			})
			continue
		}
		if !o.keepType(rec.Type) {
			continue
		}
		out.items = append(out.items, assemble.Item{Chunk: req.Chunk, Record: rec})
	}

	log.Info().
		Str("chunk", req.Chunk.Ref()).
		Int("candidates", len(candidates)).
		Int("kept", len(out.items)).
		Int("failures", len(out.failures)).
		Msg("chunk processed")
	return out
}

// merge folds all per-request outcomes into the report. Runs single-threaded
// after the fan-out so assembly sees the complete, ordered item set.
func (o *Orchestrator) merge(report *models.BatchReport, outcomes []outcome) {
	var items []assemble.Item
	for _, out := range outcomes {
		if out.failed {
			report.Failed++
		} else {
			report.Succeeded++
		}
		report.Failures = append(report.Failures, out.failures...)
		items = append(items, out.items...)
	}

	records, dupFailures := o.Assembler.Assemble(items)
	report.Records = records
	report.Failures = append(report.Failures, dupFailures...)
}

func (o *Orchestrator) keepType(t models.QuestionType) bool {
	if len(o.KeepTypes) == 0 {
		return true
	}
	for _, keep := range o.KeepTypes {
		if models.QuestionType(keep) == t {
			return true
		}
	}
	return false
}

func rejected(out outcome) bool {
	return out.failed && len(out.failures) == 1 && out.failures[0].Kind == models.BackendRejected
}

func cancelledOutcome(req models.CompletionRequest, reason string) outcome {
	return outcome{
		failed: true,
		failures: []models.ChunkFailure{{
			SourceID: req.Chunk.SourceID,
			ChunkRef: req.Chunk.Ref(),
			Stage:    models.StageRequest,
			Kind:     models.Cancelled,
			Reason:   reason,
		}},
	}
}
