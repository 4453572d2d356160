package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"question-extract/internal/assemble"
	"question-extract/internal/backend"
	"question-extract/internal/config"
	"question-extract/internal/export"
	"question-extract/internal/extract"
	"question-extract/internal/helper"
	"question-extract/internal/models"
	"question-extract/internal/parser"
	"question-extract/internal/pipeline"
	"question-extract/internal/prompt"
	"question-extract/internal/source"
)

const configFilePath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	input := flag.String("input", "", "Path to a document file or a folder of documents")
	output := flag.String("output", "", "Output folder (default: next to the input)")
	configPath := flag.String("config", configFilePath, "Path to the config file")
	batch := flag.Bool("batch", false, "Merge *_questions.json files under the input folder")
	dryRun := flag.Bool("dry-run", false, "Parse and chunk only, no completion requests")
	doImport := flag.Bool("import", false, "Bulk-insert extracted records into the database")
	flag.Parse()

	if *input == "" {
		log.Fatal().Msg("Please provide a document file or folder using the -input flag")
	}

	cfg := loadConfig(*configPath)

	outDir := *output
	if outDir == "" {
		outDir = defaultOutputDir(*input)
	}
	if err := helper.CreateFolder(outDir); err != nil {
		log.Fatal().Err(err).Msg("Error creating output folder")
	}

	ctx := context.Background()

	if *batch {
		mergeQuestionFiles(ctx, *input, outDir, cfg, *doImport)
		return
	}

	files := collectInputs(*input)
	if len(files) == 0 {
		log.Fatal().Str("input", *input).Msg("No supported documents found")
	}

	orch := buildOrchestrator(cfg, *dryRun)

	var all []models.QuestionRecord
	for _, file := range files {
		records := extractFile(ctx, file, outDir, cfg, orch, *dryRun)
		all = append(all, records...)
	}

	if *doImport && !*dryRun {
		importRecords(ctx, cfg, all)
	}
}

func loadConfig(path string) *config.Config {
	if _, err := os.Stat(path); err != nil {
		log.Warn().Str("path", path).Msg("Config file not found, using defaults")
		return config.Default()
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}
	log.Debug().Interface("config", cfg.Pipeline).Msg("Loaded config")
	return cfg
}

func buildOrchestrator(cfg *config.Config, dryRun bool) *pipeline.Orchestrator {
	if !dryRun {
		if err := cfg.ValidateAPIKey(); err != nil {
			log.Fatal().Err(err).Msg("Backend not configured")
		}
	}

	builder := &prompt.Builder{
		Model:           cfg.Backend.Model,
		Schema:          prompt.DefaultSchema,
		MaxPromptTokens: cfg.Pipeline.MaxPromptTokens,
		MaxTokens:       cfg.Backend.MaxTokens,
		Temperature:     cfg.Backend.Temperature,
	}
	return &pipeline.Orchestrator{
		Builder:     builder,
		Client:      backend.NewClient(backend.NewOpenAI(cfg.Backend), cfg.Backend),
		Validator:   &extract.Validator{Defaults: cfg.Defaults},
		Assembler:   assemble.New(cfg.Pipeline.Dedup),
		Concurrency: cfg.Pipeline.Concurrency,
		KeepTypes:   cfg.Pipeline.KeepTypes,
	}
}

// collectInputs resolves the input path to the list of documents to process.
// A folder must be homogeneous: either extracted-JSON files or document
// files, not both, since mixing them double-counts the same source.
func collectInputs(input string) []string {
	info, err := os.Stat(input)
	if err != nil {
		log.Fatal().Err(err).Str("input", input).Msg("Error reading input")
	}
	if !info.IsDir() {
		if !parser.SupportedExt(filepath.Ext(input)) {
			log.Fatal().Str("input", input).Msg("Unsupported file format")
		}
		return []string{input}
	}

	entries, err := os.ReadDir(input)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading input folder")
	}

	var jsonFiles, docFiles []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !parser.SupportedExt(ext) {
			continue
		}
		path := filepath.Join(input, entry.Name())
		if strings.EqualFold(ext, ".json") {
			jsonFiles = append(jsonFiles, path)
		} else {
			docFiles = append(docFiles, path)
		}
	}
	if len(jsonFiles) > 0 && len(docFiles) > 0 {
		log.Fatal().Int("json", len(jsonFiles)).Int("documents", len(docFiles)).
			Msg("Input folder mixes extracted JSON with document files; process them separately")
	}

	files := append(jsonFiles, docFiles...)
	sort.Strings(files)
	return files
}

func extractFile(ctx context.Context, path, outDir string, cfg *config.Config, orch *pipeline.Orchestrator, dryRun bool) []models.QuestionRecord {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	log.Info().Str("file", path).Msg("Processing document")

	segments, err := parser.ParseFile(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Error parsing document")
		return nil
	}

	chunks := source.Chunks(stem, segments, source.Options{
		MaxSegments:    cfg.Pipeline.MaxChunkSegments,
		MaxChars:       cfg.Pipeline.MaxChunkChars,
		EstimateTokens: orch.Builder.EstimateTokens,
	})
	log.Info().Int("segments", len(segments)).Int("chunks", len(chunks)).Msg("Chunked document")

	if dryRun {
		type chunkSummary struct {
			Ref    string `json:"ref"`
			Tokens int    `json:"tokens"`
			Chars  int    `json:"chars"`
		}
		summaries := make([]chunkSummary, 0, len(chunks))
		for _, chunk := range chunks {
			summaries = append(summaries, chunkSummary{Ref: chunk.Ref(), Tokens: chunk.EstimatedTokens, Chars: len(chunk.RawText)})
		}
		helper.PrettyPrint(summaries)
		return nil
	}

	report, err := orch.Run(ctx, chunks)
	switch {
	case errors.Is(err, pipeline.ErrBadConfiguration):
		log.Fatal().Err(err).Msg("Backend configuration rejected, fix credentials or model before retrying")
	case errors.Is(err, pipeline.ErrNoQuestions):
		log.Warn().Str("file", path).Msg("No questions extracted")
	case err != nil:
		log.Error().Err(err).Str("file", path).Msg("Extraction interrupted")
	}

	log.Info().
		Int("chunks", report.TotalChunks).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("records", len(report.Records)).
		Int("failures", len(report.Failures)).
		Msg("Extraction finished")

	if len(report.Records) > 0 {
		outPath := filepath.Join(outDir, stem+"_questions.json")
		if err := export.WriteJSON(outPath, report.Records); err != nil {
			log.Fatal().Err(err).Msg("Error writing question records")
		}
	}
	if len(report.Failures) > 0 {
		reportPath := filepath.Join(outDir, stem+"_report.json")
		if err := export.WriteReport(reportPath, report); err != nil {
			log.Error().Err(err).Msg("Error writing failure report")
		}
	}
	return report.Records
}

// mergeQuestionFiles combines previously extracted *_questions.json files
// into one renumbered record set, deduplicating across files when enabled.
func mergeQuestionFiles(ctx context.Context, input, outDir string, cfg *config.Config, doImport bool) {
	entries, err := os.ReadDir(input)
	if err != nil {
		log.Fatal().Err(err).Msg("Error reading input folder")
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), "_questions.json") {
			files = append(files, filepath.Join(input, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		log.Fatal().Str("input", input).Msg("No *_questions.json files to merge")
	}

	seen := make(map[string]struct{})
	var merged []models.QuestionRecord
	for _, file := range files {
		records, err := export.ReadRecords(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("Error reading question records")
		}
		for _, rec := range records {
			if cfg.Pipeline.Dedup {
				fp := rec.Fingerprint()
				if _, dup := seen[fp]; dup {
					continue
				}
				seen[fp] = struct{}{}
			}
			rec.Order = len(merged)
			merged = append(merged, rec)
		}
		log.Info().Str("file", file).Int("records", len(records)).Msg("Merged question file")
	}

	outPath := filepath.Join(outDir, "questions_merged.json")
	if err := export.WriteJSON(outPath, merged); err != nil {
		log.Fatal().Err(err).Msg("Error writing merged records")
	}

	if doImport {
		importRecords(ctx, cfg, merged)
	}
}

func importRecords(ctx context.Context, cfg *config.Config, records []models.QuestionRecord) {
	if len(records) == 0 {
		log.Warn().Msg("Nothing to import")
		return
	}
	if cfg.Database.DSN == "" {
		log.Fatal().Msg("database.dsn not configured")
	}

	sqldb, err := export.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	db := export.NewDB(sqldb, cfg.Database.Debug)
	defer db.Close()

	if err := export.InitDB(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database")
	}
	inserted, err := export.StoreQuestions(ctx, db, records)
	if err != nil {
		log.Fatal().Err(err).Msg("Error storing question records")
	}
	log.Info().Int("inserted", inserted).Int("total", len(records)).Msg("Imported question records")
}

func defaultOutputDir(input string) string {
	info, err := os.Stat(input)
	if err == nil && info.IsDir() {
		return input
	}
	return filepath.Dir(input)
}
