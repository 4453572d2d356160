package export

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"question-extract/internal/config"
	"question-extract/internal/models"
)

// QuestionRow is the relational shape of a question record. Options, answers,
// tags and stats go into jsonb columns so the row round-trips the import
// document without a schema per question type.
type QuestionRow struct {
	bun.BaseModel `bun:"table:questions,alias:q"`

	ID            string          `bun:"id,pk"`
	Title         string          `bun:"title"`
	Content       string          `bun:"content,notnull"`
	Type          string          `bun:"type,notnull"`
	Options       []models.Option `bun:"options,type:jsonb"`
	CorrectAnswer []string        `bun:"correct_answer,type:jsonb"`
	Explanation   string          `bun:"explanation"`
	Difficulty    string          `bun:"difficulty"`
	Subject       string          `bun:"subject"`
	Module        string          `bun:"module"`
	SubModule     string          `bun:"sub_module"`
	Tags          []string        `bun:"tags,type:jsonb"`
	Order         int             `bun:"sort_order"`
	IsActive      bool            `bun:"is_active"`
	Stats         models.Stats    `bun:"stats,type:jsonb"`
	CreatedAt     time.Time       `bun:"created_at"`
	UpdatedAt     time.Time       `bun:"updated_at"`
}

func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func ConnectDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	opts := []pgdriver.Option{pgdriver.WithDSN(cfg.DSN)}
	if cfg.Password != "" {
		opts = append(opts, pgdriver.WithPassword(cfg.Password))
	}
	return sql.OpenDB(pgdriver.NewConnector(opts...)), nil
}

func InitDB(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*QuestionRow)(nil)).IfNotExists().Exec(ctx)
	return err
}

// StoreQuestions bulk-inserts records in one statement. Rows whose id already
// exists are left untouched, so re-running an import is safe.
func StoreQuestions(ctx context.Context, db *bun.DB, records []models.QuestionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	rows := make([]QuestionRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rowFromRecord(rec))
	}
	res, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func rowFromRecord(rec models.QuestionRecord) QuestionRow {
	return QuestionRow{
		ID:            rec.ID,
		Title:         rec.Title,
		Content:       rec.Content,
		Type:          string(rec.Type),
		Options:       rec.Options,
		CorrectAnswer: rec.CorrectAnswer,
		Explanation:   rec.Explanation,
		Difficulty:    string(rec.Difficulty),
		Subject:       rec.Subject,
		Module:        rec.Module,
		SubModule:     rec.SubModule,
		Tags:          rec.Tags,
		Order:         rec.Order,
		IsActive:      rec.IsActive,
		Stats:         rec.Stats,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}
