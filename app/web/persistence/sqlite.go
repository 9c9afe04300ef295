package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	log "github.com/go-pkgz/lgr"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // sqlite driver

	"github.com/umputun/jobbridge/app/assist"
	"github.com/umputun/jobbridge/app/ocr"
	"github.com/umputun/jobbridge/app/pipeline"
	"github.com/umputun/jobbridge/app/web/enums"
)

// ErrNotFound returned for unknown analysis id
var ErrNotFound = errors.New("not found")

// SQLiteStore implements persistence using SQLite
type SQLiteStore struct {
	db *sqlx.DB
}

// analysisRow is a flat analyses table record, skills and ranking stored as json
type analysisRow struct {
	ID          string           `db:"id"`
	CreatedAt   int64            `db:"created_at"`
	FileName    string           `db:"file_name"`
	MIME        string           `db:"mime"`
	TextSource  enums.TextSource `db:"text_source"`
	OCREngine   string           `db:"ocr_engine"`
	Text        string           `db:"extracted_text"`
	OCRWarning  string           `db:"ocr_warning"`
	Width       int              `db:"width"`
	Height      int              `db:"height"`
	Skills      string           `db:"skills"`
	Ranking     string           `db:"ranking"`
	ArchiveKey  string           `db:"archive_key"`
	SkillsCount int              `db:"skills_count"`
}

type questionRow struct {
	ID        string `db:"id"`
	CreatedAt int64  `db:"created_at"`
	Text      string `db:"question"`
	Topic     string `db:"topic"`
	Reply     string `db:"reply"`
	Notified  bool   `db:"notified"`
}

// NewSQLiteStore creates a new SQLite store and initializes schema
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to set WAL mode: %w (also failed to close db: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	res := &SQLiteStore{db: db}
	if err := res.initialize(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) initialize() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			file_name TEXT,
			mime TEXT,
			text_source TEXT,
			ocr_engine TEXT,
			extracted_text TEXT,
			ocr_warning TEXT,
			width INTEGER DEFAULT 0,
			height INTEGER DEFAULT 0,
			skills TEXT,
			skills_count INTEGER DEFAULT 0,
			ranking TEXT,
			archive_key TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS questions (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			question TEXT NOT NULL,
			topic TEXT,
			reply TEXT,
			notified BOOLEAN DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_questions_created_at ON questions(created_at)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// SaveAnalysis inserts or replaces analysis
func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a pipeline.Analysis) error {
	skills, err := json.Marshal(a.Skills)
	if err != nil {
		return fmt.Errorf("failed to marshal skills: %w", err)
	}
	ranking, err := json.Marshal(a.Ranking)
	if err != nil {
		return fmt.Errorf("failed to marshal ranking: %w", err)
	}

	if a.Extraction.Source.String() == "" {
		a.Extraction.Source = enums.TextSourceNone
	}
	row := analysisRow{
		ID:          a.ID,
		CreatedAt:   a.CreatedAt.UnixMilli(),
		FileName:    a.FileName,
		MIME:        a.Extraction.MIME,
		TextSource:  a.Extraction.Source,
		OCREngine:   a.Extraction.Engine,
		Text:        a.Extraction.Text,
		OCRWarning:  a.Extraction.Warning,
		Width:       a.Extraction.Width,
		Height:      a.Extraction.Height,
		Skills:      string(skills),
		SkillsCount: len(a.Skills),
		Ranking:     string(ranking),
		ArchiveKey:  a.ArchiveKey,
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO analyses
		(id, created_at, file_name, mime, text_source, ocr_engine, extracted_text, ocr_warning, width, height,
		 skills, skills_count, ranking, archive_key)
		VALUES (:id, :created_at, :file_name, :mime, :text_source, :ocr_engine, :extracted_text, :ocr_warning,
		 :width, :height, :skills, :skills_count, :ranking, :archive_key)`, row)
	if err != nil {
		return fmt.Errorf("failed to save analysis %s: %w", a.ID, err)
	}
	return nil
}

// GetAnalysis returns analysis by id, ErrNotFound if missing
func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (pipeline.Analysis, error) {
	var row analysisRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM analyses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return pipeline.Analysis{}, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return pipeline.Analysis{}, fmt.Errorf("failed to get analysis %s: %w", id, err)
	}
	return row.analysis()
}

// ListAnalyses returns recent analyses, newest first
func (s *SQLiteStore) ListAnalyses(ctx context.Context, limit int) ([]pipeline.Analysis, error) {
	rows := []analysisRow{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM analyses ORDER BY created_at DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	res := make([]pipeline.Analysis, 0, len(rows))
	for _, r := range rows {
		a, err := r.analysis()
		if err != nil {
			log.Printf("[WARN] skip broken analysis %s: %v", r.ID, err)
			continue
		}
		res = append(res, a)
	}
	return res, nil
}

// SaveQuestion stores answered question
func (s *SQLiteStore) SaveQuestion(ctx context.Context, q pipeline.Question) error {
	row := questionRow{
		ID:        q.ID,
		CreatedAt: q.CreatedAt.UnixMilli(),
		Text:      q.Text,
		Topic:     q.Reply.Topic,
		Reply:     q.Reply.Text,
		Notified:  q.Notified,
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO questions (id, created_at, question, topic, reply, notified)
		VALUES (:id, :created_at, :question, :topic, :reply, :notified)`, row)
	if err != nil {
		return fmt.Errorf("failed to save question %s: %w", q.ID, err)
	}
	return nil
}

// ListQuestions returns recent questions, newest first
func (s *SQLiteStore) ListQuestions(ctx context.Context, limit int) ([]pipeline.Question, error) {
	rows := []questionRow{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM questions ORDER BY created_at DESC LIMIT ?`, limit); err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	res := make([]pipeline.Question, 0, len(rows))
	for _, r := range rows {
		res = append(res, pipeline.Question{
			ID:        r.ID,
			CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
			Text:      r.Text,
			Reply:     assist.Reply{Topic: r.Topic, Text: r.Reply},
			Notified:  r.Notified,
		})
	}
	return res, nil
}

// Counts returns number of stored analyses and questions
func (s *SQLiteStore) Counts(ctx context.Context) (analyses, questions int, err error) {
	if err = s.db.GetContext(ctx, &analyses, `SELECT COUNT(*) FROM analyses`); err != nil {
		return 0, 0, fmt.Errorf("failed to count analyses: %w", err)
	}
	if err = s.db.GetContext(ctx, &questions, `SELECT COUNT(*) FROM questions`); err != nil {
		return 0, 0, fmt.Errorf("failed to count questions: %w", err)
	}
	return analyses, questions, nil
}

// Cleanup removes analyses and questions created before the given time, returns number of removed records
func (s *SQLiteStore) Cleanup(ctx context.Context, before time.Time) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint

	var total int64
	for _, table := range []string{"analyses", "questions"} {
		res, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < ?`, before.UnixMilli()) // nolint gosec
		if err != nil {
			return 0, fmt.Errorf("failed to cleanup %s: %w", table, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get affected rows for %s: %w", table, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return total, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (r analysisRow) analysis() (pipeline.Analysis, error) {
	res := pipeline.Analysis{
		ID:        r.ID,
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		FileName:  r.FileName,
		Extraction: ocr.Result{
			Text:    r.Text,
			Source:  r.TextSource,
			Engine:  r.OCREngine,
			MIME:    r.MIME,
			Width:   r.Width,
			Height:  r.Height,
			Warning: r.OCRWarning,
		},
		ArchiveKey: r.ArchiveKey,
	}
	if err := json.Unmarshal([]byte(r.Skills), &res.Skills); err != nil {
		return pipeline.Analysis{}, fmt.Errorf("failed to unmarshal skills: %w", err)
	}
	if err := json.Unmarshal([]byte(r.Ranking), &res.Ranking); err != nil {
		return pipeline.Analysis{}, fmt.Errorf("failed to unmarshal ranking: %w", err)
	}
	return res, nil
}
