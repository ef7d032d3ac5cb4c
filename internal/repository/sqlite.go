package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/adewale-ajadi/exam-extractor/internal/common"
	"github.com/adewale-ajadi/exam-extractor/internal/entity"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS courses (
	id         TEXT PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS exams (
	id          TEXT PRIMARY KEY,
	course_id   TEXT NOT NULL REFERENCES courses(id),
	name        TEXT NOT NULL,
	year        INTEGER NOT NULL,
	source_path TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS questions (
	id                   TEXT PRIMARY KEY,
	exam_id              TEXT NOT NULL REFERENCES exams(id),
	seq                  INTEGER NOT NULL,
	question_number      TEXT NOT NULL DEFAULT '',
	question_type        TEXT NOT NULL,
	question_text        TEXT NOT NULL,
	options              TEXT,
	page_number          INTEGER NOT NULL,
	confidence           REAL NOT NULL DEFAULT 0,
	is_continuation      INTEGER NOT NULL DEFAULT 0,
	spans_multiple_pages INTEGER NOT NULL DEFAULT 0,
	has_image            INTEGER NOT NULL DEFAULT 0,
	image_description    TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS questions_exam_page ON questions (exam_id, page_number, seq);
`

// SQLiteStore implements Store on an embedded SQLite database. Suited to
// single-user local runs; use ":memory:" as the DSN for tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// OpenSQLite opens (creating if needed) the SQLite database at the DSN
// and bootstraps the schema.
func OpenSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "driver", "sqlite", "dsn", dsn)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &SQLiteStore{db: db, logger: logger}, nil
}

func (s *SQLiteStore) UpsertCourse(ctx context.Context, code, name string) (*entity.Course, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO courses (id, code, name) VALUES (?, ?, ?)
		ON CONFLICT (code) DO UPDATE SET name = excluded.name`,
		uuid.NewString(), code, name)
	if err != nil {
		s.logger.Error("failed to upsert course", "code", code, "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "upsert course", err)
	}

	course := &entity.Course{}
	var id string
	err = s.db.QueryRowContext(ctx,
		`SELECT id, code, name, created_at FROM courses WHERE code = ?`, code,
	).Scan(&id, &course.Code, &course.Name, &course.CreatedAt)
	if err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "load course", err)
	}
	course.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("parse course id: %w", err)
	}
	return course, nil
}

func (s *SQLiteStore) CreateExam(ctx context.Context, courseID uuid.UUID, name string, year int, sourcePath string) (*entity.Exam, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO exams (id, course_id, name, year, source_path)
		VALUES (?, ?, ?, ?, ?)`,
		id.String(), courseID.String(), name, year, sourcePath)
	if err != nil {
		s.logger.Error("failed to create exam", "course_id", courseID, "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "create exam", err)
	}

	exam := &entity.Exam{ID: id, CourseID: courseID, Name: name, Year: year, SourcePath: sourcePath}
	err = s.db.QueryRowContext(ctx,
		`SELECT created_at FROM exams WHERE id = ?`, id.String(),
	).Scan(&exam.CreatedAt)
	if err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "load exam", err)
	}
	return exam, nil
}

func (s *SQLiteStore) SaveQuestions(ctx context.Context, examID uuid.UUID, questions []entity.ExtractedQuestion) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, common.NewAppError("DATABASE_ERROR", "begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO questions (
			id, exam_id, seq, question_number, question_type, question_text,
			options, page_number, confidence, is_continuation,
			spans_multiple_pages, has_image, image_description
		) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return 0, common.NewAppError("DATABASE_ERROR", "prepare insert", err)
	}
	defer func() { _ = stmt.Close() }()

	saved := 0
	for i, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return saved, fmt.Errorf("marshal options: %w", err)
		}
		if _, err := stmt.ExecContext(ctx,
			uuid.NewString(), examID.String(), i, q.QuestionNumber, q.QuestionType, q.QuestionText,
			string(opts), q.PageNumber, q.Confidence, q.IsContinuation,
			q.SpansMultiplePages, q.HasImage, q.ImageDescription,
		); err != nil {
			s.logger.Error("failed to insert question", "exam_id", examID, "error", err)
			return saved, common.NewAppError("DATABASE_ERROR", "insert question", err)
		}
		saved++
	}

	if err := tx.Commit(); err != nil {
		return 0, common.NewAppError("DATABASE_ERROR", "commit", err)
	}
	s.logger.Info("db.questions.saved", "exam_id", examID, "count", saved)
	return saved, nil
}

func (s *SQLiteStore) ListQuestions(ctx context.Context, examID uuid.UUID) ([]entity.ExtractedQuestion, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT question_number, question_type, question_text, options,
		       page_number, confidence, is_continuation, spans_multiple_pages,
		       has_image, image_description
		FROM questions
		WHERE exam_id = ?
		ORDER BY page_number, seq`, examID.String())
	if err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "list questions", err)
	}
	defer func() { _ = rows.Close() }()

	var out []entity.ExtractedQuestion
	for rows.Next() {
		var (
			q    entity.ExtractedQuestion
			opts sql.NullString
		)
		if err := rows.Scan(
			&q.QuestionNumber, &q.QuestionType, &q.QuestionText, &opts,
			&q.PageNumber, &q.Confidence, &q.IsContinuation, &q.SpansMultiplePages,
			&q.HasImage, &q.ImageDescription,
		); err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "scan question", err)
		}
		if opts.Valid && opts.String != "" && opts.String != "null" {
			if err := json.Unmarshal([]byte(opts.String), &q.Options); err != nil {
				return nil, fmt.Errorf("unmarshal options: %w", err)
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	s.logger.Info("closing database connections")
	return s.db.Close()
}
