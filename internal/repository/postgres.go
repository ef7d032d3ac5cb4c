package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adewale-ajadi/exam-extractor/internal/common"
	"github.com/adewale-ajadi/exam-extractor/internal/entity"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS courses (
	id         UUID PRIMARY KEY,
	code       TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS exams (
	id          UUID PRIMARY KEY,
	course_id   UUID NOT NULL REFERENCES courses(id),
	name        TEXT NOT NULL,
	year        INT NOT NULL,
	source_path TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS questions (
	id                   UUID PRIMARY KEY,
	exam_id              UUID NOT NULL REFERENCES exams(id),
	seq                  INT NOT NULL,
	question_number      TEXT NOT NULL DEFAULT '',
	question_type        TEXT NOT NULL,
	question_text        TEXT NOT NULL,
	options              JSONB,
	page_number          INT NOT NULL,
	confidence           REAL NOT NULL DEFAULT 0,
	is_continuation      BOOLEAN NOT NULL DEFAULT FALSE,
	spans_multiple_pages BOOLEAN NOT NULL DEFAULT FALSE,
	has_image            BOOLEAN NOT NULL DEFAULT FALSE,
	image_description    TEXT NOT NULL DEFAULT '',
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS questions_exam_page ON questions (exam_id, page_number, seq);
`

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// OpenPostgres creates a pgx pool from the database configuration and
// bootstraps the schema.
func OpenPostgres(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("connecting to database", "driver", "postgres")

	pc, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		logger.Error("failed to parse database config", "error", err)
		return nil, err
	}

	pc.MaxConns = cfg.MaxConns
	pc.MinConns = cfg.MinConns
	pc.MaxConnLifetime = cfg.MaxConnLifetime
	pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	pc.ConnConfig.RuntimeParams["application_name"] = "exam-extractor"
	if cfg.StatementTimeout > 0 {
		pc.ConnConfig.RuntimeParams["statement_timeout"] = cfg.StatementTimeout.String()
	}

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	pool, err := pgxpool.NewWithConfig(dialCtx, pc)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		return nil, err
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	logger.Info("successfully connected to database")
	return &PostgresStore{pool: pool, logger: logger}, nil
}

func (s *PostgresStore) UpsertCourse(ctx context.Context, code, name string) (*entity.Course, error) {
	course := &entity.Course{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO courses (id, code, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
		RETURNING id, code, name, created_at`,
		uuid.New(), code, name,
	).Scan(&course.ID, &course.Code, &course.Name, &course.CreatedAt)
	if err != nil {
		s.logger.Error("failed to upsert course", "code", code, "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "upsert course", err)
	}
	return course, nil
}

func (s *PostgresStore) CreateExam(ctx context.Context, courseID uuid.UUID, name string, year int, sourcePath string) (*entity.Exam, error) {
	exam := &entity.Exam{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO exams (id, course_id, name, year, source_path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, course_id, name, year, source_path, created_at`,
		uuid.New(), courseID, name, year, sourcePath,
	).Scan(&exam.ID, &exam.CourseID, &exam.Name, &exam.Year, &exam.SourcePath, &exam.CreatedAt)
	if err != nil {
		s.logger.Error("failed to create exam", "course_id", courseID, "error", err)
		return nil, common.NewAppError("DATABASE_ERROR", "create exam", err)
	}
	return exam, nil
}

func (s *PostgresStore) SaveQuestions(ctx context.Context, examID uuid.UUID, questions []entity.ExtractedQuestion) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for i, q := range questions {
		opts, err := json.Marshal(q.Options)
		if err != nil {
			return 0, fmt.Errorf("marshal options: %w", err)
		}
		batch.Queue(`
			INSERT INTO questions (
				id, exam_id, seq, question_number, question_type, question_text,
				options, page_number, confidence, is_continuation,
				spans_multiple_pages, has_image, image_description
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
			uuid.New(), examID, i, q.QuestionNumber, q.QuestionType, q.QuestionText,
			opts, q.PageNumber, q.Confidence, q.IsContinuation,
			q.SpansMultiplePages, q.HasImage, q.ImageDescription,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer func() {
		if err := br.Close(); err != nil {
			s.logger.Error("failed to close batch results", "error", err)
		}
	}()

	saved := 0
	for range questions {
		if _, err := br.Exec(); err != nil {
			s.logger.Error("failed to insert question", "exam_id", examID, "error", err)
			return saved, common.NewAppError("DATABASE_ERROR", "insert question", err)
		}
		saved++
	}

	s.logger.Info("db.questions.saved", "exam_id", examID, "count", saved)
	return saved, nil
}

func (s *PostgresStore) ListQuestions(ctx context.Context, examID uuid.UUID) ([]entity.ExtractedQuestion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT question_number, question_type, question_text, options,
		       page_number, confidence, is_continuation, spans_multiple_pages,
		       has_image, image_description
		FROM questions
		WHERE exam_id = $1
		ORDER BY page_number, seq`, examID)
	if err != nil {
		return nil, common.NewAppError("DATABASE_ERROR", "list questions", err)
	}
	defer rows.Close()

	var out []entity.ExtractedQuestion
	for rows.Next() {
		var q entity.ExtractedQuestion
		var opts []byte
		if err := rows.Scan(
			&q.QuestionNumber, &q.QuestionType, &q.QuestionText, &opts,
			&q.PageNumber, &q.Confidence, &q.IsContinuation, &q.SpansMultiplePages,
			&q.HasImage, &q.ImageDescription,
		); err != nil {
			return nil, common.NewAppError("DATABASE_ERROR", "scan question", err)
		}
		if len(opts) > 0 {
			if err := json.Unmarshal(opts, &q.Options); err != nil {
				return nil, fmt.Errorf("unmarshal options: %w", err)
			}
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Ping verifies connectivity, bounded by the caller's context.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.logger.Info("closing database connections")
	s.pool.Close()
	return nil
}

// PingWithTimeout pings with its own deadline, for health checks that run
// outside a request context.
func (s *PostgresStore) PingWithTimeout(ctx context.Context, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return s.pool.Ping(ctx)
}
