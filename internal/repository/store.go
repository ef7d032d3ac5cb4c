// Package repository persists extracted questions under a course/exam
// hierarchy. Two drivers exist: Postgres for shared deployments and
// SQLite for local single-user runs.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
)

// Store is the persistence surface the pipeline and CLIs depend on.
type Store interface {
	// UpsertCourse creates the course or returns the existing one with
	// the same code, refreshing its display name.
	UpsertCourse(ctx context.Context, code, name string) (*entity.Course, error)
	// CreateExam records one processed document under a course.
	CreateExam(ctx context.Context, courseID uuid.UUID, name string, year int, sourcePath string) (*entity.Exam, error)
	// SaveQuestions inserts the batch for an exam and returns how many
	// rows were written.
	SaveQuestions(ctx context.Context, examID uuid.UUID, questions []entity.ExtractedQuestion) (int, error)
	// ListQuestions returns an exam's questions ordered by page, then
	// insertion order.
	ListQuestions(ctx context.Context, examID uuid.UUID) ([]entity.ExtractedQuestion, error)
	Ping(ctx context.Context) error
	Close() error
}
