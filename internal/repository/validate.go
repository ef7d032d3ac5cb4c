package repository

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adewale-ajadi/exam-extractor/constants"
	"github.com/adewale-ajadi/exam-extractor/internal/common"
	"github.com/adewale-ajadi/exam-extractor/internal/entity"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
)

// SaveBatch is one document's worth of questions headed for storage,
// together with the course/exam metadata they file under.
type SaveBatch struct {
	CourseCode string
	CourseName string
	ExamName   string
	Year       int
	SourcePath string
	Questions  []entity.ExtractedQuestion
}

// ValidateBatch checks the batch metadata and filters its questions
// against the storable-record schema. Invalid records are dropped with a
// warning, never repaired. Returns common.ErrNothingToSave when no valid
// record remains, and common.ErrInvalidInput for bad metadata.
func ValidateBatch(batch SaveBatch, logger *slog.Logger) ([]entity.ExtractedQuestion, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if strings.TrimSpace(batch.CourseCode) == "" {
		return nil, common.NewAppError("VALIDATION_ERROR", "course code is required", common.ErrInvalidInput)
	}
	if batch.Year < constants.MinExamYear || batch.Year > constants.MaxExamYear {
		return nil, common.NewAppError("VALIDATION_ERROR",
			fmt.Sprintf("year %d outside %d..%d", batch.Year, constants.MinExamYear, constants.MaxExamYear),
			common.ErrInvalidInput)
	}

	schema := llm.BuildQuestionJSONSchema(constants.QuestionTypesAsStrings())

	valid := make([]entity.ExtractedQuestion, 0, len(batch.Questions))
	for i, q := range batch.Questions {
		data, err := json.Marshal(q)
		if err != nil {
			logger.Warn("db.validate.marshal_failed", "index", i, "error", err)
			continue
		}
		if err := llm.ValidateJSONAgainstSchema(schema, data); err != nil {
			logger.Warn("db.validate.dropped",
				"index", i,
				"page", q.PageNumber,
				"number", q.QuestionNumber,
				"error", err,
			)
			continue
		}
		valid = append(valid, q)
	}

	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: %d records, none valid", common.ErrNothingToSave, len(batch.Questions))
	}
	if dropped := len(batch.Questions) - len(valid); dropped > 0 {
		logger.Info("db.validate.filtered", "kept", len(valid), "dropped", dropped)
	}
	return valid, nil
}
