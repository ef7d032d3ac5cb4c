package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
	"github.com/adewale-ajadi/exam-extractor/internal/repository"
)

// Service is a tiny façade over the store that produces XLSX bytes for exports.
type Service struct {
	store  repository.Store
	logger *slog.Logger
}

func NewService(store repository.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// ExportExamXLSX returns an XLSX workbook (as bytes) with the stored
// questions of one exam, ordered by page.
func (s *Service) ExportExamXLSX(ctx context.Context, examID uuid.UUID) ([]byte, error) {
	questions, err := s.store.ListQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	out, err := QuestionsXLSX(questions)
	if err != nil {
		return nil, err
	}
	s.logger.Info("export.xlsx.ok", "exam_id", examID.String(), "rows", len(questions))
	return out, nil
}

// QuestionsXLSX renders an in-memory question list to a workbook without
// touching storage. Used for runs that never save.
func QuestionsXLSX(questions []entity.ExtractedQuestion) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	const sheet = "Questions"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		_, err := f.NewSheet(sheet)
		if err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Page",
		"Number",
		"Type",
		"Statement",
		"Options",
		"Confidence",
		"Continuation",
		"Spans Pages",
		"Has Image",
		"Image Description",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, q := range questions {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}

		write(1, q.PageNumber)
		write(2, q.QuestionNumber)
		write(3, q.QuestionType)
		write(4, q.QuestionText)
		write(5, strings.Join(q.Options, " | "))
		write(6, q.Confidence)
		write(7, q.IsContinuation)
		write(8, q.SpansMultiplePages)
		write(9, q.HasImage)
		write(10, truncate(q.ImageDescription, 140))

		row++
	}

	// Widen a few columns
	_ = f.SetColWidth(sheet, "A", "B", 10)
	_ = f.SetColWidth(sheet, "C", "C", 12)
	_ = f.SetColWidth(sheet, "D", "D", 80) // statement
	_ = f.SetColWidth(sheet, "E", "E", 40) // options
	_ = f.SetColWidth(sheet, "J", "J", 48)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	slog.Debug("export.xlsx.rendered",
		"rows", len(questions),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
