// Package progress defines the observational sink the pipeline reports to.
package progress

import (
	"log/slog"

	"github.com/adewale-ajadi/exam-extractor/constants"
	"github.com/adewale-ajadi/exam-extractor/internal/entity"
)

// Sink receives per-page and per-document notifications plus the final
// accumulated question list. Purely observational: implementations must
// not exert backpressure on the pipeline.
type Sink interface {
	DocumentStarted(document string, pageCount int)
	PageExtracted(page int, questionCount int)
	PageFailed(page int, err error)
	DocumentDone(document string, questions []entity.ExtractedQuestion)
}

// LogSink reports progress through structured logging.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) DocumentStarted(document string, pageCount int) {
	s.logger.Info("progress.document.start",
		"document", document,
		"pages", pageCount,
		"status", string(constants.RunStatusRunning),
	)
}

func (s *LogSink) PageExtracted(page int, questionCount int) {
	s.logger.Info("progress.page.extracted", "page", page, "questions", questionCount)
}

func (s *LogSink) PageFailed(page int, err error) {
	s.logger.Warn("progress.page.failed", "page", page, "error", err)
}

func (s *LogSink) DocumentDone(document string, questions []entity.ExtractedQuestion) {
	s.logger.Info("progress.document.done",
		"document", document,
		"questions", len(questions),
		"status", string(constants.RunStatusExtractOK),
	)
}

// NopSink discards all notifications.
type NopSink struct{}

func (NopSink) DocumentStarted(string, int)                  {}
func (NopSink) PageExtracted(int, int)                       {}
func (NopSink) PageFailed(int, error)                        {}
func (NopSink) DocumentDone(string, []entity.ExtractedQuestion) {}
