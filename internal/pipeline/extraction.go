package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
)

// ExtractionPass produces the authoritative question list for a page,
// given structural findings, the recent-question window, and (in
// single-pass mode) the page-memory lookback.
type ExtractionPass struct {
	executor *llm.Executor
	settings llm.GenerationSettings
	logger   *slog.Logger
}

func NewExtractionPass(executor *llm.Executor, settings llm.GenerationSettings, logger *slog.Logger) *ExtractionPass {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionPass{executor: executor, settings: settings, logger: logger}
}

// Extract runs the extraction call for one page and decodes it. The raw
// response text is returned alongside the records so single-pass mode can
// feed the page memory. Decode failures are not errors; they yield an
// empty list with diagnostics from the decoder.
func (p *ExtractionPass) Extract(ctx context.Context, page Page, in llm.ExtractionPromptInput) ([]entity.ExtractedQuestion, string, error) {
	var prompt string
	if in.SinglePass {
		prompt = llm.BuildSinglePassPrompt(in)
	} else {
		prompt = llm.BuildExtractionPrompt(in)
	}

	req := llm.CallRequest{
		Prompt:   prompt,
		Image:    &page.Image,
		Settings: p.settings,
	}

	raw, err := p.executor.Execute(ctx, req)
	if err != nil {
		return nil, "", fmt.Errorf("extraction pass page %d: %w", page.Number, err)
	}

	questions := llm.DecodeQuestions(raw, page.Number, p.logger)
	p.logger.Debug("pipeline.extraction.decoded", "page", page.Number, "questions", len(questions))
	return questions, raw, nil
}
