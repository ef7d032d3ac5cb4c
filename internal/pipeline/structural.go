package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
)

// Page is one rasterized page handed to the pipeline.
type Page struct {
	Number int
	Image  llm.ImagePayload
}

// StructuralPass asks the model what a page looks like before extraction:
// shared description blocks, continuation signals, and visible question
// identifiers. Its only consumer is the extraction pass's prompt.
type StructuralPass struct {
	executor *llm.Executor
	settings llm.GenerationSettings
	logger   *slog.Logger
}

func NewStructuralPass(executor *llm.Executor, settings llm.GenerationSettings, logger *slog.Logger) *StructuralPass {
	if logger == nil {
		logger = slog.Default()
	}
	return &StructuralPass{executor: executor, settings: settings, logger: logger}
}

// Analyze runs the structural call for one page. Absent or undecodable
// findings resolve to the zero value; only call-level failures are
// returned, and the orchestrator continues past them.
func (p *StructuralPass) Analyze(ctx context.Context, page Page) (entity.PageStructuralFindings, error) {
	req := llm.CallRequest{
		Prompt:   llm.BuildStructuralPrompt(page.Number),
		Image:    &page.Image,
		Settings: p.settings,
	}

	raw, err := p.executor.Execute(ctx, req)
	if err != nil {
		return entity.PageStructuralFindings{}, fmt.Errorf("structural pass page %d: %w", page.Number, err)
	}

	findings, ok := llm.DecodeFindings(raw, p.logger)
	if !ok {
		p.logger.Debug("pipeline.structural.empty", "page", page.Number)
	}
	return findings, nil
}
