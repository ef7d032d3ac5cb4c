package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
	"github.com/adewale-ajadi/exam-extractor/internal/progress"
)

// Mode selects how many model calls each page costs.
type Mode string

const (
	// ModeTwoPass runs a structural call followed by an extraction call
	// per page.
	ModeTwoPass Mode = "two-pass"
	// ModeSinglePass runs one combined call per page, compensating for
	// the missing structural findings with raw-output lookback.
	ModeSinglePass Mode = "single-pass"
)

// ParseMode maps a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeTwoPass, ModeSinglePass:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown pipeline mode %q", s)
	}
}

// Options tunes the orchestrator's pacing between model calls.
type Options struct {
	Mode Mode
	// StructuralDelay is slept after each structural call.
	StructuralDelay time.Duration
	// ExtractionDelay is slept after each extraction call, except after
	// the final page.
	ExtractionDelay time.Duration
}

// Orchestrator walks a document's pages in order, runs the configured
// passes on each, and accumulates the extracted questions. A failed page
// contributes zero questions; the run continues to the next page.
type Orchestrator struct {
	structural *StructuralPass
	extraction *ExtractionPass
	opts       Options
	sink       progress.Sink
	logger     *slog.Logger
}

func NewOrchestrator(structural *StructuralPass, extraction *ExtractionPass, opts Options, sink progress.Sink, logger *slog.Logger) *Orchestrator {
	if sink == nil {
		sink = progress.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Mode == "" {
		opts.Mode = ModeTwoPass
	}
	return &Orchestrator{
		structural: structural,
		extraction: extraction,
		opts:       opts,
		sink:       sink,
		logger:     logger,
	}
}

// Run processes every page sequentially and returns all extracted
// questions in page order. Cancellation stops the run at the next pacing
// point and returns what was accumulated so far alongside the context's
// error.
func (o *Orchestrator) Run(ctx context.Context, document string, pages []Page) ([]entity.ExtractedQuestion, error) {
	o.sink.DocumentStarted(document, len(pages))
	o.logger.Info("pipeline.run.start", "document", document, "pages", len(pages), "mode", string(o.opts.Mode))

	var (
		all    []entity.ExtractedQuestion
		window RecentQuestionWindow
		memory = NewPageMemory()
		// carry holds the previous page's findings so a shared
		// description keeps applying while its question run continues
		// onto later pages.
		carry entity.PageStructuralFindings
	)

	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			o.logger.Warn("pipeline.run.cancelled", "document", document, "page", page.Number)
			return all, err
		}

		in := llm.ExtractionPromptInput{
			PageNumber:      page.Number,
			RecentQuestions: window.Items(),
		}

		switch o.opts.Mode {
		case ModeSinglePass:
			in.SinglePass = true
			in.Lookback = memory.Recent(page.Number)
		default:
			findings, err := o.structural.Analyze(ctx, page)
			if err != nil {
				// Extraction still runs; the page just loses its
				// structural context.
				o.logger.Warn("pipeline.structural.failed", "page", page.Number, "error", err)
			}
			if findings.SharedDescription == "" && carry.HasContinuation && carry.SharedDescription != "" {
				findings.SharedDescription = carry.SharedDescription
			}
			carry = findings
			in.Findings = findings
			if err := o.pause(ctx, o.opts.StructuralDelay); err != nil {
				return all, err
			}
		}

		questions, raw, err := o.extraction.Extract(ctx, page, in)
		if err != nil {
			o.logger.Warn("pipeline.extraction.failed", "page", page.Number, "error", err)
			o.sink.PageFailed(page.Number, err)
		} else {
			all = append(all, questions...)
			window.Add(questions...)
			if o.opts.Mode == ModeSinglePass {
				memory.Store(page.Number, raw)
			}
			o.sink.PageExtracted(page.Number, len(questions))
		}

		if i < len(pages)-1 {
			if err := o.pause(ctx, o.opts.ExtractionDelay); err != nil {
				return all, err
			}
		}
	}

	o.logger.Info("pipeline.run.done", "document", document, "questions", len(all))
	o.sink.DocumentDone(document, all)
	return all, nil
}

func (o *Orchestrator) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
