package llm

import (
	"fmt"
	"strings"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
)

// statementPreviewLimit caps how much of a prior question's statement is
// replayed as context for the next page.
const statementPreviewLimit = 120

// LookbackEntry is one prior page's truncated raw output, surfaced as
// extra context in single-pass mode.
type LookbackEntry struct {
	Page     int
	Snapshot string
}

// ExtractionPromptInput carries everything the extraction prompt needs for
// one page. SinglePass selects the combined structural+contextual prompt;
// otherwise Findings are expected from the upstream structural call.
type ExtractionPromptInput struct {
	PageNumber      int
	SinglePass      bool
	Findings        entity.PageStructuralFindings
	RecentQuestions []entity.ExtractedQuestion
	Lookback        []LookbackEntry
}

// BuildStructuralPrompt asks the model what the page looks like before any
// extraction happens: shared description blocks, unfinished questions, and
// the question identifiers visible on the page.
func BuildStructuralPrompt(pageNumber int) string {
	parts := []string{
		fmt.Sprintf("You are analyzing page %d of a scanned exam paper.", pageNumber),
		"Do NOT extract full questions yet. Report only the page's structure.",
		"A 'shared description' is a block of context (a passage, figure caption, or data set)",
		"that applies to a contiguous run of multiple questions, e.g. 'Use the figure to answer Q5-Q6'.",
		"Return ONLY a single JSON object with exactly these fields:",
		`{"shared_description": "<the shared block text, or omit if none>",`,
		`"has_continuation": <true if any question visibly starts on this page but does not conclude on it>,`,
		`"question_identifiers": ["<each question number visible on the page, as displayed, e.g. \"11(A)\">"]}`,
		"Never output null. If a field does not apply, omit it.",
	}
	return strings.Join(parts, " ")
}

// BuildExtractionPrompt builds the two-pass extraction request: structural
// findings arrive from the upstream call and are folded into instructions.
func BuildExtractionPrompt(in ExtractionPromptInput) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Extract every exam question visible on page %d of this scanned paper.\n", in.PageNumber))
	b.WriteString(extractionRules())

	if desc := strings.TrimSpace(in.Findings.SharedDescription); desc != "" {
		b.WriteString("\nThis page carries a shared description that applies to a run of questions:\n")
		b.WriteString("---\n" + desc + "\n---\n")
		b.WriteString("Inline the FULL shared description text into the statement of EVERY question that uses it. ")
		b.WriteString("Do not reference it once and point to it; repeat it per question.\n")
	}
	if in.Findings.HasContinuation {
		b.WriteString("\nStructural analysis found a question that starts on this page but concludes later. ")
		b.WriteString("Mark it with \"spans_multiple_pages\": true.\n")
	}
	if len(in.Findings.QuestionIdentifiers) > 0 {
		b.WriteString(fmt.Sprintf("\nQuestion identifiers expected on this page: %s.\n",
			strings.Join(in.Findings.QuestionIdentifiers, ", ")))
	}

	writeRecentQuestions(&b, in.RecentQuestions)
	b.WriteString("\n" + outputShape())
	return b.String()
}

// BuildSinglePassPrompt is the combined structural+contextual variant: one
// call both detects shared descriptions and extracts, with a bounded
// lookback of prior pages' raw output as extra context.
func BuildSinglePassPrompt(in ExtractionPromptInput) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Extract every exam question visible on page %d of this scanned paper.\n", in.PageNumber))
	b.WriteString(extractionRules())
	b.WriteString("\nIf a block of context (passage, figure, data set) applies to several questions, ")
	b.WriteString("inline its FULL text into the statement of every question that uses it. ")
	b.WriteString("If a question starts on this page but does not conclude here, mark it with ")
	b.WriteString("\"spans_multiple_pages\": true. If it continues one begun on an earlier page, ")
	b.WriteString("mark \"is_continuation\": true.\n")

	if len(in.Lookback) > 0 {
		b.WriteString("\nFor continuity, here is (truncated) raw output from recent pages:\n")
		for _, entry := range in.Lookback {
			b.WriteString(fmt.Sprintf("--- page %d ---\n%s\n", entry.Page, entry.Snapshot))
		}
	}

	writeRecentQuestions(&b, in.RecentQuestions)
	b.WriteString("\n" + outputShape())
	return b.String()
}

func extractionRules() string {
	parts := []string{
		"Classify each question's type as exactly one of: MCQ (single correct option),",
		"MSQ (multiple correct options), NAT (numerical answer), Subjective (written answer).",
		"Keep mathematical notation as LaTeX-style markup inside the statement.",
		"If a question depends on a table or diagram, fully describe that visual content",
		"inline in the statement rather than omitting the question, and set \"has_image\": true",
		"with a short \"image_description\".",
		"Preserve displayed question numbers exactly as printed, including composite forms like 11(A).",
	}
	return strings.Join(parts, " ") + "\n"
}

func outputShape() string {
	parts := []string{
		"Return ONLY a JSON array of question objects with these fields:",
		`"question_number" (string, optional), "question_type", "question_text",`,
		`"options" (array of strings, only for MCQ/MSQ), "page_number" (integer),`,
		`"confidence" (0..1), "is_continuation" (boolean), "spans_multiple_pages" (boolean),`,
		`"has_image" (boolean), "image_description" (string, optional).`,
		"Return [] if the page has no questions. Never output null; omit absent fields.",
	}
	return strings.Join(parts, " ")
}

func writeRecentQuestions(b *strings.Builder, recent []entity.ExtractedQuestion) {
	if len(recent) == 0 {
		return
	}
	b.WriteString("\nThe most recently extracted questions, for disambiguation (do not re-extract them):\n")
	for _, q := range recent {
		number := q.QuestionNumber
		if number == "" {
			number = "?"
		}
		b.WriteString(fmt.Sprintf("Q%s: %s\n", number, truncate(q.QuestionText, statementPreviewLimit)))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
