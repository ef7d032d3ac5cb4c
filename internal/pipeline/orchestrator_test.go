package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adewale-ajadi/exam-extractor/internal/credentials"
	"github.com/adewale-ajadi/exam-extractor/internal/entity"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
)

// scriptedCaller routes structural and extraction prompts to per-page
// handlers and records every prompt it saw.
type scriptedCaller struct {
	structural map[int]func() (string, error)
	extraction map[int]func() (string, error)
	prompts    []string
}

func (c *scriptedCaller) Call(_ context.Context, _ credentials.Credential, req llm.CallRequest) (string, error) {
	c.prompts = append(c.prompts, req.Prompt)

	page := promptPage(req.Prompt)
	if strings.Contains(req.Prompt, "Do NOT extract") {
		if fn, ok := c.structural[page]; ok {
			return fn()
		}
		return `{}`, nil
	}
	if fn, ok := c.extraction[page]; ok {
		return fn()
	}
	return `[]`, nil
}

// promptPage pulls the page number out of a built prompt.
func promptPage(prompt string) int {
	for page := 1; page <= 50; page++ {
		if strings.Contains(prompt, fmt.Sprintf("page %d of", page)) {
			return page
		}
	}
	return 0
}

type recordingSink struct {
	started   []int
	extracted map[int]int
	failed    map[int]error
	done      int
}

func newRecordingSink() *recordingSink {
	return &recordingSink{extracted: make(map[int]int), failed: make(map[int]error)}
}

func (s *recordingSink) DocumentStarted(_ string, pages int) { s.started = append(s.started, pages) }
func (s *recordingSink) PageExtracted(page, count int)       { s.extracted[page] = count }
func (s *recordingSink) PageFailed(page int, err error)      { s.failed[page] = err }
func (s *recordingSink) DocumentDone(_ string, _ []entity.ExtractedQuestion) {
	s.done++
}

func newTestOrchestrator(t *testing.T, caller llm.ModelCaller, opts Options, sink *recordingSink) *Orchestrator {
	t.Helper()
	pool, err := credentials.NewPool([]string{"key-a"})
	require.NoError(t, err)
	exec := llm.NewExecutor(pool, caller, 0, nil)
	settings := llm.DefaultGenerationSettings()
	return NewOrchestrator(
		NewStructuralPass(exec, settings, nil),
		NewExtractionPass(exec, settings, nil),
		opts,
		sink,
		nil,
	)
}

func pagesOf(numbers ...int) []Page {
	pages := make([]Page, 0, len(numbers))
	for _, n := range numbers {
		pages = append(pages, Page{Number: n, Image: llm.ImagePayload{Base64Data: "aW1n", MIMEType: "image/png"}})
	}
	return pages
}

func questionJSON(number, text string, page int) string {
	return fmt.Sprintf(`{"question_number":%q,"question_type":"MCQ","question_text":%q,"page_number":%d,"confidence":0.9}`,
		number, text, page)
}

func TestRunSurvivesFailingPage(t *testing.T) {
	boom := errors.New("model unavailable")
	caller := &scriptedCaller{
		structural: map[int]func() (string, error){},
		extraction: map[int]func() (string, error){
			1: func() (string, error) { return "[" + questionJSON("1", "First", 1) + "]", nil },
			2: func() (string, error) { return "", boom },
			3: func() (string, error) { return "[" + questionJSON("3", "Third", 3) + "]", nil },
		},
	}
	sink := newRecordingSink()
	orch := newTestOrchestrator(t, caller, Options{Mode: ModeTwoPass}, sink)

	questions, err := orch.Run(context.Background(), "exam.pdf", pagesOf(1, 2, 3))
	require.NoError(t, err)

	require.Len(t, questions, 2)
	assert.Equal(t, "First", questions[0].QuestionText)
	assert.Equal(t, "Third", questions[1].QuestionText)

	assert.Equal(t, []int{3}, sink.started)
	assert.Equal(t, 1, sink.extracted[1])
	assert.Equal(t, 1, sink.extracted[3])
	require.Contains(t, sink.failed, 2)
	assert.ErrorIs(t, sink.failed[2], boom)
	assert.Equal(t, 1, sink.done)
}

func TestRunInlinesSharedDescription(t *testing.T) {
	const shared = "Use the figure below to answer Q5-Q6. The circuit has two resistors in series."

	caller := &scriptedCaller{
		structural: map[int]func() (string, error){
			1: func() (string, error) {
				return fmt.Sprintf(`{"shared_description":%q,"question_identifiers":["5","6"]}`, shared), nil
			},
		},
		extraction: map[int]func() (string, error){
			1: func() (string, error) {
				return "[" +
					questionJSON("5", shared+" What is the total resistance?", 1) + "," +
					questionJSON("6", shared+" What is the current through R1?", 1) +
					"]", nil
			},
		},
	}
	sink := newRecordingSink()
	orch := newTestOrchestrator(t, caller, Options{Mode: ModeTwoPass}, sink)

	questions, err := orch.Run(context.Background(), "exam.pdf", pagesOf(1))
	require.NoError(t, err)

	// The extraction prompt must carry the shared block and the
	// per-question inlining instruction.
	require.Len(t, caller.prompts, 2)
	extractionPrompt := caller.prompts[1]
	assert.Contains(t, extractionPrompt, shared)
	assert.Contains(t, extractionPrompt, "repeat it per question")
	assert.Contains(t, extractionPrompt, "5, 6")

	require.Len(t, questions, 2)
	for _, q := range questions {
		assert.Contains(t, q.QuestionText, shared)
	}
}

func TestRunCarriesSharedDescriptionAcrossPages(t *testing.T) {
	const shared = "Use the figure to answer Q5-Q6."

	caller := &scriptedCaller{
		structural: map[int]func() (string, error){
			1: func() (string, error) {
				return fmt.Sprintf(`{"shared_description":%q,"has_continuation":true}`, shared), nil
			},
			2: func() (string, error) { return `{"question_identifiers":["5","6"]}`, nil },
		},
		extraction: map[int]func() (string, error){
			1: func() (string, error) { return "[]", nil },
			2: func() (string, error) {
				return "[" +
					questionJSON("5", shared+" Compute the area.", 2) + "," +
					questionJSON("6", shared+" Compute the perimeter.", 2) +
					"]", nil
			},
		},
	}
	sink := newRecordingSink()
	orch := newTestOrchestrator(t, caller, Options{Mode: ModeTwoPass}, sink)

	questions, err := orch.Run(context.Background(), "exam.pdf", pagesOf(1, 2))
	require.NoError(t, err)

	// Page 2's extraction prompt inherits the description found on page 1.
	require.Len(t, caller.prompts, 4)
	assert.Contains(t, caller.prompts[3], shared)

	require.Len(t, questions, 2)
	assert.Equal(t, "5", questions[0].QuestionNumber)
	assert.Equal(t, "6", questions[1].QuestionNumber)
	for _, q := range questions {
		assert.Contains(t, q.QuestionText, shared)
		assert.Equal(t, 2, q.PageNumber)
	}
}

func TestRunSinglePassFeedsLookback(t *testing.T) {
	caller := &scriptedCaller{
		structural: map[int]func() (string, error){},
		extraction: map[int]func() (string, error){
			1: func() (string, error) { return "[" + questionJSON("1", "Alpha", 1) + "]", nil },
			2: func() (string, error) { return "[" + questionJSON("2", "Beta", 2) + "]", nil },
			3: func() (string, error) { return "[]", nil },
		},
	}
	sink := newRecordingSink()
	orch := newTestOrchestrator(t, caller, Options{Mode: ModeSinglePass}, sink)

	_, err := orch.Run(context.Background(), "exam.pdf", pagesOf(1, 2, 3))
	require.NoError(t, err)

	// One call per page: no structural prompts issued.
	require.Len(t, caller.prompts, 3)
	for _, prompt := range caller.prompts {
		assert.NotContains(t, prompt, "Do NOT extract")
	}

	// Page 3's prompt replays the raw output of pages 1 and 2.
	third := caller.prompts[2]
	assert.Contains(t, third, "--- page 1 ---")
	assert.Contains(t, third, "--- page 2 ---")
	assert.Contains(t, third, "Alpha")
	assert.Contains(t, third, "Beta")

	// And the recent-question window also reaches the prompt.
	assert.Contains(t, third, "recently extracted questions")
}

func TestRunRecentQuestionsReachNextPage(t *testing.T) {
	caller := &scriptedCaller{
		structural: map[int]func() (string, error){},
		extraction: map[int]func() (string, error){
			1: func() (string, error) {
				return "[" +
					questionJSON("1", "One", 1) + "," +
					questionJSON("2", "Two", 1) + "," +
					questionJSON("3", "Three", 1) + "," +
					questionJSON("4", "Four", 1) +
					"]", nil
			},
		},
	}
	sink := newRecordingSink()
	orch := newTestOrchestrator(t, caller, Options{Mode: ModeTwoPass}, sink)

	_, err := orch.Run(context.Background(), "exam.pdf", pagesOf(1, 2))
	require.NoError(t, err)

	// Prompts: structural 1, extraction 1, structural 2, extraction 2.
	require.Len(t, caller.prompts, 4)
	second := caller.prompts[3]

	// Only the last three questions fit the window.
	assert.NotContains(t, second, "Q1: One")
	assert.Contains(t, second, "Q2: Two")
	assert.Contains(t, second, "Q3: Three")
	assert.Contains(t, second, "Q4: Four")
}

func TestRunReturnsAccumulatedOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	caller := &scriptedCaller{
		structural: map[int]func() (string, error){},
		extraction: map[int]func() (string, error){
			1: func() (string, error) {
				cancel()
				return "[" + questionJSON("1", "First", 1) + "]", nil
			},
		},
	}
	sink := newRecordingSink()
	orch := newTestOrchestrator(t, caller, Options{Mode: ModeTwoPass}, sink)

	questions, err := orch.Run(ctx, "exam.pdf", pagesOf(1, 2, 3))
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, questions, 1)
	assert.Equal(t, "First", questions[0].QuestionText)
	assert.Equal(t, 0, sink.done)
}

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("two-pass")
	require.NoError(t, err)
	assert.Equal(t, ModeTwoPass, mode)

	mode, err = ParseMode("single-pass")
	require.NoError(t, err)
	assert.Equal(t, ModeSinglePass, mode)

	_, err = ParseMode("three-pass")
	assert.Error(t, err)
}
