package pipeline

import (
	"sort"

	"github.com/adewale-ajadi/exam-extractor/internal/entity"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
)

const (
	// lookbackWindow bounds how many prior pages are replayed as context.
	lookbackWindow = 3
	// snapshotLimit bounds how much of a page's raw output is kept.
	snapshotLimit = 800
	// recentWindow bounds how many already-extracted questions are fed
	// back into the next page's prompt.
	recentWindow = 3
)

// PageMemory maps page numbers to truncated snapshots of their raw model
// output. The mapping grows with the run; only the most recent entries are
// ever read back.
type PageMemory struct {
	snapshots map[int]string
}

func NewPageMemory() *PageMemory {
	return &PageMemory{snapshots: make(map[int]string)}
}

// Store keeps a truncated snapshot of the page's raw response.
func (m *PageMemory) Store(page int, raw string) {
	if len(raw) > snapshotLimit {
		raw = raw[:snapshotLimit] + "..."
	}
	m.snapshots[page] = raw
}

// Recent returns the snapshots of the most recent lookbackWindow pages
// strictly before the given page, in ascending page order.
func (m *PageMemory) Recent(before int) []llm.LookbackEntry {
	pages := make([]int, 0, len(m.snapshots))
	for p := range m.snapshots {
		if p < before {
			pages = append(pages, p)
		}
	}
	sort.Ints(pages)
	if len(pages) > lookbackWindow {
		pages = pages[len(pages)-lookbackWindow:]
	}

	entries := make([]llm.LookbackEntry, 0, len(pages))
	for _, p := range pages {
		entries = append(entries, llm.LookbackEntry{Page: p, Snapshot: m.snapshots[p]})
	}
	return entries
}

// RecentQuestionWindow is the rolling tail of extracted questions used to
// disambiguate the next page's extraction.
type RecentQuestionWindow struct {
	questions []entity.ExtractedQuestion
}

func (w *RecentQuestionWindow) Add(questions ...entity.ExtractedQuestion) {
	w.questions = append(w.questions, questions...)
	if len(w.questions) > recentWindow {
		w.questions = w.questions[len(w.questions)-recentWindow:]
	}
}

// Items returns at most the last recentWindow questions, oldest first.
func (w *RecentQuestionWindow) Items() []entity.ExtractedQuestion {
	return w.questions
}
