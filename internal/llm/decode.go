package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/adewale-ajadi/exam-extractor/constants"
	"github.com/adewale-ajadi/exam-extractor/internal/entity"
)

var (
	jsonArrayRe  = regexp.MustCompile(`(?s)\[.*\]`)
	jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(.+?)```")
)

// ExtractJSONArray locates the JSON array payload in free-text model
// output: first the greedy bracketed span, then the interior of a fenced
// block labeled json. Absence is not an error; "no questions on this
// page" is a valid outcome.
func ExtractJSONArray(text string) (string, bool) {
	if m := jsonArrayRe.FindString(text); m != "" {
		return m, true
	}
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// ExtractJSONObject is the object-shaped variant used by the structural
// pass, with the same bracket-then-fence strategy.
func ExtractJSONObject(text string) (string, bool) {
	if m := jsonObjectRe.FindString(text); m != "" {
		return m, true
	}
	if m := fencedJSONRe.FindStringSubmatch(text); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// DecodeQuestions turns raw model output into typed question records for
// one page. Parse failures never escalate: strict parse, one RepairJSON
// pass, then give up with a diagnostic and an empty result so a single
// bad page cannot abort a multi-page run.
//
// Every record is stamped with pageNumber, overriding whatever the model
// reported, and gets confidence 1.0 when absent.
func DecodeQuestions(raw string, pageNumber int, logger *slog.Logger) []entity.ExtractedQuestion {
	if logger == nil {
		logger = slog.Default()
	}

	payload, ok := ExtractJSONArray(raw)
	if !ok {
		logger.Debug("llm.decode.no_array", "page", pageNumber, "response_bytes", len(raw))
		return nil
	}

	questions, err := parseQuestions(payload)
	if err != nil {
		repaired := RepairJSON(payload)
		questions, err = parseQuestions(repaired)
		if err != nil {
			logger.Warn("llm.decode.unparseable", "page", pageNumber, "error", err)
			return nil
		}
		logger.Debug("llm.decode.repaired", "page", pageNumber, "questions", len(questions))
	}

	for i := range questions {
		questions[i].PageNumber = pageNumber
		if questions[i].Confidence == 0 {
			questions[i].Confidence = 1.0
		}
	}
	return questions
}

// DecodeFindings decodes the structural pass's single JSON object. The
// boolean reports whether anything usable was found; absence and parse
// failure both resolve to empty findings.
func DecodeFindings(raw string, logger *slog.Logger) (entity.PageStructuralFindings, bool) {
	if logger == nil {
		logger = slog.Default()
	}

	payload, ok := ExtractJSONObject(raw)
	if !ok {
		logger.Debug("llm.decode.no_object", "response_bytes", len(raw))
		return entity.PageStructuralFindings{}, false
	}

	findings, err := parseFindings(payload)
	if err != nil {
		findings, err = parseFindings(RepairJSON(payload))
		if err != nil {
			logger.Warn("llm.decode.findings_unparseable", "error", err)
			return entity.PageStructuralFindings{}, false
		}
	}
	return findings, true
}

func parseQuestions(payload string) ([]entity.ExtractedQuestion, error) {
	var rough []map[string]any
	if err := json.Unmarshal([]byte(payload), &rough); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}

	for _, m := range rough {
		normalizeQuestionRecord(m)
	}

	b, err := json.Marshal(rough)
	if err != nil {
		return nil, fmt.Errorf("re-encode questions: %w", err)
	}
	var out []entity.ExtractedQuestion
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return out, nil
}

func parseFindings(payload string) (entity.PageStructuralFindings, error) {
	var rough map[string]any
	if err := json.Unmarshal([]byte(payload), &rough); err != nil {
		return entity.PageStructuralFindings{}, fmt.Errorf("decode findings: %w", err)
	}

	renameKey(rough, "common_data", "shared_description")
	renameKey(rough, "shared_context", "shared_description")
	renameKey(rough, "continues_to_next_page", "has_continuation")
	renameKey(rough, "has_incomplete_question", "has_continuation")
	renameKey(rough, "question_numbers", "question_identifiers")
	renameKey(rough, "identifiers", "question_identifiers")
	if v, ok := rough["question_identifiers"]; ok {
		rough["question_identifiers"] = coerceStringSlice(v)
	}

	b, err := json.Marshal(rough)
	if err != nil {
		return entity.PageStructuralFindings{}, fmt.Errorf("re-encode findings: %w", err)
	}
	var out entity.PageStructuralFindings
	if err := json.Unmarshal(b, &out); err != nil {
		return entity.PageStructuralFindings{}, fmt.Errorf("unmarshal findings: %w", err)
	}
	return out, nil
}

// normalizeQuestionRecord renames known synonyms, coerces mistyped values,
// and drops nulls so the typed unmarshal afterwards stays strict.
func normalizeQuestionRecord(m map[string]any) {
	renameKey(m, "number", "question_number")
	renameKey(m, "question_no", "question_number")
	renameKey(m, "type", "question_type")
	renameKey(m, "statement", "question_text")
	renameKey(m, "text", "question_text")
	renameKey(m, "question", "question_text")
	renameKey(m, "is_continued", "is_continuation")
	renameKey(m, "continues_from_previous_page", "is_continuation")
	renameKey(m, "is_multi_page", "spans_multiple_pages")

	// question_number arrives as a bare number often enough to matter
	if v, ok := m["question_number"]; ok {
		switch t := v.(type) {
		case float64:
			m["question_number"] = strconv.FormatFloat(t, 'f', -1, 64)
		case string:
			m["question_number"] = strings.TrimSpace(t)
		case nil:
			delete(m, "question_number")
		}
	}

	if v, ok := m["question_type"].(string); ok {
		if qt, recognized := constants.CanonicalizeType(v); recognized {
			m["question_type"] = string(qt)
		}
	}

	if v, ok := m["options"]; ok {
		switch t := v.(type) {
		case nil:
			delete(m, "options")
		default:
			m["options"] = coerceStringSlice(t)
		}
	}

	if v, ok := m["confidence"]; ok {
		switch t := v.(type) {
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
				m["confidence"] = f
			} else {
				delete(m, "confidence")
			}
		case nil:
			delete(m, "confidence")
		}
	}

	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
}

func renameKey(m map[string]any, from, to string) {
	if v, ok := m[from]; ok {
		if _, exists := m[to]; !exists {
			m[to] = v
		}
		delete(m, from)
	}
}

func coerceStringSlice(v any) []string {
	items, ok := v.([]any)
	if !ok {
		if s, ok := v.(string); ok {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch t := item.(type) {
		case string:
			out = append(out, t)
		case float64:
			out = append(out, strconv.FormatFloat(t, 'f', -1, 64))
		}
	}
	return out
}
