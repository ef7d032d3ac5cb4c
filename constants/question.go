package constants

import (
	"strings"
)

// QuestionType is the canonical type tag stored with every extracted question.
type QuestionType string

const (
	MCQ        QuestionType = "MCQ"        // multiple choice, single correct option
	MSQ        QuestionType = "MSQ"        // multiple select, one or more correct options
	NAT        QuestionType = "NAT"        // numerical answer type, no options
	Subjective QuestionType = "Subjective" // free-form written answer
)

var allQuestionTypes = []QuestionType{
	MCQ,
	MSQ,
	NAT,
	Subjective,
}

// Plausible bounds for the exam year recorded with a save batch.
const (
	MinExamYear = 2000
	MaxExamYear = 2030
)

func QuestionTypesAsStrings() []string {
	result := make([]string, len(allQuestionTypes))
	for i, qt := range allQuestionTypes {
		result[i] = string(qt)
	}
	return result
}

// CanonicalizeType maps a model-reported type label onto the closed set.
// The boolean reports whether the label was recognized.
func CanonicalizeType(input string) (QuestionType, bool) {
	if input == "" {
		return Subjective, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	// synonyms map
	synonyms := map[string]QuestionType{
		"multiple choice":          MCQ,
		"multiple-choice":          MCQ,
		"single correct":           MCQ,
		"objective":                MCQ,
		"multiple select":          MSQ,
		"multiple-select":          MSQ,
		"multiple correct":         MSQ,
		"multiple answer":          MSQ,
		"numerical":                NAT,
		"numeric":                  NAT,
		"numerical answer":         NAT,
		"integer":                  NAT,
		"fill in the blank":        NAT,
		"descriptive":              Subjective,
		"short answer":             Subjective,
		"long answer":              Subjective,
		"theory":                   Subjective,
		"subjective (descriptive)": Subjective,
	}

	if qt, ok := synonyms[normalized]; ok {
		return qt, true
	}

	// check if it matches any canonical tag
	for _, qt := range allQuestionTypes {
		if normalized == strings.ToLower(string(qt)) {
			return qt, true
		}
	}

	return Subjective, false
}
