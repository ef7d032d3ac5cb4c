package entity

// ExtractedQuestion is the unit of pipeline output: one question as the
// model reported it, stamped with the page it was read from.
//
// PageNumber is always set by the pipeline and overrides whatever the model
// claims. Confidence defaults to 1.0 when the model omits it. The core never
// mutates a question after the extraction pass created it; deletion and
// image attachment happen in the presentation layer before saving.
type ExtractedQuestion struct {
	QuestionNumber     string   `json:"question_number,omitempty"` // displayed number, composite forms like "11(A)" allowed
	QuestionType       string   `json:"question_type"`             // one of constants.QuestionTypesAsStrings()
	QuestionText       string   `json:"question_text"`             // statement, may embed LaTeX-style math markup
	Options            []string `json:"options,omitempty"`         // ordered option texts for MCQ/MSQ
	PageNumber         int      `json:"page_number"`
	Confidence         float64  `json:"confidence,omitempty"`
	IsContinuation     bool     `json:"is_continuation,omitempty"`      // continues a question begun on a prior page
	SpansMultiplePages bool     `json:"spans_multiple_pages,omitempty"` // starts here, concludes later
	HasImage           bool     `json:"has_image,omitempty"`
	ImageDescription   string   `json:"image_description,omitempty"`
	ImageData          []byte   `json:"image_data,omitempty"` // attached by the presentation layer, not the core
}

// PageStructuralFindings is the structural pass result for one page.
// Held only for the lifetime of a single run, keyed by page number.
type PageStructuralFindings struct {
	SharedDescription   string   `json:"shared_description,omitempty"`
	HasContinuation     bool     `json:"has_continuation,omitempty"`
	QuestionIdentifiers []string `json:"question_identifiers,omitempty"`
}
