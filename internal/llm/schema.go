package llm

// BuildQuestionJSONSchema returns the JSON-Schema (draft 2020-12 subset) a
// storable question record must satisfy. Used locally to filter save
// batches; records failing it are dropped, never repaired.
func BuildQuestionJSONSchema(questionTypes []string) map[string]any {
	props := map[string]any{
		"question_number":      map[string]any{"type": "string"},
		"question_type":        map[string]any{"type": "string"},
		"question_text":        map[string]any{"type": "string", "minLength": 1},
		"options":              map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		"page_number":          map[string]any{"type": "integer", "minimum": 1},
		"confidence":           map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
		"is_continuation":      map[string]any{"type": "boolean"},
		"spans_multiple_pages": map[string]any{"type": "boolean"},
		"has_image":            map[string]any{"type": "boolean"},
		"image_description":    map[string]any{"type": "string"},
		"image_data":           map[string]any{"type": "string"}, // base64 via encoding/json
	}
	required := []string{"question_text", "question_type", "page_number"}

	// Constrain the type tag to the closed set.
	if len(questionTypes) > 0 {
		props["question_type"] = map[string]any{
			"type": "string",
			"enum": questionTypes,
		}
	}

	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}
