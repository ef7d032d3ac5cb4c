package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/adewale-ajadi/exam-extractor/internal/credentials"
)

// GenerationSettings is the sampling triple sent with every call.
// Extraction runs deterministic-leaning, so the defaults sit low.
type GenerationSettings struct {
	Temperature float32
	TopK        float32
	TopP        float32
	MaxTokens   int
}

// DefaultGenerationSettings returns the low-temperature settings used for
// extraction accuracy.
func DefaultGenerationSettings() GenerationSettings {
	return GenerationSettings{
		Temperature: 0.1,
		TopK:        10,
		TopP:        0.8,
		MaxTokens:   8192,
	}
}

// ImagePayload is one rasterized page, base64-encoded so it survives any
// text transport untouched.
type ImagePayload struct {
	Base64Data string
	MIMEType   string
}

// CallRequest is one logical request to the model: a prompt, at most one
// page image, and sampling settings.
type CallRequest struct {
	Prompt   string
	Image    *ImagePayload
	Settings GenerationSettings
}

// ModelCaller issues a single request to the external model using a
// specific credential. Implementations report quota failures through
// errors matched by IsRateLimitError; malformed response text is not an
// error at this layer.
type ModelCaller interface {
	Call(ctx context.Context, cred credentials.Credential, req CallRequest) (string, error)
}

// IsRateLimitError checks whether an error signals quota/rate-limiting.
// Matches 429 status codes and RESOURCE_EXHAUSTED / quota wording from
// either provider.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(strings.ToLower(errStr), "quota")
}
