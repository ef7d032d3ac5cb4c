// Package gemini implements llm.ModelCaller against the Gemini API.
package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/adewale-ajadi/exam-extractor/internal/credentials"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
)

const defaultModel = "gemini-2.0-flash"

type Config struct {
	Model   string
	Timeout time.Duration
}

// Client issues vision calls to Gemini. Credential rotation switches API
// keys between calls, so one genai client is created lazily per credential
// and cached for the life of the run.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	clients map[credentials.Credential]*genai.Client
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[credentials.Credential]*genai.Client),
	}
}

func (c *Client) clientFor(ctx context.Context, cred credentials.Credential) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[cred]; ok {
		return client, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  string(cred),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize genai client: %w", err)
	}
	c.clients[cred] = client
	return client, nil
}

// Call sends one prompt plus at most one page image and returns the raw
// response text. Quota failures surface as errors recognized by
// llm.IsRateLimitError; content-shaped problems are left to the decoder.
func (c *Client) Call(ctx context.Context, cred credentials.Credential, req llm.CallRequest) (string, error) {
	client, err := c.clientFor(ctx, cred)
	if err != nil {
		return "", err
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if req.Image != nil {
		data, err := base64.StdEncoding.DecodeString(req.Image.Base64Data)
		if err != nil {
			return "", fmt.Errorf("decode image payload: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, req.Image.MIMEType))
	}
	contents := []*genai.Content{{Role: genai.RoleUser, Parts: parts}}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(req.Settings.Temperature),
		TopK:        genai.Ptr(req.Settings.TopK),
		TopP:        genai.Ptr(req.Settings.TopP),
	}
	if req.Settings.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.Settings.MaxTokens)
	}

	start := time.Now()
	resp, err := client.Models.GenerateContent(timeoutCtx, c.cfg.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	// Iterate candidates until non-empty text is found.
	var response strings.Builder
	if resp != nil && len(resp.Candidates) > 0 {
		for _, candidate := range resp.Candidates {
			if candidate.Content == nil {
				continue
			}
			for _, part := range candidate.Content.Parts {
				if part.Text != "" {
					response.WriteString(part.Text)
				}
			}
			if response.Len() > 0 {
				break
			}
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from model")
	}

	c.logger.Debug("gemini.call.ok",
		"model", c.cfg.Model,
		"prompt_bytes", len(req.Prompt),
		"response_bytes", response.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return response.String(), nil
}
