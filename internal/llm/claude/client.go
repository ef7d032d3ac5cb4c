// Package claude implements llm.ModelCaller against the Anthropic API.
package claude

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/adewale-ajadi/exam-extractor/internal/credentials"
	"github.com/adewale-ajadi/exam-extractor/internal/llm"
)

const defaultModel = "claude-sonnet-4-20250514"

type Config struct {
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client issues vision calls to Claude, one SDK client per credential.
type Client struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	clients map[credentials.Credential]anthropic.Client
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	return &Client{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[credentials.Credential]anthropic.Client),
	}
}

func (c *Client) clientFor(cred credentials.Credential) anthropic.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[cred]; ok {
		return client
	}
	client := anthropic.NewClient(option.WithAPIKey(string(cred)))
	c.clients[cred] = client
	return client
}

// Call sends one prompt plus at most one page image and returns the raw
// response text.
func (c *Client) Call(ctx context.Context, cred credentials.Credential, req llm.CallRequest) (string, error) {
	client := c.clientFor(cred)

	timeoutCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	blocks := []anthropic.ContentBlockParamUnion{
		anthropic.NewTextBlock(req.Prompt),
	}
	if req.Image != nil {
		blocks = append(blocks, anthropic.NewImageBlockBase64(req.Image.MIMEType, req.Image.Base64Data))
	}

	maxTokens := c.cfg.MaxTokens
	if req.Settings.MaxTokens > 0 {
		maxTokens = req.Settings.MaxTokens
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.cfg.Model),
		MaxTokens: int64(maxTokens),
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	}
	if req.Settings.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(req.Settings.Temperature))
	}
	if req.Settings.TopK > 0 {
		params.TopK = anthropic.Int(int64(req.Settings.TopK))
	}
	if req.Settings.TopP > 0 {
		params.TopP = anthropic.Float(float64(req.Settings.TopP))
	}

	start := time.Now()
	resp, err := client.Messages.New(timeoutCtx, params)
	if err != nil {
		return "", fmt.Errorf("claude message: %w", err)
	}

	var response strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			response.WriteString(block.Text)
		}
	}
	if response.Len() == 0 {
		return "", fmt.Errorf("no response generated from model")
	}

	c.logger.Debug("claude.call.ok",
		"model", c.cfg.Model,
		"prompt_bytes", len(req.Prompt),
		"response_bytes", response.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return response.String(), nil
}
