package menugen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fitmenuai/fitmenu/internal/pkg/env"
)

const maxResponseBytes = 1 << 20

// ErrNotConfigured is returned when the Azure OpenAI credentials are absent.
var ErrNotConfigured = errors.New("azure openai is not configured")

// Generator produces a menu from an ingredient list. The HTTP client below is
// the production implementation; handlers accept the interface so tests can
// substitute a canned one.
type Generator interface {
	GenerateMenu(ctx context.Context, ingredients string) (*Menu, error)
}

// Client talks to an Azure OpenAI chat-completions deployment.
type Client struct {
	Endpoint   string
	Deployment string
	APIVersion string
	APIKey     string

	HTTPClient *http.Client
}

// NewClientFromEnv builds the client from AZURE_OPENAI_* variables. Returns
// ErrNotConfigured when any required variable is missing so the caller can
// answer with a configuration error instead of a cryptic network failure.
func NewClientFromEnv() (*Client, error) {
	c := &Client{
		Endpoint:   strings.TrimRight(strings.TrimSpace(env.GetEnv("AZURE_OPENAI_ENDPOINT", "")), "/"),
		Deployment: strings.TrimSpace(env.GetEnv("AZURE_OPENAI_DEPLOYMENT_NAME", "")),
		APIVersion: strings.TrimSpace(env.GetEnv("AZURE_OPENAI_VERSION", "2024-02-01")),
		APIKey:     strings.TrimSpace(env.GetEnv("AZURE_OPENAI_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
	if c.Endpoint == "" || c.Deployment == "" || c.APIKey == "" {
		return nil, ErrNotConfigured
	}
	return c, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GenerateMenu asks the deployment for a menu built from the given
// ingredients and parses the reply strictly.
func (c *Client) GenerateMenu(ctx context.Context, ingredients string) (*Menu, error) {
	body, err := json.Marshal(chatRequest{
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(ingredients)},
		},
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		c.Endpoint, c.Deployment, c.APIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("azure openai request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read azure openai response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("azure openai returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode azure openai response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("azure openai error %s: %s", parsed.Error.Code, parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, errors.New("azure openai returned no completion")
	}

	return parseMenu(parsed.Choices[0].Message.Content)
}
