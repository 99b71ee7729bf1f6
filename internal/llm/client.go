package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls a chat-completions endpoint (OpenRouter-compatible) to
// generate reply text from a prompt plus retrieved context.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// Config for the LLM client
type Config struct {
	BaseURL string
	APIKey  string
	Model   string // optional; empty uses the account default
}

// NewClient creates a new chat-completions client
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Enabled reports whether the client is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != "" && c.baseURL != ""
}

// Complete sends the prompt with the context snippets and returns the
// generated text.
func (c *Client) Complete(ctx context.Context, prompt string, contextSnippets []string) (string, error) {
	if !c.Enabled() {
		return "", fmt.Errorf("llm client not configured")
	}

	content := prompt
	if len(contextSnippets) > 0 {
		content = fmt.Sprintf("Context:\n%s\n\n%s", strings.Join(contextSnippets, "\n"), prompt)
	}

	reqBody := map[string]interface{}{
		"messages": []map[string]string{
			{"role": "user", "content": content},
		},
	}
	if c.model != "" {
		reqBody["model"] = c.model
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("failed to parse API response: %w", err)
	}
	if len(apiResp.Choices) == 0 {
		return "", fmt.Errorf("no response from LLM")
	}

	text := strings.TrimSpace(apiResp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("empty response from LLM")
	}
	return text, nil
}
