// ABOUTME: OpenAI-compatible chat completions client with SSE streaming
// ABOUTME: Implements Generator against any backend speaking the completions wire format

package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal OpenAI-compatible chat completions client.
type Client struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a generation backend client. The url must point at a
// chat-completions endpoint; any OpenAI-compatible server works.
func NewClient(apiKey, url, model string, timeout time.Duration) *Client {
	return &Client{
		apiKey: apiKey,
		url:    url,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: slog.Default().With("component", "llm"),
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float32   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func (c *Client) newRequest(ctx context.Context, body chatRequest) (*http.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// Stream sends a streaming completion request and returns a channel of text
// fragments. The channel is closed when the backend finishes; a mid-stream
// backend failure is delivered as a terminal chunk with Err set.
func (c *Client) Stream(ctx context.Context, history []Message) (<-chan Chunk, error) {
	req, err := c.newRequest(ctx, chatRequest{
		Model:       c.model,
		Messages:    history,
		Temperature: 0.2,
		Stream:      true,
	})
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		resp.Body.Close()
		return nil, fmt.Errorf("backend non-success status=%d body=%s", resp.StatusCode, string(body))
	}

	out := make(chan Chunk, 16)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "" {
				continue
			}
			if data == "[DONE]" {
				return
			}

			var chunk streamChunk
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				c.logger.Warn("skipping unparseable stream chunk", "error", err)
				continue
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			text := chunk.Choices[0].Delta.Content
			if text == "" {
				continue
			}

			select {
			case out <- Chunk{Text: text}:
			case <-ctx.Done():
				return
			}
		}

		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			out <- Chunk{Err: fmt.Errorf("reading backend stream: %w", err)}
		}
	}()

	return out, nil
}

// complete sends a non-streaming completion request and returns the content.
func (c *Client) complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	req, err := c.newRequest(ctx, chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("backend non-success status=%d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing backend response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("backend returned no choices")
	}

	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}

const titlePrompt = `Return ONLY valid JSON like {"title":"..."}.
Rules: short title, max 3 words.
Query:
%s
`

// Title asks the backend for a compact chat title. Any failure (transport,
// parse, empty result) falls back to DefaultTitle.
func (c *Client) Title(ctx context.Context, query string) string {
	content, err := c.complete(ctx, []Message{
		{Role: RoleUser, Content: fmt.Sprintf(titlePrompt, query)},
	}, 0)
	if err != nil {
		c.logger.Warn("title generation failed, using default", "error", err)
		return DefaultTitle
	}

	var data struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return DefaultTitle
	}

	title := strings.TrimSpace(data.Title)
	if title == "" {
		return DefaultTitle
	}
	return title
}
