// Package llmclient wraps the external LLM/embedding provider as an opaque
// service: callers get chat completions and embedding vectors without
// knowing which provider backs them. Every call is rate-gated and retried
// with exponential backoff.
package llmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wisbric/scoutwell/pkg/ratecontrol"
)

// Client calls the chat-completion and embedding endpoints of an
// OpenAI-compatible LLM provider.
type Client struct {
	http           *resty.Client
	chatModel      string
	embedModel     string
	requestsPerMin *ratecontrol.Gate
	tokensPerMin   *ratecontrol.Gate
	retryAttempts  int
	retryDelay     time.Duration
}

func New(baseURL, apiKey, chatModel, embedModel string, requestsPerMin, tokensPerMin *ratecontrol.Gate, retryAttempts int, retryDelay time.Duration) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(apiKey).
		SetTimeout(30 * time.Second)

	return &Client{
		http:           c,
		chatModel:      chatModel,
		embedModel:     embedModel,
		requestsPerMin: requestsPerMin,
		tokensPerMin:   tokensPerMin,
		retryAttempts:  retryAttempts,
		retryDelay:     retryDelay,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// ChatResult is the raw JSON verdict plus token accounting, left for the
// caller to json.Unmarshal into a stage-specific shape; stage-level parse
// failures fall back to stage-specific defaults rather than failing here.
type ChatResult struct {
	Content     string
	TokensUsed int
}

// ChatJSON issues a chat completion constrained to JSON output.
func (c *Client) ChatJSON(ctx context.Context, systemPrompt, userPrompt string) (ChatResult, error) {
	if err := c.requestsPerMin.Wait(ctx); err != nil {
		return ChatResult{}, fmt.Errorf("waiting on requests-per-minute gate: %w", err)
	}

	req := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	req.ResponseFormat.Type = "json_object"

	var result chatResponse
	err := c.withRetry(ctx, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&result).
			Post("/chat/completions")
		if err != nil {
			return fmt.Errorf("calling chat completions: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("chat completions returned HTTP %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return ChatResult{}, err
	}

	if err := c.tokensPerMin.WaitN(ctx, result.Usage.TotalTokens); err != nil {
		return ChatResult{}, fmt.Errorf("waiting on tokens-per-minute gate: %w", err)
	}

	if len(result.Choices) == 0 {
		return ChatResult{}, fmt.Errorf("chat completions returned no choices")
	}

	return ChatResult{
		Content:    result.Choices[0].Message.Content,
		TokensUsed: result.Usage.TotalTokens,
	}, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed returns a fixed-dimension embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, int, error) {
	if err := c.requestsPerMin.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("waiting on requests-per-minute gate: %w", err)
	}

	var result embeddingResponse
	err := c.withRetry(ctx, func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(embeddingRequest{Model: c.embedModel, Input: text}).
			SetResult(&result).
			Post("/embeddings")
		if err != nil {
			return fmt.Errorf("calling embeddings: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("embeddings returned HTTP %d", resp.StatusCode())
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	if err := c.tokensPerMin.WaitN(ctx, result.Usage.TotalTokens); err != nil {
		return nil, 0, fmt.Errorf("waiting on tokens-per-minute gate: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, 0, fmt.Errorf("embeddings returned no data")
	}
	return result.Data[0].Embedding, result.Usage.TotalTokens, nil
}

// withRetry retries fn up to retryAttempts times with exponential backoff
// (delay * 2^attempt).
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}

		backoff := time.Duration(float64(c.retryDelay) * math.Pow(2, float64(attempt)))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("exhausted %d retry attempts: %w", c.retryAttempts, lastErr)
}

// DecodeVerdict unmarshals a JSON verdict, reporting whether parsing
// succeeded so callers can fall back to stage-specific defaults rather than
// failing the stage.
func DecodeVerdict(content string, v any) bool {
	return json.Unmarshal([]byte(content), v) == nil
}
