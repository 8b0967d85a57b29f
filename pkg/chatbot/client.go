package chatbot

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults matching the public API contract.
const (
	DefaultModel       = "gpt-4o-mini"
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// Client is a thin passthrough to the OpenAI chat completion API. No prompt
// shaping happens here; callers own the conversation.
type Client struct {
	api   *openai.Client
	model string
}

func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: openai.NewClient(apiKey), model: model}
}

func (c *Client) Model() string { return c.model }

// Complete forwards the conversation and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("at least one message is required")
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from completion API")
	}
	return resp.Choices[0].Message.Content, nil
}

// IsRateLimitError classifies upstream quota errors so the handler can map
// them to 429 instead of a generic 500.
func IsRateLimitError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "rate_limit")
}

// IsAuthError classifies upstream credential errors.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "authentication") || strings.Contains(s, "api_key") || strings.Contains(s, "api key")
}
