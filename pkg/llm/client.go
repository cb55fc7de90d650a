// Package llm wraps the OpenAI-compatible chat completion API with the two
// call shapes this service needs: a structured completion constrained by a
// JSON schema, and a plain free-text completion.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Every LLM call gets its own deadline so one slow completion cannot hang a
// request past the transport's patience.
const callTimeout = 10 * time.Second

// Client talks to one OpenAI-compatible endpoint with a fixed model.
type Client struct {
	oai   *openai.Client
	model string
}

// NewClient builds a client for the given API key and model. apiURL
// overrides the endpoint for self-hosted or proxied backends; leave it
// empty for the default.
func NewClient(apiKey, apiURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	if apiURL != "" {
		config.BaseURL = apiURL
	}
	return &Client{
		oai:   openai.NewClientWithConfig(config),
		model: model,
	}
}

// GenerateTypedJSON performs one structured completion constrained by
// schema and unmarshals the result into out. Low temperature keeps the
// extraction stable across calls.
func (c *Client) GenerateTypedJSON(ctx context.Context, system, user, name string, schema jsonschema.Definition, out any) error {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.oai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   name,
				Schema: &schema,
				Strict: true,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("structured completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("structured completion: empty response")
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("structured completion: decode %s: %w", name, err)
	}
	return nil
}

// Complete performs one free-text completion and returns the prose.
func (c *Client) Complete(ctx context.Context, system, user string, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	resp, err := c.oai.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("completion: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}
