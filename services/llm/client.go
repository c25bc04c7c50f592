package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/archview/archview/resolve"
)

// ErrAPIKeyMissing indicates the OpenAI API key was not found in the environment.
var ErrAPIKeyMissing = errors.New("OpenAI API key not found in environment variable OPENAI_API_KEY")

// StructuredResponse is the parsed object returned in structured-output mode:
// the model separates the explanation, the diagram source and the node
// metadata itself, so no extraction stage is needed downstream.
type StructuredResponse struct {
	Explanation   string               `json:"explanation"`
	DiagramSource string               `json:"diagramSource"`
	NodeDetails   []resolve.NodeRecord `json:"nodeDetails"`
}

// Client defines the interface for the generative-model collaborator.
type Client interface {
	// GenerateDiagram sends a prompt and returns the raw text response,
	// typically prose plus a fenced diagram block.
	GenerateDiagram(ctx context.Context, prompt string) (string, error)
	// GenerateDiagramStructured requests a JSON object response with the
	// explanation, diagram source and node details already separated.
	GenerateDiagramStructured(ctx context.Context, prompt string) (*StructuredResponse, error)
}

// openaiClient implements Client using the OpenAI API.
type openaiClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient creates a new client for interacting with the OpenAI API.
// It reads the API key from the OPENAI_API_KEY environment variable and the
// model name from OPENAI_MODEL (defaulting to gpt-4o).
func NewOpenAIClient() (Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		slog.Error("OpenAI API key missing")
		return nil, ErrAPIKeyMissing
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = openai.GPT4o
		slog.Info("OPENAI_MODEL not set, defaulting", "model", model)
	} else {
		slog.Info("Using OpenAI model from environment", "model", model)
	}

	return &openaiClient{
		client: openai.NewClient(apiKey),
		model:  model,
	}, nil
}

const systemPrompt = "You are an expert software architect. You describe system " +
	"architectures as Mermaid flowchart diagrams with concise per-component metadata."

// GenerateDiagram implements the Client interface for OpenAI.
func (c *openaiClient) GenerateDiagram(ctx context.Context, prompt string) (string, error) {
	slog.Debug("Sending diagram query to OpenAI", "model", c.model, "prompt_length", len(prompt))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return "", fmt.Errorf("LLM API request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("OpenAI response missing choices or content")
		return "", errors.New("LLM returned empty response")
	}

	content := resp.Choices[0].Message.Content
	slog.Debug("Received response from OpenAI", "response_length", len(content))
	return content, nil
}

// GenerateDiagramStructured implements the Client interface for OpenAI using
// JSON-object response formatting.
func (c *openaiClient) GenerateDiagramStructured(ctx context.Context, prompt string) (*StructuredResponse, error) {
	slog.Debug("Sending structured diagram query to OpenAI", "model", c.model, "prompt_length", len(prompt))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		slog.Error("OpenAI API call failed", "error", err)
		return nil, fmt.Errorf("LLM API request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("OpenAI response missing choices or content")
		return nil, errors.New("LLM returned empty response")
	}

	var out StructuredResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &out); err != nil {
		slog.Error("Structured LLM response is not valid JSON", "error", err)
		return nil, fmt.Errorf("LLM returned malformed structured response: %w", err)
	}
	return &out, nil
}

// --- Mock Client for Testing ---

// MockClient provides a mock implementation for testing purposes.
type MockClient struct {
	GenerateFunc     func(ctx context.Context, prompt string) (string, error)
	StructuredFunc   func(ctx context.Context, prompt string) (*StructuredResponse, error)
	ResponseToReturn string
	StructuredResult *StructuredResponse
	ErrorToReturn    error
	ReceivedPrompt   string // Store the received prompt for assertion
}

// GenerateDiagram implements the Client interface for the mock.
func (m *MockClient) GenerateDiagram(ctx context.Context, prompt string) (string, error) {
	m.ReceivedPrompt = prompt
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	if m.ErrorToReturn != nil {
		return "", m.ErrorToReturn
	}
	return m.ResponseToReturn, nil
}

// GenerateDiagramStructured implements the Client interface for the mock.
func (m *MockClient) GenerateDiagramStructured(ctx context.Context, prompt string) (*StructuredResponse, error) {
	m.ReceivedPrompt = prompt
	if m.StructuredFunc != nil {
		return m.StructuredFunc(ctx, prompt)
	}
	if m.ErrorToReturn != nil {
		return nil, m.ErrorToReturn
	}
	return m.StructuredResult, nil
}
