package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"github.com/grumpified/researchwire/internal/ports"
)

// CohereBackend serves enhancement requests through the Cohere Chat API.
type CohereBackend struct {
	client *cohereclient.Client
	model  string
}

var _ ports.Backend = (*CohereBackend)(nil)

// NewCohereBackend builds a client for the given API key and model.
func NewCohereBackend(apiKey, model string) *CohereBackend {
	httpClient := &http.Client{Timeout: 60 * time.Second}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	if model == "" {
		model = "command-r-plus"
	}
	return &CohereBackend{client: client, model: model}
}

// Name identifies the backend inside the fallback chain.
func (c *CohereBackend) Name() string {
	return "cohere"
}

// Complete issues one chat request and returns the generated text.
func (c *CohereBackend) Complete(ctx context.Context, req ports.BackendRequest) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("cohere client is nil")
	}

	resp, err := c.client.Chat(ctx, &cohere.ChatRequest{
		Message:     req.UserContent,
		Model:       &c.model,
		Preamble:    &req.SystemPrompt,
		Temperature: &req.Temperature,
		MaxTokens:   &req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("cohere chat returned empty response")
	}

	return resp.Text, nil
}
