package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/tbnow/tbnow-back/models"
)

// Embedder turns text into a dense vector. The same implementation (and the
// same model) must be used at index-build time and at query time; the model
// identity is persisted alongside the index so a mismatch is caught on load.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ollamaEmbedder calls a local Ollama server for embeddings.
type ollamaEmbedder struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

// NewOllamaEmbedder creates an Embedder backed by the Ollama embeddings API.
func NewOllamaEmbedder(client *http.Client, baseURL, model string) Embedder {
	return &ollamaEmbedder{
		httpClient: client,
		baseURL:    baseURL,
		model:      model,
	}
}

func (e *ollamaEmbedder) Model() string {
	return e.model
}

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(models.OllamaEmbedRequest{
		Model:  e.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embeddings", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call ollama embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama api returned non-200 status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var ollamaResp models.OllamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&ollamaResp); err != nil {
		return nil, fmt.Errorf("failed to decode ollama response: %w", err)
	}
	if len(ollamaResp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding for model %s", e.model)
	}
	return ollamaResp.Embedding, nil
}
