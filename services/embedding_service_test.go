package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbnow/tbnow-back/models"
)

func TestOllamaEmbedderEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req models.OllamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text:v1.5", req.Model)
		assert.Equal(t, "Apa gejala TB?", req.Prompt)

		json.NewEncoder(w).Encode(models.OllamaEmbedResponse{
			Embedding: []float32{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(server.Client(), server.URL, "nomic-embed-text:v1.5")
	assert.Equal(t, "nomic-embed-text:v1.5", embedder.Model())

	vec, err := embedder.Embed(context.Background(), "Apa gejala TB?")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestOllamaEmbedderNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(server.Client(), server.URL, "nomic-embed-text:v1.5")
	_, err := embedder.Embed(context.Background(), "Apa gejala TB?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestOllamaEmbedderEmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(models.OllamaEmbedResponse{})
	}))
	defer server.Close()

	embedder := NewOllamaEmbedder(server.Client(), server.URL, "nomic-embed-text:v1.5")
	_, err := embedder.Embed(context.Background(), "Apa gejala TB?")
	assert.Error(t, err)
}
