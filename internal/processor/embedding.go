/**
 * Embedding Client for the Annotation Worker
 *
 * Generates VoyageAI voyage-3 embeddings (1024 dimensions) for span
 * indexing. Batch calls are chunked at the API limit and fall back to
 * per-text requests when a batch fails.
 */

package processor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

const (
	embeddingModel      = "voyage-3"
	embeddingDimensions = 1024
	embeddingBatchSize  = 100
	// rough guard against the provider's token limit
	embeddingMaxChars = 16000
)

// EmbeddingClient handles VoyageAI embedding generation
type EmbeddingClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *logging.Logger
}

type voyageEmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type voyageEmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// NewEmbeddingClient creates a new embedding client
func NewEmbeddingClient(apiKey string) (*EmbeddingClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("VoyageAI API key is required")
	}

	return &EmbeddingClient{
		apiKey:  apiKey,
		baseURL: "https://api.voyageai.com/v1/embeddings",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logging.NewLogger("embeddings"),
	}, nil
}

// GenerateEmbedding generates a single embedding
func (e *EmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text is required")
	}
	embeddings, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// GenerateEmbeddingBatch generates embeddings for multiple texts, chunked at
// the provider's batch limit. A failed batch falls back to per-text calls so
// one oversized or malformed text doesn't sink the whole document.
func (e *EmbeddingClient) GenerateEmbeddingBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	allEmbeddings := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += embeddingBatchSize {
		end := min(i+embeddingBatchSize, len(texts))
		batch := texts[i:end]

		batchEmbeddings, err := e.request(ctx, batch)
		if err != nil {
			e.logger.Warn("Batch embedding failed, falling back to per-text calls",
				"from", i, "to", end-1, "error", err)
			for j, text := range batch {
				embedding, err := e.GenerateEmbedding(ctx, text)
				if err != nil {
					return nil, fmt.Errorf("failed to embed text %d: %w", i+j, err)
				}
				allEmbeddings = append(allEmbeddings, embedding)
			}
			continue
		}
		allEmbeddings = append(allEmbeddings, batchEmbeddings...)
	}

	e.logger.Info("Embeddings generated", "count", len(allEmbeddings))
	return allEmbeddings, nil
}

// request makes one embeddings API call and returns the vectors in input
// order
func (e *EmbeddingClient) request(ctx context.Context, texts []string) ([][]float32, error) {
	truncated := make([]string, len(texts))
	for i, text := range texts {
		if len(text) > embeddingMaxChars {
			e.logger.Warn("Truncating oversized text", "index", i, "chars", len(text))
			text = text[:embeddingMaxChars]
		}
		truncated[i] = text
	}

	body, err := json.Marshal(voyageEmbeddingRequest{Input: truncated, Model: embeddingModel})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", e.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedding response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("VoyageAI API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var voyageResp voyageEmbeddingResponse
	if err := json.Unmarshal(respBody, &voyageResp); err != nil {
		return nil, fmt.Errorf("failed to parse embedding response: %w", err)
	}
	if len(voyageResp.Data) != len(texts) {
		return nil, fmt.Errorf("unexpected number of embeddings: got %d, expected %d",
			len(voyageResp.Data), len(texts))
	}

	embeddings := make([][]float32, len(texts))
	for _, data := range voyageResp.Data {
		if data.Index < 0 || data.Index >= len(texts) {
			return nil, fmt.Errorf("invalid embedding index: %d", data.Index)
		}
		if len(data.Embedding) != embeddingDimensions {
			return nil, fmt.Errorf("unexpected embedding dimensions for text %d: got %d, expected %d",
				data.Index, len(data.Embedding), embeddingDimensions)
		}
		embeddings[data.Index] = data.Embedding
	}
	return embeddings, nil
}
