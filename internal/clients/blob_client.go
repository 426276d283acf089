/**
 * Blob Client for the Annotation Worker
 *
 * Reads and writes document artifacts through the Nexus object storage API:
 * uploaded originals, per-page OCR results, annotation digests, and chat
 * context/history blobs. Buckets separate the concerns; keys are owned by
 * the storage layer.
 *
 * The API also issues presigned download URLs, which the worker hands to
 * vision-capable models so they can fetch page images directly.
 */

package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// BlobClient handles object storage operations via the storage API
type BlobClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewBlobClient creates a new blob client
func NewBlobClient(baseURL string) *BlobClient {
	return &BlobClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 300 * time.Second, // large uploads
		},
	}
}

// HealthCheck verifies the storage API is available
func (c *BlobClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("storage service health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("storage service health check returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// PutObject uploads an object under the given bucket and key
func (c *BlobClient) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if bucket == "" || key == "" {
		return fmt.Errorf("bucket and key are required")
	}
	if len(data) == 0 {
		return fmt.Errorf("object data is required: received empty buffer")
	}

	req, err := http.NewRequestWithContext(ctx, "PUT", c.objectURL(bucket, key), bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("object upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("object upload returned HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// GetObject downloads an object
func (c *BlobClient) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("bucket and key are required")
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.objectURL(bucket, key), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("object download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("object not found: %s/%s", bucket, key)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("object download returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	return io.ReadAll(resp.Body)
}

// PresignURL returns a time-limited public download URL for an object
func (c *BlobClient) PresignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key are required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	presignURL := fmt.Sprintf("%s/presign?ttl=%d", c.objectURL(bucket, key), int(ttl.Seconds()))
	req, err := http.NewRequestWithContext(ctx, "GET", presignURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create presign request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("presign request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("presign returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		Success bool   `json:"success"`
		URL     string `json:"url"`
		Error   string `json:"error,omitempty"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse presign response: %w", err)
	}
	if !result.Success || result.URL == "" {
		return "", fmt.Errorf("presign returned success=false: %s", result.Error)
	}
	return result.URL, nil
}

func (c *BlobClient) objectURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/api/objects/%s/%s",
		c.baseURL, url.PathEscape(bucket), url.PathEscape(key))
}
