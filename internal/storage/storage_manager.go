/**
 * Storage Manager for the Annotation Worker
 *
 * Coordinates PostgreSQL (catalog, status, costs), Qdrant (span vectors), and
 * object storage (digests, OCR pages, chat blobs) behind one surface. Span
 * indexing deletes the document's existing points before upserting, so
 * re-extraction never leaves stale vectors behind.
 */

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/adverant/nexus/annotation-worker/internal/annotate"
	"github.com/adverant/nexus/annotation-worker/internal/document"
	"github.com/adverant/nexus/annotation-worker/internal/llm"
)

// Manager bundles the worker's storage backends
type Manager struct {
	postgres *PostgresClient
	qdrant   *QdrantClient
	store    *AnnotationStore
}

// NewManager creates a storage manager over the given backends
func NewManager(postgresURL, qdrantAddress, qdrantCollection string, blob Blob, buckets Buckets) (*Manager, error) {
	postgres, err := NewPostgresClient(postgresURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
	}

	qdrant, err := NewQdrantClient(qdrantAddress, qdrantCollection)
	if err != nil {
		postgres.Close()
		return nil, fmt.Errorf("failed to initialize Qdrant client: %w", err)
	}

	return &Manager{
		postgres: postgres,
		qdrant:   qdrant,
		store:    NewAnnotationStore(blob, buckets),
	}, nil
}

// Postgres exposes the catalog/status/cost backend
func (m *Manager) Postgres() *PostgresClient {
	return m.postgres
}

// Store exposes the blob-backed annotation store
func (m *Manager) Store() *AnnotationStore {
	return m.store
}

// Vectors exposes the span vector index
func (m *Manager) Vectors() *QdrantClient {
	return m.qdrant
}

// IndexSpans stores one embedding per span. Existing points of the document
// are removed first so re-extraction never leaves stale vectors behind.
func (m *Manager) IndexSpans(ctx context.Context, documentID string, spans []document.Span, vectors [][]float32) error {
	if len(spans) != len(vectors) {
		return fmt.Errorf("span/vector count mismatch: %d spans, %d vectors", len(spans), len(vectors))
	}
	if len(spans) == 0 {
		return nil
	}

	if err := m.qdrant.DeleteDocumentSpans(ctx, documentID); err != nil {
		return fmt.Errorf("failed to clear previous span vectors: %w", err)
	}

	points := make([]*SpanPoint, 0, len(spans))
	for i, span := range spans {
		if !span.Clean() {
			continue
		}
		points = append(points, &SpanPoint{
			ID:         uuid.NewString(),
			Vector:     vectors[i],
			DocumentID: documentID,
			Page:       span.PageNumber,
			Block:      span.BlockNumber,
			SpanID:     span.ID,
			Text:       span.Text,
		})
	}

	if err := m.qdrant.UpsertSpanPoints(ctx, points); err != nil {
		return fmt.Errorf("failed to index spans: %w", err)
	}
	return nil
}

// Progress reads a document's status rows and folds them into progress
// counters, applying the staleness window
func (m *Manager) Progress(ctx context.Context, documentID string, window time.Duration) (annotate.Progress, error) {
	rows, err := m.postgres.GetStatusRows(ctx, documentID)
	if err != nil {
		return annotate.Progress{}, err
	}
	return annotate.ComputeProgress(rows, time.Now(), window), nil
}

// EffectiveStatuses returns the per-type statuses as readers should see
// them, with stale non-terminal rows reported as timed out
func (m *Manager) EffectiveStatuses(ctx context.Context, documentID string, window time.Duration) (map[annotate.Type]annotate.Status, error) {
	rows, err := m.postgres.GetStatusRows(ctx, documentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make(map[annotate.Type]annotate.Status, len(rows))
	for _, row := range rows {
		out[row.Type] = annotate.EffectiveStatus(row.Status, row.CreatedAt, now, window)
	}
	return out, nil
}

// InsertCostRecords forwards usage rows to PostgreSQL
func (m *Manager) InsertCostRecords(ctx context.Context, userID string, records []llm.CostRecord) error {
	return m.postgres.InsertCostRecords(ctx, userID, records)
}

// GetStats returns statistics from the database backends
func (m *Manager) GetStats(ctx context.Context) (map[string]interface{}, error) {
	pgStats := m.postgres.GetStats()

	qdrantStats, err := m.qdrant.GetCollectionInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get Qdrant stats: %w", err)
	}

	return map[string]interface{}{
		"postgres": map[string]interface{}{
			"max_open_connections": pgStats.MaxOpenConnections,
			"open_connections":     pgStats.OpenConnections,
			"in_use":               pgStats.InUse,
			"idle":                 pgStats.Idle,
			"wait_count":           pgStats.WaitCount,
			"wait_duration":        pgStats.WaitDuration.String(),
		},
		"qdrant": qdrantStats,
	}, nil
}

// Close closes all connections
func (m *Manager) Close() error {
	var pgErr, qdErr error

	if m.postgres != nil {
		pgErr = m.postgres.Close()
	}
	if m.qdrant != nil {
		qdErr = m.qdrant.Close()
	}

	if pgErr != nil {
		return fmt.Errorf("failed to close PostgreSQL: %w", pgErr)
	}
	if qdErr != nil {
		return fmt.Errorf("failed to close Qdrant: %w", qdErr)
	}
	return nil
}
