/**
 * PostgreSQL Client for the Annotation Worker
 *
 * Handles document records, per-type annotation status rows, and token cost
 * accounting. All tables live in the annotation schema.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/adverant/nexus/annotation-worker/internal/annotate"
	"github.com/adverant/nexus/annotation-worker/internal/llm"
)

// PostgresClient handles database operations
type PostgresClient struct {
	db *sql.DB
}

// DocumentRecord is one uploaded document's catalog row
type DocumentRecord struct {
	DocumentID      string
	UserID          string
	Filename        string
	Extension       string
	DocumentType    string
	PageCount       int
	MachineReadable bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewPostgresClient creates a new PostgreSQL client
func NewPostgresClient(databaseURL string) (*PostgresClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresClient{db: db}, nil
}

// UpsertDocument creates or refreshes a document catalog row
func (p *PostgresClient) UpsertDocument(ctx context.Context, doc *DocumentRecord) error {
	if doc.DocumentID == "" {
		return fmt.Errorf("document ID is required")
	}
	if doc.UserID == "" {
		return fmt.Errorf("user ID is required")
	}

	query := `
		INSERT INTO annotation.documents (
			document_id, user_id, filename, extension, document_type,
			page_count, machine_readable, created_at, updated_at
		) VALUES (
			$1, $2, COALESCE(NULLIF($3, ''), 'unknown'), $4, $5,
			$6, $7, NOW(), NOW()
		)
		ON CONFLICT (document_id) DO UPDATE SET
			filename = COALESCE(NULLIF(EXCLUDED.filename, ''), annotation.documents.filename),
			extension = COALESCE(NULLIF(EXCLUDED.extension, ''), annotation.documents.extension),
			document_type = COALESCE(NULLIF(EXCLUDED.document_type, ''), annotation.documents.document_type),
			page_count = CASE WHEN EXCLUDED.page_count > 0 THEN EXCLUDED.page_count ELSE annotation.documents.page_count END,
			machine_readable = EXCLUDED.machine_readable,
			updated_at = NOW()
	`

	_, err := p.db.ExecContext(ctx, query,
		doc.DocumentID,
		doc.UserID,
		doc.Filename,
		doc.Extension,
		doc.DocumentType,
		doc.PageCount,
		doc.MachineReadable,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert document %s: %w", doc.DocumentID, err)
	}
	return nil
}

// GetDocument retrieves a document catalog row scoped to its owner
func (p *PostgresClient) GetDocument(ctx context.Context, userID, documentID string) (*DocumentRecord, error) {
	query := `
		SELECT document_id, user_id, filename, extension, document_type,
		       page_count, machine_readable, created_at, updated_at
		FROM annotation.documents
		WHERE document_id = $1 AND user_id = $2
	`

	var doc DocumentRecord
	err := p.db.QueryRowContext(ctx, query, documentID, userID).Scan(
		&doc.DocumentID, &doc.UserID, &doc.Filename, &doc.Extension,
		&doc.DocumentType, &doc.PageCount, &doc.MachineReadable,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document not found: %s", documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &doc, nil
}

// SetStatus upserts one (document, annotation type) status row. created_at is
// set on first insert only; readers use it for staleness reclassification.
func (p *PostgresClient) SetStatus(ctx context.Context, documentID string, annotationType annotate.Type, status annotate.Status) error {
	if documentID == "" {
		return fmt.Errorf("document ID is required")
	}

	query := `
		INSERT INTO annotation.annotation_status (
			document_id, annotation_type, status, created_at, updated_at
		) VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (document_id, annotation_type) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW()
	`

	_, err := p.db.ExecContext(ctx, query, documentID, string(annotationType), string(status))
	if err != nil {
		return fmt.Errorf("failed to set status (document=%s, type=%s, status=%s): %w",
			documentID, annotationType, status, err)
	}
	return nil
}

// GetStatusRows reads all annotation status rows of a document. Statuses are
// returned as stored; staleness reclassification happens at the call site.
func (p *PostgresClient) GetStatusRows(ctx context.Context, documentID string) ([]annotate.StatusRow, error) {
	query := `
		SELECT annotation_type, status, created_at
		FROM annotation.annotation_status
		WHERE document_id = $1
		ORDER BY annotation_type
	`

	rows, err := p.db.QueryContext(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to read status rows: %w", err)
	}
	defer rows.Close()

	var out []annotate.StatusRow
	for rows.Next() {
		var rawType, rawStatus string
		var createdAt time.Time
		if err := rows.Scan(&rawType, &rawStatus, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %w", err)
		}
		annotationType := annotate.ParseType(rawType)
		out = append(out, annotate.StatusRow{
			Type:      annotationType,
			Status:    annotate.Status(rawStatus),
			CreatedAt: createdAt,
			IsInsight: annotate.CategoryOf(annotationType) != annotate.CategoryBasic,
		})
	}
	return out, rows.Err()
}

// InsertCostRecords stores one usage row per (query, model)
func (p *PostgresClient) InsertCostRecords(ctx context.Context, userID string, records []llm.CostRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO annotation.chat_costs (
			id, user_id, document_id, query_id, model_name,
			prompt_tokens, completion_tokens, total_tokens, total_amount, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`

	for _, record := range records {
		_, err := p.db.ExecContext(ctx, query,
			uuid.NewString(),
			userID,
			record.DocumentID,
			record.QueryID,
			record.Model,
			record.PromptTokens,
			record.CompletionTokens,
			record.PromptTokens+record.CompletionTokens,
			record.Cost,
		)
		if err != nil {
			return fmt.Errorf("failed to insert cost record (query=%s, model=%s): %w",
				record.QueryID, record.Model, err)
		}
	}
	return nil
}

// Ping checks database connectivity
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresClient) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}

// GetStats returns connection pool statistics
func (p *PostgresClient) GetStats() sql.DBStats {
	return p.db.Stats()
}
