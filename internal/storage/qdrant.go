/**
 * Qdrant Vector Database Client for the Annotation Worker
 *
 * Stores one embedding per extracted span so chat and retrieval can pull the
 * most relevant spans of oversized documents. Uses Qdrant's native gRPC API.
 */

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	qdrant "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// embeddingDimensions must match the embedding provider's output
const embeddingDimensions = 1024

// QdrantClient handles vector database operations
type QdrantClient struct {
	client           qdrant.PointsClient
	collectionClient qdrant.CollectionsClient
	conn             *grpc.ClientConn
	collectionName   string
}

// SpanPoint is one span's embedding with its positional payload
type SpanPoint struct {
	ID         string
	Vector     []float32
	DocumentID string
	Page       int
	Block      int
	SpanID     int
	Text       string
	Score      float64
}

// NewQdrantClient creates a new Qdrant client
func NewQdrantClient(address string, collectionName string) (*QdrantClient, error) {
	if address == "" {
		return nil, fmt.Errorf("qdrant address is required")
	}
	if collectionName == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	conn, err := grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	qc := &QdrantClient{
		client:           qdrant.NewPointsClient(conn),
		collectionClient: qdrant.NewCollectionsClient(conn),
		conn:             conn,
		collectionName:   collectionName,
	}

	if err := qc.ensureCollection(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ensure collection: %w", err)
	}

	return qc, nil
}

// ensureCollection creates the collection if it doesn't exist
func (q *QdrantClient) ensureCollection(ctx context.Context) error {
	listResp, err := q.collectionClient.List(ctx, &qdrant.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	for _, col := range listResp.Collections {
		if col.Name == q.collectionName {
			return nil
		}
	}

	_, err = q.collectionClient.Create(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     embeddingDimensions,
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// UpsertSpanPoints stores a batch of span embeddings
func (q *QdrantClient) UpsertSpanPoints(ctx context.Context, points []*SpanPoint) error {
	if len(points) == 0 {
		return nil
	}

	structs := make([]*qdrant.PointStruct, 0, len(points))
	now := time.Now().Unix()
	for _, point := range points {
		if len(point.Vector) != embeddingDimensions {
			return fmt.Errorf("invalid vector dimensions: expected %d, got %d",
				embeddingDimensions, len(point.Vector))
		}
		if point.ID == "" {
			point.ID = uuid.New().String()
		}

		payload := map[string]*qdrant.Value{
			"document_id": stringValue(point.DocumentID),
			"page":        integerValue(int64(point.Page)),
			"block":       integerValue(int64(point.Block)),
			"span_id":     integerValue(int64(point.SpanID)),
			"text":        stringValue(point.Text),
			"timestamp":   integerValue(now),
		}

		structs = append(structs, &qdrant.PointStruct{
			Id: &qdrant.PointId{
				PointIdOptions: &qdrant.PointId_Uuid{Uuid: point.ID},
			},
			Vectors: &qdrant.Vectors{
				VectorsOptions: &qdrant.Vectors_Vector{
					Vector: &qdrant.Vector{Data: point.Vector},
				},
			},
			Payload: payload,
		})
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         structs,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert span points: %w", err)
	}
	return nil
}

// SearchSpans finds the spans of one document most similar to the query
// vector
func (q *QdrantClient) SearchSpans(ctx context.Context, documentID string, queryVector []float32, limit int) ([]*SpanPoint, error) {
	if len(queryVector) != embeddingDimensions {
		return nil, fmt.Errorf("invalid query vector dimensions: expected %d, got %d",
			embeddingDimensions, len(queryVector))
	}
	if limit <= 0 {
		limit = 10
	}

	searchReq := &qdrant.SearchPoints{
		CollectionName: q.collectionName,
		Vector:         queryVector,
		Limit:          uint64(limit),
		Filter:         documentFilter(documentID),
		WithPayload: &qdrant.WithPayloadSelector{
			SelectorOptions: &qdrant.WithPayloadSelector_Enable{Enable: true},
		},
	}

	results, err := q.client.Search(ctx, searchReq)
	if err != nil {
		return nil, fmt.Errorf("failed to search spans: %w", err)
	}

	points := make([]*SpanPoint, 0, len(results.Result))
	for _, result := range results.Result {
		point := &SpanPoint{Score: float64(result.Score)}
		if result.Id != nil {
			point.ID = result.Id.GetUuid()
		}
		if result.Payload != nil {
			point.DocumentID = result.Payload["document_id"].GetStringValue()
			point.Page = int(result.Payload["page"].GetIntegerValue())
			point.Block = int(result.Payload["block"].GetIntegerValue())
			point.SpanID = int(result.Payload["span_id"].GetIntegerValue())
			point.Text = result.Payload["text"].GetStringValue()
		}
		points = append(points, point)
	}
	return points, nil
}

// DeleteDocumentSpans removes every span point of a document
func (q *QdrantClient) DeleteDocumentSpans(ctx context.Context, documentID string) error {
	if documentID == "" {
		return fmt.Errorf("document ID is required")
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: documentFilter(documentID),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete document spans: %w", err)
	}
	return nil
}

// GetCollectionInfo returns collection statistics
func (q *QdrantClient) GetCollectionInfo(ctx context.Context) (map[string]interface{}, error) {
	info, err := q.collectionClient.Get(ctx, &qdrant.GetCollectionInfoRequest{
		CollectionName: q.collectionName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get collection info: %w", err)
	}

	return map[string]interface{}{
		"collection_name": q.collectionName,
		"vectors_count":   info.Result.GetVectorsCount(),
		"points_count":    info.Result.GetPointsCount(),
		"indexed_vectors": info.Result.GetIndexedVectorsCount(),
		"status":          info.Result.GetStatus().String(),
	}, nil
}

// Close closes the Qdrant client connection
func (q *QdrantClient) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

func documentFilter(documentID string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			{
				ConditionOneOf: &qdrant.Condition_Field{
					Field: &qdrant.FieldCondition{
						Key: "document_id",
						Match: &qdrant.Match{
							MatchValue: &qdrant.Match_Keyword{Keyword: documentID},
						},
					},
				},
			},
		},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func integerValue(i int64) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: i}}
}
