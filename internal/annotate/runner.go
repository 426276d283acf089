/**
 * Annotation runner: status lifecycle around a single handler execution.
 *
 * The runner flips the status row to IN_PROGRESS, executes the handler,
 * persists the enveloped result, records token costs, and commits the
 * terminal status. Terminal writes always go through, even when the row was
 * already reported as timed out by a reader.
 */

package annotate

import (
	"context"
	"encoding/json"
	"time"

	"github.com/adverant/nexus/annotation-worker/internal/document"
	apperrors "github.com/adverant/nexus/annotation-worker/internal/errors"
	"github.com/adverant/nexus/annotation-worker/internal/llm"
	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

// StatusStore persists per-type annotation status rows
type StatusStore interface {
	SetStatus(ctx context.Context, documentID string, annotationType Type, status Status) error
}

// ResultStore persists enveloped annotation payloads
type ResultStore interface {
	PutAnnotation(ctx context.Context, userID, documentID string, annotationType Type, payload []byte) error
}

// UsageStore persists per-model token cost records
type UsageStore interface {
	InsertCostRecords(ctx context.Context, userID string, records []llm.CostRecord) error
}

// Runner executes annotation requests against a prediction
type Runner struct {
	client  Completer
	status  StatusStore
	results ResultStore
	costs   UsageStore
	logger  *logging.Logger

	minBatchWords int
}

// RunnerConfig holds runner tuning knobs
type RunnerConfig struct {
	MinimumBatchWords int
}

// NewRunner creates an annotation runner
func NewRunner(client Completer, status StatusStore, results ResultStore, costs UsageStore, cfg *RunnerConfig) *Runner {
	minWords := DefaultMinimumBatchWords
	if cfg != nil && cfg.MinimumBatchWords > 0 {
		minWords = cfg.MinimumBatchWords
	}
	return &Runner{
		client:        client,
		status:        status,
		results:       results,
		costs:         costs,
		logger:        logging.NewLogger("runner"),
		minBatchWords: minWords,
	}
}

// Run executes one annotation request end to end and returns the stored
// envelope. The returned error is non-nil only for hard failures; an empty
// result is a terminal EMPTY status with a success envelope carrying an
// empty payload.
func (r *Runner) Run(ctx context.Context, req Request, pred *document.Prediction) (*Envelope, error) {
	handler, ok := HandlerFor(req.Type)
	if !ok {
		return nil, apperrors.NewInvalidInputError(req.DocumentID, "unsupported annotation type: "+string(req.Type))
	}

	if err := r.status.SetStatus(ctx, req.DocumentID, req.Type, StatusInProgress); err != nil {
		return nil, err
	}

	session := NewSession(r.client, &SessionConfig{MinimumBatchWords: r.minBatchWords})
	start := time.Now()

	result, err := handler(ctx, session, pred, req)
	end := time.Now()

	if err != nil {
		r.logger.Error("Annotation failed",
			"documentId", req.DocumentID,
			"annotationType", string(req.Type),
			"error", err)
		envelope := NewFailureEnvelope(err, session.QueryID(), req.Type, start, end)
		r.persist(ctx, req, session, envelope, StatusFailed)
		return &envelope, apperrors.NewUpstreamFailedError(req.DocumentID, "annotation", err)
	}

	terminal := StatusCompleted
	if isEmptyResponse(result.Response) {
		terminal = StatusEmpty
		r.logger.Warn("Annotation produced no content",
			"documentId", req.DocumentID,
			"annotationType", string(req.Type))
	}

	envelope := NewEnvelope(result, session.QueryID(), req.Type, start, end)
	if err := r.persist(ctx, req, session, envelope, terminal); err != nil {
		return nil, err
	}

	r.logger.Info("Annotation finished",
		"documentId", req.DocumentID,
		"annotationType", string(req.Type),
		"status", string(terminal),
		"cost", session.Usage().TotalCost())
	return &envelope, nil
}

// persist stores the envelope, the cost records, and the terminal status.
// The status write happens last so readers never see a terminal row without
// its payload.
func (r *Runner) persist(ctx context.Context, req Request, session *Session, envelope Envelope, terminal Status) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if err := r.results.PutAnnotation(ctx, req.UserID, req.DocumentID, req.Type, payload); err != nil {
		return err
	}

	records := session.Usage().Records(req.DocumentID, session.QueryID())
	if len(records) > 0 {
		if err := r.costs.InsertCostRecords(ctx, req.UserID, records); err != nil {
			// cost accounting must not lose an otherwise finished annotation
			r.logger.Error("Failed to record usage",
				"documentId", req.DocumentID,
				"error", err)
		}
	}

	return r.status.SetStatus(ctx, req.DocumentID, req.Type, terminal)
}

func isEmptyResponse(response any) bool {
	switch v := response.(type) {
	case nil:
		return true
	case string:
		return v == ""
	case []any:
		return len(v) == 0
	case []map[string]any:
		return len(v) == 0
	case map[string]any:
		if len(v) == 0 {
			return true
		}
		// a wrapper holding only empty collections counts as empty
		for _, inner := range v {
			if !isEmptyResponse(inner) {
				return false
			}
		}
		return true
	case map[string][]map[string]any:
		return len(v) == 0
	case map[string][]string:
		return len(v) == 0
	default:
		return false
	}
}
