/**
 * Job payloads shared by both queue transports.
 *
 * The API gateway enqueues three task types: document extraction, single
 * annotation runs, and chat turns. Payload field names match the gateway's
 * camelCase JSON.
 */

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adverant/nexus/annotation-worker/internal/annotate"
	"github.com/adverant/nexus/annotation-worker/internal/logging"
	"github.com/adverant/nexus/annotation-worker/internal/processor"
)

// Task type names routed by the consumers
const (
	TaskExtractDocument  = "extract-document"
	TaskAnnotateDocument = "annotate-document"
	TaskChatQuery        = "chat-query"
)

// ExtractJob is the payload of an extract-document task
type ExtractJob struct {
	DocumentID   string `json:"documentId"`
	UserID       string `json:"userId"`
	Filename     string `json:"filename,omitempty"`
	Extension    string `json:"extension,omitempty"`
	DocumentType string `json:"documentType,omitempty"`
	// AnnotationTypes, when present, are enqueued as follow-up annotation
	// tasks after a successful extraction
	AnnotationTypes []string `json:"annotationTypes,omitempty"`
}

// AnnotateJob is the payload of an annotate-document task
type AnnotateJob struct {
	DocumentID     string `json:"documentId"`
	UserID         string `json:"userId"`
	AnnotationType string `json:"annotationType"`
	Question       string `json:"question,omitempty"`
}

// ChatJob is the payload of a chat-query task
type ChatJob struct {
	DocumentID   string           `json:"documentId"`
	UserID       string           `json:"userId"`
	ChatID       string           `json:"chatId"`
	QueryID      string           `json:"queryId,omitempty"`
	Query        string           `json:"query"`
	ResetContext bool             `json:"resetContext,omitempty"`
	Context      *ChatContextSpec `json:"context,omitempty"`
}

// ChatContextSpec is the wire form of a chat grounding source
type ChatContextSpec struct {
	Type           string   `json:"type"`
	Blocks         [][2]int `json:"blocks,omitempty"`
	Text           string   `json:"text,omitempty"`
	QuestionIndex  int      `json:"questionIndex,omitempty"`
	HeadingIndexes []int    `json:"headingIndexes,omitempty"`
}

// Source converts the wire form into a context source
func (s *ChatContextSpec) Source() (annotate.ContextSource, error) {
	switch s.Type {
	case "blocks":
		return annotate.BlockRange{Blocks: s.Blocks}, nil
	case "text":
		return annotate.FreeText{Text: s.Text}, nil
	case "question":
		return annotate.QuestionRef{Index: s.QuestionIndex}, nil
	case "headings":
		return annotate.HeadingRefs{Indexes: s.HeadingIndexes}, nil
	case "full":
		return annotate.FullDocument{}, nil
	default:
		return nil, fmt.Errorf("unknown chat context type: %q", s.Type)
	}
}

// Pipeline is the processing surface the consumers drive
type Pipeline interface {
	Extract(ctx context.Context, req *processor.ExtractRequest) (*processor.ExtractResult, error)
	Annotate(ctx context.Context, req *processor.AnnotateRequest) (*annotate.Envelope, error)
	Chat(ctx context.Context, req annotate.ChatRequest) (*annotate.ChatReply, error)
	Progress(ctx context.Context, documentID string) (annotate.Progress, error)
}

// AnnotateOutcome is the stored result of an annotate-document task: the
// annotation envelope plus the document's progress counters so polling
// readers see how far along the remaining types are.
type AnnotateOutcome struct {
	*annotate.Envelope
	Progress annotate.Progress `json:"progress"`
}

// Dispatcher decodes task payloads and routes them into the pipeline. Both
// queue transports share it.
type Dispatcher struct {
	pipeline Pipeline
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher over the pipeline
func NewDispatcher(pipeline Pipeline) *Dispatcher {
	return &Dispatcher{
		pipeline: pipeline,
		logger:   logging.NewLogger("dispatcher"),
	}
}

// Dispatch executes one task and returns its result for optional storage.
// Returned ExtractJob follow-ups are handled by the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, taskType string, payload []byte) (interface{}, error) {
	switch taskType {
	case TaskExtractDocument:
		var job ExtractJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal extract job: %w", err)
		}
		return d.pipeline.Extract(ctx, &processor.ExtractRequest{
			DocumentID:   job.DocumentID,
			UserID:       job.UserID,
			Filename:     job.Filename,
			Extension:    job.Extension,
			DocumentType: job.DocumentType,
		})

	case TaskAnnotateDocument:
		var job AnnotateJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal annotate job: %w", err)
		}
		envelope, err := d.pipeline.Annotate(ctx, &processor.AnnotateRequest{
			DocumentID:     job.DocumentID,
			UserID:         job.UserID,
			AnnotationType: annotate.ParseType(job.AnnotationType),
			Question:       job.Question,
		})
		if err != nil {
			return nil, err
		}
		outcome := &AnnotateOutcome{Envelope: envelope}
		// Progress is best effort; the envelope stands on its own.
		if progress, err := d.pipeline.Progress(ctx, job.DocumentID); err == nil {
			outcome.Progress = progress
		} else {
			d.logger.Warn("Failed to read annotation progress",
				"documentId", job.DocumentID, "error", err)
		}
		return outcome, nil

	case TaskChatQuery:
		var job ChatJob
		if err := json.Unmarshal(payload, &job); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat job: %w", err)
		}
		req := annotate.ChatRequest{
			UserID:       job.UserID,
			DocumentID:   job.DocumentID,
			ChatID:       job.ChatID,
			QueryID:      job.QueryID,
			Query:        job.Query,
			ResetContext: job.ResetContext,
		}
		if job.Context != nil {
			source, err := job.Context.Source()
			if err != nil {
				return nil, err
			}
			req.Context = source
		}
		return d.pipeline.Chat(ctx, req)

	default:
		return nil, fmt.Errorf("unknown task type: %q", taskType)
	}
}

// withTimeout wraps ctx with the configured processing timeout. Timeout is in
// milliseconds; zero means the 5 minute default.
func withTimeout(ctx context.Context, timeoutMs int64) (context.Context, context.CancelFunc) {
	timeout := 300000 * time.Millisecond
	if timeoutMs > 0 {
		timeout = time.Duration(timeoutMs) * time.Millisecond
	}
	return context.WithTimeout(ctx, timeout)
}
