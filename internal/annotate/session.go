/**
 * Annotation session: one query against one document.
 *
 * A session owns the query id and the usage accumulator for all completion
 * calls made while computing a single annotation type. Batches run strictly
 * in page order; each batch is a fresh conversation with no carried context.
 */

package annotate

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/adverant/nexus/annotation-worker/internal/document"
	"github.com/adverant/nexus/annotation-worker/internal/llm"
	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

// Completer abstracts the chat-completion client
type Completer interface {
	Complete(ctx context.Context, modelName string, messages []llm.Message) (*llm.Completion, error)
}

// responseWordBudget is the headroom reserved for the model's reply when
// sizing a prompt against a model's context window
const responseWordBudget = 500

// Session tracks one annotation query's id and token usage
type Session struct {
	client        Completer
	usage         *llm.Accumulator
	logger        *logging.Logger
	queryID       string
	minBatchWords int
}

// SessionConfig holds session tuning knobs
type SessionConfig struct {
	MinimumBatchWords int
}

// NewSession creates a session with a fresh query id and usage accumulator
func NewSession(client Completer, cfg *SessionConfig) *Session {
	minWords := DefaultMinimumBatchWords
	if cfg != nil && cfg.MinimumBatchWords > 0 {
		minWords = cfg.MinimumBatchWords
	}
	return &Session{
		client:        client,
		usage:         llm.NewAccumulator(),
		logger:        logging.NewLogger("annotate"),
		queryID:       uuid.NewString(),
		minBatchWords: minWords,
	}
}

// QueryID returns the session's query id
func (s *Session) QueryID() string {
	return s.queryID
}

// Usage returns the session's accumulated token usage
func (s *Session) Usage() *llm.Accumulator {
	return s.usage
}

// PageWiseResult collects the per-batch responses of a page-wise run
type PageWiseResult struct {
	Responses     []string
	Prompts       []string
	Models        []string
	PagesPerBatch int
}

// PageWise issues one completion call per page batch, prepending the question
// to each batch's text. A call failure aborts the run; there is no partial
// retry at this level.
func (s *Session) PageWise(ctx context.Context, pred *document.Prediction, question string) (*PageWiseResult, error) {
	batches, stride := BuildBatches(pred, s.minBatchWords)
	result := &PageWiseResult{PagesPerBatch: stride}

	s.logger.Info("Starting page-wise run",
		"queryId", s.queryID,
		"batches", len(batches),
		"pagesPerBatch", stride)

	for _, batch := range batches {
		prompt := question + batch.Text
		expectedWords := len(strings.Fields(prompt)) + responseWordBudget

		model, err := llm.SelectModel(expectedWords)
		if err != nil {
			return nil, fmt.Errorf("pages %d-%d: %w", batch.StartPage, batch.EndPage, err)
		}

		completion, err := s.client.Complete(ctx, model.Name, []llm.Message{
			{Role: llm.RoleUser, Content: prompt},
		})
		if err != nil {
			return nil, fmt.Errorf("pages %d-%d: %w", batch.StartPage, batch.EndPage, err)
		}
		s.usage.Add(model, completion.Usage)

		result.Responses = append(result.Responses, completion.Content)
		result.Prompts = append(result.Prompts, prompt)
		result.Models = append(result.Models, model.Name)
	}
	return result, nil
}

// SingleResult is the outcome of a whole-document completion call
type SingleResult struct {
	Response string
	Prompt   string
	Model    string
}

// SinglePrompt sizes a model for the whole document plus the question and
// the expected reply, truncates the document text to fit, and makes one
// completion call. Documents too large for any model fall back to the
// largest tier with harder truncation.
func (s *Session) SinglePrompt(ctx context.Context, pred *document.Prediction, question string, replyBudget int) (*SingleResult, error) {
	if replyBudget <= 0 {
		replyBudget = responseWordBudget
	}
	questionWords := len(strings.Fields(question))
	totalWords := pred.GetWordCount() + questionWords + replyBudget

	model, err := llm.SelectModel(totalWords)
	if err != nil {
		model = llm.Catalog[len(llm.Catalog)-1]
	}

	maxDocumentWords := model.MaxWords - questionWords - replyBudget
	text := pred.GetText(document.Query{WordLimit: maxDocumentWords})
	prompt := text + " - " + question

	completion, err := s.client.Complete(ctx, model.Name, []llm.Message{
		{Role: llm.RoleUser, Content: prompt},
	})
	if err != nil {
		return nil, err
	}
	s.usage.Add(model, completion.Usage)

	return &SingleResult{
		Response: completion.Content,
		Prompt:   prompt,
		Model:    model.Name,
	}, nil
}
