/**
 * Per-annotation-type handlers.
 *
 * The basic types export straight from the prediction with no model call.
 * Essential and business types run the page-wise batch loop and aggregate
 * the decoded fragments by category. A malformed batch response decodes to
 * fewer fragments and is effectively skipped; only a failed completion call
 * aborts the handler.
 */

package annotate

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adverant/nexus/annotation-worker/internal/document"
)

// Request identifies one annotation unit of work
type Request struct {
	UserID     string
	DocumentID string
	Type       Type
	// Question overrides the built-in template; required for the custom type
	Question string
}

// Result is a handler's raw outcome before enveloping
type Result struct {
	Response      any
	Prompts       []string
	Models        []string
	PagesPerBatch int
	Debug         map[string]any
}

// HandlerFunc computes one annotation type from a prediction
type HandlerFunc func(ctx context.Context, s *Session, pred *document.Prediction, req Request) (*Result, error)

var handlers = map[Type]HandlerFunc{
	TypeBlocks:          handleBlocks,
	TypeSpans:           handleSpans,
	TypePageText:        handlePageText,
	TypeFullText:        handleFullText,
	TypeInfoSnippets:    handleInfoSnippets,
	TypeHeadings:        handleHeadings,
	TypeTimeline:        handleTimeline,
	TypeQuestions:       handleQuestions,
	TypeSummary:         handleSummary,
	TypeTopics:          handleListType,
	TypeCitations:       handleListType,
	TypeCitedExamples:   handleListType,
	TypeNER:             handleListType,
	TypeCustom:          handleListType,
	TypeLegalInfo:       handleBusinessType,
	TypeFinancialInfo:   handleBusinessType,
	TypeEducationalInfo: handleBusinessType,
	TypeEditorialInfo:   handleBusinessType,
}

// HandlerFor returns the handler for an annotation type. The chat type has
// its own flow and is not dispatched here.
func HandlerFor(t Type) (HandlerFunc, bool) {
	h, ok := handlers[t]
	return h, ok
}

func handleBlocks(_ context.Context, _ *Session, pred *document.Prediction, _ Request) (*Result, error) {
	return &Result{Response: pred.GetBlockWiseText()}, nil
}

func handleSpans(_ context.Context, _ *Session, pred *document.Prediction, _ Request) (*Result, error) {
	return &Result{Response: pred.GetSpanWiseText()}, nil
}

func handlePageText(_ context.Context, _ *Session, pred *document.Prediction, _ Request) (*Result, error) {
	return &Result{Response: pred.GetPageWiseJSON()}, nil
}

func handleFullText(_ context.Context, _ *Session, pred *document.Prediction, _ Request) (*Result, error) {
	return &Result{Response: pred.GetText(document.Query{})}, nil
}

func handleInfoSnippets(_ context.Context, _ *Session, pred *document.Prediction, _ Request) (*Result, error) {
	return &Result{Response: ExtractSnippets(pred.GetText(document.Query{}))}, nil
}

func handleHeadings(ctx context.Context, s *Session, pred *document.Prediction, req Request) (*Result, error) {
	run, err := s.PageWise(ctx, pred, questionFor(req))
	if err != nil {
		return nil, err
	}

	// one heading-summary object is expected per batch; keep whatever
	// decodes
	var headings []map[string]any
	for _, response := range run.Responses {
		for _, fragment := range DecodeFragments(response) {
			headings = append(headings, map[string]any(fragment))
		}
	}
	return pageWiseResult(run, headings), nil
}

func handleTimeline(ctx context.Context, s *Session, pred *document.Prediction, req Request) (*Result, error) {
	run, err := s.PageWise(ctx, pred, questionFor(req))
	if err != nil {
		return nil, err
	}

	// entries are renumbered T1/S1, T2/S2, ... across all batches
	var entries []map[string]any
	count := 1
	for _, response := range run.Responses {
		for _, fragment := range DecodeFragments(response) {
			timeValue, hasTime := fragment["Time"]
			summaryValue, hasSummary := fragment["summary"]
			if !hasTime || !hasSummary {
				continue
			}
			entry := map[string]any{
				fmt.Sprintf("T%d", count): timeValue,
				fmt.Sprintf("S%d", count): summaryValue,
			}
			entries = append(entries, entry)
			count++
		}
	}
	return pageWiseResult(run, map[string]any{"timeline": entries}), nil
}

func handleQuestions(ctx context.Context, s *Session, pred *document.Prediction, req Request) (*Result, error) {
	single, err := s.SinglePrompt(ctx, pred, questionFor(req), 500)
	if err != nil {
		return nil, err
	}

	var qaList []map[string]any
	if err := json.Unmarshal([]byte(CleanResponse(single.Response)), &qaList); err != nil {
		s.logger.Warn("Discarding unparseable question list", "queryId", s.queryID, "error", err)
	}
	return singleResult(single, qaList), nil
}

func handleSummary(ctx context.Context, s *Session, pred *document.Prediction, req Request) (*Result, error) {
	single, err := s.SinglePrompt(ctx, pred, questionFor(req), 300)
	if err != nil {
		return nil, err
	}
	return singleResult(single, single.Response), nil
}

func handleListType(ctx context.Context, s *Session, pred *document.Prediction, req Request) (*Result, error) {
	run, err := s.PageWise(ctx, pred, questionFor(req))
	if err != nil {
		return nil, err
	}
	return pageWiseResult(run, AggregateList(decodeAll(run.Responses))), nil
}

func handleBusinessType(ctx context.Context, s *Session, pred *document.Prediction, req Request) (*Result, error) {
	run, err := s.PageWise(ctx, pred, questionFor(req))
	if err != nil {
		return nil, err
	}
	return pageWiseResult(run, AggregateBusiness(decodeAll(run.Responses))), nil
}

func decodeAll(responses []string) []Fragment {
	var fragments []Fragment
	for _, response := range responses {
		fragments = append(fragments, DecodeFragments(response)...)
	}
	return fragments
}

func questionFor(req Request) string {
	if req.Question != "" {
		return req.Question
	}
	q, _ := QuestionFor(req.Type)
	return q
}

func pageWiseResult(run *PageWiseResult, response any) *Result {
	return &Result{
		Response:      response,
		Prompts:       run.Prompts,
		Models:        run.Models,
		PagesPerBatch: run.PagesPerBatch,
		Debug: map[string]any{
			"model_name":           run.Models,
			"iteration_count":      len(run.Models),
			"pages_per_iterations": run.PagesPerBatch,
		},
	}
}

func singleResult(single *SingleResult, response any) *Result {
	return &Result{
		Response: response,
		Prompts:  []string{single.Prompt},
		Models:   []string{single.Model},
		Debug: map[string]any{
			"model_name": single.Model,
		},
	}
}
