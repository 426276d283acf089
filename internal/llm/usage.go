/**
 * Per-session token and cost accounting.
 *
 * One Accumulator is created per annotation session and passed explicitly
 * through the batch loop, so concurrent documents in the same process never
 * contaminate each other's totals.
 */

package llm

// Usage is the token usage of a single completion call
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ModelUsage is the accumulated usage and cost for one model within a session
type ModelUsage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// CostRecord is the persisted usage row for one (document, query, model)
type CostRecord struct {
	DocumentID       string
	QueryID          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// Accumulator collects token usage across the calls of one session
type Accumulator struct {
	byModel map[string]*ModelUsage
	order   []string
}

// NewAccumulator creates an empty session accumulator
func NewAccumulator() *Accumulator {
	return &Accumulator{byModel: make(map[string]*ModelUsage)}
}

// Add records one call's usage under the given model's pricing
func (a *Accumulator) Add(model ModelInfo, usage Usage) {
	mu, ok := a.byModel[model.Name]
	if !ok {
		mu = &ModelUsage{Model: model.Name}
		a.byModel[model.Name] = mu
		a.order = append(a.order, model.Name)
	}
	mu.PromptTokens += usage.PromptTokens
	mu.CompletionTokens += usage.CompletionTokens
	mu.Cost += float64(usage.PromptTokens)/1000*model.PromptCostPer1K +
		float64(usage.CompletionTokens)/1000*model.CompletionCostPer1K
}

// TotalCost returns the session cost across all models
func (a *Accumulator) TotalCost() float64 {
	total := 0.0
	for _, mu := range a.byModel {
		total += mu.Cost
	}
	return total
}

// TotalTokens returns the session prompt and completion token totals
func (a *Accumulator) TotalTokens() (prompt, completion int) {
	for _, mu := range a.byModel {
		prompt += mu.PromptTokens
		completion += mu.CompletionTokens
	}
	return prompt, completion
}

// Records materializes one cost record per model used in the session,
// in first-use order
func (a *Accumulator) Records(documentID, queryID string) []CostRecord {
	records := make([]CostRecord, 0, len(a.order))
	for _, name := range a.order {
		mu := a.byModel[name]
		records = append(records, CostRecord{
			DocumentID:       documentID,
			QueryID:          queryID,
			Model:            mu.Model,
			PromptTokens:     mu.PromptTokens,
			CompletionTokens: mu.CompletionTokens,
			Cost:             mu.Cost,
		})
	}
	return records
}
