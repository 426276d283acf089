/**
 * Model selection table for the Annotation Worker
 *
 * Read-only lookup of context limits and per-1k token costs. Prompt sizing
 * picks the smallest model whose context fits the estimated token count.
 */

package llm

import "fmt"

// tokensPerWord approximates the token inflation of English prose
const tokensPerWord = 1.5

// ModelInfo describes one chat model tier
type ModelInfo struct {
	Name                string
	MaxTokens           int
	MaxWords            int
	PromptCostPer1K     float64
	CompletionCostPer1K float64
}

// Catalog lists the available tiers, smallest context first
var Catalog = []ModelInfo{
	{
		Name:                "gpt-3.5-turbo",
		MaxTokens:           4097,
		MaxWords:            3000,
		PromptCostPer1K:     0.0015,
		CompletionCostPer1K: 0.002,
	},
	{
		Name:                "gpt-3.5-turbo-16k",
		MaxTokens:           16384,
		MaxWords:            12000,
		PromptCostPer1K:     0.003,
		CompletionCostPer1K: 0.004,
	},
}

// EstimateTokens converts a word count to an approximate token count
func EstimateTokens(wordCount int) int {
	return int(float64(wordCount) * tokensPerWord)
}

// SelectModel returns the smallest model whose context limit covers the
// estimated token count for the given word count
func SelectModel(wordCount int) (ModelInfo, error) {
	tokens := EstimateTokens(wordCount)
	for _, m := range Catalog {
		if tokens <= m.MaxTokens {
			return m, nil
		}
	}
	return ModelInfo{}, fmt.Errorf("no model fits %d estimated tokens (%d words)", tokens, wordCount)
}

// ModelByName looks up a tier by its name
func ModelByName(name string) (ModelInfo, bool) {
	for _, m := range Catalog {
		if m.Name == name {
			return m, true
		}
	}
	return ModelInfo{}, false
}
