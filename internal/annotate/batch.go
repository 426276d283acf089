/**
 * Page batching for LLM-sized chunks.
 *
 * Large documents cannot fit one completion call, so pages are bundled into
 * fixed-stride batches and each batch becomes one call. The stride grows with
 * document length to keep the call count bounded.
 */

package annotate

import (
	"strings"

	"github.com/adverant/nexus/annotation-worker/internal/document"
)

// DefaultMinimumBatchWords is the smallest batch worth sending to a model.
// Batches below it (cover pages, separators) are skipped.
const DefaultMinimumBatchWords = 75

// Batch is one page window's worth of document text
type Batch struct {
	StartPage int
	EndPage   int
	Text      string
	WordCount int
}

// PagesPerBatch picks the batch stride from the document length
func PagesPerBatch(pageCount int) int {
	switch {
	case pageCount < 5:
		return 1
	case pageCount <= 20:
		return 2
	default:
		return 3
	}
}

// BuildBatches partitions the prediction into page batches, joining page
// texts with blank lines and dropping batches under minWords. Returns the
// batches and the stride used.
func BuildBatches(pred *document.Prediction, minWords int) ([]Batch, int) {
	if minWords <= 0 {
		minWords = DefaultMinimumBatchWords
	}

	pageCount := len(pred.GetPageList())
	stride := PagesPerBatch(pageCount)

	var batches []Batch
	for start := 1; start <= pageCount; start += stride {
		end := min(start+stride-1, pageCount)

		parts := make([]string, 0, end-start+1)
		for page := start; page <= end; page++ {
			parts = append(parts, pred.GetText(document.Query{Page: page}))
		}
		text := strings.Join(parts, "\n\n")

		wordCount := len(strings.Fields(text))
		if wordCount < minWords {
			continue
		}

		batches = append(batches, Batch{
			StartPage: start,
			EndPage:   end,
			Text:      text,
			WordCount: wordCount,
		})
	}
	return batches, stride
}
