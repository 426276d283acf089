package annotate

import (
	"strings"
	"testing"

	"github.com/adverant/nexus/annotation-worker/internal/document"
	"github.com/adverant/nexus/annotation-worker/internal/geometry"
)

// makePrediction builds a prediction with the given number of pages, each
// carrying one span of wordsPerPage words
func makePrediction(t *testing.T, pages, wordsPerPage int) *document.Prediction {
	t.Helper()
	var spans []document.Span
	text := strings.TrimSpace(strings.Repeat("word ", wordsPerPage))
	for page := 1; page <= pages; page++ {
		spans = append(spans, document.NewSpan(1, text,
			geometry.BBox{0.1, 0.1, 0.9, 0.3}, page, 1, document.SpanTypeScrape))
	}
	return document.NewPrediction(spans, nil)
}

func TestPagesPerBatch(t *testing.T) {
	tests := []struct {
		pages int
		want  int
	}{
		{1, 1}, {4, 1}, {5, 2}, {20, 2}, {21, 3}, {100, 3},
	}
	for _, tt := range tests {
		if got := PagesPerBatch(tt.pages); got != tt.want {
			t.Errorf("PagesPerBatch(%d) = %d, want %d", tt.pages, got, tt.want)
		}
	}
}

func TestBuildBatches(t *testing.T) {
	tests := []struct {
		name        string
		pages       int
		wantBatches int
		wantStride  int
	}{
		{name: "short document one page per batch", pages: 3, wantBatches: 3, wantStride: 1},
		{name: "medium document two pages per batch", pages: 15, wantBatches: 8, wantStride: 2},
		{name: "long document three pages per batch", pages: 30, wantBatches: 10, wantStride: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := makePrediction(t, tt.pages, 100)
			batches, stride := BuildBatches(pred, 0)
			if stride != tt.wantStride {
				t.Errorf("stride = %d, want %d", stride, tt.wantStride)
			}
			if len(batches) != tt.wantBatches {
				t.Errorf("batches = %d, want %d", len(batches), tt.wantBatches)
			}
		})
	}
}

func TestBuildBatchesOrderAndBounds(t *testing.T) {
	pred := makePrediction(t, 15, 100)
	batches, _ := BuildBatches(pred, 0)

	prevEnd := 0
	for _, b := range batches {
		if b.StartPage != prevEnd+1 {
			t.Errorf("batch starts at page %d after end %d", b.StartPage, prevEnd)
		}
		if b.EndPage < b.StartPage {
			t.Errorf("batch range %d-%d inverted", b.StartPage, b.EndPage)
		}
		prevEnd = b.EndPage
	}
	if prevEnd != 15 {
		t.Errorf("last batch ends at %d, want 15", prevEnd)
	}

	// two 100-word pages per full batch
	if batches[0].WordCount != 200 {
		t.Errorf("first batch word count = %d, want 200", batches[0].WordCount)
	}
	// the trailing odd page rides alone
	last := batches[len(batches)-1]
	if last.StartPage != 15 || last.EndPage != 15 || last.WordCount != 100 {
		t.Errorf("last batch = %+v", last)
	}
}

func TestBuildBatchesSkipsThinBatches(t *testing.T) {
	pred := makePrediction(t, 3, 10)
	batches, _ := BuildBatches(pred, 0)
	if len(batches) != 0 {
		t.Errorf("thin pages produced %d batches, want 0", len(batches))
	}

	// explicit minimum lets them through
	batches, _ = BuildBatches(pred, 5)
	if len(batches) != 3 {
		t.Errorf("batches = %d, want 3", len(batches))
	}
}
