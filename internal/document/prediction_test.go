package document

import (
	"reflect"
	"strings"
	"testing"

	"github.com/adverant/nexus/annotation-worker/internal/geometry"
)

func buildTestPrediction() *Prediction {
	spans := []Span{
		NewSpan(0, "Quarterly revenue report", geometry.BBox{0.05, 0.0, 0.95, 0.2}, 1, 1, SpanTypeScrape),
		NewSpan(1, "Revenue grew twelve percent", geometry.BBox{0.05, 0.2, 0.95, 0.5}, 1, 2, SpanTypeScrape),
		NewSpan(2, "Costs were flat", geometry.BBox{0.05, 0.5, 0.95, 0.8}, 1, 2, SpanTypeScrape),
		NewSpan(0, "Outlook remains positive", geometry.BBox{0.05, 0.0, 0.95, 0.2}, 2, 1, SpanTypeScrape),
	}
	blockBBoxes := map[int]map[int]geometry.BBox{
		1: {
			1: {0.05, 0.0, 0.95, 0.2},
			2: {0.05, 0.2, 0.95, 0.8},
		},
		2: {
			1: {0.05, 0.0, 0.95, 0.2},
		},
	}
	return NewPrediction(spans, blockBBoxes)
}

func TestGetPageList(t *testing.T) {
	p := buildTestPrediction()
	if got, want := p.GetPageList(), []int{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("GetPageList = %v, want %v", got, want)
	}
	if got, want := p.GetBlockList(1), []int{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("GetBlockList(1) = %v, want %v", got, want)
	}
}

func TestGetWordCount(t *testing.T) {
	p := buildTestPrediction()
	want := 0
	for _, span := range p.Spans() {
		want += span.WordCount
	}
	if got := p.GetWordCount(); got != want {
		t.Errorf("GetWordCount = %d, want %d", got, want)
	}
	if got := len(strings.Fields(p.GetText(Query{}))); got != want {
		t.Errorf("GetText word count = %d, want %d", got, want)
	}
}

func TestGetTextByPageAndBlock(t *testing.T) {
	p := buildTestPrediction()

	if got := p.GetText(Query{Page: 2}); got != "Outlook remains positive" {
		t.Errorf("GetText(page 2) = %q", got)
	}
	if got := p.GetText(Query{Page: 1, Block: 2}); got != "Revenue grew twelve percent Costs were flat" {
		t.Errorf("GetText(page 1, block 2) = %q", got)
	}
}

func TestWordWindow(t *testing.T) {
	p := buildTestPrediction()

	// Limit of 3 words picks up the first span (3 words) and stops
	got := p.GetText(Query{WordLimit: 3})
	if got != "Quarterly revenue report" {
		t.Errorf("GetText(limit 3) = %q", got)
	}

	// A limit mid-span does not split: the second span is included whole
	got = p.GetText(Query{WordLimit: 5})
	if got != "Quarterly revenue report Revenue grew twelve percent" {
		t.Errorf("GetText(limit 5) = %q", got)
	}

	// Offset skips spans until the cumulative count reaches it
	got = p.GetText(Query{WordLimit: 10, WordOffset: 5})
	if strings.Contains(got, "Quarterly") {
		t.Errorf("GetText(offset 5) still contains first span: %q", got)
	}
}

func TestGetBBoxText(t *testing.T) {
	p := buildTestPrediction()

	region := geometry.BBox{0.05, 0.25, 0.95, 0.75}
	texts := p.GetBBoxText(1, region)
	if len(texts) != 2 {
		t.Fatalf("GetBBoxText matched %d spans, want 2: %v", len(texts), texts)
	}

	far := geometry.BBox{0.0, 0.9, 0.05, 0.95}
	if texts := p.GetBBoxText(1, far); len(texts) != 0 {
		t.Errorf("GetBBoxText(far region) = %v, want none", texts)
	}
}

func TestGetBlockWiseText(t *testing.T) {
	p := buildTestPrediction()

	blockWise := p.GetBlockWiseText()
	if len(blockWise) != 2 {
		t.Fatalf("expected 2 pages, got %d", len(blockWise))
	}
	b2 := blockWise[1][2]
	if b2.Text != "Revenue grew twelve percent Costs were flat" {
		t.Errorf("block 2 text = %q", b2.Text)
	}
	if b2.BBox != (geometry.BBox{0.05, 0.2, 0.95, 0.8}) {
		t.Errorf("block 2 bbox = %v", b2.BBox)
	}
}

func TestGetSpanWiseText(t *testing.T) {
	p := buildTestPrediction()

	spanWise := p.GetSpanWiseText()
	if got := spanWise[1][1].Text; got != "Revenue grew twelve percent" {
		t.Errorf("span 1 on page 1 = %q", got)
	}
	if len(spanWise[2]) != 1 {
		t.Errorf("expected 1 span on page 2, got %d", len(spanWise[2]))
	}
}

func TestAddSpanKeepsVerticalOrder(t *testing.T) {
	p := buildTestPrediction()

	inserted := NewSpan(9, "Inserted heading", geometry.BBox{0.05, 0.15, 0.95, 0.18}, 1, 1, SpanTypeOCR)
	p.AddSpan(inserted, 1)

	spans := p.Filter(Query{Page: 1})
	if len(spans) != 4 {
		t.Fatalf("expected 4 spans on page 1, got %d", len(spans))
	}
	if spans[1].Text != "Inserted heading" {
		t.Errorf("inserted span at position 1, got order: %v", spanTexts(spans))
	}
}

func TestMergeRenumbersPages(t *testing.T) {
	ocrSpans := []Span{
		NewSpan(0, "Scanned appendix", geometry.BBox{0.1, 0.1, 0.9, 0.15}, 1, 1, SpanTypeOCR),
	}
	ocrBoxes := map[int]map[int]geometry.BBox{
		1: {1: {0.1, 0.1, 0.9, 0.15}},
	}
	ocrPage := NewPrediction(ocrSpans, ocrBoxes)

	p := buildTestPrediction()
	p.Merge(ocrPage, 3)

	if got, want := p.GetPageList(), []int{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Fatalf("GetPageList after merge = %v, want %v", got, want)
	}
	if got := p.GetText(Query{Page: 3}); got != "Scanned appendix" {
		t.Errorf("merged page text = %q", got)
	}
	if _, ok := p.BlockBBoxes()[3][1]; !ok {
		t.Errorf("merged page block bbox missing")
	}
}

func TestSpanCleanup(t *testing.T) {
	span := NewSpan(0, "broken�text  here", geometry.BBox{0, 0, 1, 1}, 1, 1, SpanTypeScrape)
	if strings.ContainsRune(span.Text, '�') {
		t.Errorf("replacement rune survived cleanup: %q", span.Text)
	}
	if strings.Contains(span.Text, "  ") {
		t.Errorf("double space survived cleanup: %q", span.Text)
	}

	empty := NewSpan(1, "   ", geometry.BBox{0, 0, 1, 1}, 1, 1, SpanTypeScrape)
	if empty.Clean() {
		t.Errorf("whitespace-only span reported clean")
	}
}

func spanTexts(spans []Span) []string {
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = s.Text
	}
	return out
}
