/**
 * Document Prediction: the unified, queryable representation of all spans
 * extracted from one document, by either backend.
 *
 * Page and block indices are always derived from the span collection through
 * rebuildIndex, never stored independently, so the model cannot drift out of
 * sync with its spans.
 */

package document

import (
	"sort"
	"strings"

	"github.com/adverant/nexus/annotation-worker/internal/geometry"
)

// bboxTextThreshold is the minimum IoU for a span to match a region query
const bboxTextThreshold = 0.1

// Prediction owns the ordered span collection plus the per-page, per-block
// union bounding boxes produced during extraction.
type Prediction struct {
	spans       []Span
	blockBBoxes map[int]map[int]geometry.BBox

	pages  []int
	blocks map[int][]int
}

// Query narrows a span lookup. Zero values mean "unset"; pages and blocks are
// 1-indexed so 0 never collides with a real index.
type Query struct {
	Page       int
	Block      int
	BBox       *geometry.BBox
	WordLimit  int
	WordOffset int
}

// BlockText is one block's text and union bbox
type BlockText struct {
	Text string        `json:"text"`
	BBox geometry.BBox `json:"bbox"`
}

// SpanText is one span's text and bbox
type SpanText struct {
	Text string        `json:"text"`
	BBox geometry.BBox `json:"bbox"`
}

// PageText is one page's concatenated text
type PageText struct {
	Text string `json:"text"`
}

// NewPrediction builds a prediction over the given spans and block bboxes
func NewPrediction(spans []Span, blockBBoxes map[int]map[int]geometry.BBox) *Prediction {
	if blockBBoxes == nil {
		blockBBoxes = make(map[int]map[int]geometry.BBox)
	}
	p := &Prediction{
		spans:       spans,
		blockBBoxes: blockBBoxes,
	}
	p.rebuildIndex()
	return p
}

// rebuildIndex recomputes the page and per-page block indices from the span
// collection. The single authoritative index builder: every mutation path
// funnels through here.
func (p *Prediction) rebuildIndex() {
	pageSet := make(map[int]bool)
	blockSets := make(map[int]map[int]bool)

	for _, span := range p.spans {
		pageSet[span.PageNumber] = true
		if blockSets[span.PageNumber] == nil {
			blockSets[span.PageNumber] = make(map[int]bool)
		}
		blockSets[span.PageNumber][span.BlockNumber] = true
	}

	p.pages = make([]int, 0, len(pageSet))
	for page := range pageSet {
		p.pages = append(p.pages, page)
	}
	sort.Ints(p.pages)

	p.blocks = make(map[int][]int, len(blockSets))
	for page, set := range blockSets {
		blocks := make([]int, 0, len(set))
		for block := range set {
			blocks = append(blocks, block)
		}
		sort.Ints(blocks)
		p.blocks[page] = blocks
	}
}

// Filter returns the spans matching the query, in original order
func (p *Prediction) Filter(q Query) []Span {
	switch {
	case q.Page != 0 && q.BBox != nil:
		var out []Span
		for _, span := range p.Filter(Query{Page: q.Page}) {
			if span.IoU(*q.BBox) > bboxTextThreshold {
				out = append(out, span)
			}
		}
		return out

	case q.Page != 0 && q.Block != 0:
		var out []Span
		for _, span := range p.spans {
			if span.PageNumber == q.Page && span.BlockNumber == q.Block {
				out = append(out, span)
			}
		}
		return out

	case q.Page != 0:
		var out []Span
		for _, span := range p.spans {
			if span.PageNumber == q.Page {
				out = append(out, span)
			}
		}
		return out

	case q.WordLimit > 0:
		// Word-budget window: skip spans until the cumulative count reaches
		// the offset, then collect until the limit is filled. Spans are never
		// split, so the window may slightly exceed the limit.
		var out []Span
		currentCount := 0
		addedCount := 0
		for _, span := range p.spans {
			currentCount += span.WordCount
			if currentCount < q.WordOffset {
				continue
			}
			if addedCount >= q.WordLimit {
				break
			}
			out = append(out, span)
			addedCount += span.WordCount
		}
		return out

	default:
		return p.spans
	}
}

// GetTexts returns the cleaned texts of spans matching the query
func (p *Prediction) GetTexts(q Query) []string {
	spans := p.Filter(q)
	texts := make([]string, 0, len(spans))
	for _, span := range spans {
		if span.Clean() {
			texts = append(texts, span.Text)
		}
	}
	return texts
}

// GetText returns the space-joined text of spans matching the query
func (p *Prediction) GetText(q Query) string {
	return strings.Join(p.GetTexts(q), " ")
}

// GetBlockWiseText returns {page: {block: {text, bbox}}} for the blocks export
func (p *Prediction) GetBlockWiseText() map[int]map[int]BlockText {
	out := make(map[int]map[int]BlockText, len(p.pages))
	for _, page := range p.pages {
		out[page] = make(map[int]BlockText, len(p.blocks[page]))
		for _, block := range p.blocks[page] {
			out[page][block] = BlockText{
				Text: p.GetText(Query{Page: page, Block: block}),
				BBox: p.blockBBoxes[page][block],
			}
		}
	}
	return out
}

// GetSpanWiseText returns {page: {span_id: {text, bbox}}} for the spans export
func (p *Prediction) GetSpanWiseText() map[int]map[int]SpanText {
	out := make(map[int]map[int]SpanText, len(p.pages))
	for _, page := range p.pages {
		spans := p.Filter(Query{Page: page})
		out[page] = make(map[int]SpanText, len(spans))
		for _, span := range spans {
			out[page][span.ID] = SpanText{Text: span.Text, BBox: span.BBox}
		}
	}
	return out
}

// GetPageWiseJSON returns {page: {text}} for the page-text export
func (p *Prediction) GetPageWiseJSON() map[int]PageText {
	out := make(map[int]PageText, len(p.pages))
	for _, page := range p.pages {
		out[page] = PageText{Text: p.GetText(Query{Page: page})}
	}
	return out
}

// GetWordCount returns the total word count across all spans
func (p *Prediction) GetWordCount() int {
	total := 0
	for _, span := range p.spans {
		total += span.WordCount
	}
	return total
}

// GetBBoxText returns the texts of spans on a page whose IoU with the given
// box exceeds the region threshold
func (p *Prediction) GetBBoxText(page int, bbox geometry.BBox) []string {
	spans := p.Filter(Query{Page: page, BBox: &bbox})
	texts := make([]string, 0, len(spans))
	for _, span := range spans {
		texts = append(texts, span.Text)
	}
	return texts
}

// GetPageList returns the sorted page numbers present in the prediction
func (p *Prediction) GetPageList() []int {
	return p.pages
}

// GetBlockList returns the sorted block numbers on a page
func (p *Prediction) GetBlockList(page int) []int {
	return p.blocks[page]
}

// BlockBBoxes returns the per-page, per-block union bounding boxes
func (p *Prediction) BlockBBoxes() map[int]map[int]geometry.BBox {
	return p.blockBBoxes
}

// Spans returns the full ordered span collection
func (p *Prediction) Spans() []Span {
	return p.spans
}

// IsSinglePage reports whether the prediction covers exactly one page
func (p *Prediction) IsSinglePage() bool {
	return len(p.pages) == 1
}

// AddSpan inserts a span on the given page keeping the page's spans ordered
// by the top edge of their boxes
func (p *Prediction) AddSpan(span Span, page int) {
	span.PageNumber = page

	insertAt := len(p.spans)
	for i, existing := range p.spans {
		if existing.PageNumber != page {
			continue
		}
		if span.BBox[1] <= existing.BBox[1] {
			insertAt = i
			break
		}
		insertAt = i + 1
	}

	p.spans = append(p.spans, Span{})
	copy(p.spans[insertAt+1:], p.spans[insertAt:])
	p.spans[insertAt] = span

	p.rebuildIndex()
}

// Merge appends a single-page prediction (as produced by the OCR backend) as
// the given page number, renumbering its spans and carrying its block bboxes.
func (p *Prediction) Merge(other *Prediction, page int) {
	for _, span := range other.spans {
		span.PageNumber = page
		p.spans = append(p.spans, span)
	}

	if boxes, ok := other.blockBBoxes[1]; ok {
		p.blockBBoxes[page] = boxes
	}

	p.rebuildIndex()
}
