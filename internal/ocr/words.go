/**
 * Word-level OCR post-processing: global line numbering, duplicate word
 * suppression, and line-granularity span assembly.
 *
 * All functions here are pure over document.Word slices so they can be tested
 * without a Tesseract installation.
 */

package ocr

import (
	"github.com/adverant/nexus/annotation-worker/internal/document"
	"github.com/adverant/nexus/annotation-worker/internal/geometry"
)

// DefaultDuplicateThreshold is the SmallerIoU above which two words are
// treated as double-detections of the same glyph region.
const DefaultDuplicateThreshold = 0.75

// lineNumberer maps the engine's block/paragraph/line nesting to a single
// flat line id across the whole page, assigned in first-seen order.
type lineNumberer struct {
	seen  map[int]int
	order int
}

func newLineNumberer() *lineNumberer {
	return &lineNumberer{seen: make(map[int]int)}
}

// lineNumber returns the dense 1-based line id for a block/paragraph/line
// triple, allocating a new id on first sight
func (ln *lineNumberer) lineNumber(block, paragraph, line int) int {
	key := block*10000 + paragraph*100 + line
	if id, ok := ln.seen[key]; ok {
		return id
	}
	ln.order++
	ln.seen[key] = ln.order
	return ln.order
}

// RemoveOverlappingWords drops OCR double-detections: for any two words whose
// SmallerIoU exceeds the threshold, the one with the longer text survives
// (tie keeps the first).
func RemoveOverlappingWords(words []document.Word, threshold float64) []document.Word {
	out := make([]document.Word, 0, len(words))
	skip := make(map[int]bool)

	for i, first := range words {
		if skip[i] {
			continue
		}
		overlapped := false
		for j := i + 1; j < len(words); j++ {
			second := words[j]
			if geometry.SmallerIoU(first.BBox, second.BBox) <= threshold {
				continue
			}
			if len(second.Text) > len(first.Text) {
				out = append(out, second)
			} else {
				out = append(out, first)
			}
			skip[j] = true
			overlapped = true
			break
		}
		if !overlapped {
			out = append(out, first)
		}
	}

	return out
}

// AssembleLines groups words by their global line id and builds one span per
// line, in first-seen line order. Span ids start at 1; the block number is
// carried from the line's words; page number is fixed to 1 because OCR sees a
// single logical page per invocation.
func AssembleLines(words []document.Word) []document.Span {
	lineWords := make(map[int][]document.Word)
	var lineOrder []int

	for _, w := range words {
		if _, ok := lineWords[w.LineNum]; !ok {
			lineOrder = append(lineOrder, w.LineNum)
		}
		lineWords[w.LineNum] = append(lineWords[w.LineNum], w)
	}

	spans := make([]document.Span, 0, len(lineOrder))
	spanID := 1
	for _, line := range lineOrder {
		ws := lineWords[line]
		spans = append(spans, document.SpanFromWords(spanID, ws, 1, ws[0].BlockNum))
		spanID++
	}
	return spans
}
