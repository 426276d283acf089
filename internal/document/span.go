/**
 * Span and Word text containers for the Annotation Worker
 *
 * A Span is the atomic text unit carried through the pipeline: a run of text
 * with a normalized bounding box, page and block association. Words only exist
 * inside the OCR backend and are consumed to build line-level spans.
 */

package document

import (
	"strings"

	"github.com/adverant/nexus/annotation-worker/internal/geometry"
)

// SpanType identifies which extraction backend produced a span
type SpanType string

const (
	SpanTypeOCR    SpanType = "ocr"
	SpanTypeScrape SpanType = "scrape"
)

// Word is a single OCR word detection. Ephemeral: assembled into Spans at line
// granularity and discarded.
type Word struct {
	Text       string
	BBox       geometry.BBox
	Confidence float64
	BlockNum   int
	LineNum    int
}

// Span is a contiguous run of text with a normalized bounding box.
// Immutable after construction apart from the one-time text cleanup.
// Serialized as-is into the per-page extraction blobs.
type Span struct {
	ID          int           `json:"id"`
	Text        string        `json:"text"`
	WordCount   int           `json:"word_count"`
	BBox        geometry.BBox `json:"bbox"`
	PageNumber  int           `json:"page"`
	BlockNumber int           `json:"block"`
	Confidence  float64       `json:"confidence,omitempty"`
	Type        SpanType      `json:"type"`
}

// NewSpan builds a span, applying stray-character cleanup once. The bbox must
// already be normalized to [0,1].
func NewSpan(id int, text string, bbox geometry.BBox, pageNumber, blockNumber int, spanType SpanType) Span {
	cleaned := cleanText(text)
	return Span{
		ID:          id,
		Text:        cleaned,
		WordCount:   len(strings.Fields(cleaned)),
		BBox:        bbox,
		PageNumber:  pageNumber,
		BlockNumber: blockNumber,
		Type:        spanType,
	}
}

// SpanFromWords assembles one span from OCR words sharing a line. Word boxes
// must already be normalized. Confidence is the mean of the word confidences.
func SpanFromWords(id int, words []Word, pageNumber, blockNumber int) Span {
	texts := make([]string, 0, len(words))
	boxes := make([]geometry.BBox, 0, len(words))
	confidence := 0.0
	for _, w := range words {
		texts = append(texts, w.Text)
		boxes = append(boxes, w.BBox)
		confidence += w.Confidence
	}
	if len(words) > 0 {
		confidence /= float64(len(words))
	}

	span := NewSpan(id, strings.Join(texts, " "), geometry.ParentBBox(boxes), pageNumber, blockNumber, SpanTypeOCR)
	span.Confidence = confidence
	return span
}

// Clean reports whether the span carries usable text after cleanup
func (s Span) Clean() bool {
	return strings.TrimSpace(s.Text) != ""
}

// IoU returns the overlap ratio between the span box and the given box
func (s Span) IoU(bbox geometry.BBox) float64 {
	return geometry.IoU(s.BBox, bbox)
}

func cleanText(text string) string {
	text = strings.ReplaceAll(text, "�", " ")
	text = strings.ReplaceAll(text, "  ", " ")
	return text
}
