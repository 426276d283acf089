/**
 * Native PDF text-layer extraction for the Annotation Worker
 *
 * For text-native PDFs this is far cheaper and more accurate than OCR: spans
 * come straight from the document's positioned text runs, grouped into lines
 * and blocks, with all boxes normalized to [0,1] page coordinates.
 */

package extract

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/adverant/nexus/annotation-worker/internal/document"
	"github.com/adverant/nexus/annotation-worker/internal/geometry"
	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

// Scraper extracts spans from a PDF's native text layer
type Scraper struct {
	logger *logging.Logger
}

// NewScraper creates a native PDF scraper
func NewScraper() *Scraper {
	return &Scraper{logger: logging.NewLogger("scrape")}
}

// PageCount returns the number of pages in the PDF
func (s *Scraper) PageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()
	return r.NumPage(), nil
}

// Predict scrapes all pages into a document prediction. Block numbers are
// 1-indexed per page; the last span of each block carries a trailing newline
// so block boundaries survive linear concatenation.
func (s *Scraper) Predict(path string) (*document.Prediction, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	var spans []document.Span
	blockBBoxes := make(map[int]map[int]geometry.BBox)

	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		size, err := pageSize(page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", pageNum, err)
		}

		pageSpans, pageBlocks := s.scrapePage(page, pageNum, size)
		spans = append(spans, pageSpans...)
		blockBBoxes[pageNum] = pageBlocks
		s.logger.Info("Page scraped", "page", pageNum, "spans", len(pageSpans), "blocks", len(pageBlocks))
	}

	s.logger.Info("Native scrape done", "pages", r.NumPage(), "spans", len(spans))
	return document.NewPrediction(spans, blockBBoxes), nil
}

// scrapePage converts one page's text runs into spans, one per line, grouped
// into blocks on vertical gaps
func (s *Scraper) scrapePage(page pdf.Page, pageNum int, size geometry.PageSize) ([]document.Span, map[int]geometry.BBox) {
	var spans []document.Span
	blockBBoxes := make(map[int]geometry.BBox)

	content := page.Content()
	lines := groupIntoLines(content.Text)
	blocks := groupIntoBlocks(lines)

	spanID := 1
	for blockIndex, block := range blocks {
		blockNumber := blockIndex + 1
		lastSpanIndex := -1

		for _, ln := range block {
			text := lineText(ln)
			if text == "" {
				continue
			}

			bbox := geometry.Normalize(lineBBox(ln, size), size)
			spans = append(spans, document.NewSpan(spanID, text, bbox, pageNum, blockNumber, document.SpanTypeScrape))
			lastSpanIndex = len(spans) - 1
			spanID++

			if existing, ok := blockBBoxes[blockNumber]; ok {
				blockBBoxes[blockNumber] = existing.Expand(bbox)
			} else {
				blockBBoxes[blockNumber] = bbox
			}
		}

		if lastSpanIndex >= 0 {
			spans[lastSpanIndex].Text += "\n"
		}
	}

	return spans, blockBBoxes
}

// lineBBox computes the pixel-space box of a line, flipping the PDF's
// bottom-left origin to the top-left origin used by the rest of the pipeline
func lineBBox(ln line, size geometry.PageSize) geometry.BBox {
	x1 := ln.runs[0].X
	x2 := ln.runs[0].X + ln.runs[0].W
	for _, run := range ln.runs[1:] {
		if run.X < x1 {
			x1 = run.X
		}
		if run.X+run.W > x2 {
			x2 = run.X + run.W
		}
	}

	top := size.Height - ln.baseline - ln.height
	bottom := size.Height - ln.baseline
	if top < 0 {
		top = 0
	}
	return geometry.BBox{x1, top, x2, bottom}
}

// pageSize reads the page MediaBox dimensions
func pageSize(page pdf.Page) (geometry.PageSize, error) {
	mediaBox := page.V.Key("MediaBox")
	if mediaBox.IsNull() || mediaBox.Len() != 4 {
		return geometry.PageSize{}, fmt.Errorf("missing or malformed MediaBox")
	}

	x1 := mediaBox.Index(0).Float64()
	y1 := mediaBox.Index(1).Float64()
	x2 := mediaBox.Index(2).Float64()
	y2 := mediaBox.Index(3).Float64()

	width := x2 - x1
	height := y2 - y1
	if width <= 0 || height <= 0 {
		return geometry.PageSize{}, fmt.Errorf("degenerate MediaBox %v", mediaBox)
	}
	return geometry.PageSize{Height: height, Width: width}, nil
}

// Stats collects the per-page text and image presence used by the
// readability classifier
func (s *Scraper) Stats(path string) ([]PageStats, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	stats := make([]PageStats, 0, r.NumPage())
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		page := r.Page(pageNum)
		if page.V.IsNull() {
			stats = append(stats, PageStats{})
			continue
		}

		ps := PageStats{}
		for _, ln := range groupIntoLines(page.Content().Text) {
			x1 := ln.runs[0].X
			x2 := ln.runs[len(ln.runs)-1].X + ln.runs[len(ln.runs)-1].W
			ps.TextArea += (x2 - x1) * ln.height
		}
		ps.ImageArea = pageImageArea(page)
		stats = append(stats, ps)
	}
	return stats, nil
}

// pageImageArea sums the dimensions of image XObjects on a page. Only the
// zero/non-zero distinction feeds the classifier, so image pixel units are
// fine here.
func pageImageArea(page pdf.Page) (area float64) {
	defer func() {
		// Malformed resource streams can panic inside the parser
		recover()
	}()

	resources := page.V.Key("Resources")
	if resources.IsNull() {
		return 0
	}
	xObjects := resources.Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return 0
	}

	for _, key := range xObjects.Keys() {
		obj := xObjects.Key(key)
		if obj.IsNull() {
			continue
		}
		subtype := obj.Key("Subtype")
		if subtype.IsNull() || subtype.Name() != "Image" {
			continue
		}
		width := float64(obj.Key("Width").Int64())
		height := float64(obj.Key("Height").Int64())
		if width > 0 && height > 0 {
			area += width * height
		}
	}
	return area
}

// IsMachineReadableFile classifies a PDF on disk
func (s *Scraper) IsMachineReadableFile(path string) (bool, error) {
	stats, err := s.Stats(path)
	if err != nil {
		return false, err
	}
	readable := IsMachineReadable(stats)
	s.logger.Info("Readability classified", "pages", len(stats), "machineReadable", readable)
	return readable, nil
}
