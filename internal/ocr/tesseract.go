/**
 * Tesseract OCR backend for the Annotation Worker
 *
 * Produces word-level detections with confidence and block/line grouping via
 * gosseract, then assembles them into line-granularity spans. The output is a
 * single-page document.Prediction; multi-page documents are OCR'd page by
 * page and merged downstream.
 */

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"

	_ "image/jpeg"

	"github.com/otiai10/gosseract/v2"

	"github.com/adverant/nexus/annotation-worker/internal/document"
	"github.com/adverant/nexus/annotation-worker/internal/geometry"
	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

// Engine wraps Tesseract word detection and span assembly
type Engine struct {
	lang               string
	duplicateThreshold float64
	logger             *logging.Logger
}

// EngineConfig holds OCR engine configuration
type EngineConfig struct {
	Language           string
	DuplicateThreshold float64
}

// NewEngine creates a Tesseract-backed OCR engine
func NewEngine(cfg *EngineConfig) *Engine {
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	threshold := cfg.DuplicateThreshold
	if threshold <= 0 {
		threshold = DefaultDuplicateThreshold
	}
	return &Engine{
		lang:               lang,
		duplicateThreshold: threshold,
		logger:             logging.NewLogger("ocr"),
	}
}

// Predict runs word detection on a raster image and returns a single-page
// prediction with line-level spans and per-block union bboxes. Failures are
// returned to the caller for status recording; no internal retry.
func (e *Engine) Predict(imageData []byte, removeDuplicates bool) (*document.Prediction, error) {
	prepared, size, err := preprocess(imageData)
	if err != nil {
		return nil, fmt.Errorf("failed to preprocess image: %w", err)
	}

	words, blockBBoxes, err := e.detectWords(prepared, size)
	if err != nil {
		return nil, err
	}
	e.logger.Info("Detected words", "count", len(words), "resolution", fmt.Sprintf("%dx%d", int(size.Width), int(size.Height)))

	if removeDuplicates {
		before := len(words)
		words = RemoveOverlappingWords(words, e.duplicateThreshold)
		if removed := before - len(words); removed > 0 {
			e.logger.Info("Removed overlapping words", "removed", removed)
		}
	}

	spans := AssembleLines(words)
	e.logger.Info("Assembled text lines", "spans", len(spans))

	return document.NewPrediction(spans, map[int]map[int]geometry.BBox{1: blockBBoxes}), nil
}

// detectWords runs Tesseract in data mode and converts the word rows. Rows
// with empty text are discarded; boxes are normalized against the page size.
func (e *Engine) detectWords(imageData []byte, size geometry.PageSize) ([]document.Word, map[int]geometry.BBox, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(e.lang); err != nil {
		return nil, nil, fmt.Errorf("failed to set OCR language: %w", err)
	}
	if err := client.SetImageFromBytes(imageData); err != nil {
		return nil, nil, fmt.Errorf("failed to set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, nil, fmt.Errorf("tesseract word detection failed: %w", err)
	}

	numberer := newLineNumberer()
	blockBBoxes := make(map[int]geometry.BBox)
	words := make([]document.Word, 0, len(boxes))

	for _, box := range boxes {
		text := box.Word
		if strings.TrimSpace(text) == "" {
			continue
		}

		lineNum := numberer.lineNumber(box.BlockNum, box.ParNum, box.LineNum)
		bbox := geometry.Normalize(geometry.BBox{
			float64(box.Box.Min.X),
			float64(box.Box.Min.Y),
			float64(box.Box.Max.X),
			float64(box.Box.Max.Y),
		}, size)

		words = append(words, document.Word{
			Text:       text,
			BBox:       bbox,
			Confidence: box.Confidence,
			BlockNum:   box.BlockNum,
			LineNum:    lineNum,
		})

		if existing, ok := blockBBoxes[box.BlockNum]; ok {
			blockBBoxes[box.BlockNum] = existing.Expand(bbox)
		} else {
			blockBBoxes[box.BlockNum] = bbox
		}
	}

	return words, blockBBoxes, nil
}

// preprocess decodes the image, drops the alpha channel, and converts to
// grayscale, returning a PNG along with the page size
func preprocess(imageData []byte) ([]byte, geometry.PageSize, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, geometry.PageSize{}, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return nil, geometry.PageSize{}, fmt.Errorf("failed to encode grayscale image: %w", err)
	}

	size := geometry.PageSize{
		Height: float64(bounds.Dy()),
		Width:  float64(bounds.Dx()),
	}
	return buf.Bytes(), size, nil
}
