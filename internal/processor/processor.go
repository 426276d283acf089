/**
 * Document Pipeline for the Annotation Worker
 *
 * Orchestrates the full document lifecycle:
 * - Extraction: native PDF scraping for machine-readable documents, page
 *   rasterization plus Tesseract OCR for everything else
 * - Persistence: per-page extraction blobs, document catalog row, span
 *   embeddings in the vector index
 * - Annotation: runs one annotation type at a time over the reassembled
 *   prediction
 * - Chat: context-grounded conversation over stored annotations
 */

package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adverant/nexus/annotation-worker/internal/annotate"
	"github.com/adverant/nexus/annotation-worker/internal/document"
	apperrors "github.com/adverant/nexus/annotation-worker/internal/errors"
	"github.com/adverant/nexus/annotation-worker/internal/extract"
	"github.com/adverant/nexus/annotation-worker/internal/geometry"
	"github.com/adverant/nexus/annotation-worker/internal/llm"
	"github.com/adverant/nexus/annotation-worker/internal/logging"
	"github.com/adverant/nexus/annotation-worker/internal/ocr"
	"github.com/adverant/nexus/annotation-worker/internal/storage"
)

// defaultOCRConcurrency bounds the page OCR fan-out; each in-flight page
// holds a full raster image in memory while Tesseract runs
const defaultOCRConcurrency = 4

// basicTypes are the extraction exports materialized right after a document
// is extracted; none of them needs a model call
var basicTypes = []annotate.Type{
	annotate.TypeBlocks,
	annotate.TypeSpans,
	annotate.TypePageText,
	annotate.TypeFullText,
	annotate.TypeInfoSnippets,
}

// Config holds pipeline configuration
type Config struct {
	StorageManager *storage.Manager
	LLMClient      *llm.Client
	VoyageAPIKey   string

	TesseractLanguage  string
	DuplicateThreshold float64
	MinimumBatchWords  int
	TempDir            string
	RasterDPI          int
	OCRConcurrency     int
	StalenessWindow    int // seconds
}

// ExtractRequest asks for a document to be extracted and indexed
type ExtractRequest struct {
	DocumentID   string
	UserID       string
	Filename     string
	Extension    string
	DocumentType string
}

// ExtractResult summarizes one extraction run
type ExtractResult struct {
	PageCount        int  `json:"pageCount"`
	MachineReadable  bool `json:"machineReadable"`
	SpanCount        int  `json:"spanCount"`
	IndexedSpans     int  `json:"indexedSpans"`
	ProcessingTimeMs int64 `json:"processingTimeMs"`
}

// AnnotateRequest asks for one annotation type over an extracted document
type AnnotateRequest struct {
	DocumentID     string
	UserID         string
	AnnotationType annotate.Type
	Question       string
}

// pageExtract is the persisted form of one page's extraction output
type pageExtract struct {
	Page        int                   `json:"page"`
	Spans       []document.Span       `json:"spans"`
	BlockBBoxes map[int]geometry.BBox `json:"block_bboxes"`
}

// Pipeline ties extraction, storage, annotation, and chat together
type Pipeline struct {
	storage    *storage.Manager
	embeddings *EmbeddingClient
	scraper    *extract.Scraper
	ocr        *ocr.Engine
	runner     *annotate.Runner
	chat       *annotate.ChatEngine
	logger     *logging.Logger

	tempDir        string
	rasterDPI      int
	ocrConcurrency int
	staleness      time.Duration
}

// NewPipeline creates a document pipeline
func NewPipeline(cfg *Config) (*Pipeline, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.StorageManager == nil {
		return nil, fmt.Errorf("storage manager is required")
	}
	if cfg.LLMClient == nil {
		return nil, fmt.Errorf("LLM client is required")
	}

	embeddings, err := NewEmbeddingClient(cfg.VoyageAPIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}

	manager := cfg.StorageManager
	runner := annotate.NewRunner(cfg.LLMClient, manager.Postgres(), manager.Store(), manager,
		&annotate.RunnerConfig{MinimumBatchWords: cfg.MinimumBatchWords})
	chat := annotate.NewChatEngine(cfg.LLMClient, manager.Store(), manager.Store(), manager)

	concurrency := cfg.OCRConcurrency
	if concurrency <= 0 {
		concurrency = defaultOCRConcurrency
	}
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	staleness := annotate.DefaultStalenessWindow
	if cfg.StalenessWindow > 0 {
		staleness = time.Duration(cfg.StalenessWindow) * time.Second
	}

	return &Pipeline{
		storage:    manager,
		embeddings: embeddings,
		scraper:    extract.NewScraper(),
		ocr: ocr.NewEngine(&ocr.EngineConfig{
			Language:           cfg.TesseractLanguage,
			DuplicateThreshold: cfg.DuplicateThreshold,
		}),
		runner:         runner,
		chat:           chat,
		logger:         logging.NewLogger("pipeline"),
		tempDir:        tempDir,
		rasterDPI:      cfg.RasterDPI,
		ocrConcurrency: concurrency,
		staleness:      staleness,
	}, nil
}

// Extract downloads the uploaded document, builds its prediction via the
// appropriate backend, persists the per-page extraction blobs and catalog
// row, indexes span embeddings, and materializes the basic exports.
func (p *Pipeline) Extract(ctx context.Context, req *ExtractRequest) (*ExtractResult, error) {
	start := time.Now()

	if req.DocumentID == "" || req.UserID == "" {
		return nil, apperrors.NewInvalidInputError(req.DocumentID, "documentId and userId are required")
	}
	extension := req.Extension
	if extension == "" {
		extension = ".pdf"
	}

	path, cleanup, err := p.fetchUpload(ctx, req, extension)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	readable, err := p.scraper.IsMachineReadableFile(path)
	if err != nil {
		return nil, apperrors.NewUpstreamFailedError(req.DocumentID, "readability classification", err)
	}

	var pred *document.Prediction
	if readable {
		pred, err = p.scraper.Predict(path)
	} else {
		pred, err = p.extractWithOCR(ctx, req.DocumentID, path)
	}
	if err != nil {
		return nil, apperrors.NewUpstreamFailedError(req.DocumentID, "extraction", err)
	}

	if err := p.persistPages(ctx, req.DocumentID, pred); err != nil {
		return nil, err
	}

	pageCount := len(pred.GetPageList())
	if err := p.storage.Postgres().UpsertDocument(ctx, &storage.DocumentRecord{
		DocumentID:      req.DocumentID,
		UserID:          req.UserID,
		Filename:        req.Filename,
		Extension:       extension,
		DocumentType:    req.DocumentType,
		PageCount:       pageCount,
		MachineReadable: readable,
	}); err != nil {
		return nil, err
	}

	indexed, err := p.indexSpans(ctx, req.DocumentID, pred)
	if err != nil {
		// retrieval degrades but the document stays usable
		p.logger.Error("Span indexing failed", "documentId", req.DocumentID, "error", err)
		indexed = 0
	}

	for _, t := range basicTypes {
		if _, err := p.runner.Run(ctx, annotate.Request{
			UserID:     req.UserID,
			DocumentID: req.DocumentID,
			Type:       t,
		}, pred); err != nil {
			p.logger.Error("Basic export failed",
				"documentId", req.DocumentID, "annotationType", string(t), "error", err)
		}
	}

	result := &ExtractResult{
		PageCount:        pageCount,
		MachineReadable:  readable,
		SpanCount:        len(pred.Spans()),
		IndexedSpans:     indexed,
		ProcessingTimeMs: time.Since(start).Milliseconds(),
	}
	p.logger.Info("Extraction finished",
		"documentId", req.DocumentID,
		"pages", result.PageCount,
		"machineReadable", result.MachineReadable,
		"spans", result.SpanCount,
		"durationMs", result.ProcessingTimeMs)
	return result, nil
}

// Annotate reassembles the document prediction from its per-page blobs and
// runs the requested annotation type over it
func (p *Pipeline) Annotate(ctx context.Context, req *AnnotateRequest) (*annotate.Envelope, error) {
	if req.DocumentID == "" || req.UserID == "" {
		return nil, apperrors.NewInvalidInputError(req.DocumentID, "documentId and userId are required")
	}

	pred, err := p.loadPrediction(ctx, req.UserID, req.DocumentID)
	if err != nil {
		return nil, err
	}

	return p.runner.Run(ctx, annotate.Request{
		UserID:     req.UserID,
		DocumentID: req.DocumentID,
		Type:       req.AnnotationType,
		Question:   req.Question,
	}, pred)
}

// Chat runs one chat turn against a document's stored annotations
func (p *Pipeline) Chat(ctx context.Context, req annotate.ChatRequest) (*annotate.ChatReply, error) {
	return p.chat.Chat(ctx, req)
}

// Progress reports annotation completion counters for a document, applying
// the configured staleness window
func (p *Pipeline) Progress(ctx context.Context, documentID string) (annotate.Progress, error) {
	return p.storage.Progress(ctx, documentID, p.staleness)
}

// fetchUpload pulls the original document from object storage into a temp
// file. The returned cleanup removes the file.
func (p *Pipeline) fetchUpload(ctx context.Context, req *ExtractRequest, extension string) (string, func(), error) {
	data, err := p.storage.Store().GetUpload(ctx, req.UserID, req.DocumentID, extension)
	if err != nil {
		return "", nil, apperrors.NewNotFoundError(req.DocumentID, "uploaded document")
	}

	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	path := filepath.Join(p.tempDir, req.DocumentID+extension)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	return path, func() { os.Remove(path) }, nil
}

// extractWithOCR rasterizes and OCRs every page concurrently, storing the
// page images as it goes, then merges the single-page predictions in page
// order
func (p *Pipeline) extractWithOCR(ctx context.Context, documentID, path string) (*document.Prediction, error) {
	pageCount, err := p.scraper.PageCount(path)
	if err != nil {
		return nil, err
	}
	if pageCount == 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	pagePredictions := make([]*document.Prediction, pageCount)
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.ocrConcurrency)

	for page := 1; page <= pageCount; page++ {
		page := page
		group.Go(func() error {
			image, err := extract.RasterizePage(groupCtx, path, page, p.rasterDPI)
			if err != nil {
				return err
			}
			if err := p.storage.Store().PutPageImage(groupCtx, documentID, page, image); err != nil {
				p.logger.Warn("Failed to store page image",
					"documentId", documentID, "page", page, "error", err)
			}

			pred, err := p.ocr.Predict(image, true)
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			pagePredictions[page-1] = pred
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	merged := document.NewPrediction(nil, nil)
	for page, pagePred := range pagePredictions {
		merged.Merge(pagePred, page+1)
	}
	return merged, nil
}

// persistPages stores one extraction blob per page so annotation jobs can
// reassemble the prediction without touching the original document
func (p *Pipeline) persistPages(ctx context.Context, documentID string, pred *document.Prediction) error {
	blockBBoxes := pred.BlockBBoxes()
	for _, page := range pred.GetPageList() {
		pe := pageExtract{
			Page:        page,
			Spans:       pred.Filter(document.Query{Page: page}),
			BlockBBoxes: blockBBoxes[page],
		}
		payload, err := json.Marshal(pe)
		if err != nil {
			return fmt.Errorf("failed to marshal page %d extract: %w", page, err)
		}
		if err := p.storage.Store().PutPageOCR(ctx, documentID, page, payload); err != nil {
			return fmt.Errorf("failed to store page %d extract: %w", page, err)
		}
	}
	return nil
}

// loadPrediction reassembles a document's prediction from its per-page
// extraction blobs
func (p *Pipeline) loadPrediction(ctx context.Context, userID, documentID string) (*document.Prediction, error) {
	record, err := p.storage.Postgres().GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, apperrors.NewNotFoundError(documentID, "document record")
	}

	var spans []document.Span
	blockBBoxes := make(map[int]map[int]geometry.BBox)
	for page := 1; page <= record.PageCount; page++ {
		payload, err := p.storage.Store().GetPageOCR(ctx, documentID, page)
		if err != nil {
			return nil, apperrors.NewNotFoundError(documentID, fmt.Sprintf("page %d extract", page))
		}
		var pe pageExtract
		if err := json.Unmarshal(payload, &pe); err != nil {
			return nil, fmt.Errorf("failed to decode page %d extract: %w", page, err)
		}
		spans = append(spans, pe.Spans...)
		if len(pe.BlockBBoxes) > 0 {
			blockBBoxes[page] = pe.BlockBBoxes
		}
	}

	return document.NewPrediction(spans, blockBBoxes), nil
}

// indexSpans embeds the clean spans and stores them in the vector index.
// Returns the number of spans indexed.
func (p *Pipeline) indexSpans(ctx context.Context, documentID string, pred *document.Prediction) (int, error) {
	var clean []document.Span
	var texts []string
	for _, span := range pred.Spans() {
		if span.Clean() {
			clean = append(clean, span)
			texts = append(texts, span.Text)
		}
	}
	if len(clean) == 0 {
		return 0, nil
	}

	vectors, err := p.embeddings.GenerateEmbeddingBatch(ctx, texts)
	if err != nil {
		return 0, err
	}
	if err := p.storage.IndexSpans(ctx, documentID, clean, vectors); err != nil {
		return 0, err
	}
	return len(clean), nil
}
