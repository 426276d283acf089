/**
 * Blob-backed annotation store.
 *
 * Owns the key layout of every document artifact: uploaded originals,
 * per-page OCR results, annotation digests, and chat context/history.
 * Digest keys are {user}/{doc}/{doc}-{type}.json so one prefix listing
 * covers a document's whole digest set.
 */

package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/adverant/nexus/annotation-worker/internal/annotate"
)

// Blob is the object storage surface the store runs on
type Blob interface {
	PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error
	GetObject(ctx context.Context, bucket, key string) ([]byte, error)
	PresignURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}

// Buckets names the object storage buckets per concern
type Buckets struct {
	Uploads     string
	Digests     string
	PageOCR     string
	PageImages  string
	ChatContext string
	ChatHistory string
}

// AnnotationStore persists annotation artifacts in object storage
type AnnotationStore struct {
	blob    Blob
	buckets Buckets
}

// NewAnnotationStore creates an annotation store over the given blob backend
func NewAnnotationStore(blob Blob, buckets Buckets) *AnnotationStore {
	return &AnnotationStore{blob: blob, buckets: buckets}
}

// AnnotationKey is the digest key of one (user, document, type)
func AnnotationKey(userID, documentID string, annotationType annotate.Type) string {
	return fmt.Sprintf("%s/%s/%s-%s.json", userID, documentID, documentID, annotationType)
}

// PageOCRKey is the per-page OCR result key
func PageOCRKey(documentID string, page int) string {
	return fmt.Sprintf("%s-page-%04d-ocr", documentID, page)
}

// PageImageKey is the rasterized page image key
func PageImageKey(documentID string, page int) string {
	return fmt.Sprintf("%s-page-%04d.png", documentID, page)
}

// UploadKey is the original document key
func UploadKey(userID, documentID, extension string) string {
	return fmt.Sprintf("%s/%s/%s%s", userID, documentID, documentID, extension)
}

func chatKey(userID, documentID, chatID string) string {
	return fmt.Sprintf("%s/%s/%s.json", userID, documentID, chatID)
}

// PutAnnotation stores an enveloped annotation digest
func (s *AnnotationStore) PutAnnotation(ctx context.Context, userID, documentID string, annotationType annotate.Type, payload []byte) error {
	return s.blob.PutObject(ctx, s.buckets.Digests,
		AnnotationKey(userID, documentID, annotationType), payload, "application/json")
}

// GetAnnotation loads a stored annotation digest
func (s *AnnotationStore) GetAnnotation(ctx context.Context, userID, documentID string, annotationType annotate.Type) ([]byte, error) {
	return s.blob.GetObject(ctx, s.buckets.Digests, AnnotationKey(userID, documentID, annotationType))
}

// GetUpload loads the original uploaded document
func (s *AnnotationStore) GetUpload(ctx context.Context, userID, documentID, extension string) ([]byte, error) {
	return s.blob.GetObject(ctx, s.buckets.Uploads, UploadKey(userID, documentID, extension))
}

// PresignUpload returns a time-limited download URL for the original document
func (s *AnnotationStore) PresignUpload(ctx context.Context, userID, documentID, extension string, ttl time.Duration) (string, error) {
	return s.blob.PresignURL(ctx, s.buckets.Uploads, UploadKey(userID, documentID, extension), ttl)
}

// PutPageOCR stores one page's OCR result
func (s *AnnotationStore) PutPageOCR(ctx context.Context, documentID string, page int, payload []byte) error {
	return s.blob.PutObject(ctx, s.buckets.PageOCR, PageOCRKey(documentID, page), payload, "application/json")
}

// GetPageOCR loads one page's OCR result
func (s *AnnotationStore) GetPageOCR(ctx context.Context, documentID string, page int) ([]byte, error) {
	return s.blob.GetObject(ctx, s.buckets.PageOCR, PageOCRKey(documentID, page))
}

// PutPageImage stores a rasterized page image
func (s *AnnotationStore) PutPageImage(ctx context.Context, documentID string, page int, image []byte) error {
	return s.blob.PutObject(ctx, s.buckets.PageImages, PageImageKey(documentID, page), image, "image/png")
}

// PresignPageImage returns a time-limited download URL for a page image,
// suitable for vision model prompts
func (s *AnnotationStore) PresignPageImage(ctx context.Context, documentID string, page int, ttl time.Duration) (string, error) {
	return s.blob.PresignURL(ctx, s.buckets.PageImages, PageImageKey(documentID, page), ttl)
}

// GetChatContext loads a chat's persisted conversation
func (s *AnnotationStore) GetChatContext(ctx context.Context, userID, documentID, chatID string) ([]byte, error) {
	return s.blob.GetObject(ctx, s.buckets.ChatContext, chatKey(userID, documentID, chatID))
}

// PutChatContext stores a chat's conversation
func (s *AnnotationStore) PutChatContext(ctx context.Context, userID, documentID, chatID string, payload []byte) error {
	return s.blob.PutObject(ctx, s.buckets.ChatContext, chatKey(userID, documentID, chatID), payload, "application/json")
}

// GetChatHistory loads a chat's request/response history
func (s *AnnotationStore) GetChatHistory(ctx context.Context, userID, documentID, chatID string) ([]byte, error) {
	return s.blob.GetObject(ctx, s.buckets.ChatHistory, chatKey(userID, documentID, chatID))
}

// PutChatHistory stores a chat's request/response history
func (s *AnnotationStore) PutChatHistory(ctx context.Context, userID, documentID, chatID string, payload []byte) error {
	return s.blob.PutObject(ctx, s.buckets.ChatHistory, chatKey(userID, documentID, chatID), payload, "application/json")
}
