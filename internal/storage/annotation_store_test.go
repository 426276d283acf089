package storage

import (
	"context"
	"testing"
	"time"

	"github.com/adverant/nexus/annotation-worker/internal/annotate"
)

type fakeBlob struct {
	objects map[string][]byte
}

func newFakeBlob() *fakeBlob {
	return &fakeBlob{objects: make(map[string][]byte)}
}

func (f *fakeBlob) PutObject(_ context.Context, bucket, key string, data []byte, _ string) error {
	f.objects[bucket+"/"+key] = data
	return nil
}

func (f *fakeBlob) GetObject(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := f.objects[bucket+"/"+key]
	if !ok {
		return nil, context.Canceled
	}
	return data, nil
}

func (f *fakeBlob) PresignURL(_ context.Context, bucket, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + bucket + "/" + key, nil
}

func TestKeyFormats(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"annotation digest", AnnotationKey("u1", "doc9", annotate.TypeHeadings), "u1/doc9/doc9-headings.json"},
		{"page ocr", PageOCRKey("doc9", 7), "doc9-page-0007-ocr"},
		{"page ocr wide", PageOCRKey("doc9", 123), "doc9-page-0123-ocr"},
		{"page image", PageImageKey("doc9", 7), "doc9-page-0007.png"},
		{"upload", UploadKey("u1", "doc9", ".pdf"), "u1/doc9/doc9.pdf"},
		{"chat", chatKey("u1", "doc9", "chat-3"), "u1/doc9/chat-3.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestAnnotationStoreRoundTrip(t *testing.T) {
	blob := newFakeBlob()
	store := NewAnnotationStore(blob, Buckets{
		Uploads:     "uploads",
		Digests:     "digests",
		PageOCR:     "ocr",
		ChatContext: "chat-ctx",
		ChatHistory: "chat-hist",
	})
	ctx := context.Background()

	if err := store.PutAnnotation(ctx, "u1", "d1", annotate.TypeSummary, []byte(`{"status":"success"}`)); err != nil {
		t.Fatalf("PutAnnotation: %v", err)
	}
	payload, err := store.GetAnnotation(ctx, "u1", "d1", annotate.TypeSummary)
	if err != nil {
		t.Fatalf("GetAnnotation: %v", err)
	}
	if string(payload) != `{"status":"success"}` {
		t.Errorf("payload = %s", payload)
	}

	if err := store.PutPageOCR(ctx, "d1", 3, []byte(`{"spans":[]}`)); err != nil {
		t.Fatalf("PutPageOCR: %v", err)
	}
	if _, err := store.GetPageOCR(ctx, "d1", 3); err != nil {
		t.Errorf("GetPageOCR: %v", err)
	}

	if _, ok := blob.objects["digests/u1/d1/d1-summary.json"]; !ok {
		t.Error("digest stored under unexpected key")
	}
	if _, ok := blob.objects["ocr/d1-page-0003-ocr"]; !ok {
		t.Error("page OCR stored under unexpected key")
	}
}
