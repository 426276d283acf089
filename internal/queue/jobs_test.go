package queue

import (
	"context"
	"testing"

	"github.com/adverant/nexus/annotation-worker/internal/annotate"
	"github.com/adverant/nexus/annotation-worker/internal/processor"
)

type fakePipeline struct {
	extracts  []*processor.ExtractRequest
	annotates []*processor.AnnotateRequest
	chats     []annotate.ChatRequest
	progress  annotate.Progress
}

func (f *fakePipeline) Extract(_ context.Context, req *processor.ExtractRequest) (*processor.ExtractResult, error) {
	f.extracts = append(f.extracts, req)
	return &processor.ExtractResult{PageCount: 2, MachineReadable: true}, nil
}

func (f *fakePipeline) Annotate(_ context.Context, req *processor.AnnotateRequest) (*annotate.Envelope, error) {
	f.annotates = append(f.annotates, req)
	return &annotate.Envelope{Status: "success"}, nil
}

func (f *fakePipeline) Chat(_ context.Context, req annotate.ChatRequest) (*annotate.ChatReply, error) {
	f.chats = append(f.chats, req)
	return &annotate.ChatReply{Response: "ok"}, nil
}

func (f *fakePipeline) Progress(_ context.Context, _ string) (annotate.Progress, error) {
	return f.progress, nil
}

func TestDispatchExtractJob(t *testing.T) {
	pipeline := &fakePipeline{}
	d := NewDispatcher(pipeline)

	payload := []byte(`{"documentId":"d1","userId":"u1","extension":".pdf","documentType":"report"}`)
	result, err := d.Dispatch(context.Background(), TaskExtractDocument, payload)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(pipeline.extracts) != 1 {
		t.Fatalf("extract calls = %d, want 1", len(pipeline.extracts))
	}
	req := pipeline.extracts[0]
	if req.DocumentID != "d1" || req.UserID != "u1" || req.Extension != ".pdf" {
		t.Errorf("unexpected extract request: %+v", req)
	}
	if result.(*processor.ExtractResult).PageCount != 2 {
		t.Errorf("result not passed through")
	}
}

func TestDispatchAnnotateJob(t *testing.T) {
	pipeline := &fakePipeline{}
	d := NewDispatcher(pipeline)

	payload := []byte(`{"documentId":"d1","userId":"u1","annotationType":"headings"}`)
	if _, err := d.Dispatch(context.Background(), TaskAnnotateDocument, payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(pipeline.annotates) != 1 {
		t.Fatalf("annotate calls = %d, want 1", len(pipeline.annotates))
	}
	if pipeline.annotates[0].AnnotationType != annotate.TypeHeadings {
		t.Errorf("annotation type = %q", pipeline.annotates[0].AnnotationType)
	}
}

func TestDispatchAnnotateJobReportsProgress(t *testing.T) {
	pipeline := &fakePipeline{
		progress: annotate.Progress{Completed: 3, Total: 5, InsightComplete: 1, InsightTotal: 2},
	}
	d := NewDispatcher(pipeline)

	payload := []byte(`{"documentId":"d1","userId":"u1","annotationType":"summary"}`)
	result, err := d.Dispatch(context.Background(), TaskAnnotateDocument, payload)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}

	outcome, ok := result.(*AnnotateOutcome)
	if !ok {
		t.Fatalf("result = %T, want *AnnotateOutcome", result)
	}
	if outcome.Envelope == nil || outcome.Envelope.Status != "success" {
		t.Errorf("envelope not passed through: %+v", outcome.Envelope)
	}
	if outcome.Progress.Completed != 3 || outcome.Progress.Total != 5 {
		t.Errorf("progress = %+v", outcome.Progress)
	}
}

func TestDispatchChatJobWithContext(t *testing.T) {
	pipeline := &fakePipeline{}
	d := NewDispatcher(pipeline)

	payload := []byte(`{
		"documentId": "d1",
		"userId": "u1",
		"chatId": "c1",
		"query": "What is this about?",
		"context": {"type": "headings", "headingIndexes": [1, 3]}
	}`)
	if _, err := d.Dispatch(context.Background(), TaskChatQuery, payload); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(pipeline.chats) != 1 {
		t.Fatalf("chat calls = %d, want 1", len(pipeline.chats))
	}

	source, ok := pipeline.chats[0].Context.(annotate.HeadingRefs)
	if !ok {
		t.Fatalf("context source = %T, want HeadingRefs", pipeline.chats[0].Context)
	}
	if len(source.Indexes) != 2 || source.Indexes[0] != 1 || source.Indexes[1] != 3 {
		t.Errorf("indexes = %v", source.Indexes)
	}
}

func TestDispatchUnknownTaskType(t *testing.T) {
	d := NewDispatcher(&fakePipeline{})
	if _, err := d.Dispatch(context.Background(), "transcode-video", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown task type")
	}
}

func TestChatContextSpecSource(t *testing.T) {
	tests := []struct {
		name    string
		spec    ChatContextSpec
		want    any
		wantErr bool
	}{
		{"blocks", ChatContextSpec{Type: "blocks", Blocks: [][2]int{{1, 2}}}, annotate.BlockRange{Blocks: [][2]int{{1, 2}}}, false},
		{"text", ChatContextSpec{Type: "text", Text: "raw"}, annotate.FreeText{Text: "raw"}, false},
		{"question", ChatContextSpec{Type: "question", QuestionIndex: 4}, annotate.QuestionRef{Index: 4}, false},
		{"full", ChatContextSpec{Type: "full"}, annotate.FullDocument{}, false},
		{"unknown", ChatContextSpec{Type: "vibes"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.spec.Source()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Source: %v", err)
			}
			switch want := tt.want.(type) {
			case annotate.BlockRange:
				if got.(annotate.BlockRange).Blocks[0] != want.Blocks[0] {
					t.Errorf("got %+v", got)
				}
			case annotate.FreeText:
				if got.(annotate.FreeText).Text != want.Text {
					t.Errorf("got %+v", got)
				}
			case annotate.QuestionRef:
				if got.(annotate.QuestionRef).Index != want.Index {
					t.Errorf("got %+v", got)
				}
			case annotate.FullDocument:
				if _, ok := got.(annotate.FullDocument); !ok {
					t.Errorf("got %T", got)
				}
			}
		})
	}
}
