package annotate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/adverant/nexus/annotation-worker/internal/errors"
)

type fakeChatStore struct {
	contexts  map[string][]byte
	histories map[string][]byte
	// annotations are keyed by type, as stored envelopes
	annotations map[Type][]byte
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		contexts:    make(map[string][]byte),
		histories:   make(map[string][]byte),
		annotations: make(map[Type][]byte),
	}
}

func (f *fakeChatStore) GetChatContext(_ context.Context, _, _, chatID string) ([]byte, error) {
	payload, ok := f.contexts[chatID]
	if !ok {
		return nil, errors.NewNotFoundError("d1", "chat context")
	}
	return payload, nil
}

func (f *fakeChatStore) PutChatContext(_ context.Context, _, _, chatID string, payload []byte) error {
	f.contexts[chatID] = payload
	return nil
}

func (f *fakeChatStore) GetChatHistory(_ context.Context, _, _, chatID string) ([]byte, error) {
	payload, ok := f.histories[chatID]
	if !ok {
		return nil, errors.NewNotFoundError("d1", "chat history")
	}
	return payload, nil
}

func (f *fakeChatStore) PutChatHistory(_ context.Context, _, _, chatID string, payload []byte) error {
	f.histories[chatID] = payload
	return nil
}

func (f *fakeChatStore) GetAnnotation(_ context.Context, _, _ string, t Type) ([]byte, error) {
	payload, ok := f.annotations[t]
	if !ok {
		return nil, errors.NewNotFoundError("d1", string(t))
	}
	return payload, nil
}

func (f *fakeChatStore) putEnvelope(t *testing.T, annotationType Type, response any) {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"details": map[string]any{"response": response},
	})
	if err != nil {
		t.Fatal(err)
	}
	f.annotations[annotationType] = payload
}

func TestChatWithFreeTextContext(t *testing.T) {
	client := &fakeCompleter{responses: []string{"the contract runs until 2027"}}
	store := newFakeChatStore()
	engine := NewChatEngine(client, store, store, newFakeStores())

	reply, err := engine.Chat(context.Background(), ChatRequest{
		UserID:     "u1",
		DocumentID: "d1",
		ChatID:     "c1",
		QueryID:    "q1",
		Query:      "When does the contract end?",
		Context:    FreeText{Text: "The contract term is 5 years starting 2022."},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Response != "the contract runs until 2027" {
		t.Errorf("reply = %q", reply.Response)
	}

	// seed turn + query + assistant reply were persisted
	var stored ChatContext
	if err := json.Unmarshal(store.contexts["c1"], &stored); err != nil {
		t.Fatalf("stored context: %v", err)
	}
	if len(stored.Conversation) != 3 {
		t.Fatalf("conversation = %d turns, want 3", len(stored.Conversation))
	}
	if stored.Conversation[2].Role != "assistant" {
		t.Errorf("last turn role = %s", stored.Conversation[2].Role)
	}

	var history chatHistory
	if err := json.Unmarshal(store.histories["c1"], &history); err != nil {
		t.Fatalf("stored history: %v", err)
	}
	if len(history.Conversation) != 1 || history.Conversation[0].Request.Message != "When does the contract end?" {
		t.Errorf("history = %+v", history)
	}
}

func TestChatSecondTurnKeepsContext(t *testing.T) {
	client := &fakeCompleter{responses: []string{"answer one", "answer two"}}
	store := newFakeChatStore()
	engine := NewChatEngine(client, store, store, newFakeStores())

	req := ChatRequest{
		UserID: "u1", DocumentID: "d1", ChatID: "c1", QueryID: "q1",
		Query:   "first question",
		Context: FreeText{Text: "grounding text"},
	}
	if _, err := engine.Chat(context.Background(), req); err != nil {
		t.Fatalf("first turn: %v", err)
	}

	req.Query = "second question"
	req.QueryID = "q2"
	if _, err := engine.Chat(context.Background(), req); err != nil {
		t.Fatalf("second turn: %v", err)
	}

	var stored ChatContext
	if err := json.Unmarshal(store.contexts["c1"], &stored); err != nil {
		t.Fatal(err)
	}
	// seed + 2 queries + 2 replies
	if len(stored.Conversation) != 5 {
		t.Errorf("conversation = %d turns, want 5", len(stored.Conversation))
	}
}

func TestChatQuestionRefAnswersWithoutModel(t *testing.T) {
	client := &fakeCompleter{responses: []string{"should not be called"}}
	store := newFakeChatStore()
	store.putEnvelope(t, TypeQuestions, []map[string]string{
		{"question": "What is the term?", "answer": "Five years."},
		{"question": "Who are the parties?", "answer": "Acme and Globex."},
	})
	engine := NewChatEngine(client, store, store, newFakeStores())

	reply, err := engine.Chat(context.Background(), ChatRequest{
		UserID: "u1", DocumentID: "d1", ChatID: "c1", QueryID: "q1",
		Query:   "answer the second question",
		Context: QuestionRef{Index: 2},
	})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if reply.Response != "Acme and Globex." {
		t.Errorf("reply = %q", reply.Response)
	}
	if len(client.prompts) != 0 {
		t.Errorf("question ref made %d completion calls", len(client.prompts))
	}
}

func TestChatHeadingRefs(t *testing.T) {
	client := &fakeCompleter{responses: []string{"grounded answer"}}
	store := newFakeChatStore()
	store.putEnvelope(t, TypeHeadings, []map[string]string{
		{"heading": "Overview", "summary": "intro section"},
		{"heading": "Findings", "summary": "results section"},
	})
	engine := NewChatEngine(client, store, store, newFakeStores())

	if _, err := engine.Chat(context.Background(), ChatRequest{
		UserID: "u1", DocumentID: "d1", ChatID: "c1", QueryID: "q1",
		Query:   "summarise the findings",
		Context: HeadingRefs{Indexes: []int{2}},
	}); err != nil {
		t.Fatalf("Chat: %v", err)
	}

	var stored ChatContext
	if err := json.Unmarshal(store.contexts["c1"], &stored); err != nil {
		t.Fatal(err)
	}
	// preamble + 1 heading + closing + query + reply
	if len(stored.Conversation) != 5 {
		t.Fatalf("conversation = %d turns, want 5", len(stored.Conversation))
	}
	if stored.Conversation[1].Content != "Findings - results section" {
		t.Errorf("heading turn = %q", stored.Conversation[1].Content)
	}
}

func TestChatInvalidContext(t *testing.T) {
	store := newFakeChatStore()
	engine := NewChatEngine(&fakeCompleter{}, store, store, newFakeStores())

	_, err := engine.Chat(context.Background(), ChatRequest{
		UserID: "u1", DocumentID: "d1", ChatID: "c1", QueryID: "q1",
		Query:   "anything",
		Context: BlockRange{},
	})
	if err == nil {
		t.Fatal("expected error for empty block list")
	}
}
