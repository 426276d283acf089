/**
 * Context-grounded document chat.
 *
 * A chat is seeded from one context source variant, each with its own loader
 * against the stored annotations of the document. The seeded conversation is
 * persisted per chat id and replayed on every turn, so the model keeps the
 * document grounding across the whole chat.
 */

package annotate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/adverant/nexus/annotation-worker/internal/document"
	apperrors "github.com/adverant/nexus/annotation-worker/internal/errors"
	"github.com/adverant/nexus/annotation-worker/internal/llm"
	"github.com/adverant/nexus/annotation-worker/internal/logging"
)

// AnnotationReader loads previously stored annotation envelopes
type AnnotationReader interface {
	GetAnnotation(ctx context.Context, userID, documentID string, annotationType Type) ([]byte, error)
}

// ChatStore persists per-chat conversation context and history
type ChatStore interface {
	GetChatContext(ctx context.Context, userID, documentID, chatID string) ([]byte, error)
	PutChatContext(ctx context.Context, userID, documentID, chatID string, payload []byte) error
	GetChatHistory(ctx context.Context, userID, documentID, chatID string) ([]byte, error)
	PutChatHistory(ctx context.Context, userID, documentID, chatID string, payload []byte) error
}

// ChatContext is the persisted conversation seed plus accumulated turns
type ChatContext struct {
	Conversation []llm.Message `json:"conversation"`
}

// WordCount sums the words across the conversation
func (c *ChatContext) WordCount() int {
	total := 0
	for _, m := range c.Conversation {
		total += len(strings.Fields(m.Content))
	}
	return total
}

// fullContextCharLimit caps how much raw document text seeds a full-document
// chat
const fullContextCharLimit = 10000

// ContextSource seeds a fresh chat from stored document annotations
type ContextSource interface {
	Load(ctx context.Context, loader *ContextLoader) (*ChatContext, error)
}

// BlockRange grounds the chat on specific (page, block) pairs
type BlockRange struct {
	Blocks [][2]int `json:"blocks"`
}

// FreeText grounds the chat on caller-provided text
type FreeText struct {
	Text string `json:"text"`
}

// QuestionRef answers from a precomputed question, no model call
type QuestionRef struct {
	Index int `json:"index"`
}

// HeadingRefs grounds the chat on selected heading summaries (1-based
// indices into the stored headings list)
type HeadingRefs struct {
	Indexes []int `json:"indexes"`
}

// FullDocument grounds the chat on the document's full text, truncated
type FullDocument struct{}

// ContextLoader resolves context sources against a document's stored
// annotations
type ContextLoader struct {
	reader     AnnotationReader
	userID     string
	documentID string
	logger     *logging.Logger
}

// NewContextLoader creates a loader bound to one user's document
func NewContextLoader(reader AnnotationReader, userID, documentID string) *ContextLoader {
	return &ContextLoader{
		reader:     reader,
		userID:     userID,
		documentID: documentID,
		logger:     logging.NewLogger("chat-context"),
	}
}

// response unmarshals the stored envelope's payload into out
func (l *ContextLoader) response(ctx context.Context, t Type, out any) error {
	payload, err := l.reader.GetAnnotation(ctx, l.userID, l.documentID, t)
	if err != nil {
		return apperrors.NewNotFoundError(l.documentID, string(t)+" annotation")
	}
	var envelope struct {
		Details struct {
			Response json.RawMessage `json:"response"`
		} `json:"details"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return err
	}
	return json.Unmarshal(envelope.Details.Response, out)
}

// Load pulls the selected blocks' texts in (page, block) order
func (v BlockRange) Load(ctx context.Context, l *ContextLoader) (*ChatContext, error) {
	if len(v.Blocks) == 0 {
		return nil, apperrors.NewInvalidInputError(l.documentID, "empty block list")
	}

	var blocks map[int]map[int]document.BlockText
	if err := l.response(ctx, TypeBlocks, &blocks); err != nil {
		return nil, err
	}

	selected := append([][2]int(nil), v.Blocks...)
	sort.Slice(selected, func(i, j int) bool {
		if selected[i][0] != selected[j][0] {
			return selected[i][0] < selected[j][0]
		}
		return selected[i][1] < selected[j][1]
	})

	texts := make([]string, 0, len(selected))
	for _, pb := range selected {
		block, ok := blocks[pb[0]][pb[1]]
		if !ok {
			return nil, apperrors.NewInvalidInputError(l.documentID,
				fmt.Sprintf("no block %d on page %d", pb[1], pb[0]))
		}
		texts = append(texts, block.Text)
	}

	return &ChatContext{Conversation: []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Consider the following context (%s) and answer", strings.Join(texts, " ")),
	}}}, nil
}

// Load wraps the caller's text as the grounding turn
func (v FreeText) Load(_ context.Context, l *ContextLoader) (*ChatContext, error) {
	if strings.TrimSpace(v.Text) == "" {
		return nil, apperrors.NewInvalidInputError(l.documentID, "empty context text")
	}
	return &ChatContext{Conversation: []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Consider the following context (%s) and answer", v.Text),
	}}}, nil
}

// Load resolves the referenced precomputed question and its answer
func (v QuestionRef) Load(ctx context.Context, l *ContextLoader) (*ChatContext, error) {
	var qaList []struct {
		Question string `json:"question"`
		Answer   string `json:"answer"`
	}
	if err := l.response(ctx, TypeQuestions, &qaList); err != nil {
		return nil, err
	}
	if v.Index < 1 || v.Index > len(qaList) {
		return nil, apperrors.NewInvalidInputError(l.documentID,
			fmt.Sprintf("question index %d out of range", v.Index))
	}

	qa := qaList[v.Index-1]
	return &ChatContext{Conversation: []llm.Message{
		{Role: llm.RoleUser, Content: qa.Question},
		{Role: llm.RoleAssistant, Content: qa.Answer},
	}}, nil
}

// Load builds the grounding turns from the selected heading summaries
func (v HeadingRefs) Load(ctx context.Context, l *ContextLoader) (*ChatContext, error) {
	var headings []struct {
		Heading string `json:"heading"`
		Summary string `json:"summary"`
	}
	if err := l.response(ctx, TypeHeadings, &headings); err != nil {
		return nil, err
	}

	conversation := []llm.Message{{Role: llm.RoleUser, Content: "Consider the following context"}}
	for _, index := range v.Indexes {
		if index < 1 || index > len(headings) {
			return nil, apperrors.NewInvalidInputError(l.documentID,
				fmt.Sprintf("heading index %d out of range", index))
		}
		h := headings[index-1]
		conversation = append(conversation, llm.Message{
			Role:    llm.RoleUser,
			Content: fmt.Sprintf("%s - %s", h.Heading, h.Summary),
		})
	}
	if len(conversation) == 1 {
		return nil, apperrors.NewInvalidInputError(l.documentID, "empty heading selection")
	}
	conversation = append(conversation, llm.Message{Role: llm.RoleUser, Content: "Then answer following questions"})

	return &ChatContext{Conversation: conversation}, nil
}

// Load seeds the chat with the document's full text, truncated to the cap
func (v FullDocument) Load(ctx context.Context, l *ContextLoader) (*ChatContext, error) {
	var text string
	if err := l.response(ctx, TypeFullText, &text); err != nil {
		return nil, err
	}
	if len(text) > fullContextCharLimit {
		text = text[:fullContextCharLimit]
	}
	return &ChatContext{Conversation: []llm.Message{{
		Role:    llm.RoleUser,
		Content: fmt.Sprintf("Consider the following context: %s - and answer", text),
	}}}, nil
}

// ChatRequest is one chat turn against a document
type ChatRequest struct {
	UserID     string
	DocumentID string
	ChatID     string
	QueryID    string
	Query      string
	// Context seeds a fresh or reset chat; ignored when history exists
	Context      ContextSource
	ResetContext bool
}

// ChatReply is the turn's outcome
type ChatReply struct {
	Response string
	Model    string
	Tokens   int
}

// historyEntry is one request/response pair in the stored chat history
type historyEntry struct {
	Request  historyMessage `json:"request"`
	Response historyMessage `json:"response"`
	Usage    historyUsage   `json:"usage"`
}

type historyMessage struct {
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type historyUsage struct {
	Tokens int    `json:"tokens"`
	Model  string `json:"model"`
}

type chatHistory struct {
	Conversation []historyEntry `json:"conversation"`
}

// ChatEngine runs chat turns with persisted context
type ChatEngine struct {
	client Completer
	reader AnnotationReader
	store  ChatStore
	costs  UsageStore
	logger *logging.Logger
}

// NewChatEngine creates a chat engine
func NewChatEngine(client Completer, reader AnnotationReader, store ChatStore, costs UsageStore) *ChatEngine {
	return &ChatEngine{
		client: client,
		reader: reader,
		store:  store,
		costs:  costs,
		logger: logging.NewLogger("chat"),
	}
}

// Chat executes one turn: load or seed the conversation, answer the query,
// persist the updated context and history
func (e *ChatEngine) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if req.Query == "" {
		return nil, apperrors.NewInvalidInputError(req.DocumentID, "empty query")
	}

	chatContext, fresh := e.loadContext(ctx, req)

	answered := false
	var reply *ChatReply

	if fresh && req.Context != nil {
		loader := NewContextLoader(e.reader, req.UserID, req.DocumentID)
		seeded, err := req.Context.Load(ctx, loader)
		if err != nil {
			return nil, err
		}

		// a question reference already carries its answer; no model call
		if _, ok := req.Context.(QuestionRef); ok {
			reply = &ChatReply{
				Response: seeded.Conversation[len(seeded.Conversation)-1].Content,
				Model:    llm.Catalog[0].Name,
			}
			answered = true
		}
		chatContext = seeded
	}

	requestTime := time.Now().UTC()
	if !answered {
		var err error
		reply, err = e.complete(ctx, req, chatContext)
		if err != nil {
			return nil, err
		}
	}
	responseTime := time.Now().UTC()

	e.persistContext(ctx, req, chatContext)
	e.appendHistory(ctx, req, historyEntry{
		Request:  historyMessage{Sender: "me", Timestamp: requestTime.Format(time.RFC3339), Message: req.Query},
		Response: historyMessage{Sender: "Nexus AI", Timestamp: responseTime.Format(time.RFC3339), Message: reply.Response},
		Usage:    historyUsage{Tokens: reply.Tokens, Model: reply.Model},
	})

	return reply, nil
}

// loadContext returns the stored conversation, or an empty one marked fresh
func (e *ChatEngine) loadContext(ctx context.Context, req ChatRequest) (*ChatContext, bool) {
	if req.ResetContext {
		return &ChatContext{}, true
	}
	payload, err := e.store.GetChatContext(ctx, req.UserID, req.DocumentID, req.ChatID)
	if err != nil {
		return &ChatContext{}, true
	}
	var chatContext ChatContext
	if err := json.Unmarshal(payload, &chatContext); err != nil {
		return &ChatContext{}, true
	}
	return &chatContext, len(chatContext.Conversation) == 0
}

// complete answers the query with the full conversation as context and
// appends both turns to it
func (e *ChatEngine) complete(ctx context.Context, req ChatRequest, chatContext *ChatContext) (*ChatReply, error) {
	wordCount := chatContext.WordCount() + len(strings.Fields(req.Query))
	model, err := llm.SelectModel(wordCount + responseWordBudget)
	if err != nil {
		model = llm.Catalog[len(llm.Catalog)-1]
	}

	messages := append(append([]llm.Message(nil), chatContext.Conversation...),
		llm.Message{Role: llm.RoleUser, Content: req.Query})

	completion, err := e.client.Complete(ctx, model.Name, messages)
	if err != nil {
		return nil, apperrors.NewUpstreamFailedError(req.DocumentID, "chat completion", err)
	}

	chatContext.Conversation = append(chatContext.Conversation,
		llm.Message{Role: llm.RoleUser, Content: req.Query},
		llm.Message{Role: llm.RoleAssistant, Content: completion.Content})

	usage := llm.NewAccumulator()
	usage.Add(model, completion.Usage)
	if records := usage.Records(req.DocumentID, req.QueryID); len(records) > 0 {
		if err := e.costs.InsertCostRecords(ctx, req.UserID, records); err != nil {
			e.logger.Error("Failed to record chat usage", "documentId", req.DocumentID, "error", err)
		}
	}

	return &ChatReply{
		Response: completion.Content,
		Model:    model.Name,
		Tokens:   completion.Usage.PromptTokens + completion.Usage.CompletionTokens,
	}, nil
}

func (e *ChatEngine) persistContext(ctx context.Context, req ChatRequest, chatContext *ChatContext) {
	payload, err := json.Marshal(chatContext)
	if err != nil {
		return
	}
	if err := e.store.PutChatContext(ctx, req.UserID, req.DocumentID, req.ChatID, payload); err != nil {
		e.logger.Error("Failed to persist chat context", "chatId", req.ChatID, "error", err)
	}
}

func (e *ChatEngine) appendHistory(ctx context.Context, req ChatRequest, entry historyEntry) {
	history := chatHistory{}
	if payload, err := e.store.GetChatHistory(ctx, req.UserID, req.DocumentID, req.ChatID); err == nil {
		_ = json.Unmarshal(payload, &history)
	}
	history.Conversation = append(history.Conversation, entry)

	payload, err := json.Marshal(history)
	if err != nil {
		return
	}
	if err := e.store.PutChatHistory(ctx, req.UserID, req.DocumentID, req.ChatID, payload); err != nil {
		e.logger.Error("Failed to persist chat history", "chatId", req.ChatID, "error", err)
	}
}
