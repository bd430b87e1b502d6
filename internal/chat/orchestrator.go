package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	"legalmind/internal/models"
	"legalmind/internal/rag/interfaces"
	"legalmind/internal/rag/schema"
	"legalmind/pkg/logger"
)

// apologyReply is returned and persisted when generation fails. The exchange
// itself still succeeds so the conversation record stays intact.
const apologyReply = "I'm sorry, I ran into a problem while generating a response. Please try asking again."

// Store is the persistence the orchestrator needs. FindCompanyByName is
// strict: chatting never creates a company, only uploading does, so a
// mistyped name is a lookup failure instead of an empty tenant.
type Store interface {
	FindCompanyByName(ctx context.Context, name string) (*models.Company, error)
	GetSession(ctx context.Context, id, companyID uint) (*models.ChatSession, error)
	CreateSession(ctx context.Context, session *models.ChatSession) error
	CountSessions(ctx context.Context, companyID uint) (int64, error)
	RecentMessages(ctx context.Context, sessionID uint, limit int) ([]models.ChatMessage, error)
	CreateMessages(ctx context.Context, messages ...*models.ChatMessage) error
	TouchSession(ctx context.Context, id uint) error
}

// Retriever supplies the passages backing an answer.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int, companyID uint, documentIDs []uint) ([]schema.Passage, error)
}

// Request is one chat turn from a caller. SessionName only applies when no
// SessionID is given and a session is created for this turn.
type Request struct {
	CompanyName string
	SessionID   *uint
	SessionName string
	Message     string
	DocumentIDs []uint
}

// Response is the completed exchange.
type Response struct {
	SessionID   uint             `json:"session_id"`
	Reply       string           `json:"reply"`
	Sources     []schema.Passage `json:"sources"`
	DocumentIDs []uint           `json:"document_ids"`
}

// Orchestrator runs a chat exchange end to end: session resolution,
// retrieval, prompt assembly, generation, persistence.
type Orchestrator struct {
	store     Store
	retriever Retriever
	model     interfaces.LLM

	topK          int
	historyFetch  int
	historyWindow int

	log *logger.Logger
}

// NewOrchestrator wires an Orchestrator. topK is the passage count requested
// per exchange; historyFetch and historyWindow control how much conversation
// history is loaded and how much of it reaches the model.
func NewOrchestrator(store Store, retriever Retriever, model interfaces.LLM, topK, historyFetch, historyWindow int) *Orchestrator {
	if topK <= 0 {
		topK = 5
	}
	if historyFetch <= 0 {
		historyFetch = 10
	}
	if historyWindow <= 0 {
		historyWindow = 5
	}
	return &Orchestrator{
		store:         store,
		retriever:     retriever,
		model:         model,
		topK:          topK,
		historyFetch:  historyFetch,
		historyWindow: historyWindow,
		log:           logger.New("chat"),
	}
}

// Exchange runs one chat turn. The user and assistant messages are persisted
// as a pair carrying identical context document ids; a generation failure is
// answered with an apology rather than an error so the turn is still
// recorded.
func (o *Orchestrator) Exchange(ctx context.Context, req Request) (*Response, error) {
	company, err := o.store.FindCompanyByName(ctx, req.CompanyName)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve company %q: %w", req.CompanyName, err)
	}

	session, err := o.resolveSession(ctx, company.ID, req.SessionID, req.SessionName)
	if err != nil {
		return nil, err
	}

	passages, err := o.retriever.Retrieve(ctx, req.Message, o.topK, company.ID, req.DocumentIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve context: %w", err)
	}

	// The context documents of an exchange are the ones the caller asked
	// for, or failing that, the ones retrieval actually drew from.
	docIDs := req.DocumentIDs
	if len(docIDs) == 0 {
		docIDs = documentIDsOf(passages)
	}

	history, err := o.history(ctx, session.ID)
	if err != nil {
		return nil, err
	}

	reply, err := o.model.Generate(ctx, buildPrompt(req.Message, passages, history))
	if err != nil {
		o.log.WithError(err).WithField("session_id", session.ID).Error("reply generation failed")
		reply = apologyReply
	}

	if err := o.persistExchange(ctx, session.ID, req.Message, reply, docIDs); err != nil {
		return nil, err
	}

	return &Response{
		SessionID:   session.ID,
		Reply:       reply,
		Sources:     passages,
		DocumentIDs: docIDs,
	}, nil
}

// resolveSession loads the requested session or lazily creates one, named by
// the caller or after its ordinal within the company.
func (o *Orchestrator) resolveSession(ctx context.Context, companyID uint, sessionID *uint, name string) (*models.ChatSession, error) {
	if sessionID != nil {
		session, err := o.store.GetSession(ctx, *sessionID, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session %d: %w", *sessionID, err)
		}
		return session, nil
	}

	if name == "" {
		count, err := o.store.CountSessions(ctx, companyID)
		if err != nil {
			return nil, fmt.Errorf("failed to count sessions: %w", err)
		}
		name = fmt.Sprintf("Chat %d", count+1)
	}
	session := &models.ChatSession{
		CompanyID: companyID,
		Name:      name,
	}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// history returns the most recent messages in chronological order, trimmed
// to the model window.
func (o *Orchestrator) history(ctx context.Context, sessionID uint) ([]models.ChatMessage, error) {
	recent, err := o.store.RecentMessages(ctx, sessionID, o.historyFetch)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	// RecentMessages returns newest first.
	for i, j := 0, len(recent)-1; i < j; i, j = i+1, j-1 {
		recent[i], recent[j] = recent[j], recent[i]
	}
	if len(recent) > o.historyWindow {
		recent = recent[len(recent)-o.historyWindow:]
	}
	return recent, nil
}

func (o *Orchestrator) persistExchange(ctx context.Context, sessionID uint, question, reply string, docIDs []uint) error {
	contextDocs, err := json.Marshal(docIDs)
	if err != nil {
		return fmt.Errorf("failed to encode context documents: %w", err)
	}

	userMsg := &models.ChatMessage{
		SessionID:        sessionID,
		Role:             models.RoleUser,
		Content:          question,
		ContextDocuments: datatypes.JSON(contextDocs),
	}
	assistantMsg := &models.ChatMessage{
		SessionID:        sessionID,
		Role:             models.RoleAssistant,
		Content:          reply,
		ContextDocuments: datatypes.JSON(contextDocs),
	}
	if err := o.store.CreateMessages(ctx, userMsg, assistantMsg); err != nil {
		return fmt.Errorf("failed to persist exchange: %w", err)
	}

	if err := o.store.TouchSession(ctx, sessionID); err != nil {
		o.log.WithError(err).WithField("session_id", sessionID).Warn("failed to bump session timestamp")
	}
	return nil
}

// documentIDsOf collects the distinct document ids of passages in order of
// first appearance.
func documentIDsOf(passages []schema.Passage) []uint {
	seen := make(map[uint]struct{})
	var ids []uint
	for _, p := range passages {
		if p.DocumentID == 0 {
			continue
		}
		if _, dup := seen[p.DocumentID]; dup {
			continue
		}
		seen[p.DocumentID] = struct{}{}
		ids = append(ids, p.DocumentID)
	}
	return ids
}

// buildPrompt assembles the grounded prompt for one turn.
func buildPrompt(question string, passages []schema.Passage, history []models.ChatMessage) string {
	var b strings.Builder

	b.WriteString("You are a legal document assistant. Answer using the document excerpts below. ")
	b.WriteString("Cite the source document when you rely on it, and say so plainly when the excerpts do not contain the answer.\n\n")

	if len(passages) > 0 {
		b.WriteString("Document excerpts:\n")
		for i, p := range passages {
			fmt.Fprintf(&b, "[%d] %s\n%s\n\n", i+1, p.Filename, p.Content)
		}
	} else {
		b.WriteString("No relevant document excerpts were found.\n\n")
	}

	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, msg := range history {
			fmt.Fprintf(&b, "%s: %s\n", msg.Role, msg.Content)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Question: %s", question)
	return b.String()
}
