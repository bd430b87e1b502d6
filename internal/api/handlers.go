package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"legalmind/internal/chat"
	"legalmind/internal/models"
	"legalmind/internal/rag/extractors"
	"legalmind/internal/rag/interfaces"
	"legalmind/internal/rag/schema"
	"legalmind/internal/storage"
	"legalmind/internal/store"
	"legalmind/pkg/logger"
)

// JobPublisher enqueues document processing jobs.
type JobPublisher interface {
	PublishDocument(ctx context.Context, documentID uint) error
}

// API provides the HTTP handlers for documents and chat.
type API struct {
	store        *store.Store
	objects      storage.ObjectStore
	index        interfaces.VectorIndex
	publisher    JobPublisher
	orchestrator *chat.Orchestrator
	registry     *extractors.Registry
	logger       *logger.Logger
}

// NewAPI creates the API handler set.
func NewAPI(
	st *store.Store,
	objects storage.ObjectStore,
	index interfaces.VectorIndex,
	publisher JobPublisher,
	orchestrator *chat.Orchestrator,
	registry *extractors.Registry,
	log *logger.Logger,
) *API {
	return &API{
		store:        st,
		objects:      objects,
		index:        index,
		publisher:    publisher,
		orchestrator: orchestrator,
		registry:     registry,
		logger:       log,
	}
}

// UploadDocumentHandler accepts a multipart upload, stores the file, records
// the document as pending and enqueues its processing job.
func (a *API) UploadDocumentHandler(c *gin.Context) {
	companyName := c.PostForm("company_name")
	if companyName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "company_name is required"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open uploaded file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read uploaded file"})
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}
	if !a.registry.Supported(contentType) {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported content type: " + contentType})
		return
	}

	ctx := c.Request.Context()
	company, err := a.store.GetOrCreateCompany(ctx, companyName)
	if err != nil {
		a.logger.WithError(err).Error("Failed to resolve company")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve company"})
		return
	}

	objectKey := storage.ObjectKey(fileHeader.Filename)
	if err := a.objects.Put(ctx, objectKey, data, contentType); err != nil {
		a.logger.WithError(err).Error("Failed to store uploaded file")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
		return
	}

	doc := &models.Document{
		CompanyID:   company.ID,
		Filename:    fileHeader.Filename,
		ObjectKey:   objectKey,
		ContentType: contentType,
		FileSize:    int64(len(data)),
		Status:      models.StatusPending,
	}
	if err := a.store.CreateDocument(ctx, doc); err != nil {
		a.logger.WithError(err).Error("Failed to create document record")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create document"})
		return
	}

	if err := a.publisher.PublishDocument(ctx, doc.ID); err != nil {
		// The document stays pending; a retry endpoint or requeue sweep can
		// pick it up later.
		a.logger.WithError(err).WithField("document_id", doc.ID).Error("Failed to enqueue processing job")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue processing"})
		return
	}

	c.JSON(http.StatusAccepted, doc)
}

// ListDocumentsHandler lists a company's documents.
func (a *API) ListDocumentsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	company, err := a.store.FindCompanyByName(ctx, c.Param("company"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve company"})
		return
	}

	docs, err := a.store.ListDocumentsByCompany(ctx, company.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list documents"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company.Name, "documents": docs})
}

// GetDocumentHandler returns one document with its processing state.
func (a *API) GetDocumentHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	doc, err := a.store.GetDocument(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve document"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

// StructuredSummaryHandler builds a sectioned summary of a completed
// document from its stored chunks, on demand. Nothing is persisted.
func (a *API) StructuredSummaryHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	doc, err := a.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve document"})
		return
	}
	if doc.Status != models.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Document is not processed yet", "status": doc.Status})
		return
	}

	chunks, err := a.store.ListChunks(ctx, doc.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load document chunks"})
		return
	}
	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	summary, err := a.orchestrator.StructuredSummary(ctx, doc.Filename, texts)
	if err != nil {
		a.logger.WithError(err).WithField("document_id", doc.ID).Error("Structured summary failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate structured summary"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id":        doc.ID,
		"filename":           doc.Filename,
		"structured_summary": summary,
	})
}

// DeleteDocumentHandler removes a document everywhere: vector index entries,
// chunk rows, the document row, and the stored object.
func (a *API) DeleteDocumentHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	doc, err := a.store.GetDocument(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve document"})
		return
	}

	// Index entries may carry the id as either scalar type, so delete with
	// both encodings. A failed encoding is skipped; the other covers it.
	for _, filter := range []*schema.Filter{
		{Equals: map[string]interface{}{schema.MetadataKeyDocumentID: int64(doc.ID)}},
		{Equals: map[string]interface{}{schema.MetadataKeyDocumentID: strconv.FormatUint(uint64(doc.ID), 10)}},
	} {
		if err := a.index.Delete(ctx, filter); err != nil {
			a.logger.WithError(err).WithField("document_id", doc.ID).Warn("Vector index delete failed for one encoding")
		}
	}

	if err := a.store.DeleteDocument(ctx, doc.ID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete document"})
		return
	}

	if err := a.objects.Remove(ctx, doc.ObjectKey); err != nil {
		a.logger.WithError(err).WithField("object_key", doc.ObjectKey).Warn("Failed to remove stored object")
	}

	c.JSON(http.StatusOK, gin.H{"deleted": doc.ID})
}

// ChatHandler runs one chat exchange.
func (a *API) ChatHandler(c *gin.Context) {
	var payload struct {
		CompanyName string `json:"company_name" binding:"required"`
		SessionID   *uint  `json:"session_id"`
		SessionName string `json:"session_name"`
		Message     string `json:"message" binding:"required"`
		DocumentIDs []uint `json:"document_ids"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	resp, err := a.orchestrator.Exchange(c.Request.Context(), chat.Request{
		CompanyName: payload.CompanyName,
		SessionID:   payload.SessionID,
		SessionName: payload.SessionName,
		Message:     payload.Message,
		DocumentIDs: payload.DocumentIDs,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company or session not found"})
			return
		}
		a.logger.WithError(err).Error("Chat exchange failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Chat exchange failed"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// QuickPromptHandler runs a predefined analysis prompt.
func (a *API) QuickPromptHandler(c *gin.Context) {
	var payload struct {
		CompanyName string `json:"company_name" binding:"required"`
		Action      string `json:"action" binding:"required"`
		SessionID   *uint  `json:"session_id"`
		DocumentIDs []uint `json:"document_ids"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	resp, err := a.orchestrator.QuickPrompt(c.Request.Context(), payload.CompanyName, payload.Action, payload.SessionID, payload.DocumentIDs)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company or session not found"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "actions": chat.QuickPromptActions()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSessionsHandler lists a company's chat sessions with message counts.
func (a *API) ListSessionsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	company, err := a.store.FindCompanyByName(ctx, c.Param("company"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve company"})
		return
	}

	sessions, err := a.store.ListSessionsByCompany(ctx, company.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list sessions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"company": company.Name, "sessions": sessions})
}

// ListMessagesHandler returns the full message history of a session.
func (a *API) ListMessagesHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	messages, err := a.store.ListMessages(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list messages"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session_id": id, "messages": messages})
}

// DeleteSessionHandler removes a session and its messages.
func (a *API) DeleteSessionHandler(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := a.store.DeleteSession(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete session"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}

// HealthHandler reports liveness.
func (a *API) HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return uint(id), true
}
