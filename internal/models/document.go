package models

import (
	"time"

	"gorm.io/datatypes"
)

// DocumentStatus tracks a document through its processing lifecycle.
//
// Transitions only move forward, with two exceptions: processing -> failed on
// any terminal pipeline error, and failed -> processing when a document is
// retried. A completed document never returns to pending.
type DocumentStatus string

const (
	StatusPending    DocumentStatus = "pending"
	StatusProcessing DocumentStatus = "processing"
	StatusCompleted  DocumentStatus = "completed"
	StatusFailed     DocumentStatus = "failed"
)

// Company scopes documents and chat sessions to a single tenant.
// Names are stored trimmed; lookups are case-insensitive.
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Document is an uploaded file tracked from upload through indexing.
type Document struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	CompanyID   uint              `gorm:"index;not null" json:"company_id"`
	Filename    string            `gorm:"not null;size:512" json:"filename"`
	ObjectKey   string            `gorm:"uniqueIndex;not null;size:512" json:"object_key"`
	ContentType string            `gorm:"size:255" json:"content_type"`
	FileSize    int64             `json:"file_size"`
	Status      DocumentStatus    `gorm:"type:varchar(20);default:'pending';not null;index" json:"status"`
	Summary     string            `gorm:"type:text" json:"summary"`
	Metadata    datatypes.JSONMap `json:"metadata"`
	CreatedAt   time.Time         `json:"created_at"`
	ProcessedAt *time.Time        `json:"processed_at"`

	Chunks []DocumentChunk `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// DocumentChunk is one bounded fragment of a document's extracted text.
// ChunkIndex values for a document are contiguous starting at 0 and follow
// the original text order. EmbeddingID references the vector index entry.
type DocumentChunk struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	DocumentID  uint              `gorm:"index;not null" json:"document_id"`
	Content     string            `gorm:"type:text;not null" json:"content"`
	ChunkIndex  int               `gorm:"not null" json:"chunk_index"`
	EmbeddingID string            `gorm:"size:64;index" json:"embedding_id"`
	Metadata    datatypes.JSONMap `json:"metadata"`
}

func (Company) TableName() string {
	return "companies"
}

func (Document) TableName() string {
	return "documents"
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
