package models

import (
	"time"

	"gorm.io/datatypes"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatSession groups the messages of one conversation for a company.
// Sessions are created lazily on the first message when the caller does not
// supply one; UpdatedAt is bumped on every exchange.
type ChatSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CompanyID uint      `gorm:"index;not null" json:"company_id"`
	Name      string    `gorm:"size:255" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []ChatMessage `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// ChatMessage is one persisted message of a session. ContextDocuments holds
// the document ids that backed the exchange's context, identical for the
// user/assistant pair, so "which messages touched document X" queries work.
type ChatMessage struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	SessionID        uint           `gorm:"index;not null" json:"session_id"`
	Role             string         `gorm:"type:varchar(20);not null" json:"role"`
	Content          string         `gorm:"type:text;not null" json:"content"`
	ContextDocuments datatypes.JSON `json:"context_documents"`
	CreatedAt        time.Time      `json:"created_at"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
