package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"legalmind/internal/models"
)

// SessionSummary is a session row enriched with its message count, for
// listing endpoints.
type SessionSummary struct {
	models.ChatSession
	MessageCount int64 `json:"message_count"`
}

// GetSession loads a session by id scoped to a company.
func (s *Store) GetSession(ctx context.Context, id, companyID uint) (*models.ChatSession, error) {
	var session models.ChatSession
	err := s.DB.WithContext(ctx).
		Where("id = ? AND company_id = ?", id, companyID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateSession inserts a new chat session.
func (s *Store) CreateSession(ctx context.Context, session *models.ChatSession) error {
	return s.DB.WithContext(ctx).Create(session).Error
}

// CountSessions returns how many sessions a company has.
func (s *Store) CountSessions(ctx context.Context, companyID uint) (int64, error) {
	var count int64
	err := s.DB.WithContext(ctx).
		Model(&models.ChatSession{}).
		Where("company_id = ?", companyID).
		Count(&count).Error
	return count, err
}

// ListSessionsByCompany returns a company's sessions, most recently
// updated first, with message counts.
func (s *Store) ListSessionsByCompany(ctx context.Context, companyID uint) ([]SessionSummary, error) {
	var sessions []models.ChatSession
	err := s.DB.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("updated_at DESC").
		Find(&sessions).Error
	if err != nil {
		return nil, err
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		var count int64
		if err := s.DB.WithContext(ctx).
			Model(&models.ChatMessage{}).
			Where("session_id = ?", session.ID).
			Count(&count).Error; err != nil {
			return nil, err
		}
		summaries = append(summaries, SessionSummary{ChatSession: session, MessageCount: count})
	}
	return summaries, nil
}

// TouchSession bumps a session's updated_at timestamp.
func (s *Store) TouchSession(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).
		Model(&models.ChatSession{}).
		Where("id = ?", id).
		Update("updated_at", time.Now()).Error
}

// DeleteSession removes a session and all its messages in one transaction.
func (s *Store) DeleteSession(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&models.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.ChatSession{}, id).Error
	})
}

// CreateMessages inserts a batch of chat messages.
func (s *Store) CreateMessages(ctx context.Context, messages ...*models.ChatMessage) error {
	for _, msg := range messages {
		if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
			return err
		}
	}
	return nil
}

// RecentMessages returns up to limit messages of a session, newest first.
func (s *Store) RecentMessages(ctx context.Context, sessionID uint, limit int) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// ListMessages returns all messages of a session in chronological order.
func (s *Store) ListMessages(ctx context.Context, sessionID uint) ([]models.ChatMessage, error) {
	var messages []models.ChatMessage
	err := s.DB.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&messages).Error
	return messages, err
}
