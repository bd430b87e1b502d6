package store

import (
	"context"

	"gorm.io/gorm"

	"legalmind/internal/models"
)

// CreateDocument inserts a new document row.
func (s *Store) CreateDocument(ctx context.Context, doc *models.Document) error {
	return s.DB.WithContext(ctx).Create(doc).Error
}

// GetDocument loads a document by id.
func (s *Store) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	if err := s.DB.WithContext(ctx).First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

// UpdateDocument persists the full state of a document row.
func (s *Store) UpdateDocument(ctx context.Context, doc *models.Document) error {
	return s.DB.WithContext(ctx).Save(doc).Error
}

// ListDocumentsByCompany returns all documents of a company, newest first.
func (s *Store) ListDocumentsByCompany(ctx context.Context, companyID uint) ([]models.Document, error) {
	var docs []models.Document
	err := s.DB.WithContext(ctx).
		Where("company_id = ?", companyID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

// ReplaceChunks writes the full chunk set of a document in one transaction,
// removing any leftovers from a previous run first. Chunk rows and their
// vector index references are committed together.
func (s *Store) ReplaceChunks(ctx context.Context, documentID uint, chunks []models.DocumentChunk) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&models.DocumentChunk{}).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		return tx.CreateInBatches(chunks, 100).Error
	})
}

// ListChunks returns the chunks of a document in sequence order.
func (s *Store) ListChunks(ctx context.Context, documentID uint) ([]models.DocumentChunk, error) {
	var chunks []models.DocumentChunk
	err := s.DB.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	return chunks, err
}

// DeleteDocument removes a document and its chunks in one transaction.
// The document owns its chunks; they never outlive it.
func (s *Store) DeleteDocument(ctx context.Context, id uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&models.DocumentChunk{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Document{}, id).Error
	})
}
