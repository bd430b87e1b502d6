package store

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"legalmind/internal/models"
)

// NormalizeCompanyName trims surrounding whitespace from a company name.
// Lookups are case-insensitive on top of this, and the same policy applies
// to every endpoint that accepts a company name.
func NormalizeCompanyName(name string) string {
	return strings.TrimSpace(name)
}

// FindCompanyByName looks up a company case-insensitively by its trimmed
// name. Returns gorm.ErrRecordNotFound when no such company exists.
func (s *Store) FindCompanyByName(ctx context.Context, name string) (*models.Company, error) {
	var company models.Company
	err := s.DB.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", NormalizeCompanyName(name)).
		First(&company).Error
	if err != nil {
		return nil, err
	}
	return &company, nil
}

// GetOrCreateCompany resolves a company by name, creating it when missing.
func (s *Store) GetOrCreateCompany(ctx context.Context, name string) (*models.Company, error) {
	company, err := s.FindCompanyByName(ctx, name)
	if err == nil {
		return company, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	company = &models.Company{Name: NormalizeCompanyName(name)}
	if err := s.DB.WithContext(ctx).Create(company).Error; err != nil {
		return nil, err
	}
	return company, nil
}
