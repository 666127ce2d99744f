package postgres

import (
	"context"

	"github.com/dom/imagify/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type generationRepository struct {
	db *gorm.DB
}

func NewGenerationRepository(db *gorm.DB) *generationRepository {
	return &generationRepository{db: db}
}

func (r *generationRepository) Create(ctx context.Context, generation *domain.Generation) error {
	return r.db.WithContext(ctx).Create(generation).Error
}

func (r *generationRepository) GetByIDAndAccount(ctx context.Context, id, accountID uuid.UUID) (*domain.Generation, error) {
	var generation domain.Generation
	err := r.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", id, accountID).
		First(&generation).Error
	if err != nil {
		return nil, translateNotFound(err, domain.ErrGenerationNotFound)
	}
	return &generation, nil
}

func (r *generationRepository) ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Generation, error) {
	var generations []*domain.Generation
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&generations).Error
	if err != nil {
		return nil, err
	}
	return generations, nil
}

func (r *generationRepository) CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Generation{}).
		Where("account_id = ?", accountID).
		Count(&count).Error
	return count, err
}
