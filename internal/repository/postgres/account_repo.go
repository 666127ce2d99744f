package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dom/imagify/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type accountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *domain.Account) error {
	err := r.db.WithContext(ctx).Create(account).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAccountExists
	}
	return err
}

func (r *accountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error
	if err != nil {
		return nil, translateNotFound(err, domain.ErrAccountNotFound)
	}
	return &account, nil
}

func (r *accountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).First(&account, "email = ?", email).Error
	if err != nil {
		return nil, translateNotFound(err, domain.ErrAccountNotFound)
	}
	return &account, nil
}

func (r *accountRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&domain.Account{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	return nil
}

func translateNotFound(err, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("postgres: %w", err)
}
