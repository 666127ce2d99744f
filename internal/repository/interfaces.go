package repository

import (
	"context"

	"github.com/dom/imagify/internal/domain"
	"github.com/google/uuid"
)

type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// Delete removes an account that never became usable. Deleting a missing
	// account is not an error.
	Delete(ctx context.Context, id uuid.UUID) error
}

// CreditLedger owns account balances. DebitIfPositive and Credit must each be
// a single atomic step at the storage layer; callers never read-then-write.
// All methods return domain.ErrAccountNotFound for unknown accounts.
type CreditLedger interface {
	// Open sets the starting balance of a freshly created account.
	Open(ctx context.Context, accountID uuid.UUID, initial int) error
	Balance(ctx context.Context, accountID uuid.UUID) (int, error)
	DebitIfPositive(ctx context.Context, accountID uuid.UUID) (domain.DebitResult, error)
	Credit(ctx context.Context, accountID uuid.UUID, amount int) (int, error)
}

// GenerationRepository stores generation records. Reads are always scoped to
// the owning account; a record owned by someone else is reported as
// domain.ErrGenerationNotFound.
type GenerationRepository interface {
	Create(ctx context.Context, generation *domain.Generation) error
	GetByIDAndAccount(ctx context.Context, id, accountID uuid.UUID) (*domain.Generation, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]*domain.Generation, error)
	CountByAccount(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type Repositories struct {
	Account    AccountRepository
	Ledger     CreditLedger
	Generation GenerationRepository
}
