// Package memory provides mutex-guarded in-process implementations of the
// repository interfaces for service unit tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/repository"
	"github.com/google/uuid"
)

var (
	_ repository.AccountRepository    = (*Accounts)(nil)
	_ repository.CreditLedger         = (*Accounts)(nil)
	_ repository.GenerationRepository = (*Generations)(nil)
)

// Accounts stores accounts and their balances. It serves as both the
// AccountRepository and the CreditLedger so balance and existence are checked
// under the same lock.
type Accounts struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func NewAccounts() *Accounts {
	return &Accounts{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (s *Accounts) Create(_ context.Context, account *domain.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.accounts {
		if a.Email == account.Email {
			return domain.ErrAccountExists
		}
	}
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	stored := *account
	s.accounts[account.ID] = &stored
	return nil
}

func (s *Accounts) GetByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

func (s *Accounts) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.accounts, id)
	return nil
}

func (s *Accounts) GetByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.accounts {
		if a.Email == email {
			out := *a
			return &out, nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *Accounts) Open(_ context.Context, accountID uuid.UUID, initial int) error {
	if initial < 0 {
		return domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return domain.ErrAccountNotFound
	}
	a.CreditBalance = initial
	return nil
}

func (s *Accounts) Balance(_ context.Context, accountID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	return a.CreditBalance, nil
}

func (s *Accounts) DebitIfPositive(_ context.Context, accountID uuid.UUID) (domain.DebitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return domain.DebitResult{}, domain.ErrAccountNotFound
	}
	if a.CreditBalance <= 0 {
		return domain.DebitResult{OK: false, NewBalance: a.CreditBalance}, nil
	}
	a.CreditBalance--
	a.UpdatedAt = time.Now()
	return domain.DebitResult{OK: true, NewBalance: a.CreditBalance}, nil
}

func (s *Accounts) Credit(_ context.Context, accountID uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.accounts[accountID]
	if !ok {
		return 0, domain.ErrAccountNotFound
	}
	a.CreditBalance += amount
	a.UpdatedAt = time.Now()
	return a.CreditBalance, nil
}

// Generations stores generation records in insertion order.
type Generations struct {
	mu      sync.RWMutex
	records []*domain.Generation

	// FailCreate, when set, is returned by Create instead of storing.
	FailCreate error
}

func NewGenerations() *Generations {
	return &Generations{}
}

func (s *Generations) Create(_ context.Context, generation *domain.Generation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCreate != nil {
		return s.FailCreate
	}
	if generation.ID == uuid.Nil {
		generation.ID = uuid.New()
	}
	if generation.CreatedAt.IsZero() {
		generation.CreatedAt = time.Now()
	}
	stored := *generation
	s.records = append(s.records, &stored)
	return nil
}

func (s *Generations) GetByIDAndAccount(_ context.Context, id, accountID uuid.UUID) (*domain.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.records {
		if g.ID == id && g.AccountID == accountID {
			out := *g
			return &out, nil
		}
	}
	return nil, domain.ErrGenerationNotFound
}

func (s *Generations) ListByAccount(_ context.Context, accountID uuid.UUID, limit int) ([]*domain.Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Generation
	for i := len(s.records) - 1; i >= 0; i-- {
		if s.records[i].AccountID == accountID {
			g := *s.records[i]
			out = append(out, &g)
		}
	}
	// Insertion order already matches recency; the stable sort only matters
	// when callers supply explicit CreatedAt values.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Generations) CountByAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, g := range s.records {
		if g.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

// NewRepositories returns a fresh in-memory repository set.
func NewRepositories() *repository.Repositories {
	accounts := NewAccounts()
	return &repository.Repositories{
		Account:    accounts,
		Ledger:     accounts,
		Generation: NewGenerations(),
	}
}
