package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/metrics"
	"github.com/dom/imagify/internal/repository"
	"github.com/google/uuid"
)

// BalanceNotifier is told about every balance change so connected clients
// can update without polling.
type BalanceNotifier interface {
	Notify(accountID uuid.UUID, credits int)
}

type nopNotifier struct{}

func (nopNotifier) Notify(uuid.UUID, int) {}

type CreditService struct {
	accounts repository.AccountRepository
	ledger   repository.CreditLedger
	plans    []domain.Plan
	notifier BalanceNotifier
	metrics  metrics.Recorder
	logger   *slog.Logger
}

func NewCreditService(
	accounts repository.AccountRepository,
	ledger repository.CreditLedger,
	plans []domain.Plan,
	notifier BalanceNotifier,
	recorder metrics.Recorder,
	logger *slog.Logger,
) *CreditService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &CreditService{
		accounts: accounts,
		ledger:   ledger,
		plans:    plans,
		notifier: notifier,
		metrics:  recorder,
		logger:   logger,
	}
}

type BalanceResult struct {
	Account *domain.Account
	Credits int
}

type TopUpResult struct {
	Plan    domain.Plan
	Credits int
}

func (s *CreditService) Balance(ctx context.Context, accountID uuid.UUID) (*BalanceResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}

	credits, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}

	return &BalanceResult{Account: account, Credits: credits}, nil
}

// TopUp adds the credits of the named plan. Payment is out of scope; the
// call is trusted once authenticated.
func (s *CreditService) TopUp(ctx context.Context, accountID uuid.UUID, planID string) (*TopUpResult, error) {
	plan, ok := domain.FindPlan(s.plans, planID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPlan, planID)
	}

	credits, err := s.ledger.Credit(ctx, accountID, plan.Credits)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTopUp(plan.ID, plan.Credits)
	s.notifier.Notify(accountID, credits)
	s.logger.Info("credits added",
		slog.String("account_id", accountID.String()),
		slog.String("plan", plan.ID),
		slog.Int("added", plan.Credits),
		slog.Int("credits", credits),
	)

	return &TopUpResult{Plan: plan, Credits: credits}, nil
}

func (s *CreditService) Plans() []domain.Plan {
	out := make([]domain.Plan, len(s.plans))
	copy(out, s.plans)
	return out
}
