package postgres

import (
	"context"
	"fmt"

	"github.com/dom/imagify/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// creditLedger keeps balances in accounts.credit_balance. Every mutation is a
// single UPDATE whose WHERE clause carries the precondition, so Postgres row
// locking serializes concurrent debits of the same account.
type creditLedger struct {
	db *gorm.DB
}

func NewCreditLedger(db *gorm.DB) *creditLedger {
	return &creditLedger{db: db}
}

type balanceRow struct {
	CreditBalance int
}

func (l *creditLedger) Open(ctx context.Context, accountID uuid.UUID, initial int) error {
	if initial < 0 {
		return domain.ErrInvalidAmount
	}
	res := l.db.WithContext(ctx).
		Model(&domain.Account{}).
		Where("id = ?", accountID).
		UpdateColumn("credit_balance", initial)
	if res.Error != nil {
		return fmt.Errorf("postgres: open ledger: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (l *creditLedger) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	var row balanceRow
	err := l.db.WithContext(ctx).
		Model(&domain.Account{}).
		Select("credit_balance").
		Where("id = ?", accountID).
		Take(&row).Error
	if err != nil {
		return 0, translateNotFound(err, domain.ErrAccountNotFound)
	}
	return row.CreditBalance, nil
}

func (l *creditLedger) DebitIfPositive(ctx context.Context, accountID uuid.UUID) (domain.DebitResult, error) {
	var row balanceRow
	res := l.db.WithContext(ctx).Raw(
		`UPDATE accounts
		    SET credit_balance = credit_balance - 1, updated_at = now()
		  WHERE id = ? AND credit_balance > 0
		RETURNING credit_balance`,
		accountID,
	).Scan(&row)
	if res.Error != nil {
		return domain.DebitResult{}, fmt.Errorf("postgres: debit: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		// Nothing matched: either the balance is zero or the account is gone.
		balance, err := l.Balance(ctx, accountID)
		if err != nil {
			return domain.DebitResult{}, err
		}
		return domain.DebitResult{OK: false, NewBalance: balance}, nil
	}

	return domain.DebitResult{OK: true, NewBalance: row.CreditBalance}, nil
}

func (l *creditLedger) Credit(ctx context.Context, accountID uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}

	var row balanceRow
	res := l.db.WithContext(ctx).Raw(
		`UPDATE accounts
		    SET credit_balance = credit_balance + ?, updated_at = now()
		  WHERE id = ?
		RETURNING credit_balance`,
		amount, accountID,
	).Scan(&row)
	if res.Error != nil {
		return 0, fmt.Errorf("postgres: credit: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, domain.ErrAccountNotFound
	}
	return row.CreditBalance, nil
}
