package domain

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Name          string    `json:"name" gorm:"not null"`
	Email         string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash  string    `json:"-" gorm:"not null"`
	CreditBalance int       `json:"creditBalance" gorm:"not null;default:0;check:chk_accounts_credit_balance,credit_balance >= 0"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// DebitResult is the outcome of a conditional single-credit debit.
// OK is false when the balance was already zero; nothing was changed then.
type DebitResult struct {
	OK         bool
	NewBalance int
}
