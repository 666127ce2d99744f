package postgres

import (
	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the tables owned by this service.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Account{},
		&domain.Generation{},
	)
}

// NewRepositories wires the Postgres-backed repositories. The ledger keeps
// balances in accounts.credit_balance; callers may swap it for another
// repository.CreditLedger afterwards.
func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		Account:    NewAccountRepository(db),
		Ledger:     NewCreditLedger(db),
		Generation: NewGenerationRepository(db),
	}
}
