// Package redis provides a Redis-backed credit ledger.
//
// Each account balance lives in a hash under <prefix><account id>. Debits and
// credits run as Lua scripts, so the precondition check and the write are a
// single atomic step on the server even with many application instances.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/repository"
)

// Ledger is a Redis-backed repository.CreditLedger.
type Ledger struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ repository.CreditLedger = (*Ledger)(nil)

// Option configures Ledger.
type Option func(*Ledger)

// WithKeyPrefix sets the Redis key prefix (default "imagify:credits:").
func WithKeyPrefix(prefix string) Option {
	return func(l *Ledger) { l.keyPrefix = prefix }
}

// New creates a Ledger on top of a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Ledger {
	l := &Ledger{
		client:    client,
		keyPrefix: "imagify:credits:",
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) accountKey(accountID uuid.UUID) string {
	return l.keyPrefix + accountID.String()
}

// debitScript decrements the balance only when it is positive.
// KEYS[1] = account hash key
//
// Returns {status, balance}:
//
//	status  1 = debited
//	status  0 = balance was zero, nothing changed
//	status -1 = account not found
var debitScript = goredis.NewScript(`
local balance = redis.call("HGET", KEYS[1], "balance")
if not balance then
    return {-1, 0}
end
balance = tonumber(balance)
if balance <= 0 then
    return {0, balance}
end
return {1, redis.call("HINCRBY", KEYS[1], "balance", -1)}
`)

// creditScript adds to an existing balance.
// KEYS[1] = account hash key
// ARGV[1] = amount
//
// Returns the new balance or -1 if the account does not exist.
var creditScript = goredis.NewScript(`
if redis.call("HEXISTS", KEYS[1], "balance") == 0 then
    return -1
end
return redis.call("HINCRBY", KEYS[1], "balance", tonumber(ARGV[1]))
`)

// Open creates the balance entry. An existing entry is left untouched so a
// retried registration cannot reset a balance.
func (l *Ledger) Open(ctx context.Context, accountID uuid.UUID, initial int) error {
	if initial < 0 {
		return domain.ErrInvalidAmount
	}
	if err := l.client.HSetNX(ctx, l.accountKey(accountID), "balance", initial).Err(); err != nil {
		return fmt.Errorf("redis ledger: open: %w", err)
	}
	return nil
}

func (l *Ledger) Balance(ctx context.Context, accountID uuid.UUID) (int, error) {
	balance, err := l.client.HGet(ctx, l.accountKey(accountID), "balance").Int()
	if errors.Is(err, goredis.Nil) {
		return 0, domain.ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("redis ledger: balance: %w", err)
	}
	return balance, nil
}

func (l *Ledger) DebitIfPositive(ctx context.Context, accountID uuid.UUID) (domain.DebitResult, error) {
	res, err := debitScript.Run(ctx, l.client, []string{l.accountKey(accountID)}).Int64Slice()
	if err != nil {
		return domain.DebitResult{}, fmt.Errorf("redis ledger: debit: %w", err)
	}
	if len(res) != 2 {
		return domain.DebitResult{}, fmt.Errorf("redis ledger: debit: unexpected script reply %v", res)
	}

	switch res[0] {
	case -1:
		return domain.DebitResult{}, domain.ErrAccountNotFound
	case 0:
		return domain.DebitResult{OK: false, NewBalance: int(res[1])}, nil
	default:
		return domain.DebitResult{OK: true, NewBalance: int(res[1])}, nil
	}
}

func (l *Ledger) Credit(ctx context.Context, accountID uuid.UUID, amount int) (int, error) {
	if amount <= 0 {
		return 0, domain.ErrInvalidAmount
	}
	balance, err := creditScript.Run(ctx, l.client, []string{l.accountKey(accountID)}, amount).Int()
	if err != nil {
		return 0, fmt.Errorf("redis ledger: credit: %w", err)
	}
	if balance < 0 {
		return 0, domain.ErrAccountNotFound
	}
	return balance, nil
}
