package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dom/imagify/internal/config"
	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/imagestore"
	"github.com/dom/imagify/internal/logger"
	"github.com/dom/imagify/internal/provider/mock"
	"github.com/dom/imagify/internal/repository"
	"github.com/dom/imagify/internal/repository/memory"
	"github.com/dom/imagify/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 168,
		StartingCredits:    5,
		Plans:              domain.DefaultPlans(),
		MaxPromptLength:    1000,
		ProviderTimeout:    2 * time.Second,
		Provider:           config.ProviderMock,
		ImageStore:         config.ImageStoreInline,
	}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events map[uuid.UUID][]int
}

func (n *recordingNotifier) Notify(accountID uuid.UUID, credits int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.events == nil {
		n.events = make(map[uuid.UUID][]int)
	}
	n.events[accountID] = append(n.events[accountID], credits)
}

func (n *recordingNotifier) For(accountID uuid.UUID) []int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]int(nil), n.events[accountID]...)
}

type fixture struct {
	cfg         *config.Config
	accounts    *memory.Accounts
	generations *memory.Generations
	provider    *mock.Provider
	notifier    *recordingNotifier
	services    *service.Services
}

type fixtureOption func(*fixtureDeps)

type fixtureDeps struct {
	providerOpts []mock.Option
	images       imagestore.Store
}

func withProvider(opts ...mock.Option) fixtureOption {
	return func(d *fixtureDeps) { d.providerOpts = append(d.providerOpts, opts...) }
}

func withImages(store imagestore.Store) fixtureOption {
	return func(d *fixtureDeps) { d.images = store }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	deps := &fixtureDeps{images: imagestore.NewInline()}
	for _, opt := range opts {
		opt(deps)
	}

	cfg := testConfig()
	accounts := memory.NewAccounts()
	generations := memory.NewGenerations()
	p := mock.New(deps.providerOpts...)
	notifier := &recordingNotifier{}

	f := &fixture{
		cfg:         cfg,
		accounts:    accounts,
		generations: generations,
		provider:    p,
		notifier:    notifier,
	}
	f.services = service.NewServices(repositoriesOf(f), service.Dependencies{
		Provider: p,
		Images:   deps.images,
		Notifier: notifier,
		Logger:   logger.Discard(),
	}, cfg)
	return f
}

// account creates an account with the given balance directly in the store.
func (f *fixture) account(t *testing.T, balance int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	a := &domain.Account{Name: "tester", Email: uuid.NewString() + "@example.com", PasswordHash: "x"}
	require.NoError(t, f.accounts.Create(ctx, a))
	require.NoError(t, f.accounts.Open(ctx, a.ID, balance))
	return a.ID
}

func (f *fixture) balance(t *testing.T, id uuid.UUID) int {
	t.Helper()
	b, err := f.accounts.Balance(context.Background(), id)
	require.NoError(t, err)
	return b
}

func repositoriesOf(f *fixture) *repository.Repositories {
	return &repository.Repositories{
		Account:    f.accounts,
		Ledger:     f.accounts,
		Generation: f.generations,
	}
}
