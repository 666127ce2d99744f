package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/imagestore"
	"github.com/dom/imagify/internal/provider"
	"github.com/dom/imagify/internal/provider/mock"
	"github.com/dom/imagify/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationService_RegisterThenGenerate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	registered, err := f.services.Auth.Register(ctx, service.RegisterInput{
		Name: "Ada", Email: "ada@example.com", Password: "pw",
	})
	require.NoError(t, err)
	id := registered.Account.ID

	result, err := f.services.Generation.Generate(ctx, service.GenerateInput{AccountID: id, Prompt: "a lighthouse at dusk"})
	require.NoError(t, err)
	assert.True(t, result.Recorded)
	assert.Equal(t, 4, result.NewBalance)
	assert.True(t, strings.HasPrefix(result.ImageURL, "data:image/png;base64,"))

	list, err := f.services.Generation.List(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total)
	require.Len(t, list.Generations, 1)
	assert.Equal(t, "a lighthouse at dusk", list.Generations[0].Prompt)
	assert.Equal(t, result.GenerationID, list.Generations[0].ID)
	assert.Equal(t, "mock", list.Generations[0].Provider)

	got, err := f.services.Generation.Get(ctx, id, result.GenerationID)
	require.NoError(t, err)
	assert.Equal(t, result.ImageURL, got.ImageURL)

	assert.Equal(t, []int{4}, f.notifier.For(id))
}

func TestGenerationService_RecordedFirstInList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, 3)

	_, err := f.services.Generation.Generate(ctx, service.GenerateInput{AccountID: id, Prompt: "an old mill"})
	require.NoError(t, err)
	_, err = f.accounts.Credit(ctx, id, 1)
	require.NoError(t, err)

	result, err := f.services.Generation.Generate(ctx, service.GenerateInput{AccountID: id, Prompt: "  a red fox  "})
	require.NoError(t, err)
	assert.Equal(t, 2, result.NewBalance)

	list, err := f.services.Generation.List(ctx, id, 5)
	require.NoError(t, err)
	require.Len(t, list.Generations, 2)
	assert.Equal(t, "a red fox", list.Generations[0].Prompt)
	assert.Equal(t, result.GenerationID, list.Generations[0].ID)
}

func TestGenerationService_NoChargeWithoutImage(t *testing.T) {
	tests := []struct {
		name    string
		result  provider.Result
		wantErr error
	}{
		{
			name:    "upstream error",
			result:  provider.UpstreamError("Model is currently loading"),
			wantErr: domain.ErrGenerationFailed,
		},
		{
			name:    "timeout",
			result:  provider.Timeout(),
			wantErr: domain.ErrProviderUnavailable,
		},
		{
			name:    "transport failure",
			result:  provider.TransportFailure(errors.New("connection reset by peer")),
			wantErr: domain.ErrProviderUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, withProvider(mock.WithResults(tt.result)))
			ctx := context.Background()
			id := f.account(t, 2)

			_, err := f.services.Generation.Generate(ctx, service.GenerateInput{AccountID: id, Prompt: "a cat"})
			require.ErrorIs(t, err, tt.wantErr)

			assert.Equal(t, 2, f.balance(t, id))
			count, err := f.generations.CountByAccount(ctx, id)
			require.NoError(t, err)
			assert.Zero(t, count)
			assert.Empty(t, f.notifier.For(id))
		})
	}
}

func TestGenerationService_UpstreamMessageSurfaced(t *testing.T) {
	f := newFixture(t, withProvider(mock.WithResults(provider.UpstreamError("NSFW content detected"))))
	id := f.account(t, 1)

	_, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: "x"})

	var failed *domain.GenerationFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "NSFW content detected", failed.Message)
}

func TestGenerationService_ProviderTimeoutFromLatency(t *testing.T) {
	f := newFixture(t, withProvider(mock.WithLatency(time.Minute)))
	f.services = rebuildWithTimeout(f, 20*time.Millisecond)
	id := f.account(t, 1)

	_, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: "slow"})

	assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
	assert.Equal(t, 1, f.balance(t, id))
}

func rebuildWithTimeout(f *fixture, timeout time.Duration) *service.Services {
	cfg := *f.cfg
	cfg.ProviderTimeout = timeout
	f.cfg = &cfg
	return service.NewServices(repositoriesOf(f), service.Dependencies{
		Provider: f.provider,
		Notifier: f.notifier,
	}, &cfg)
}

func TestGenerationService_InsufficientCreditSkipsProvider(t *testing.T) {
	f := newFixture(t)
	id := f.account(t, 0)

	_, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: "a dog"})

	assert.ErrorIs(t, err, domain.ErrInsufficientCredit)
	assert.Zero(t, f.provider.Calls())
	assert.Equal(t, 0, f.balance(t, id))
}

func TestGenerationService_InvalidPrompt(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
	}{
		{name: "empty", prompt: ""},
		{name: "whitespace", prompt: " \t\n "},
		{name: "too long", prompt: strings.Repeat("é", 1001)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.account(t, 5)

			_, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: tt.prompt})

			assert.ErrorIs(t, err, domain.ErrInvalidPrompt)
			assert.Zero(t, f.provider.Calls())
			assert.Equal(t, 5, f.balance(t, id))
		})
	}
}

func TestGenerationService_PromptAtLimitAccepted(t *testing.T) {
	f := newFixture(t)
	id := f.account(t, 1)

	_, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{
		AccountID: id,
		Prompt:    strings.Repeat("é", 1000),
	})
	assert.NoError(t, err)
}

func TestGenerationService_UnknownAccount(t *testing.T) {
	f := newFixture(t)
	id := f.account(t, 5)
	require.NoError(t, f.accounts.Delete(context.Background(), id))

	_, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: "a"})

	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	assert.Zero(t, f.provider.Calls())
}

func TestGenerationService_LastCreditRace(t *testing.T) {
	// Both requests pass the advisory check before either is debited.
	var arrived sync.WaitGroup
	arrived.Add(2)
	f := newFixture(t, withProvider(mock.WithHook(func(context.Context, string) {
		arrived.Done()
		arrived.Wait()
	})))
	id := f.account(t, 1)

	type outcome struct {
		result *service.GenerateResult
		err    error
	}
	outcomes := make(chan outcome, 2)
	for i := 0; i < 2; i++ {
		go func() {
			r, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: "a boat"})
			outcomes <- outcome{r, err}
		}()
	}

	var successes, insufficient int
	for i := 0; i < 2; i++ {
		o := <-outcomes
		switch {
		case o.err == nil:
			successes++
			assert.Equal(t, 0, o.result.NewBalance)
		case errors.Is(o.err, domain.ErrInsufficientCredit):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", o.err)
		}
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, 2, f.provider.Calls())
	assert.Equal(t, 0, f.balance(t, id))

	count, err := f.generations.CountByAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestGenerationService_ConcurrencyBound(t *testing.T) {
	const (
		balance  = 3
		requests = 12
	)
	f := newFixture(t, withProvider(mock.WithLatency(5*time.Millisecond)))
	id := f.account(t, balance)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		other     []error
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: "stars"})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if !errors.Is(err, domain.ErrInsufficientCredit) {
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	assert.Empty(t, other)
	assert.LessOrEqual(t, successes, balance)
	final := f.balance(t, id)
	assert.Equal(t, balance-successes, final)
	assert.GreaterOrEqual(t, final, 0)

	count, err := f.generations.CountByAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, int64(successes), count)
}

func TestGenerationService_BilledButUnrecorded(t *testing.T) {
	f := newFixture(t)
	f.generations.FailCreate = errors.New("connection refused")
	id := f.account(t, 2)

	result, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: "a tree"})
	require.NoError(t, err)

	assert.False(t, result.Recorded)
	assert.Equal(t, uuid.Nil, result.GenerationID)
	assert.Equal(t, 1, result.NewBalance)
	assert.True(t, strings.HasPrefix(result.ImageURL, "data:image/png;base64,"))
	assert.Equal(t, 1, f.balance(t, id))

	f.generations.FailCreate = nil
	count, err := f.generations.CountByAccount(context.Background(), id)
	require.NoError(t, err)
	assert.Zero(t, count)
}

type failingStore struct{}

func (failingStore) Put(context.Context, uuid.UUID, uuid.UUID, string, []byte) (string, error) {
	return "", errors.New("bucket unavailable")
}

func (failingStore) URL(context.Context, string) (string, error) {
	return "", errors.New("bucket unavailable")
}

func TestGenerationService_ImageStoreFailure(t *testing.T) {
	f := newFixture(t, withImages(failingStore{}))
	id := f.account(t, 1)

	result, err := f.services.Generation.Generate(context.Background(), service.GenerateInput{AccountID: id, Prompt: "a tree"})
	require.NoError(t, err)

	assert.False(t, result.Recorded)
	assert.Equal(t, 0, result.NewBalance)
	assert.NotEmpty(t, result.ImageURL)
}

func TestGenerationService_CallerCancellationDoesNotAbandonBilling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t, withProvider(mock.WithHook(func(context.Context, string) {
		cancel()
	})))
	id := f.account(t, 2)

	result, err := f.services.Generation.Generate(ctx, service.GenerateInput{AccountID: id, Prompt: "a bridge"})
	require.NoError(t, err)

	assert.True(t, result.Recorded)
	assert.Equal(t, 1, f.balance(t, id))
	_, err = f.generations.GetByIDAndAccount(context.Background(), result.GenerationID, id)
	assert.NoError(t, err)
}

func TestGenerationService_OwnershipScopedReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner, other := f.account(t, 1), f.account(t, 1)

	result, err := f.services.Generation.Generate(ctx, service.GenerateInput{AccountID: owner, Prompt: "a castle"})
	require.NoError(t, err)

	_, err = f.services.Generation.Get(ctx, other, result.GenerationID)
	assert.ErrorIs(t, err, domain.ErrGenerationNotFound)

	_, err = f.services.Generation.Get(ctx, owner, uuid.New())
	assert.ErrorIs(t, err, domain.ErrGenerationNotFound)

	list, err := f.services.Generation.List(ctx, other, 10)
	require.NoError(t, err)
	assert.Zero(t, list.Total)
	assert.Empty(t, list.Generations)
}

func TestGenerationService_ListLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.account(t, 0)
	for i := 0; i < service.MaxListLimit+5; i++ {
		require.NoError(t, f.generations.Create(ctx, &domain.Generation{
			AccountID: id,
			Prompt:    "p",
			ImageRef:  imagestore.DataURL("image/png", []byte{1}),
			CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		}))
	}

	list, err := f.services.Generation.List(ctx, id, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(service.MaxListLimit+5), list.Total)
	assert.Len(t, list.Generations, service.DefaultListLimit)

	list, err = f.services.Generation.List(ctx, id, 1000)
	require.NoError(t, err)
	assert.Len(t, list.Generations, service.MaxListLimit)
}
