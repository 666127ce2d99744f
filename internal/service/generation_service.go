package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/imagestore"
	"github.com/dom/imagify/internal/metrics"
	"github.com/dom/imagify/internal/provider"
	"github.com/dom/imagify/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DefaultListLimit = 5
	MaxListLimit     = 50
)

type GenerationService struct {
	ledger          repository.CreditLedger
	generations     repository.GenerationRepository
	provider        provider.Provider
	images          imagestore.Store
	notifier        BalanceNotifier
	metrics         metrics.Recorder
	logger          *slog.Logger
	maxPromptLength int
	timeout         time.Duration
	now             func() time.Time
}

type GenerationConfig struct {
	MaxPromptLength int
	ProviderTimeout time.Duration
}

func NewGenerationService(
	ledger repository.CreditLedger,
	generations repository.GenerationRepository,
	p provider.Provider,
	images imagestore.Store,
	notifier BalanceNotifier,
	recorder metrics.Recorder,
	cfg GenerationConfig,
	logger *slog.Logger,
) *GenerationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &GenerationService{
		ledger:          ledger,
		generations:     generations,
		provider:        p,
		images:          images,
		notifier:        notifier,
		metrics:         recorder,
		logger:          logger,
		maxPromptLength: cfg.MaxPromptLength,
		timeout:         cfg.ProviderTimeout,
		now:             time.Now,
	}
}

type GenerateInput struct {
	AccountID uuid.UUID
	Prompt    string
}

// GenerateResult describes a billed generation. Recorded is false when the
// credit was spent but the record could not be stored; GenerationID is then
// uuid.Nil and ImageURL carries the image inline.
type GenerateResult struct {
	GenerationID uuid.UUID
	ImageURL     string
	NewBalance   int
	Recorded     bool
}

// GenerationView is a stored generation with a resolved image URL.
type GenerationView struct {
	*domain.Generation
	ImageURL string `json:"imageUrl"`
}

type GenerationList struct {
	Total       int64
	Generations []GenerationView
}

// Generate runs one prompt through the provider and charges a single credit
// only if an image came back. No balance is held while the provider runs;
// the debit is a conditional decrement, so concurrent requests can pass the
// balance check yet only as many as there are credits get billed.
func (s *GenerationService) Generate(ctx context.Context, input GenerateInput) (*GenerateResult, error) {
	log := s.logger.With(slog.String("account_id", input.AccountID.String()))

	prompt := strings.TrimSpace(input.Prompt)
	if prompt == "" {
		s.metrics.RecordGeneration(metrics.OutcomeInvalidPrompt)
		return nil, fmt.Errorf("%w: prompt is required", domain.ErrInvalidPrompt)
	}
	if n := utf8.RuneCountInString(prompt); n > s.maxPromptLength {
		s.metrics.RecordGeneration(metrics.OutcomeInvalidPrompt)
		return nil, fmt.Errorf("%w: prompt is %d characters, limit is %d", domain.ErrInvalidPrompt, n, s.maxPromptLength)
	}

	// Advisory only; it spares a provider call for accounts that are already
	// out of credit. The debit below is authoritative.
	balance, err := s.ledger.Balance(ctx, input.AccountID)
	if err != nil {
		s.metrics.RecordGeneration(metrics.OutcomeError)
		return nil, err
	}
	if balance <= 0 {
		s.metrics.RecordGeneration(metrics.OutcomeInsufficientCredit)
		return nil, domain.ErrInsufficientCredit
	}

	// From here on the work is not abandoned when the client goes away: a
	// produced image must be billed and recorded consistently.
	detached := context.WithoutCancel(ctx)

	res := s.provider.Invoke(detached, prompt, s.timeout)
	s.metrics.RecordProviderLatency(s.provider.Name(), res.Kind.String(), res.Latency)

	switch res.Kind {
	case provider.KindImage:
	case provider.KindUpstreamError:
		log.Warn("provider returned no image", slog.String("message", res.Message))
		s.metrics.RecordGeneration(metrics.OutcomeGenerationFailed)
		return nil, &domain.GenerationFailedError{Message: res.Message}
	case provider.KindTimeout:
		log.Warn("provider timed out", slog.Duration("timeout", s.timeout))
		s.metrics.RecordGeneration(metrics.OutcomeProviderUnavailable)
		return nil, fmt.Errorf("%w: timed out after %s", domain.ErrProviderUnavailable, s.timeout)
	default:
		log.Error("provider call failed", slog.Any("error", res.Err))
		s.metrics.RecordGeneration(metrics.OutcomeProviderUnavailable)
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, res.Err)
	}

	debit, err := s.ledger.DebitIfPositive(detached, input.AccountID)
	if err != nil {
		log.Error("debit failed after image was produced", slog.String("error", err.Error()))
		s.metrics.RecordGeneration(metrics.OutcomeError)
		return nil, fmt.Errorf("debit credit: %w", err)
	}
	if !debit.OK {
		// Another request spent the last credit while this one was waiting on
		// the provider. The image is discarded.
		s.metrics.RecordGeneration(metrics.OutcomeInsufficientCredit)
		return nil, domain.ErrInsufficientCredit
	}
	s.notifier.Notify(input.AccountID, debit.NewBalance)

	result := s.record(detached, log, input.AccountID, prompt, res, debit.NewBalance)
	if result.Recorded {
		s.metrics.RecordGeneration(metrics.OutcomeSuccess)
	} else {
		s.metrics.RecordGeneration(metrics.OutcomeUnrecorded)
	}
	return result, nil
}

// record stores the image and the generation record. Failures past the debit
// do not undo the charge; the caller still receives the image inline.
func (s *GenerationService) record(ctx context.Context, log *slog.Logger, accountID uuid.UUID, prompt string, res provider.Result, newBalance int) *GenerateResult {
	unrecorded := func(stage string, err error) *GenerateResult {
		log.Error("generation billed but not recorded",
			slog.String("stage", stage),
			slog.Int("credits", newBalance),
			slog.String("error", err.Error()),
		)
		s.metrics.RecordRecordWriteFailure(stage)
		return &GenerateResult{
			GenerationID: uuid.Nil,
			ImageURL:     imagestore.DataURL(res.ContentType, res.Image),
			NewBalance:   newBalance,
			Recorded:     false,
		}
	}

	generationID := uuid.New()
	ref, err := s.images.Put(ctx, accountID, generationID, res.ContentType, res.Image)
	if err != nil {
		return unrecorded("image_store", err)
	}

	metadata, err := json.Marshal(domain.GenerationMetadata{
		SizeBytes:         len(res.Image),
		ProviderLatencyMs: res.Latency.Milliseconds(),
	})
	if err != nil {
		return unrecorded("record", err)
	}

	generation := &domain.Generation{
		ID:          generationID,
		AccountID:   accountID,
		Prompt:      prompt,
		ImageRef:    ref,
		Provider:    s.provider.Name(),
		Model:       s.provider.Model(),
		ContentType: res.ContentType,
		Metadata:    datatypes.JSON(metadata),
		CreatedAt:   s.now(),
	}
	if err := s.generations.Create(ctx, generation); err != nil {
		return unrecorded("record", err)
	}

	url, err := s.images.URL(ctx, ref)
	if err != nil {
		log.Warn("could not resolve image url, returning inline image",
			slog.String("generation_id", generationID.String()),
			slog.String("error", err.Error()),
		)
		url = imagestore.DataURL(res.ContentType, res.Image)
	}

	log.Info("generation completed",
		slog.String("generation_id", generationID.String()),
		slog.Int("credits", newBalance),
		slog.Int64("provider_latency_ms", res.Latency.Milliseconds()),
	)

	return &GenerateResult{
		GenerationID: generationID,
		ImageURL:     url,
		NewBalance:   newBalance,
		Recorded:     true,
	}
}

// List returns the total number of generations for the account and the most
// recent ones, newest first.
func (s *GenerationService) List(ctx context.Context, accountID uuid.UUID, limit int) (*GenerationList, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	total, err := s.generations.CountByAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("count generations: %w", err)
	}

	records, err := s.generations.ListByAccount(ctx, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}

	views := make([]GenerationView, 0, len(records))
	for _, g := range records {
		view, err := s.view(ctx, g)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	return &GenerationList{Total: total, Generations: views}, nil
}

// Get returns a generation owned by accountID. Records of other accounts are
// reported as domain.ErrGenerationNotFound.
func (s *GenerationService) Get(ctx context.Context, accountID, generationID uuid.UUID) (*GenerationView, error) {
	g, err := s.generations.GetByIDAndAccount(ctx, generationID, accountID)
	if err != nil {
		return nil, err
	}
	view, err := s.view(ctx, g)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *GenerationService) view(ctx context.Context, g *domain.Generation) (GenerationView, error) {
	url, err := s.images.URL(ctx, g.ImageRef)
	if err != nil {
		return GenerationView{}, fmt.Errorf("resolve image for generation %s: %w", g.ID, err)
	}
	return GenerationView{Generation: g, ImageURL: url}, nil
}
