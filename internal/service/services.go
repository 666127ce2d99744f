package service

import (
	"log/slog"

	"github.com/dom/imagify/internal/config"
	"github.com/dom/imagify/internal/imagestore"
	"github.com/dom/imagify/internal/metrics"
	"github.com/dom/imagify/internal/provider"
	"github.com/dom/imagify/internal/repository"
)

type Services struct {
	Auth       *AuthService
	Credits    *CreditService
	Generation *GenerationService
}

// Dependencies are the collaborators that are not repositories.
type Dependencies struct {
	Provider provider.Provider
	Images   imagestore.Store
	Notifier BalanceNotifier
	Metrics  metrics.Recorder
	Logger   *slog.Logger
}

func NewServices(repos *repository.Repositories, deps Dependencies, cfg *config.Config) *Services {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	images := deps.Images
	if images == nil {
		images = imagestore.NewInline()
	}

	return &Services{
		Auth:    NewAuthService(repos.Account, repos.Ledger, cfg, logger.With(slog.String("service", "auth"))),
		Credits: NewCreditService(repos.Account, repos.Ledger, cfg.Plans, deps.Notifier, deps.Metrics, logger.With(slog.String("service", "credits"))),
		Generation: NewGenerationService(
			repos.Ledger,
			repos.Generation,
			deps.Provider,
			images,
			deps.Notifier,
			deps.Metrics,
			GenerationConfig{
				MaxPromptLength: cfg.MaxPromptLength,
				ProviderTimeout: cfg.ProviderTimeout,
			},
			logger.With(slog.String("service", "generation")),
		),
	}
}
