package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dom/imagify/internal/config"
	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	accounts repository.AccountRepository
	ledger   repository.CreditLedger
	cfg      *config.Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewAuthService(accounts repository.AccountRepository, ledger repository.CreditLedger, cfg *config.Config, logger *slog.Logger) *AuthService {
	return &AuthService{
		accounts: accounts,
		ledger:   ledger,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	Account     *domain.Account
	AccessToken string
	Credits     int
}

// NormalizeEmail lower-cases and trims an address so lookups are
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	name := strings.TrimSpace(input.Name)
	email := NormalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", domain.ErrValidation)
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: email is not valid", domain.ErrValidation)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	account := &domain.Account{
		ID:            uuid.New(),
		Name:          name,
		Email:         email,
		PasswordHash:  string(hashedPassword),
		CreditBalance: s.cfg.StartingCredits,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	// Uniqueness is enforced by the store so concurrent registrations of the
	// same address cannot both succeed.
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, err
	}

	// An account without a ledger entry can never log in or generate, so the
	// row is removed and the address stays free for a retry.
	if err := s.ledger.Open(ctx, account.ID, s.cfg.StartingCredits); err != nil {
		s.logger.Error("failed to open credit balance",
			slog.String("account_id", account.ID.String()),
			slog.String("error", err.Error()),
		)
		if delErr := s.accounts.Delete(context.WithoutCancel(ctx), account.ID); delErr != nil {
			s.logger.Error("failed to remove account after ledger error",
				slog.String("account_id", account.ID.String()),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("open credit balance: %w", err)
	}

	s.logger.Info("account registered",
		slog.String("account_id", account.ID.String()),
		slog.Int("credits", s.cfg.StartingCredits),
	)

	return s.issue(account, s.cfg.StartingCredits)
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	email := NormalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrValidation)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(input.Password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	credits, err := s.ledger.Balance(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}

	return s.issue(account, credits)
}

func (s *AuthService) issue(account *domain.Account, credits int) (*AuthResult, error) {
	token, err := s.generateAccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Account: account, AccessToken: token, Credits: credits}, nil
}

func (s *AuthService) generateAccessToken(account *domain.Account) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  account.ID.String(),
		"name": account.Name,
		"exp":  now.Add(s.cfg.JWTExpiration()).Unix(),
		"iat":  now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

func (s *AuthService) ValidateToken(tokenString string) (*jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithExpirationRequired(), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return &claims, nil
	}

	return nil, errors.New("invalid token")
}

// AccountIDFromToken validates the token and returns its subject. Every
// failure is reported as domain.ErrUnauthenticated.
func (s *AuthService) AccountIDFromToken(tokenString string) (uuid.UUID, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", domain.ErrUnauthenticated, err)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, fmt.Errorf("%w: missing subject", domain.ErrUnauthenticated)
	}

	id, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: subject is not an account id", domain.ErrUnauthenticated)
	}
	return id, nil
}

func (s *AuthService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return s.accounts.GetByID(ctx, id)
}
