package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dom/imagify/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccountBuilder creates test accounts with a builder pattern
type AccountBuilder struct {
	name     string
	email    string
	password string
	credits  *int
}

// NewAccountBuilder creates a new AccountBuilder with default values
func NewAccountBuilder() *AccountBuilder {
	return &AccountBuilder{
		name:     "Test User",
		email:    fmt.Sprintf("user_%s@example.com", uuid.New().String()[:8]),
		password: "testpassword123",
	}
}

func (b *AccountBuilder) WithName(name string) *AccountBuilder {
	b.name = name
	return b
}

func (b *AccountBuilder) WithEmail(email string) *AccountBuilder {
	b.email = email
	return b
}

func (b *AccountBuilder) WithPassword(password string) *AccountBuilder {
	b.password = password
	return b
}

// WithCredits sets the balance the account ends up with.
func (b *AccountBuilder) WithCredits(credits int) *AccountBuilder {
	b.credits = &credits
	return b
}

// Build inserts the account directly and returns it with the raw password
func (b *AccountBuilder) Build(t *testing.T, db *gorm.DB) (*domain.Account, string) {
	t.Helper()

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(b.password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	account := &domain.Account{
		ID:           uuid.New(),
		Name:         b.name,
		Email:        b.email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if b.credits != nil {
		account.CreditBalance = *b.credits
	}

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create account: %v", err)
	}

	return account, b.password
}

// AuthResponse matches the API auth response
type AuthResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
	Credits int `json:"credits"`
}

// BuildAndAuthenticate registers the account via the API and returns its id
// and access token.
func (b *AccountBuilder) BuildAndAuthenticate(t *testing.T, ts *TestServer) (uuid.UUID, string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"name":     b.name,
		"email":    b.email,
		"password": b.password,
	})

	resp, err := http.Post(ts.APIURL("/auth/register"), "application/json", bytes.NewBuffer(body))
	if err != nil {
		t.Fatalf("failed to register account: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected status code: %d", resp.StatusCode)
	}

	var authResp AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	accountID, err := uuid.Parse(authResp.User.ID)
	if err != nil {
		t.Fatalf("invalid account id %q: %v", authResp.User.ID, err)
	}

	if b.credits != nil {
		ts.SetCredits(t, accountID, *b.credits)
	}

	return accountID, authResp.Token
}

// SetCredits overwrites an account balance.
func (ts *TestServer) SetCredits(t *testing.T, accountID uuid.UUID, credits int) {
	t.Helper()

	err := ts.DB.DB.Model(&domain.Account{}).
		Where("id = ?", accountID).
		Update("credit_balance", credits).Error
	if err != nil {
		t.Fatalf("failed to set credits: %v", err)
	}
}
