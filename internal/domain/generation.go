package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Generation is the durable record of one billed, successful image generation.
type Generation struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AccountID   uuid.UUID      `json:"accountId" gorm:"type:uuid;not null;index:idx_generations_account_created,priority:1"`
	Prompt      string         `json:"prompt" gorm:"type:text;not null"`
	ImageRef    string         `json:"-" gorm:"type:text;not null"`
	Provider    string         `json:"provider" gorm:"not null"`
	Model       string         `json:"model"`
	ContentType string         `json:"contentType"`
	Metadata    datatypes.JSON `json:"metadata" gorm:"type:jsonb"`
	CreatedAt   time.Time      `json:"createdAt" gorm:"not null;index:idx_generations_account_created,priority:2,sort:desc"`

	Account *Account `json:"-" gorm:"foreignKey:AccountID"`
}

// GenerationMetadata is stored in Generation.Metadata.
type GenerationMetadata struct {
	SizeBytes         int   `json:"sizeBytes"`
	ProviderLatencyMs int64 `json:"providerLatencyMs"`
}
