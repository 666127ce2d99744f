package domain

import "errors"

// ErrValidation marks malformed input. Callers wrap it with the detail.
var ErrValidation = errors.New("validation failed")

// Authentication errors
var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountExists      = errors.New("account already exists")
	ErrAccountNotFound    = errors.New("account not found")
)

// Credit errors
var (
	ErrInsufficientCredit = errors.New("insufficient credit")
	ErrInvalidAmount      = errors.New("credit amount must be positive")
	ErrInvalidPlan        = errors.New("invalid plan")
)

// Generation errors
var (
	ErrInvalidPrompt       = errors.New("invalid prompt")
	ErrProviderUnavailable = errors.New("image provider unavailable")
	ErrGenerationFailed    = errors.New("image generation failed")
	ErrGenerationNotFound  = errors.New("generation not found")
)

// GenerationFailedError carries the provider's own explanation of a
// non-image response. It matches ErrGenerationFailed with errors.Is.
type GenerationFailedError struct {
	Message string
}

func (e *GenerationFailedError) Error() string {
	return ErrGenerationFailed.Error() + ": " + e.Message
}

func (e *GenerationFailedError) Is(target error) bool {
	return target == ErrGenerationFailed
}
