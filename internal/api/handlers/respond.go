package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dom/imagify/internal/api/middleware"
	"github.com/dom/imagify/internal/domain"
)

// writeError maps a service error to its status and code. Unknown errors are
// logged and reported as INTERNAL_ERROR without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var failed *domain.GenerationFailedError

	switch {
	case errors.As(err, &failed):
		middleware.WriteError(w, http.StatusBadGateway, middleware.ErrorResponseBody{
			Code:    "GENERATION_FAILED",
			Message: "The image provider did not return an image",
			Error:   failed.Message,
		})
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidPrompt):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorResponseBody{
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
	case errors.Is(err, domain.ErrInvalidPlan):
		middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorResponseBody{
			Code:    "INVALID_PLAN",
			Message: "Invalid plan",
		})
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrInvalidCredentials):
		middleware.WriteUnauthenticated(w, "Invalid credentials")
	case errors.Is(err, domain.ErrAccountNotFound):
		middleware.WriteError(w, http.StatusUnauthorized, middleware.ErrorResponseBody{
			Code:    "ACCOUNT_NOT_FOUND",
			Message: "User not found",
		})
	case errors.Is(err, domain.ErrAccountExists):
		middleware.WriteError(w, http.StatusConflict, middleware.ErrorResponseBody{
			Code:    "ALREADY_EXISTS",
			Message: "User already exists",
		})
	case errors.Is(err, domain.ErrInsufficientCredit):
		middleware.WriteError(w, http.StatusPaymentRequired, middleware.ErrorResponseBody{
			Code:    "INSUFFICIENT_CREDIT",
			Message: "No credit balance",
		})
	case errors.Is(err, domain.ErrProviderUnavailable):
		middleware.WriteError(w, http.StatusServiceUnavailable, middleware.ErrorResponseBody{
			Code:    "PROVIDER_UNAVAILABLE",
			Message: "The image provider is unavailable, try again later",
		})
	case errors.Is(err, domain.ErrGenerationNotFound):
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrorResponseBody{
			Code:    "NOT_FOUND",
			Message: "Not found",
		})
	default:
		logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrorResponseBody{
			Code:    "INTERNAL_ERROR",
			Message: "Server error",
		})
	}
}

func writeValidationError(w http.ResponseWriter, message string) {
	middleware.WriteError(w, http.StatusBadRequest, middleware.ErrorResponseBody{
		Code:    "VALIDATION_ERROR",
		Message: message,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	return dec.Decode(v)
}
