package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dom/imagify/internal/api/middleware"
	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type GenerationHandler struct {
	generationService *service.GenerationService
	logger            *slog.Logger
}

func NewGenerationHandler(generationService *service.GenerationService, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{generationService: generationService, logger: logger}
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

type GenerateResponse struct {
	Success       bool   `json:"success"`
	GenerationID  string `json:"generationId,omitempty"`
	ImageURL      string `json:"imageUrl"`
	CreditBalance int    `json:"creditBalance"`
	Recorded      bool   `json:"recorded"`
}

type GenerationListResponse struct {
	Success           bool                     `json:"success"`
	TotalGenerations  int64                    `json:"totalGenerations"`
	RecentGenerations []service.GenerationView `json:"recentGenerations"`
}

type GenerationResponse struct {
	Success    bool                    `json:"success"`
	Generation *service.GenerationView `json:"generation"`
}

func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.WriteUnauthenticated(w, "Not authorized, login again")
		return
	}

	var req GenerateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, "Invalid request body")
		return
	}

	result, err := h.generationService.Generate(r.Context(), service.GenerateInput{
		AccountID: accountID,
		Prompt:    req.Prompt,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	resp := GenerateResponse{
		Success:       true,
		ImageURL:      result.ImageURL,
		CreditBalance: result.NewBalance,
		Recorded:      result.Recorded,
	}
	if result.Recorded {
		resp.GenerationID = result.GenerationID.String()
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}

func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.WriteUnauthenticated(w, "Not authorized, login again")
		return
	}

	limit := service.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeValidationError(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := h.generationService.List(r.Context(), accountID, limit)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, GenerationListResponse{
		Success:           true,
		TotalGenerations:  list.Total,
		RecentGenerations: list.Generations,
	})
}

func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.WriteUnauthenticated(w, "Not authorized, login again")
		return
	}

	// A malformed id cannot name anyone's record.
	generationID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.logger, domain.ErrGenerationNotFound)
		return
	}

	generation, err := h.generationService.Get(r.Context(), accountID, generationID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, GenerationResponse{
		Success:    true,
		Generation: generation,
	})
}
