package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dom/imagify/internal/api/middleware"
	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/service"
)

type CreditHandler struct {
	creditService *service.CreditService
	logger        *slog.Logger
}

func NewCreditHandler(creditService *service.CreditService, logger *slog.Logger) *CreditHandler {
	return &CreditHandler{creditService: creditService, logger: logger}
}

type BalanceResponse struct {
	Success bool         `json:"success"`
	Credits int          `json:"credits"`
	User    UserResponse `json:"user"`
}

type TopUpRequest struct {
	Plan string `json:"plan"`
}

type TopUpResponse struct {
	Success bool   `json:"success"`
	Credits int    `json:"credits"`
	Plan    string `json:"plan"`
	Added   int    `json:"added"`
}

type PlansResponse struct {
	Success bool          `json:"success"`
	Plans   []domain.Plan `json:"plans"`
}

func (h *CreditHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.WriteUnauthenticated(w, "Not authorized, login again")
		return
	}

	result, err := h.creditService.Balance(r.Context(), accountID)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, BalanceResponse{
		Success: true,
		Credits: result.Credits,
		User:    newUserResponse(result.Account),
	})
}

func (h *CreditHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		middleware.WriteUnauthenticated(w, "Not authorized, login again")
		return
	}

	var req TopUpRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, "Invalid request body")
		return
	}

	result, err := h.creditService.TopUp(r.Context(), accountID, req.Plan)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, TopUpResponse{
		Success: true,
		Credits: result.Credits,
		Plan:    result.Plan.ID,
		Added:   result.Plan.Credits,
	})
}

func (h *CreditHandler) Plans(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, PlansResponse{
		Success: true,
		Plans:   h.creditService.Plans(),
	})
}
