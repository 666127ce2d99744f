package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dom/imagify/internal/api/middleware"
	"github.com/dom/imagify/internal/domain"
	"github.com/dom/imagify/internal/service"
)

type AuthHandler struct {
	authService *service.AuthService
	logger      *slog.Logger
}

func NewAuthHandler(authService *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, logger: logger}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Success bool         `json:"success"`
	Token   string       `json:"token"`
	User    UserResponse `json:"user"`
	Credits int          `json:"credits"`
}

type UserResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func newUserResponse(a *domain.Account) UserResponse {
	return UserResponse{ID: a.ID.String(), Name: a.Name, Email: a.Email}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, "Invalid request body")
		return
	}

	result, err := h.authService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, AuthResponse{
		Success: true,
		Token:   result.AccessToken,
		User:    newUserResponse(result.Account),
		Credits: result.Credits,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeValidationError(w, "Invalid request body")
		return
	}

	result, err := h.authService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, AuthResponse{
		Success: true,
		Token:   result.AccessToken,
		User:    newUserResponse(result.Account),
		Credits: result.Credits,
	})
}
