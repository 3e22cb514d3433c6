package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/bankline/backend/internal/services"
)

// AuthHandler exposes card login.
type AuthHandler struct {
	auth      *services.CardAuthService
	validator *services.ValidationHelper
}

func NewAuthHandler(auth *services.CardAuthService) *AuthHandler {
	return &AuthHandler{
		auth:      auth,
		validator: services.NewValidationHelper(),
	}
}

// LoginRequest is the card authentication payload.
type LoginRequest struct {
	CardNumber string `json:"cardNumber" validate:"required"`
	PIN        string `json:"pin" validate:"required,min=3,max=12"`
}

// LoginResponse lists the accounts a card may operate, role ascending.
type LoginResponse struct {
	OK       bool                      `json:"ok"`
	Accounts []services.CardAccountRef `json:"accounts"`
}

// Login authenticates a card PIN
// @Summary Card login
// @Description Verify a card PIN; three consecutive failures lock the card
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Card credentials"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} map[string]any
// @Failure 403 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	accounts, err := h.auth.VerifyPIN(r.Context(), req.CardNumber, req.PIN)
	if err != nil {
		var mismatch *services.PINMismatchError
		switch {
		case errors.As(err, &mismatch):
			services.SendJSON(w, http.StatusUnauthorized, map[string]any{
				"ok":           false,
				"attemptsLeft": mismatch.AttemptsLeft,
			})
		case errors.Is(err, services.ErrInvalidCredentials):
			services.SendJSON(w, http.StatusUnauthorized, map[string]any{
				"ok":    false,
				"error": "Invalid credentials",
			})
		case errors.Is(err, services.ErrCardLockedAttempts):
			services.SendErrorResponse(w, "Card locked (too many attempts)", http.StatusForbidden, nil)
		case errors.Is(err, services.ErrCardLocked):
			services.SendErrorResponse(w, "Card locked", http.StatusForbidden, nil)
		case errors.Is(err, services.ErrNoLinkedAccounts):
			services.SendErrorResponse(w, "Card has no linked account", http.StatusInternalServerError, nil)
		default:
			log.Printf("[AUTH] Login failed: %v", err)
			services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		}
		return
	}

	services.SendJSON(w, http.StatusOK, LoginResponse{OK: true, Accounts: accounts})
}
