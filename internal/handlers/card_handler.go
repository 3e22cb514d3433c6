package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/bankline/backend/internal/models"
	"github.com/bankline/backend/internal/services"
)

// CardHandler is the administrative CRUD surface for cards and
// card-account links.
type CardHandler struct {
	cards     *services.CardService
	validator *services.ValidationHelper
}

func NewCardHandler(cards *services.CardService) *CardHandler {
	return &CardHandler{
		cards:     cards,
		validator: services.NewValidationHelper(),
	}
}

// CreateCardRequest issues a new card. The PIN is write-only.
type CreateCardRequest struct {
	CustomerID int64  `json:"customer_id" validate:"required,gt=0"`
	PIN        string `json:"pin" validate:"required,min=3,max=12"`
	Status     string `json:"status" validate:"omitempty,oneof=active locked"`
}

// UpdateCardRequest sets the administrative status and optionally re-PINs.
type UpdateCardRequest struct {
	Status string  `json:"status" validate:"required,oneof=active locked"`
	PIN    *string `json:"pin" validate:"omitempty,min=3,max=12"`
}

// LinkRequest ties a card to an account.
type LinkRequest struct {
	CardID    int64  `json:"card_id" validate:"required,gt=0"`
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
	Role      string `json:"role" validate:"required,oneof=debit credit"`
}

// CreateCard issues a card
// @Summary Create card
// @Tags cards
// @Accept json
// @Produce json
// @Param request body CreateCardRequest true "Card data"
// @Success 201 {object} models.Card
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /cards [post]
func (h *CardHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req CreateCardRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	if req.Status == "" {
		req.Status = models.CardStatusActive
	}

	card, err := h.cards.CreateCard(r.Context(), req.CustomerID, req.PIN, req.Status)
	if err != nil {
		log.Printf("[CARDS] Create failed: %v", err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusCreated, card)
}

// GetCard reads one card, without its PIN hash
// @Summary Get card
// @Tags cards
// @Produce json
// @Param id path int true "Card ID"
// @Success 200 {object} models.Card
// @Failure 404 {object} services.ErrorResponse
// @Router /cards/{id} [get]
func (h *CardHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid id", http.StatusBadRequest, nil)
		return
	}

	card, err := h.cards.GetCard(r.Context(), cardID)
	if err != nil {
		if errors.Is(err, services.ErrCardNotFound) {
			services.SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[CARDS] Read failed for %d: %v", cardID, err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, card)
}

// UpdateCard updates status and optionally the PIN
// @Summary Update card
// @Description Administrative status change; setting a card active clears its failure counter
// @Tags cards
// @Accept json
// @Produce json
// @Param id path int true "Card ID"
// @Param request body UpdateCardRequest true "Card update"
// @Success 200 {object} map[string]any
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /cards/{id} [put]
func (h *CardHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid id", http.StatusBadRequest, nil)
		return
	}

	var req UpdateCardRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.cards.UpdateCard(r.Context(), cardID, req.Status, req.PIN); err != nil {
		if errors.Is(err, services.ErrCardNotFound) {
			services.SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[CARDS] Update failed for %d: %v", cardID, err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{"id": cardID, "status": req.Status})
}

// DeleteCard removes a card
// @Summary Delete card
// @Tags cards
// @Param id path int true "Card ID"
// @Success 204 "deleted"
// @Failure 404 {object} services.ErrorResponse
// @Router /cards/{id} [delete]
func (h *CardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID, err := pathID(r, "id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid id", http.StatusBadRequest, nil)
		return
	}

	if err := h.cards.DeleteCard(r.Context(), cardID); err != nil {
		if errors.Is(err, services.ErrCardNotFound) {
			services.SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[CARDS] Delete failed for %d: %v", cardID, err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreateLink links a card to an account
// @Summary Link card and account
// @Tags cards
// @Accept json
// @Produce json
// @Param request body LinkRequest true "Link data"
// @Success 201 {object} LinkRequest
// @Failure 400 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /card-accounts [post]
func (h *CardHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.cards.CreateLink(r.Context(), req.CardID, req.AccountID, req.Role); err != nil {
		if errors.Is(err, services.ErrDuplicateLink) {
			services.SendErrorResponse(w, "Card already linked to this account", http.StatusConflict, nil)
			return
		}
		log.Printf("[CARDS] Link failed: %v", err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusCreated, req)
}

// ListLinks lists all card-account links
// @Summary List links
// @Tags cards
// @Produce json
// @Success 200 {array} models.CardAccountLink
// @Router /card-accounts [get]
func (h *CardHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	links, err := h.cards.ListLinks(r.Context())
	if err != nil {
		log.Printf("[CARDS] Link listing failed: %v", err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}
	services.SendJSON(w, http.StatusOK, links)
}

// DeleteLink removes a card-account link
// @Summary Unlink card and account
// @Tags cards
// @Param cardId query int true "Card ID"
// @Param accountId query int true "Account ID"
// @Success 204 "deleted"
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /card-accounts [delete]
func (h *CardHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	cardID, err1 := strconv.ParseInt(r.URL.Query().Get("cardId"), 10, 64)
	accountID, err2 := strconv.ParseInt(r.URL.Query().Get("accountId"), 10, 64)
	if err1 != nil || cardID <= 0 || err2 != nil || accountID <= 0 {
		services.SendErrorResponse(w, "Invalid cardId or accountId", http.StatusBadRequest, nil)
		return
	}

	if err := h.cards.DeleteLink(r.Context(), cardID, accountID); err != nil {
		if errors.Is(err, services.ErrLinkNotFound) {
			services.SendErrorResponse(w, "Not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[CARDS] Unlink failed: %v", err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
