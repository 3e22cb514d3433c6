package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bankline/backend/internal/atm"
	"github.com/bankline/backend/internal/services"
)

// AccountHandler exposes the withdrawal, balance and history operations
// plus the administrative account CRUD.
type AccountHandler struct {
	ledger    *services.LedgerService
	history   *services.HistoryService
	accounts  *services.AccountService
	validator *services.ValidationHelper
}

func NewAccountHandler(ledger *services.LedgerService, history *services.HistoryService, accounts *services.AccountService) *AccountHandler {
	return &AccountHandler{
		ledger:    ledger,
		history:   history,
		accounts:  accounts,
		validator: services.NewValidationHelper(),
	}
}

// WithdrawRequest is the cash withdrawal payload.
type WithdrawRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// WithdrawResponse mirrors the wire contract for a successful withdrawal.
type WithdrawResponse struct {
	OK        bool      `json:"ok"`
	AccountID int64     `json:"accountId"`
	Withdrawn int64     `json:"withdrawn"`
	Balance   int64     `json:"balance"`
	Bills     atm.Bills `json:"bills"`
}

// Withdraw dispenses cash from an account
// @Summary Withdraw cash
// @Description Debit an account and compute the 50/20 bill breakdown
// @Tags accounts
// @Accept json
// @Produce json
// @Param id path int true "Account ID"
// @Param request body WithdrawRequest true "Withdrawal amount"
// @Success 200 {object} WithdrawResponse
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /accounts/{id}/withdraw [post]
func (h *AccountHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	var req WithdrawRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Invalid amount", http.StatusBadRequest, err)
		return
	}

	result, err := h.ledger.Withdraw(r.Context(), accountID, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, atm.ErrNotDispensable):
			services.SendErrorResponse(w, "Invalid amount (allowed bills: 20 and 50)", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrInsufficientFunds):
			services.SendErrorResponse(w, "Insufficient funds", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrCreditLimitExceeded):
			services.SendErrorResponse(w, "Credit limit exceeded", http.StatusBadRequest, nil)
		case errors.Is(err, services.ErrAccountNotFound):
			services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
		case errors.Is(err, services.ErrInvalidAccountType):
			services.SendErrorResponse(w, "Invalid account type", http.StatusInternalServerError, nil)
		default:
			log.Printf("[LEDGER] Withdrawal failed for account %d: %v", accountID, err)
			services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		}
		return
	}

	services.SendJSON(w, http.StatusOK, WithdrawResponse{
		OK:        true,
		AccountID: result.AccountID,
		Withdrawn: result.Withdrawn,
		Balance:   result.Balance,
		Bills:     result.Bills,
	})
}

// Balance returns an account snapshot
// @Summary Get account balance
// @Description Read the current balance, type and credit limit of an account
// @Tags accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} services.BalanceResult
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /accounts/{id}/balance [get]
func (h *AccountHandler) Balance(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	result, err := h.ledger.GetBalance(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[LEDGER] Balance read failed for account %d: %v", accountID, err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, result)
}

// Transactions pages through account history
// @Summary List account transactions
// @Description Keyset-paged transaction history, newest first
// @Tags accounts
// @Produce json
// @Param id path int true "Account ID"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param before query string false "Cursor: fetch older rows"
// @Param after query string false "Cursor: fetch newer rows"
// @Success 200 {object} services.TransactionPage
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /accounts/{id}/transactions [get]
func (h *AccountHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil {
			limit = l
		}
	}

	var before, after *services.Cursor
	if token := r.URL.Query().Get("before"); token != "" {
		c, err := services.ParseCursor(token)
		if err != nil {
			services.SendErrorResponse(w, "Invalid before cursor", http.StatusBadRequest, nil)
			return
		}
		before = &c
	}
	if token := r.URL.Query().Get("after"); token != "" {
		c, err := services.ParseCursor(token)
		if err != nil {
			services.SendErrorResponse(w, "Invalid after cursor", http.StatusBadRequest, nil)
			return
		}
		after = &c
	}

	page, err := h.history.ListTransactions(r.Context(), accountID, limit, before, after)
	if err != nil {
		if errors.Is(err, services.ErrConflictingCursors) {
			services.SendErrorResponse(w, "Use only one: before or after", http.StatusBadRequest, nil)
			return
		}
		log.Printf("[HISTORY] Listing failed for account %d: %v", accountID, err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, page)
}

// CreateAccountRequest is the administrative account creation payload.
type CreateAccountRequest struct {
	AccountType string `json:"account_type" validate:"required,oneof=debit credit"`
	Balance     int64  `json:"balance"`
	CreditLimit int64  `json:"credit_limit" validate:"gte=0"`
}

// CreateAccount opens an account
// @Summary Create account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Account data"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 500 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := services.DecodeJSONBody(w, r, &req); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), req.AccountType, req.Balance, req.CreditLimit)
	if err != nil {
		if errors.Is(err, services.ErrInvalidAccountData) {
			services.SendErrorResponse(w, "Invalid account data", http.StatusBadRequest, nil)
			return
		}
		log.Printf("[ACCOUNT] Create failed: %v", err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusCreated, account)
}

// GetAccount reads one account
// @Summary Get account
// @Tags accounts
// @Produce json
// @Param id path int true "Account ID"
// @Success 200 {object} models.Account
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [get]
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[ACCOUNT] Read failed for %d: %v", accountID, err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, account)
}

// DeleteAccount removes an account
// @Summary Delete account
// @Tags accounts
// @Param id path int true "Account ID"
// @Success 204 "deleted"
// @Failure 404 {object} services.ErrorResponse
// @Router /accounts/{id} [delete]
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := pathID(r, "id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid account id", http.StatusBadRequest, nil)
		return
	}

	if err := h.accounts.DeleteAccount(r.Context(), accountID); err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			services.SendErrorResponse(w, "Account not found", http.StatusNotFound, nil)
			return
		}
		log.Printf("[ACCOUNT] Delete failed for %d: %v", accountID, err)
		services.SendErrorResponse(w, "Database error", http.StatusInternalServerError, nil)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// pathID parses a positive integer chi URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
