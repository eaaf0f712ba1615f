package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"core-banking-api/internal/model"
)

// AccountService is the part of the directory the account routes use.
type AccountService interface {
	CreateAccount(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error)
	ListAccounts(ctx context.Context, page model.PageRequest, customerID uuid.NullUUID) (model.Page[model.Account], error)
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
}

// AccountHandler handles account-related HTTP requests
type AccountHandler struct {
	accounts AccountService
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

// CreateAccount handles POST /accounts
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req model.CreateAccountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account, err := h.accounts.CreateAccount(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// ListAccounts handles GET /accounts, optionally filtered by ?customerId=
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageRequest(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	var customerID uuid.NullUUID
	if v := r.URL.Query().Get("customerId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "Invalid customer ID format", model.ErrCodeInvalidInput)
			return
		}
		customerID = uuid.NullUUID{UUID: id, Valid: true}
	}

	accounts, err := h.accounts.ListAccounts(r.Context(), page, customerID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accounts)
}

// GetAccount handles GET /accounts/{id}
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.GetAccount(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}
