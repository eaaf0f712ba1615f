package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"core-banking-api/internal/model"
	"core-banking-api/internal/observability"
	"core-banking-api/internal/service"
)

// LedgerService moves money between accounts.
type LedgerService interface {
	Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*model.Account, error)
	Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*model.Account, error)
	Transfer(ctx context.Context, sourceAccountID uuid.UUID, destinationAccountNumber string, amount decimal.Decimal) (*model.Account, error)
	ListTransactions(ctx context.Context, accountID uuid.UUID, page model.PageRequest) (model.Page[model.Transaction], error)
}

// LedgerHandler handles deposit, withdraw and transfer requests
type LedgerHandler struct {
	ledger  LedgerService
	metrics *observability.Metrics
}

// NewLedgerHandler creates a new ledger handler. metrics may be nil.
func NewLedgerHandler(ledger LedgerService, metrics *observability.Metrics) *LedgerHandler {
	return &LedgerHandler{
		ledger:  ledger,
		metrics: metrics,
	}
}

// Deposit handles PUT /accounts/{id}/deposit
func (h *LedgerHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "deposit", h.ledger.Deposit)
}

// Withdraw handles PUT /accounts/{id}/withdraw
func (h *LedgerHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "withdraw", h.ledger.Withdraw)
}

func (h *LedgerHandler) move(
	w http.ResponseWriter,
	r *http.Request,
	operation string,
	fn func(context.Context, uuid.UUID, decimal.Decimal) (*model.Account, error),
) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req model.AmountRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account, err := fn(r.Context(), id, req.Amount)
	h.observe(operation, err)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// Transfer handles PUT /accounts/{id}/transfer
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	var req model.TransferRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account, err := h.ledger.Transfer(r.Context(), id, req.DestinationAccountNumber, req.Amount)
	h.observe("transfer", err)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}

// ListTransactions handles GET /accounts/{id}/transactions
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	id, ok := accountIDParam(w, r)
	if !ok {
		return
	}

	page, err := parsePageRequest(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	transactions, err := h.ledger.ListTransactions(r.Context(), id, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, transactions)
}

func (h *LedgerHandler) observe(operation string, err error) {
	outcome := observability.OutcomeSuccess

	var serviceErr *service.ServiceError
	switch {
	case err == nil:
	case errors.As(err, &serviceErr) && serviceErr.Code == model.ErrCodeConflict:
		outcome = observability.OutcomeConflict
	case errors.As(err, &serviceErr):
		outcome = observability.OutcomeRejected
	default:
		outcome = observability.OutcomeError
	}

	h.metrics.LedgerOperation(operation, outcome)
}
