package handler

import (
	"context"
	"net/http"

	"core-banking-api/internal/model"
)

// CustomerService is the part of the directory the customer routes use.
type CustomerService interface {
	CreateCustomer(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error)
	ListCustomers(ctx context.Context, page model.PageRequest) (model.Page[model.Customer], error)
}

// CustomerHandler handles customer-related HTTP requests
type CustomerHandler struct {
	customers CustomerService
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(customers CustomerService) *CustomerHandler {
	return &CustomerHandler{customers: customers}
}

// CreateCustomer handles POST /customers
func (h *CustomerHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req model.CreateCustomerRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	customer, err := h.customers.CreateCustomer(r.Context(), &req)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

// ListCustomers handles GET /customers
func (h *CustomerHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	page, err := parsePageRequest(r)
	if err != nil {
		writeValidationError(w, err)
		return
	}

	customers, err := h.customers.ListCustomers(r.Context(), page)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, customers)
}
