package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"core-banking-api/internal/events"
	"core-banking-api/internal/model"
	"core-banking-api/internal/repository"
)

// DirectoryService creates and lists customers and their accounts.
type DirectoryService struct {
	store     repository.Store
	publisher events.Publisher
	logger    *zap.Logger
	newID     func() (uuid.UUID, error)
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(store repository.Store, publisher events.Publisher, logger *zap.Logger) *DirectoryService {
	return &DirectoryService{
		store:     store,
		publisher: publisher,
		logger:    logger.Named("directory"),
		newID:     uuid.NewV7,
	}
}

// CreateCustomer stores a new customer. A missing id is generated and a
// missing address is stored as an empty string.
func (s *DirectoryService) CreateCustomer(ctx context.Context, req *model.CreateCustomerRequest) (*model.Customer, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("customer rejected", zap.Error(err))
		return nil, fromValidation(err)
	}

	id := uuid.Nil
	if req.ID != nil {
		id = *req.ID
	}
	if id == uuid.Nil {
		var err error
		if id, err = s.newID(); err != nil {
			return nil, classify("generate customer id", err)
		}
	}

	address := ""
	if req.Address != nil {
		address = *req.Address
	}

	customer := &model.Customer{
		ID:      id,
		Name:    req.Name,
		Address: address,
	}

	if err := s.store.CreateCustomer(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			s.logger.Warn("customer already exists", zap.Stringer("customer_id", id))
			return nil, newConflictError("customer already exists", err)
		}
		s.logger.Error("failed to create customer", zap.Error(err))
		return nil, classify("create customer", err)
	}

	s.logger.Info("customer created", zap.Stringer("customer_id", customer.ID))
	publish(ctx, s.publisher, s.logger, events.CustomerCreated, customer)

	return customer, nil
}

// ListCustomers returns one page of customers ordered by name.
func (s *DirectoryService) ListCustomers(ctx context.Context, page model.PageRequest) (model.Page[model.Customer], error) {
	if err := page.Validate(); err != nil {
		return model.Page[model.Customer]{}, fromValidation(err)
	}

	var (
		customers []model.Customer
		count     int64
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		if customers, err = q.ListCustomers(ctx, page.PageSize, page.Offset()); err != nil {
			return err
		}
		count, err = q.CountCustomers(ctx)
		return err
	})
	if err != nil {
		s.logger.Error("failed to list customers", zap.Error(err))
		return model.Page[model.Customer]{}, classify("list customers", err)
	}

	return model.NewPage(page, count, customers), nil
}

// CreateAccount opens an account for an existing customer. The balance always
// starts at zero and the account number is drawn from a database sequence.
func (s *DirectoryService) CreateAccount(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("account rejected", zap.Error(err))
		return nil, fromValidation(err)
	}

	id, err := s.newID()
	if err != nil {
		return nil, classify("generate account id", err)
	}

	account := &model.Account{
		ID:         id,
		Balance:    decimal.Zero,
		CustomerID: req.CustomerID,
	}

	err = s.store.ExecTx(ctx, func(q repository.Querier) error {
		n, err := q.NextAccountNumber(ctx)
		if err != nil {
			return err
		}
		account.AccountNumber = model.FormatAccountNumber(n)
		return q.CreateAccount(ctx, account)
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCustomerNotFound):
			s.logger.Warn("account rejected: unknown customer", zap.Stringer("customer_id", req.CustomerID))
		case errors.Is(err, repository.ErrDuplicateKey):
			s.logger.Error("account number collision", zap.String("account_number", account.AccountNumber))
			return nil, newConflictError("account number already in use, retry the request", err)
		default:
			s.logger.Error("failed to create account", zap.Error(err))
		}
		return nil, classify("create account", err)
	}

	s.logger.Info("account created",
		zap.Stringer("account_id", account.ID),
		zap.String("account_number", account.AccountNumber),
		zap.Stringer("customer_id", account.CustomerID),
	)
	publish(ctx, s.publisher, s.logger, events.AccountCreated, account)

	return account, nil
}

// ListAccounts returns one page of accounts ordered by account number,
// optionally restricted to one customer.
func (s *DirectoryService) ListAccounts(ctx context.Context, page model.PageRequest, customerID uuid.NullUUID) (model.Page[model.Account], error) {
	if err := page.Validate(); err != nil {
		return model.Page[model.Account]{}, fromValidation(err)
	}

	var (
		accounts []model.Account
		count    int64
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		if accounts, err = q.ListAccounts(ctx, customerID, page.PageSize, page.Offset()); err != nil {
			return err
		}
		count, err = q.CountAccounts(ctx, customerID)
		return err
	})
	if err != nil {
		s.logger.Error("failed to list accounts", zap.Error(err))
		return model.Page[model.Account]{}, classify("list accounts", err)
	}

	return model.NewPage(page, count, accounts), nil
}

// GetAccount retrieves an account by ID
func (s *DirectoryService) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	if id == uuid.Nil {
		return nil, newValidationError("id", "account id cannot be empty")
	}

	account, err := s.store.GetAccount(ctx, id)
	if err != nil {
		return nil, classify("get account", err)
	}

	return account, nil
}
