package service

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"core-banking-api/internal/events"
	"core-banking-api/internal/model"
	"core-banking-api/internal/repository"
)

// LedgerService moves money in and out of accounts. Every balance change is
// written together with its transaction record in one database transaction.
type LedgerService struct {
	store     repository.Store
	publisher events.Publisher
	logger    *zap.Logger
	now       func() time.Time
	newID     func() (uuid.UUID, error)
}

// NewLedgerService creates a new ledger service
func NewLedgerService(store repository.Store, publisher events.Publisher, logger *zap.Logger) *LedgerService {
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger.Named("ledger"),
		now:       time.Now,
		newID:     uuid.NewV7,
	}
}

// Deposit credits amount to the account.
func (s *LedgerService) Deposit(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*model.Account, error) {
	if err := validateMovement(accountID, amount); err != nil {
		s.rejected("deposit", accountID, amount, err)
		return nil, err
	}

	var (
		account *model.Account
		entry   *model.Transaction
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		if account, err = q.GetAccount(ctx, accountID); err != nil {
			return err
		}

		account.Balance = account.Balance.Add(amount)
		if err := q.UpdateBalance(ctx, account); err != nil {
			return err
		}

		entry, err = s.record(ctx, q, account.ID, amount, model.TransactionTypeDeposit, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, s.failed("deposit", accountID, amount, err)
	}

	s.logger.Info("deposit completed",
		zap.Stringer("account_id", account.ID),
		zap.Stringer("amount", amount),
		zap.Stringer("balance", account.Balance),
	)
	publish(ctx, s.publisher, s.logger, events.AccountDeposited, balanceChanged(account, entry))

	return account, nil
}

// Withdraw debits amount from the account. The new balance is computed first
// and the withdrawal fails if it would be negative.
func (s *LedgerService) Withdraw(ctx context.Context, accountID uuid.UUID, amount decimal.Decimal) (*model.Account, error) {
	if err := validateMovement(accountID, amount); err != nil {
		s.rejected("withdraw", accountID, amount, err)
		return nil, err
	}

	var (
		account *model.Account
		entry   *model.Transaction
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		if account, err = q.GetAccount(ctx, accountID); err != nil {
			return err
		}

		balance := account.Balance.Sub(amount)
		if balance.IsNegative() {
			return newInsufficientFundsError()
		}

		account.Balance = balance
		if err := q.UpdateBalance(ctx, account); err != nil {
			return err
		}

		entry, err = s.record(ctx, q, account.ID, amount, model.TransactionTypeWithdraw, s.now().UTC())
		return err
	})
	if err != nil {
		return nil, s.failed("withdraw", accountID, amount, err)
	}

	s.logger.Info("withdrawal completed",
		zap.Stringer("account_id", account.ID),
		zap.Stringer("amount", amount),
		zap.Stringer("balance", account.Balance),
	)
	publish(ctx, s.publisher, s.logger, events.AccountWithdrawn, balanceChanged(account, entry))

	return account, nil
}

// Transfer moves amount from the source account to the account with the
// given number and returns the updated source account. Funds are checked
// before either balance changes. Both legs share one timestamp.
func (s *LedgerService) Transfer(ctx context.Context, sourceAccountID uuid.UUID, destinationAccountNumber string, amount decimal.Decimal) (*model.Account, error) {
	if err := validateTransfer(sourceAccountID, destinationAccountNumber, amount); err != nil {
		s.rejected("transfer", sourceAccountID, amount, err)
		return nil, err
	}

	var (
		source, destination *model.Account
		withdraw, deposit   *model.Transaction
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		var err error
		source, err = q.GetAccount(ctx, sourceAccountID)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return newNotFoundError("source account not found", err)
		}
		if err != nil {
			return err
		}

		if source.Balance.LessThan(amount) {
			return newInsufficientFundsError()
		}

		destination, err = q.GetAccountByNumber(ctx, destinationAccountNumber)
		if errors.Is(err, repository.ErrAccountNotFound) {
			return newNotFoundError("destination account not found", err)
		}
		if err != nil {
			return err
		}

		if destination.ID == source.ID {
			return newValidationError("destinationAccountNumber", "cannot transfer to the source account")
		}

		source.Balance = source.Balance.Sub(amount)
		destination.Balance = destination.Balance.Add(amount)

		// Lock rows in id order so opposite transfers cannot deadlock.
		for _, account := range lockOrder(source, destination) {
			if err := q.UpdateBalance(ctx, account); err != nil {
				return err
			}
		}

		at := s.now().UTC()
		if withdraw, err = s.record(ctx, q, source.ID, amount, model.TransactionTypeWithdraw, at); err != nil {
			return err
		}
		deposit, err = s.record(ctx, q, destination.ID, amount, model.TransactionTypeDeposit, at)
		return err
	})
	if err != nil {
		return nil, s.failed("transfer", sourceAccountID, amount, err)
	}

	s.logger.Info("transfer completed",
		zap.Stringer("source_account_id", source.ID),
		zap.Stringer("destination_account_id", destination.ID),
		zap.Stringer("amount", amount),
	)
	publish(ctx, s.publisher, s.logger, events.AccountTransferred, events.Transferred{
		SourceAccountID:          source.ID,
		SourceAccountNumber:      source.AccountNumber,
		DestinationAccountID:     destination.ID,
		DestinationAccountNumber: destination.AccountNumber,
		WithdrawTransactionID:    withdraw.ID,
		DepositTransactionID:     deposit.ID,
		Amount:                   amount,
		DateUTC:                  withdraw.DateUTC,
	})

	return source, nil
}

// ListTransactions returns one page of an account's history, oldest first.
func (s *LedgerService) ListTransactions(ctx context.Context, accountID uuid.UUID, page model.PageRequest) (model.Page[model.Transaction], error) {
	if accountID == uuid.Nil {
		return model.Page[model.Transaction]{}, newValidationError("id", "account id cannot be empty")
	}
	if err := page.Validate(); err != nil {
		return model.Page[model.Transaction]{}, fromValidation(err)
	}

	var (
		transactions []model.Transaction
		count        int64
	)
	err := s.store.ExecTx(ctx, func(q repository.Querier) error {
		if _, err := q.GetAccount(ctx, accountID); err != nil {
			return err
		}

		var err error
		if transactions, err = q.ListTransactions(ctx, accountID, page.PageSize, page.Offset()); err != nil {
			return err
		}
		count, err = q.CountTransactions(ctx, accountID)
		return err
	})
	if err != nil {
		return model.Page[model.Transaction]{}, classify("list transactions", err)
	}

	return model.NewPage(page, count, transactions), nil
}

func (s *LedgerService) record(ctx context.Context, q repository.Querier, accountID uuid.UUID, amount decimal.Decimal, kind model.TransactionType, at time.Time) (*model.Transaction, error) {
	id, err := s.newID()
	if err != nil {
		return nil, err
	}

	entry := &model.Transaction{
		ID:        id,
		Amount:    amount,
		DateUTC:   at,
		Type:      kind,
		AccountID: accountID,
	}
	if err := q.CreateTransaction(ctx, entry); err != nil {
		return nil, err
	}

	return entry, nil
}

func (s *LedgerService) rejected(op string, accountID uuid.UUID, amount decimal.Decimal, err error) {
	s.logger.Warn(op+" rejected",
		zap.Stringer("account_id", accountID),
		zap.Stringer("amount", amount),
		zap.Error(err),
	)
}

// failed logs and classifies an error returned from a ledger transaction.
func (s *LedgerService) failed(op string, accountID uuid.UUID, amount decimal.Decimal, err error) error {
	err = classify(op, err)

	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		s.logger.Error(op+" failed",
			zap.Stringer("account_id", accountID),
			zap.Stringer("amount", amount),
			zap.Error(err),
		)
		return err
	}

	s.logger.Warn(op+" rejected",
		zap.Stringer("account_id", accountID),
		zap.Stringer("amount", amount),
		zap.String("code", serviceErr.Code),
		zap.String("reason", serviceErr.Message),
	)
	return err
}

func validateMovement(accountID uuid.UUID, amount decimal.Decimal) error {
	if accountID == uuid.Nil {
		return newValidationError("id", "account id cannot be empty")
	}
	return fromValidation(model.ValidateAmount(amount))
}

func validateTransfer(sourceAccountID uuid.UUID, destinationAccountNumber string, amount decimal.Decimal) error {
	if sourceAccountID == uuid.Nil {
		return newValidationError("id", "source account id cannot be empty")
	}
	req := model.TransferRequest{
		DestinationAccountNumber: destinationAccountNumber,
		Amount:                   amount,
	}
	return fromValidation(req.Validate())
}

func lockOrder(a, b *model.Account) []*model.Account {
	if bytes.Compare(a.ID[:], b.ID[:]) <= 0 {
		return []*model.Account{a, b}
	}
	return []*model.Account{b, a}
}

func balanceChanged(account *model.Account, entry *model.Transaction) events.BalanceChanged {
	return events.BalanceChanged{
		AccountID:     account.ID,
		AccountNumber: account.AccountNumber,
		TransactionID: entry.ID,
		Amount:        entry.Amount,
		Balance:       account.Balance,
		DateUTC:       entry.DateUTC,
	}
}
