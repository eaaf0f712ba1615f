package service

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"core-banking-api/internal/model"
	"core-banking-api/internal/repository"
)

// fakeState mirrors the three tables. Values, never pointers, are stored so
// a cloned state can be discarded on rollback.
type fakeState struct {
	customers    map[uuid.UUID]model.Customer
	accounts     map[uuid.UUID]model.Account
	transactions []model.Transaction
}

func (s *fakeState) clone() *fakeState {
	c := &fakeState{
		customers:    make(map[uuid.UUID]model.Customer, len(s.customers)),
		accounts:     make(map[uuid.UUID]model.Account, len(s.accounts)),
		transactions: append([]model.Transaction(nil), s.transactions...),
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	return c
}

// fakeStore is an in-memory repository.Store. ExecTx works on a copy of the
// state and keeps it only when fn succeeds. Like a database sequence, the
// account number counter is never rolled back.
type fakeStore struct {
	*fakeQueries

	mu    sync.Mutex
	state *fakeState
	seq   atomic.Int64
	txs   int

	// updateErr fails every UpdateBalance call.
	updateErr error
	// beforeUpdate runs before the version check and may change stored rows
	// to simulate a concurrent writer.
	beforeUpdate func(state *fakeState, id uuid.UUID)
	// insertErr fails CreateTransaction once insertsBeforeErr inserts have
	// succeeded.
	insertErr        error
	insertsBeforeErr int
	inserts          int

	updates []uuid.UUID
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		state: &fakeState{
			customers: map[uuid.UUID]model.Customer{},
			accounts:  map[uuid.UUID]model.Account{},
		},
	}
	s.seq.Store(999999999)
	s.fakeQueries = &fakeQueries{store: s, state: s.state, mu: &s.mu}
	return s
}

func (s *fakeStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs++

	if err := ctx.Err(); err != nil {
		return err
	}

	staged := s.state.clone()
	if err := fn(&fakeQueries{store: s, state: staged}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	*s.state = *staged
	return nil
}

// seedCustomer and seedAccount write straight into the committed state.
func (s *fakeStore) seedCustomer(name string) model.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := model.Customer{ID: uuid.Must(uuid.NewV7()), Name: name, CreatedAt: time.Now().UTC()}
	s.state.customers[c.ID] = c
	return c
}

func (s *fakeStore) seedAccount(customerID uuid.UUID, balance string) model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := model.Account{
		ID:            uuid.Must(uuid.NewV7()),
		AccountNumber: model.FormatAccountNumber(s.seq.Add(1)),
		Balance:       mustDecimal(balance),
		CustomerID:    customerID,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	s.state.accounts[a.ID] = a
	return a
}

func (s *fakeStore) account(id uuid.UUID) model.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.accounts[id]
}

func (s *fakeStore) transactionsFor(id uuid.UUID) []model.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Transaction
	for _, t := range s.state.transactions {
		if t.AccountID == id {
			out = append(out, t)
		}
	}
	return out
}

// fakeQueries implements repository.Querier over one fakeState. mu is set
// only for calls made outside ExecTx.
type fakeQueries struct {
	store *fakeStore
	state *fakeState
	mu    *sync.Mutex
}

func (q *fakeQueries) lock() func() {
	if q.mu == nil {
		return func() {}
	}
	q.mu.Lock()
	return q.mu.Unlock
}

func (q *fakeQueries) CreateCustomer(_ context.Context, customer *model.Customer) error {
	defer q.lock()()

	if _, ok := q.state.customers[customer.ID]; ok {
		return repository.ErrDuplicateKey
	}
	customer.CreatedAt = time.Now().UTC()
	q.state.customers[customer.ID] = *customer
	return nil
}

func (q *fakeQueries) ListCustomers(_ context.Context, limit, offset int) ([]model.Customer, error) {
	defer q.lock()()

	all := make([]model.Customer, 0, len(q.state.customers))
	for _, c := range q.state.customers {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Name != all[j].Name {
			return all[i].Name < all[j].Name
		}
		return bytes.Compare(all[i].ID[:], all[j].ID[:]) < 0
	})
	return window(all, limit, offset), nil
}

func (q *fakeQueries) CountCustomers(context.Context) (int64, error) {
	defer q.lock()()
	return int64(len(q.state.customers)), nil
}

func (q *fakeQueries) NextAccountNumber(context.Context) (int64, error) {
	return q.store.seq.Add(1), nil
}

func (q *fakeQueries) CreateAccount(_ context.Context, account *model.Account) error {
	defer q.lock()()

	if _, ok := q.state.customers[account.CustomerID]; !ok {
		return repository.ErrCustomerNotFound
	}
	for _, a := range q.state.accounts {
		if a.AccountNumber == account.AccountNumber || a.ID == account.ID {
			return repository.ErrDuplicateKey
		}
	}
	now := time.Now().UTC()
	account.Version = 0
	account.CreatedAt = now
	account.UpdatedAt = now
	q.state.accounts[account.ID] = *account
	return nil
}

func (q *fakeQueries) GetAccount(_ context.Context, id uuid.UUID) (*model.Account, error) {
	defer q.lock()()

	a, ok := q.state.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return &a, nil
}

func (q *fakeQueries) GetAccountByNumber(_ context.Context, accountNumber string) (*model.Account, error) {
	defer q.lock()()

	for _, a := range q.state.accounts {
		if a.AccountNumber == accountNumber {
			return &a, nil
		}
	}
	return nil, repository.ErrAccountNotFound
}

func (q *fakeQueries) filterAccounts(customerID uuid.NullUUID) []model.Account {
	var out []model.Account
	for _, a := range q.state.accounts {
		if !customerID.Valid || a.CustomerID == customerID.UUID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountNumber < out[j].AccountNumber })
	return out
}

func (q *fakeQueries) ListAccounts(_ context.Context, customerID uuid.NullUUID, limit, offset int) ([]model.Account, error) {
	defer q.lock()()
	return window(q.filterAccounts(customerID), limit, offset), nil
}

func (q *fakeQueries) CountAccounts(_ context.Context, customerID uuid.NullUUID) (int64, error) {
	defer q.lock()()
	return int64(len(q.filterAccounts(customerID))), nil
}

func (q *fakeQueries) UpdateBalance(_ context.Context, account *model.Account) error {
	defer q.lock()()

	if q.store.updateErr != nil {
		return q.store.updateErr
	}
	if q.store.beforeUpdate != nil {
		q.store.beforeUpdate(q.state, account.ID)
	}

	stored, ok := q.state.accounts[account.ID]
	if !ok || stored.Version != account.Version {
		return repository.ErrConcurrentUpdate
	}
	if account.Balance.IsNegative() {
		return errors.New(`new row for relation "accounts" violates check constraint "accounts_balance_check"`)
	}

	stored.Balance = account.Balance
	stored.Version++
	stored.UpdatedAt = time.Now().UTC()
	q.state.accounts[account.ID] = stored

	account.Version = stored.Version
	account.UpdatedAt = stored.UpdatedAt
	q.store.updates = append(q.store.updates, account.ID)
	return nil
}

func (q *fakeQueries) CreateTransaction(_ context.Context, transaction *model.Transaction) error {
	defer q.lock()()

	if q.store.insertErr != nil && q.store.inserts >= q.store.insertsBeforeErr {
		return q.store.insertErr
	}
	if _, ok := q.state.accounts[transaction.AccountID]; !ok {
		return repository.ErrMissingReference
	}
	q.store.inserts++
	q.state.transactions = append(q.state.transactions, *transaction)
	return nil
}

func (q *fakeQueries) ListTransactions(_ context.Context, accountID uuid.UUID, limit, offset int) ([]model.Transaction, error) {
	defer q.lock()()

	var out []model.Transaction
	for _, t := range q.state.transactions {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DateUTC.Equal(out[j].DateUTC) {
			return out[i].DateUTC.Before(out[j].DateUTC)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return window(out, limit, offset), nil
}

func (q *fakeQueries) CountTransactions(_ context.Context, accountID uuid.UUID) (int64, error) {
	defer q.lock()()

	var n int64
	for _, t := range q.state.transactions {
		if t.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// recordingPublisher keeps published event types in order.
type recordingPublisher struct {
	mu    sync.Mutex
	types []string
	data  []any
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.err != nil {
		return p.err
	}
	p.types = append(p.types, eventType)
	p.data = append(p.data, data)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.types...)
}
