// Package memory is an in-process implementation of repository.Store. It
// enforces the same uniqueness and balance constraints as the Postgres schema
// and gives WithinTx the same all-or-nothing semantics by running each unit of
// work against a private copy of the state that replaces the live state only
// on success. Transactions are serialized behind one mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/repository"
)

type state struct {
	nextID        int64
	accounts      map[int64]models.Account
	cards         []models.Card
	transactions  []models.Transaction
	notifications []models.Notification
	beneficiaries []models.Beneficiary
	audit         []models.AuditLog
}

func newState() *state {
	return &state{accounts: map[int64]models.Account{}}
}

func (s *state) clone() *state {
	c := &state{
		nextID:        s.nextID,
		accounts:      make(map[int64]models.Account, len(s.accounts)),
		cards:         append([]models.Card(nil), s.cards...),
		transactions:  append([]models.Transaction(nil), s.transactions...),
		notifications: append([]models.Notification(nil), s.notifications...),
		beneficiaries: append([]models.Beneficiary(nil), s.beneficiaries...),
		audit:         append([]models.AuditLog(nil), s.audit...),
	}
	for id, a := range s.accounts {
		c.accounts[id] = a
	}
	return c
}

func (s *state) id() int64 {
	s.nextID++
	return s.nextID
}

type Store struct {
	mu    sync.Mutex
	live  *state
	clock atomic.Pointer[func() time.Time]
	view
}

var _ repository.Store = (*Store)(nil)

func NewStore() *Store {
	s := &Store{live: newState()}
	s.SetClock(func() time.Time { return time.Now().UTC() })
	s.view = view{store: s}
	return s
}

// SetClock overrides the timestamp source. It is safe to call while other
// operations are in flight.
func (s *Store) SetClock(clock func() time.Time) {
	s.clock.Store(&clock)
}

func (s *Store) WithinTx(ctx context.Context, fn func(q repository.Queries) error) error {
	if err := ctx.Err(); err != nil {
		return errors.NewTransactionError("begin", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.live.clone()
	if err := fn(view{store: s, tx: work}); err != nil {
		return err
	}
	s.live = work
	return nil
}

// view implements repository.Queries. Outside a transaction (tx == nil) each
// call locks the store and works on the live state; inside one it works on
// the transaction's copy, already under the lock.
type view struct {
	store *Store
	tx    *state
}

func (v view) do(fn func(st *state) error) error {
	if v.tx != nil {
		return fn(v.tx)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return fn(v.store.live)
}

func (v view) now() time.Time { return (*v.store.clock.Load())() }

func (v view) Accounts() repository.AccountRepository           { return accounts{v} }
func (v view) Cards() repository.CardRepository                 { return cards{v} }
func (v view) Transactions() repository.TransactionRepository   { return transactions{v} }
func (v view) Notifications() repository.NotificationRepository { return notifications{v} }
func (v view) Beneficiaries() repository.BeneficiaryRepository  { return beneficiaries{v} }
func (v view) Audit() repository.AuditRepository                { return audit{v} }

type accounts struct{ view }

func (r accounts) Create(_ context.Context, account *models.Account) error {
	return r.do(func(st *state) error {
		for _, a := range st.accounts {
			if a.UserID == account.UserID {
				return errors.ErrAccountAlreadyExists
			}
			if a.AccountNumber == account.AccountNumber {
				return errors.ErrAccountNumberTaken
			}
		}
		now := r.now()
		account.ID = st.id()
		account.CreatedAt = now
		account.UpdatedAt = now
		st.accounts[account.ID] = *account
		return nil
	})
}

func (r accounts) find(match func(models.Account) bool) (*models.Account, error) {
	var found *models.Account
	err := r.do(func(st *state) error {
		for _, a := range st.accounts {
			if match(a) {
				a := a
				found = &a
				return nil
			}
		}
		return errors.ErrAccountNotFound
	})
	return found, err
}

func (r accounts) GetByUserID(_ context.Context, userID int64) (*models.Account, error) {
	return r.find(func(a models.Account) bool { return a.UserID == userID })
}

func (r accounts) GetByNumber(_ context.Context, accountNumber string) (*models.Account, error) {
	return r.find(func(a models.Account) bool { return a.AccountNumber == accountNumber })
}

func (r accounts) NumberExists(ctx context.Context, accountNumber string) (bool, error) {
	_, err := r.GetByNumber(ctx, accountNumber)
	if errors.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// LockForUpdate only checks existence; the store mutex already serializes
// every transaction.
func (r accounts) LockForUpdate(_ context.Context, ids ...int64) error {
	return r.do(func(st *state) error {
		for _, id := range ids {
			if _, ok := st.accounts[id]; !ok {
				return errors.ErrAccountNotFound
			}
		}
		return nil
	})
}

func (r accounts) Debit(_ context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.do(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return errors.ErrAccountNotFound
		}
		if a.Balance.LessThan(amount) {
			return errors.ErrInsufficientFunds
		}
		a.Balance = a.Balance.Sub(amount)
		a.UpdatedAt = r.now()
		st.accounts[id] = a
		balance = a.Balance
		return nil
	})
	return balance, err
}

func (r accounts) Credit(_ context.Context, id int64, amount decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.do(func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return errors.ErrAccountNotFound
		}
		a.Balance = a.Balance.Add(amount)
		a.UpdatedAt = r.now()
		st.accounts[id] = a
		balance = a.Balance
		return nil
	})
	return balance, err
}

type cards struct{ view }

func (r cards) Create(_ context.Context, card *models.Card) error {
	return r.do(func(st *state) error {
		for _, c := range st.cards {
			if c.CardNumber == card.CardNumber {
				return errors.ErrCardNumberTaken
			}
		}
		card.ID = st.id()
		card.CreatedAt = r.now()
		st.cards = append(st.cards, *card)
		return nil
	})
}

func (r cards) ListByUserID(_ context.Context, userID int64) ([]*models.Card, error) {
	out := []*models.Card{}
	err := r.do(func(st *state) error {
		for _, c := range st.cards {
			if c.UserID == userID {
				c := c
				out = append(out, &c)
			}
		}
		return nil
	})
	return out, err
}

func (r cards) NumberExists(_ context.Context, cardNumber string) (bool, error) {
	var exists bool
	err := r.do(func(st *state) error {
		for _, c := range st.cards {
			if c.CardNumber == cardNumber {
				exists = true
				break
			}
		}
		return nil
	})
	return exists, err
}

type transactions struct{ view }

func (r transactions) Create(_ context.Context, t *models.Transaction) error {
	return r.do(func(st *state) error {
		if t.Reference == uuid.Nil {
			t.Reference = uuid.New()
		}
		t.ID = st.id()
		t.Timestamp = r.now()
		st.transactions = append(st.transactions, *t)
		return nil
	})
}

func (r transactions) ListByUserID(_ context.Context, userID int64) ([]*models.Transaction, error) {
	out := []*models.Transaction{}
	err := r.do(func(st *state) error {
		for _, t := range st.transactions {
			if t.UserID == userID {
				t := t
				out = append(out, &t)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

type notifications struct{ view }

func (r notifications) Create(_ context.Context, n *models.Notification) error {
	return r.do(func(st *state) error {
		n.ID = st.id()
		n.Timestamp = r.now()
		st.notifications = append(st.notifications, *n)
		return nil
	})
}

func (r notifications) ListByUserID(_ context.Context, userID int64) ([]*models.Notification, error) {
	out := []*models.Notification{}
	err := r.do(func(st *state) error {
		for _, n := range st.notifications {
			if n.UserID == userID {
				n := n
				out = append(out, &n)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].ID > out[j].ID
	})
	return out, err
}

func (r notifications) MarkAllRead(_ context.Context, userID int64) (int64, error) {
	var updated int64
	err := r.do(func(st *state) error {
		for i := range st.notifications {
			if st.notifications[i].UserID == userID && !st.notifications[i].IsRead {
				st.notifications[i].IsRead = true
				updated++
			}
		}
		return nil
	})
	return updated, err
}

type beneficiaries struct{ view }

func (r beneficiaries) Create(_ context.Context, b *models.Beneficiary) error {
	return r.do(func(st *state) error {
		b.ID = st.id()
		b.CreatedAt = r.now()
		st.beneficiaries = append(st.beneficiaries, *b)
		return nil
	})
}

func (r beneficiaries) ListByUserID(_ context.Context, userID int64) ([]*models.Beneficiary, error) {
	out := []*models.Beneficiary{}
	err := r.do(func(st *state) error {
		for _, b := range st.beneficiaries {
			if b.UserID == userID {
				b := b
				out = append(out, &b)
			}
		}
		return nil
	})
	return out, err
}

type audit struct{ view }

func (r audit) Create(_ context.Context, log *models.AuditLog) error {
	return r.do(func(st *state) error {
		log.ID = st.id()
		log.CreatedAt = r.now()
		st.audit = append(st.audit, *log)
		return nil
	})
}

func (r audit) GetByEntityID(_ context.Context, entityType, entityID string) ([]*models.AuditLog, error) {
	var out []*models.AuditLog
	err := r.do(func(st *state) error {
		for i := len(st.audit) - 1; i >= 0; i-- {
			l := st.audit[i]
			if l.EntityType == entityType && l.EntityID == entityID {
				out = append(out, &l)
			}
		}
		return nil
	})
	return out, err
}
