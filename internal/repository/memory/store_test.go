package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/repository"
)

func TestAccountUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.Accounts().Create(ctx, &models.Account{UserID: 1, AccountNumber: "1111111111"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	err := s.Accounts().Create(ctx, &models.Account{UserID: 1, AccountNumber: "2222222222"})
	if !errors.Is(err, errors.ErrAccountAlreadyExists) {
		t.Fatalf("expected ErrAccountAlreadyExists for same user, got %v", err)
	}

	err = s.Accounts().Create(ctx, &models.Account{UserID: 2, AccountNumber: "1111111111"})
	if !errors.Is(err, errors.ErrAccountNumberTaken) {
		t.Fatalf("expected ErrAccountNumberTaken, got %v", err)
	}

	exists, err := s.Accounts().NumberExists(ctx, "1111111111")
	if err != nil || !exists {
		t.Fatalf("expected number to exist, got %t %v", exists, err)
	}
}

func TestCardUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	card := &models.Card{UserID: 1, CardNumber: "5200 1000 1000 1000"}
	if err := s.Cards().Create(ctx, card); err != nil {
		t.Fatalf("create: %v", err)
	}
	err := s.Cards().Create(ctx, &models.Card{UserID: 2, CardNumber: "5200 1000 1000 1000"})
	if !errors.Is(err, errors.ErrCardNumberTaken) {
		t.Fatalf("expected ErrCardNumberTaken, got %v", err)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	acc := &models.Account{UserID: 1, AccountNumber: "1111111111", Balance: decimal.NewFromInt(100)}
	if err := s.Accounts().Create(ctx, acc); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := fmt.Errorf("boom")
	err := s.WithinTx(ctx, func(q repository.Queries) error {
		if _, err := q.Accounts().Debit(ctx, acc.ID, decimal.NewFromInt(40)); err != nil {
			return err
		}
		if err := q.Transactions().Create(ctx, &models.Transaction{UserID: 1, Amount: decimal.NewFromInt(-40)}); err != nil {
			return err
		}
		if err := q.Notifications().Create(ctx, &models.Notification{UserID: 1, Title: "x"}); err != nil {
			return err
		}
		return boom
	})
	if err != boom {
		t.Fatalf("expected boom, got %v", err)
	}

	got, _ := s.Accounts().GetByUserID(ctx, 1)
	if !got.Balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance changed after rollback: %s", got.Balance)
	}
	txs, _ := s.Transactions().ListByUserID(ctx, 1)
	notes, _ := s.Notifications().ListByUserID(ctx, 1)
	if len(txs) != 0 || len(notes) != 0 {
		t.Fatalf("rows survived rollback: %d transactions, %d notifications", len(txs), len(notes))
	}
}

func TestDebitRequiresFunds(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	acc := &models.Account{UserID: 1, AccountNumber: "1111111111", Balance: decimal.NewFromInt(10)}
	_ = s.Accounts().Create(ctx, acc)

	if _, err := s.Accounts().Debit(ctx, acc.ID, decimal.NewFromInt(11)); !errors.IsInsufficientFunds(err) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	bal, err := s.Accounts().Debit(ctx, acc.ID, decimal.NewFromInt(10))
	if err != nil || !bal.IsZero() {
		t.Fatalf("expected zero balance, got %s %v", bal, err)
	}
	if _, err := s.Accounts().Credit(ctx, 999, decimal.NewFromInt(1)); !errors.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.Accounts().LockForUpdate(ctx, acc.ID, 999); !errors.IsNotFound(err) {
		t.Fatalf("expected not found on lock, got %v", err)
	}
}

func TestNotificationsNewestFirstAndMarkAllRead(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.SetClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	for i := 0; i < 3; i++ {
		_ = s.Notifications().Create(ctx, &models.Notification{UserID: 1, Title: fmt.Sprintf("n%d", i)})
	}
	_ = s.Notifications().Create(ctx, &models.Notification{UserID: 2, Title: "other"})

	list, _ := s.Notifications().ListByUserID(ctx, 1)
	if len(list) != 3 || list[0].Title != "n2" || list[2].Title != "n0" {
		t.Fatalf("unexpected order: %+v", list)
	}

	n, err := s.Notifications().MarkAllRead(ctx, 1)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 updated, got %d %v", n, err)
	}
	n, _ = s.Notifications().MarkAllRead(ctx, 1)
	if n != 0 {
		t.Fatalf("expected second mark to update 0, got %d", n)
	}

	other, _ := s.Notifications().ListByUserID(ctx, 2)
	if other[0].IsRead {
		t.Fatal("other user's notification was marked read")
	}
}

func TestSetClockWhileWriting(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = s.Notifications().Create(ctx, &models.Notification{UserID: int64(i + 1), Title: "t"})
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				at := base.Add(time.Duration(i*50+j) * time.Second)
				s.SetClock(func() time.Time { return at })
			}
		}(i)
	}
	wg.Wait()

	for i := int64(1); i <= 4; i++ {
		list, err := s.Notifications().ListByUserID(ctx, i)
		if err != nil || len(list) != 50 {
			t.Fatalf("user %d: expected 50 notifications, got %d (%v)", i, len(list), err)
		}
		for _, n := range list {
			if n.Timestamp.IsZero() {
				t.Fatalf("notification %d has no timestamp", n.ID)
			}
		}
	}
}
