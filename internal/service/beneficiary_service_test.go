package service

import (
	"context"
	"testing"

	"github.com/riteshkumar/core-ledger/internal/errors"
	"github.com/riteshkumar/core-ledger/internal/models"
	"github.com/riteshkumar/core-ledger/internal/repository/memory"
)

func strPtr(s string) *string { return &s }

func TestAddBeneficiaryClassifiesBank(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	f := newFixtureWithStore(t, store)
	target := f.openFunded(t, 2, "0")
	svc := NewBeneficiaryService(store, testLogger())

	internal, err := svc.AddBeneficiary(ctx, 1, &models.CreateBeneficiaryRequest{
		Name:          "Landlord",
		AccountNumber: target.AccountNumber,
		Phone:         strPtr("0414-123 4567"),
		Alias:         strPtr("  "),
	})
	if err != nil {
		t.Fatalf("AddBeneficiary: %v", err)
	}
	if internal.BankName != models.BankNameInternal {
		t.Fatalf("bank name = %q, want %q", internal.BankName, models.BankNameInternal)
	}
	if internal.Phone == nil || *internal.Phone != "+584141234567" {
		t.Fatalf("phone was not normalized: %v", internal.Phone)
	}
	if internal.Alias != nil {
		t.Fatalf("blank alias should be dropped, got %q", *internal.Alias)
	}

	external, err := svc.AddBeneficiary(ctx, 1, &models.CreateBeneficiaryRequest{
		Name:          "Grocer",
		AccountNumber: "01020304050607080900",
	})
	if err != nil {
		t.Fatalf("AddBeneficiary: %v", err)
	}
	if external.BankName != models.BankNameExternal {
		t.Fatalf("bank name = %q, want %q", external.BankName, models.BankNameExternal)
	}

	list, err := svc.ListBeneficiaries(ctx, 1)
	if err != nil {
		t.Fatalf("ListBeneficiaries: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Landlord" || list[1].Name != "Grocer" {
		t.Fatalf("unexpected beneficiaries %+v", list)
	}
	if others, _ := svc.ListBeneficiaries(ctx, 2); len(others) != 0 {
		t.Fatalf("beneficiaries leaked to another user: %d", len(others))
	}
}

func TestAddBeneficiaryValidation(t *testing.T) {
	svc := NewBeneficiaryService(memory.NewStore(), testLogger())

	tests := []struct {
		name string
		req  models.CreateBeneficiaryRequest
	}{
		{"missing name", models.CreateBeneficiaryRequest{AccountNumber: "1234567890"}},
		{"missing account number", models.CreateBeneficiaryRequest{Name: "Ana"}},
		{"bad phone prefix", models.CreateBeneficiaryRequest{Name: "Ana", AccountNumber: "1234567890", Phone: strPtr("02121234567")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if _, err := svc.AddBeneficiary(context.Background(), 1, &req); !errors.IsInvalidInput(err) {
				t.Fatalf("expected invalid input, got %v", err)
			}
		})
	}
}

func TestMarkAllReadOnlyTouchesOwner(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	svc := NewNotificationService(store, testLogger())

	seed := func(userID int64, read bool) {
		if err := store.Notifications().Create(ctx, &models.Notification{
			UserID: userID, Title: "t", Message: "m", IsRead: read,
		}); err != nil {
			t.Fatalf("seed notification: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		seed(1, false)
	}
	seed(1, true)
	seed(1, true)
	seed(2, false)

	updated, err := svc.MarkAllRead(ctx, 1)
	if err != nil {
		t.Fatalf("MarkAllRead: %v", err)
	}
	if updated != 3 {
		t.Fatalf("updated = %d, want 3", updated)
	}

	mine, err := svc.ListNotifications(ctx, 1)
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(mine) != 5 {
		t.Fatalf("expected 5 notifications, got %d", len(mine))
	}
	for _, n := range mine {
		if !n.IsRead {
			t.Fatalf("notification %d still unread", n.ID)
		}
	}

	theirs, _ := svc.ListNotifications(ctx, 2)
	if len(theirs) != 1 || theirs[0].IsRead {
		t.Fatalf("other user's notification changed: %+v", theirs)
	}

	if again, _ := svc.MarkAllRead(ctx, 1); again != 0 {
		t.Fatalf("second MarkAllRead updated %d", again)
	}
}
