package auth

import (
	"github.com/riteshkumar/core-ledger/internal/errors"
)

// Role is the caller's role as asserted by the trust token.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleTeller          Role = "teller"
	RoleCustomerService Role = "customer_service"
	RoleClient          Role = "client"
)

// Operation names an action guarded by the policy table.
type Operation string

const (
	OpCreateAccount     Operation = "account.create"
	OpReadAccount       Operation = "account.read"
	OpCreateCard        Operation = "card.create"
	OpListCards         Operation = "card.list"
	OpTransfer          Operation = "transfer"
	OpListMovements     Operation = "movements"
	OpMint              Operation = "mint"
	OpCreateBeneficiary Operation = "beneficiary.create"
	OpListBeneficiaries Operation = "beneficiary.list"
	OpListNotifications Operation = "notification.list"
	OpMarkNotifications Operation = "notification.mark_read"
	OpStaffSearch       Operation = "staff.search"
	OpStaffCreate       Operation = "staff.create"
)

var anyRole = roleSet(RoleAdmin, RoleTeller, RoleCustomerService, RoleClient)

// policy is the single source of truth for who may do what. Operations not
// listed are denied to every role.
var policy = map[Operation]map[Role]bool{
	OpCreateAccount:     anyRole,
	OpReadAccount:       anyRole,
	OpCreateCard:        anyRole,
	OpListCards:         anyRole,
	OpTransfer:          anyRole,
	OpListMovements:     anyRole,
	OpCreateBeneficiary: anyRole,
	OpListBeneficiaries: anyRole,
	OpListNotifications: anyRole,
	OpMarkNotifications: anyRole,
	OpMint:              roleSet(RoleTeller, RoleAdmin),
	OpStaffSearch:       roleSet(RoleAdmin, RoleTeller, RoleCustomerService),
	OpStaffCreate:       roleSet(RoleAdmin),
}

func roleSet(roles ...Role) map[Role]bool {
	m := make(map[Role]bool, len(roles))
	for _, r := range roles {
		m[r] = true
	}
	return m
}

// Allowed reports whether role may perform op.
func Allowed(op Operation, role Role) bool {
	return policy[op][role]
}

// Require returns a Forbidden error when the identity may not perform op.
func Require(op Operation, id Identity) error {
	if !Allowed(op, id.Role) {
		return errors.NewForbiddenError(string(op), string(id.Role))
	}
	return nil
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return anyRole[r]
}
