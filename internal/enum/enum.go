// Package enum defines the string constants stored in status and role
// columns. Values under a CHECK constraint must stay in sync with the
// migrations.
package enum

const (
	TabStatusOpen          = "OPEN"
	TabStatusPartiallyPaid = "PARTIALLY_PAID"
	TabStatusFullyPaid     = "FULLY_PAID"
	TabStatusOnAccount     = "ON_ACCOUNT"
	TabStatusCancelled     = "CANCELLED"
	TabStatusClosed        = "CLOSED"
)

const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusApproved  = "APPROVED"
	PaymentStatusRejected  = "REJECTED"
	PaymentStatusCancelled = "CANCELLED"
)

const (
	DebtStatusPending       = "PENDING"
	DebtStatusPartiallyPaid = "PARTIALLY_PAID"
	DebtStatusFullyPaid     = "FULLY_PAID"
	DebtStatusCancelled     = "CANCELLED"
)

const (
	TableStatusFree     = "FREE"
	TableStatusOccupied = "OCCUPIED"
)

const (
	UserRoleOwner   = "OWNER"
	UserRoleManager = "MANAGER"
	UserRoleWaiter  = "WAITER"
	UserRoleCashier = "CASHIER"
)

// Payment methods are labels, not a constraint. New methods can be
// introduced without a migration.
const (
	PaymentMethodCash       = "CASH"
	PaymentMethodCreditCard = "CREDIT_CARD"
	PaymentMethodDebitCard  = "DEBIT_CARD"
	PaymentMethodPix        = "PIX"
	PaymentMethodOnAccount  = "ON_ACCOUNT"
	PaymentMethodOther      = "OTHER"
)
