package service

import "errors"

// Validation errors: the caller supplied a value that violates a stated
// precondition. Mapped to 400.
var (
	ErrInvalidQuantity      = errors.New("quantity must be > 0")
	ErrInvalidAmount        = errors.New("amount must be > 0")
	ErrInvalidMethod        = errors.New("invalid payment method")
	ErrInvalidTaxPercent    = errors.New("service tax percent must be between 0 and 100")
	ErrNegativeDiscount     = errors.New("discount must not be negative")
	ErrDiscountTooLarge     = errors.New("discount exceeds subtotal plus service tax")
	ErrReceivedBelowAmount  = errors.New("amount_received must be >= amount")
	ErrReceivedRequired     = errors.New("amount_received is required for CASH payments")
	ErrCancelReasonRequired = errors.New("cancellation reason is required")
)

// Not-found errors. Mapped to 404.
var (
	ErrTabNotFound      = errors.New("tab not found")
	ErrTableNotFound    = errors.New("table not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrPaymentNotFound  = errors.New("payment not found")
	ErrDebtNotFound     = errors.New("debt not found")
)

// Conflict errors: the operation is not permitted in the current state.
// Mapped to 409.
var (
	ErrTabNotMutable      = errors.New("tab does not accept item changes in its current status")
	ErrTabNotPayable      = errors.New("tab does not accept payments in its current status")
	ErrTabNotClosable     = errors.New("tab cannot be closed in its current status")
	ErrTabAlreadyClosed   = errors.New("tab is already closed")
	ErrTableInactive      = errors.New("table is not active for orders")
	ErrTableOccupied      = errors.New("table already has an open tab")
	ErrProductUnavailable = errors.New("product is not available")
	ErrNoCustomer         = errors.New("tab has no associated customer")
	ErrNoCreditAvailable  = errors.New("customer has no store credit")
	ErrInsufficientCredit = errors.New("amount exceeds customer credit balance")
	ErrOverpayment        = errors.New("amount exceeds outstanding balance")
	ErrNothingOutstanding = errors.New("tab has no outstanding balance")
	ErrDebtNotPayable     = errors.New("debt does not accept payments in its current status")
	ErrDebtPaymentTooBig  = errors.New("amount exceeds debt amount due")
	ErrDebtHasCollections = errors.New("debt already has collections recorded")
	ErrCreditSpent        = errors.New("captured store credit has already been spent")
)

var validationErrs = []error{
	ErrInvalidQuantity, ErrInvalidAmount, ErrInvalidMethod, ErrInvalidTaxPercent,
	ErrNegativeDiscount, ErrDiscountTooLarge, ErrReceivedBelowAmount,
	ErrReceivedRequired, ErrCancelReasonRequired,
}

var notFoundErrs = []error{
	ErrTabNotFound, ErrTableNotFound, ErrProductNotFound, ErrCustomerNotFound,
	ErrItemNotFound, ErrPaymentNotFound, ErrDebtNotFound,
}

var conflictErrs = []error{
	ErrTabNotMutable, ErrTabNotPayable, ErrTabNotClosable, ErrTabAlreadyClosed,
	ErrTableInactive, ErrTableOccupied, ErrProductUnavailable, ErrNoCustomer,
	ErrNoCreditAvailable, ErrInsufficientCredit, ErrOverpayment,
	ErrNothingOutstanding, ErrDebtNotPayable, ErrDebtPaymentTooBig,
	ErrDebtHasCollections, ErrCreditSpent,
}

func isAny(err error, targets []error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

// IsValidation reports whether err is a caller-input validation failure.
func IsValidation(err error) bool { return isAny(err, validationErrs) }

// IsNotFound reports whether err refers to a missing entity.
func IsNotFound(err error) bool { return isAny(err, notFoundErrs) }

// IsConflict reports whether err is a state conflict.
func IsConflict(err error) bool { return isAny(err, conflictErrs) }
