package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is a staff member who can authenticate.
type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Table is a physical table in the venue.
type Table struct {
	ID        uuid.UUID
	Number    int32
	Active    bool
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Product is a sellable item. Price is the current menu price; tab items
// snapshot it at order time.
type Product struct {
	ID        uuid.UUID
	Name      string
	Price     pgtype.Numeric
	Available bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Customer carries the store-credit balance drawn on by settlement.
type Customer struct {
	ID            uuid.UUID
	Name          string
	Phone         pgtype.Text
	CreditBalance pgtype.Numeric
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Tab is the running account opened against a table (the comanda). All
// money fields are numeric(12,2); outstanding_balance is derived and
// only written by the services after a recompute.
type Tab struct {
	ID                 uuid.UUID
	TableID            uuid.UUID
	CustomerID         pgtype.UUID
	Status             string
	ItemsSubtotal      pgtype.Numeric
	ServiceTaxPercent  pgtype.Numeric
	ServiceTaxAmount   pgtype.Numeric
	DiscountAmount     pgtype.Numeric
	AmountPaid         pgtype.Numeric
	AmountOnAccount    pgtype.Numeric
	CreditApplied      pgtype.Numeric
	OutstandingBalance pgtype.Numeric
	CancelReason       pgtype.Text
	OpenedBy           uuid.UUID
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ClosedAt           pgtype.Timestamptz
}

// TabItem is one product line on a tab. UnitPrice is frozen at add time.
type TabItem struct {
	ID        uuid.UUID
	TabID     uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	LineTotal pgtype.Numeric
	Notes     pgtype.Text
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Payment is a settlement record against a tab.
type Payment struct {
	ID              uuid.UUID
	TabID           uuid.UUID
	CustomerID      pgtype.UUID
	Method          string
	Amount          pgtype.Numeric
	Status          string
	AmountReceived  pgtype.Numeric
	ChangeAmount    pgtype.Numeric
	CreditCaptured  pgtype.Numeric
	ReferenceNumber pgtype.Text
	ProcessedBy     uuid.UUID
	ProcessedAt     time.Time
}

// Debt is a fiado receivable. The tab was credited in full when the debt
// was registered; AmountDue only tracks collection progress.
type Debt struct {
	ID             uuid.UUID
	TabID          uuid.UUID
	CustomerID     uuid.UUID
	PaymentID      pgtype.UUID
	OriginalAmount pgtype.Numeric
	AmountDue      pgtype.Numeric
	Status         string
	DueDate        pgtype.Timestamptz
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
