package credit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashSessionProvider tells which register session is currently open
type CashSessionProvider interface {
	// CurrentSessionID returns nil when no session is open
	CurrentSessionID(ctx context.Context) (*string, error)
}

// CashLedgerEntry is the cash-register transaction written for a customer payment
type CashLedgerEntry struct {
	Description string
	Amount      decimal.Decimal
	Method      PaymentMethod
	Date        time.Time
	SessionID   *string
	Notes       string
	Reference   uuid.UUID
}

// CashLedger appends entries to the general cash ledger
type CashLedger interface {
	AppendEntry(ctx context.Context, entry CashLedgerEntry) (string, error)
}

// ReceiptCopy selects which receipt copy is rendered
type ReceiptCopy string

const (
	ReceiptCopyCustomer ReceiptCopy = "customer"
	ReceiptCopyStore    ReceiptCopy = "store"
)

// StoreInfo is the store header printed on receipts
type StoreInfo struct {
	Name     string
	Document string
	Phone    string
	Address  string
}

// ReceiptRenderer renders a payment receipt from the sale snapshot taken right after
// the payment was applied. Rendering lives outside this service.
type ReceiptRenderer interface {
	Render(ctx context.Context, payment Payment, snapshot CreditSale, store StoreInfo, copy ReceiptCopy) error
}

// ErrSaleLocked is returned when a per-sale lock cannot be obtained in time
var ErrSaleLocked = errors.New("credit sale is locked by another operation")

// SaleLocker serializes read-modify-write operations on one sale
type SaleLocker interface {
	// Lock blocks until the sale is locked or ctx is done. The returned func releases it.
	Lock(ctx context.Context, saleID uuid.UUID) (unlock func(), err error)
}
