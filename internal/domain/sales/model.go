// Package sales implements the sale transaction engine: it turns a list of
// line items into a persisted sale, moves stock through the inventory
// ledger, and discloses every shortfall instead of refusing the sale.
package sales

import (
	"time"

	"mystore/internal/core/id"
	"mystore/internal/core/types"
)

// PaymentMethod is how the customer paid.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentCheck    PaymentMethod = "check"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentMobile   PaymentMethod = "mobile"
	PaymentOther    PaymentMethod = "other"
)

var paymentLabels = map[PaymentMethod]string{
	PaymentCash:     "Cash",
	PaymentCard:     "Bank card",
	PaymentCheck:    "Check",
	PaymentTransfer: "Bank transfer",
	PaymentMobile:   "Mobile payment",
	PaymentOther:    "Other",
}

// Valid reports whether p is one of the known methods.
func (p PaymentMethod) Valid() bool {
	_, ok := paymentLabels[p]
	return ok
}

// Display is the human label shown next to the code.
func (p PaymentMethod) Display() string {
	if l, ok := paymentLabels[p]; ok {
		return l
	}
	return string(p)
}

// Sale is the aggregate root. Items are loaded separately.
type Sale struct {
	ID            id.ID         `db:"id"`
	CustomerID    id.ID         `db:"customer_id"`
	CustomerName  string        `db:"customer_name"`
	SaleDate      time.Time     `db:"sale_date"`
	TotalAmount   types.Money   `db:"total_amount"`
	PaymentMethod PaymentMethod `db:"payment_method"`
	Notes         string        `db:"notes"`
	CreatedBy     string        `db:"created_by"`
	UpdatedBy     string        `db:"updated_by"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`

	Items []SaleItem `db:"-"`
}

// ComputeTotal sums the item subtotals.
func (s *Sale) ComputeTotal() types.Money {
	total := types.Zero()
	for _, it := range s.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// SaleItem is one line. UnitPrice is captured at sale time.
// FulfilledQuantity is the part actually taken from stock; the rest was
// sold out of stock.
type SaleItem struct {
	ID                id.ID       `db:"id"`
	SaleID            id.ID       `db:"sale_id"`
	ProductID         id.ID       `db:"product_id"`
	ProductName       string      `db:"product_name"`
	Quantity          int         `db:"quantity"`
	FulfilledQuantity int         `db:"fulfilled_quantity"`
	UnitPrice         types.Money `db:"unit_price"`
}

// Subtotal is quantity * unit price. Never stored.
func (i SaleItem) Subtotal() types.Money {
	return types.LineTotal(i.Quantity, i.UnitPrice)
}

// OutOfStockSale records a shortfall. Rows are never updated.
// SaleID becomes nil when the sale is purged with disclosures kept.
type OutOfStockSale struct {
	ID           id.ID     `db:"id"`
	ProductID    id.ID     `db:"product_id"`
	ProductName  string    `db:"product_name"`
	SaleID       *id.ID    `db:"sale_id"`
	QuantitySold int       `db:"quantity_sold"`
	Note         string    `db:"note"`
	CreatedAt    time.Time `db:"created_at"`
}

// Disclosure is one shortfall reported back to the caller.
type Disclosure struct {
	ProductID id.ID  `json:"product_id"`
	Product   string `json:"product"`
	Quantity  int    `json:"quantity"`
}

// Result is what Create and Update return.
type Result struct {
	Sale       *Sale
	OutOfStock []Disclosure
}

// ItemInput is a requested line. A nil ProductID or UnitPrice means the
// value was absent or unparseable.
type ItemInput struct {
	ProductID *id.ID
	Quantity  int
	UnitPrice *types.Money
}

// CreateInput is the body of a new sale.
type CreateInput struct {
	CustomerID    *id.ID
	PaymentMethod PaymentMethod
	Notes         string
	SaleDate      *time.Time
	Items         []ItemInput
}

// UpdateInput changes only the fields that are set. Items == nil keeps the
// current lines; a pointer to an empty slice removes them all.
type UpdateInput struct {
	CustomerID    *id.ID
	PaymentMethod *PaymentMethod
	Notes         *string
	SaleDate      *time.Time
	Items         *[]ItemInput
}

// StockCheckItem is one line of a feasibility check.
// ProductRef is the reference as the client sent it; ProductID is nil
// when it is not a valid id, and the line is reported as not found.
type StockCheckItem struct {
	ProductID  *id.ID
	ProductRef string
	Quantity   int
}

// StockIssue describes a line that cannot be served from stock.
type StockIssue struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	Shortage    int    `json:"shortage"`
}

// StockCheckResult is advisory: nothing is locked or reserved.
type StockCheckResult struct {
	HasIssues bool         `json:"has_issues"`
	Issues    []StockIssue `json:"issues"`
}

// PurgeFilter selects sales for administrative deletion. A nil Date
// selects every sale. A nil KeepDisclosures uses the service default.
type PurgeFilter struct {
	Date            *time.Time
	KeepDisclosures *bool
}

// PurgeResult counts what a purge removed.
type PurgeResult struct {
	Sales             int64 `json:"sales"`
	Items             int64 `json:"items"`
	RestoredUnits     int64 `json:"restored_units"`
	OutOfStockDeleted int64 `json:"out_of_stock_deleted"`
	OutOfStockKept    int64 `json:"out_of_stock_kept"`
}
