package sales

import "fmt"

// ReversalPolicy decides how much stock a removed line gives back.
type ReversalPolicy string

const (
	// ReverseFulfilled returns only what was actually taken from stock,
	// so create followed by delete leaves stock unchanged.
	ReverseFulfilled ReversalPolicy = "fulfilled"

	// ReverseRecorded returns the full recorded quantity, shortfall
	// included. Kept for parity with stores migrated from the old backend.
	ReverseRecorded ReversalPolicy = "recorded"
)

// ParseReversalPolicy accepts "", "fulfilled" or "recorded".
func ParseReversalPolicy(s string) (ReversalPolicy, error) {
	switch ReversalPolicy(s) {
	case "", ReverseFulfilled:
		return ReverseFulfilled, nil
	case ReverseRecorded:
		return ReverseRecorded, nil
	default:
		return "", fmt.Errorf("unknown reversal policy %q", s)
	}
}

// quantity is the amount to return to stock for a line.
func (p ReversalPolicy) quantity(item SaleItem) int {
	if p == ReverseRecorded {
		return item.Quantity
	}
	return item.FulfilledQuantity
}

// Options tune engine behaviour.
type Options struct {
	Reversal ReversalPolicy

	// LenientItems skips lines without a product and coerces bad
	// quantities to zero instead of rejecting the request.
	LenientItems bool

	// PurgeKeepsDisclosures detaches out-of-stock rows from purged sales
	// instead of deleting them.
	PurgeKeepsDisclosures bool
}

const (
	AggregateSale = "sale"

	EventSaleCommitted  = "sale.committed"
	EventSaleUpdated    = "sale.updated"
	EventSaleDeleted    = "sale.deleted"
	EventSaleOutOfStock = "sale.out_of_stock"
	EventSalesPurged    = "sales.purged"
)
