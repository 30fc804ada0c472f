package inventory

import (
	"fmt"

	"mystore/internal/core/apperror"
)

// Adjustment is a manual stock correction.
// Implementations: SetStock, AddStock, SubtractStock.
type Adjustment interface {
	// Apply returns the new stock level for the current one. Never negative.
	Apply(current int) int
	Action() string
	Amount() int
}

// SetStock replaces the stock level.
type SetStock struct{ Quantity int }

// AddStock increments the stock level.
type AddStock struct{ Quantity int }

// SubtractStock decrements the stock level, flooring at zero.
type SubtractStock struct{ Quantity int }

func (a SetStock) Apply(int) int { return a.Quantity }
func (a SetStock) Action() string { return "set" }
func (a SetStock) Amount() int { return a.Quantity }
func (a AddStock) Apply(c int) int { return c + a.Quantity }
func (a AddStock) Action() string { return "add" }
func (a AddStock) Amount() int { return a.Quantity }
func (a SubtractStock) Action() string { return "subtract" }
func (a SubtractStock) Amount() int { return a.Quantity }

func (a SubtractStock) Apply(c int) int {
	if c <= a.Quantity {
		return 0
	}
	return c - a.Quantity
}

// ParseAdjustment maps the wire form {action, quantity} to an Adjustment.
func ParseAdjustment(action string, quantity int) (Adjustment, error) {
	if quantity < 0 {
		return nil, apperror.NewValidation("quantity must not be negative").
			WithDetail("field", "quantity").
			WithDetail("value", quantity)
	}
	switch action {
	case "set":
		return SetStock{Quantity: quantity}, nil
	case "add":
		return AddStock{Quantity: quantity}, nil
	case "subtract":
		return SubtractStock{Quantity: quantity}, nil
	default:
		return nil, apperror.NewValidation(fmt.Sprintf("unknown stock action %q", action)).
			WithDetail("field", "action").
			WithDetail("allowed", []string{"set", "add", "subtract"})
	}
}
