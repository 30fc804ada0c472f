// Package customer holds the buyer record referenced by sales.
package customer

import (
	"context"
	"strings"
	"time"

	"mystore/internal/core/id"
)

// Customer is read by the sale engine for validation and display only.
type Customer struct {
	ID         id.ID     `db:"id"`
	FirstName  string    `db:"first_name"`
	LastName   string    `db:"last_name"`
	Email      string    `db:"email"`
	Phone      string    `db:"phone"`
	Address    string    `db:"address"`
	City       string    `db:"city"`
	PostalCode string    `db:"postal_code"`
	Country    string    `db:"country"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// FullName is "First Last", trimmed when either part is empty.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Repository reads customers.
type Repository interface {
	GetByID(ctx context.Context, customerID id.ID) (*Customer, error)
	Exists(ctx context.Context, customerID id.ID) (bool, error)
}
