package catalog_repo

import (
	"mystore/internal/domain/customer"
	"mystore/internal/infrastructure/storage/postgres"
)

var _ customer.Repository = (*CustomerRepo)(nil)

// CustomerRepo reads and seeds customers.
type CustomerRepo struct {
	*BaseCatalogRepo[customer.Customer]
}

// NewCustomerRepo creates a new customer repository.
func NewCustomerRepo(txm *postgres.TxManager) *CustomerRepo {
	return &CustomerRepo{
		BaseCatalogRepo: NewBaseCatalogRepo[customer.Customer](
			txm, "customers", "customer", postgres.ExtractDBColumns[customer.Customer]()),
	}
}
