package dto

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mystore/internal/core/apperror"
	"mystore/internal/core/id"
	"mystore/internal/core/types"
	"mystore/internal/domain/sales"
)

// --- Requests ---

// SaleItemRequest keeps the raw JSON of each field so that strict and
// lenient parsing can both be applied.
type SaleItemRequest struct {
	Product   json.RawMessage `json:"product"`
	Quantity  json.RawMessage `json:"quantity"`
	UnitPrice json.RawMessage `json:"unit_price"`
}

// CreateSaleRequest is the body of POST /sales.
type CreateSaleRequest struct {
	Customer      json.RawMessage   `json:"customer"`
	PaymentMethod string            `json:"payment_method"`
	Notes         string            `json:"notes"`
	SaleDate      *time.Time        `json:"sale_date"`
	Items         []SaleItemRequest `json:"items"`
}

// ToInput parses the request. In lenient mode malformed item fields are
// coerced instead of rejected.
func (r CreateSaleRequest) ToInput(lenient bool) (sales.CreateInput, error) {
	customerID, err := parseCustomer(r.Customer)
	if err != nil {
		return sales.CreateInput{}, err
	}
	items, err := ParseItems(r.Items, lenient)
	if err != nil {
		return sales.CreateInput{}, err
	}
	return sales.CreateInput{
		CustomerID:    customerID,
		PaymentMethod: sales.PaymentMethod(strings.TrimSpace(r.PaymentMethod)),
		Notes:         r.Notes,
		SaleDate:      r.SaleDate,
		Items:         items,
	}, nil
}

// UpdateSaleRequest is the body of PUT and PATCH /sales/{id}. Absent
// fields are left unchanged.
type UpdateSaleRequest struct {
	Customer      json.RawMessage    `json:"customer"`
	PaymentMethod *string            `json:"payment_method"`
	Notes         *string            `json:"notes"`
	SaleDate      *time.Time         `json:"sale_date"`
	Items         *[]SaleItemRequest `json:"items"`
}

// ToInput parses the request. full (PUT) requires customer and items.
func (r UpdateSaleRequest) ToInput(lenient, full bool) (sales.UpdateInput, error) {
	var in sales.UpdateInput

	if len(r.Customer) > 0 {
		customerID, err := parseCustomer(r.Customer)
		if err != nil {
			return in, err
		}
		if customerID == nil {
			return in, apperror.NewValidation("customer is required").WithDetail("field", "customer")
		}
		in.CustomerID = customerID
	} else if full {
		return in, apperror.NewValidation("customer is required").WithDetail("field", "customer")
	}

	if r.Items != nil {
		items, err := ParseItems(*r.Items, lenient)
		if err != nil {
			return in, err
		}
		in.Items = &items
	} else if full {
		return in, apperror.NewValidation("items is required").WithDetail("field", "items")
	}

	if r.PaymentMethod != nil {
		m := sales.PaymentMethod(strings.TrimSpace(*r.PaymentMethod))
		in.PaymentMethod = &m
	}
	in.Notes = r.Notes
	in.SaleDate = r.SaleDate
	return in, nil
}

// StockCheckRequest is the body of POST /sales/check_stock.
type StockCheckRequest struct {
	Items []SaleItemRequest `json:"items"`
}

// ToItems never fails. Lines without a product or with an unreadable
// quantity are dropped; a product reference that is not an id is kept so
// the check can report it as not found.
func (r StockCheckRequest) ToItems() []sales.StockCheckItem {
	out := make([]sales.StockCheckItem, 0, len(r.Items))
	for _, it := range r.Items {
		ref := productRef(it.Product)
		if ref == "" {
			continue
		}
		qty, err := parseQuantity(it.Quantity)
		if err != nil {
			continue
		}
		item := sales.StockCheckItem{ProductRef: ref, Quantity: qty}
		if pid, err := id.Parse(ref); err == nil {
			item.ProductID = &pid
		}
		out = append(out, item)
	}
	return out
}

// productRef returns a JSON string's content or a scalar's literal text.
func productRef(raw json.RawMessage) string {
	if isAbsent(raw) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(bytes.TrimSpace(raw))
}

// ParseItems converts request lines into engine input. Strict mode
// reports the first malformed field as INVALID_SALE_ITEM; lenient mode
// leaves the product nil (the line is skipped), turns a bad quantity into
// 0 and a bad price into "use the product price".
func ParseItems(raw []SaleItemRequest, lenient bool) ([]sales.ItemInput, error) {
	out := make([]sales.ItemInput, 0, len(raw))
	for i, it := range raw {
		var item sales.ItemInput

		pid, err := parseID(it.Product)
		switch {
		case err != nil && !lenient:
			return nil, apperror.NewInvalidSaleItem(i, "product", "must be a valid id")
		case err == nil:
			item.ProductID = pid
		}

		qty, err := parseQuantity(it.Quantity)
		switch {
		case err != nil && !lenient:
			return nil, apperror.NewInvalidSaleItem(i, "quantity", err.Error())
		case err == nil:
			item.Quantity = qty
		}

		if !isAbsent(it.UnitPrice) {
			price, err := parseUnitPrice(it.UnitPrice, lenient)
			switch {
			case err != nil && !lenient:
				return nil, apperror.NewInvalidSaleItem(i, "unit_price", err.Error())
			case err == nil:
				item.UnitPrice = &price
			}
		}

		out = append(out, item)
	}
	return out, nil
}

func isAbsent(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// parseID accepts a JSON string holding a UUID. Absent or null yields nil.
func parseID(raw json.RawMessage) (*id.ID, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	v, err := id.Parse(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseCustomer(raw json.RawMessage) (*id.ID, error) {
	v, err := parseID(raw)
	if err != nil {
		return nil, apperror.NewValidation("customer must be a valid id").WithDetail("field", "customer")
	}
	return v, nil
}

// parseQuantity accepts a JSON integer or a string holding one.
func parseQuantity(raw json.RawMessage) (int, error) {
	if isAbsent(raw) {
		return 0, fmt.Errorf("is required")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		s = string(bytes.TrimSpace(raw))
	}
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("must be a whole number")
	}
	if n > types.MaxQuantity {
		return 0, fmt.Errorf("must not exceed %d", types.MaxQuantity)
	}
	return int(n), nil
}

// parseUnitPrice rejects amounts the price column cannot hold. Lenient
// mode rounds extra fractional digits instead of rejecting them.
func parseUnitPrice(raw json.RawMessage, lenient bool) (types.Money, error) {
	price, err := types.ParseMoney(raw)
	if err != nil {
		return price, fmt.Errorf("must be a decimal amount")
	}
	if price.GreaterThan(types.MaxUnitPrice) {
		return price, fmt.Errorf("must not exceed %s", types.FormatMoney(types.MaxUnitPrice))
	}
	if !types.HasMoneyScale(price) {
		if !lenient {
			return price, fmt.Errorf("must have at most %d decimal places", types.MoneyScale)
		}
		price = types.RoundMoney(price)
	}
	return price, nil
}

// --- Responses ---

// SaleItemResponse is one serialized line.
type SaleItemResponse struct {
	ID                string `json:"id"`
	Product           string `json:"product"`
	ProductName       string `json:"product_name"`
	Quantity          int    `json:"quantity"`
	FulfilledQuantity int    `json:"fulfilled_quantity"`
	UnitPrice         string `json:"unit_price"`
	Subtotal          string `json:"subtotal"`
}

// SaleResponse is the serialized sale.
type SaleResponse struct {
	ID                   string             `json:"id"`
	Customer             string             `json:"customer"`
	CustomerName         string             `json:"customer_name"`
	SaleDate             time.Time          `json:"sale_date"`
	TotalAmount          string             `json:"total_amount"`
	PaymentMethod        string             `json:"payment_method"`
	PaymentMethodDisplay string             `json:"payment_method_display"`
	Notes                string             `json:"notes"`
	Items                []SaleItemResponse `json:"items"`
	ItemsCount           int                `json:"items_count"`
	CreatedBy            string             `json:"created_by"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// SaleWriteResponse is returned by create and update.
type SaleWriteResponse struct {
	SaleResponse
	OutOfStockInfo []sales.Disclosure `json:"out_of_stock_info"`
}

// FromSale serializes a sale with its lines.
func FromSale(s *sales.Sale) SaleResponse {
	items := make([]SaleItemResponse, len(s.Items))
	for i, it := range s.Items {
		items[i] = SaleItemResponse{
			ID:                it.ID.String(),
			Product:           it.ProductID.String(),
			ProductName:       it.ProductName,
			Quantity:          it.Quantity,
			FulfilledQuantity: it.FulfilledQuantity,
			UnitPrice:         types.FormatMoney(it.UnitPrice),
			Subtotal:          types.FormatMoney(it.Subtotal()),
		}
	}
	return SaleResponse{
		ID:                   s.ID.String(),
		Customer:             s.CustomerID.String(),
		CustomerName:         s.CustomerName,
		SaleDate:             s.SaleDate,
		TotalAmount:          types.FormatMoney(s.TotalAmount),
		PaymentMethod:        string(s.PaymentMethod),
		PaymentMethodDisplay: s.PaymentMethod.Display(),
		Notes:                s.Notes,
		Items:                items,
		ItemsCount:           len(items),
		CreatedBy:            s.CreatedBy,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

// FromResult serializes a create or update result. out_of_stock_info is
// always an array.
func FromResult(r *sales.Result) SaleWriteResponse {
	info := r.OutOfStock
	if info == nil {
		info = []sales.Disclosure{}
	}
	return SaleWriteResponse{SaleResponse: FromSale(r.Sale), OutOfStockInfo: info}
}

// OutOfStockResponse is one serialized shortfall record.
type OutOfStockResponse struct {
	ID           string    `json:"id"`
	Product      string    `json:"product"`
	ProductName  string    `json:"product_name"`
	QuantitySold int       `json:"quantity_sold"`
	Sale         *string   `json:"sale"`
	Notes        string    `json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
}

// FromOutOfStock serializes a shortfall record.
func FromOutOfStock(o *sales.OutOfStockSale) OutOfStockResponse {
	var saleID *string
	if o.SaleID != nil {
		s := o.SaleID.String()
		saleID = &s
	}
	return OutOfStockResponse{
		ID:           o.ID.String(),
		Product:      o.ProductID.String(),
		ProductName:  o.ProductName,
		QuantitySold: o.QuantitySold,
		Sale:         saleID,
		Notes:        o.Note,
		CreatedAt:    o.CreatedAt,
	}
}

// SaleListQuery is the query string of GET /sales.
type SaleListQuery struct {
	ListQuery
	Customer string `form:"customer"`
	DateFrom string `form:"date_from"`
	DateTo   string `form:"date_to"`
}

// Filter parses the query. Dates use YYYY-MM-DD.
func (q SaleListQuery) Filter() (sales.ListFilter, error) {
	f := sales.ListFilter{ListFilter: q.ListQuery.Filter()}
	if q.Customer != "" {
		cid, err := id.Parse(q.Customer)
		if err != nil {
			return f, apperror.NewValidation("customer must be a valid id").WithDetail("field", "customer")
		}
		f.CustomerID = &cid
	}
	var err error
	if f.DateFrom, err = ParseDay(q.DateFrom, "date_from"); err != nil {
		return f, err
	}
	if f.DateTo, err = ParseDay(q.DateTo, "date_to"); err != nil {
		return f, err
	}
	return f, nil
}

// OutOfStockListQuery is the query string of GET /out-of-stock-sales.
type OutOfStockListQuery struct {
	ListQuery
	Product string `form:"product"`
	Sale    string `form:"sale"`
}

// Filter parses the query.
func (q OutOfStockListQuery) Filter() (sales.OutOfStockFilter, error) {
	f := sales.OutOfStockFilter{ListFilter: q.ListQuery.Filter()}
	if q.Product != "" {
		pid, err := id.Parse(q.Product)
		if err != nil {
			return f, apperror.NewValidation("product must be a valid id").WithDetail("field", "product")
		}
		f.ProductID = &pid
	}
	if q.Sale != "" {
		sid, err := id.Parse(q.Sale)
		if err != nil {
			return f, apperror.NewValidation("sale must be a valid id").WithDetail("field", "sale")
		}
		f.SaleID = &sid
	}
	return f, nil
}

// PurgeSalesRequest is the body of POST /admin/sales/purge.
type PurgeSalesRequest struct {
	Date            string `json:"date"`
	KeepDisclosures *bool  `json:"keep_disclosures"`
	Confirm         bool   `json:"confirm"`
}

// ToFilter parses the request; confirm must be true.
func (r PurgeSalesRequest) ToFilter() (sales.PurgeFilter, error) {
	if !r.Confirm {
		return sales.PurgeFilter{}, apperror.NewValidation("purge must be confirmed").WithDetail("field", "confirm")
	}
	day, err := ParseDay(r.Date, "date")
	if err != nil {
		return sales.PurgeFilter{}, err
	}
	return sales.PurgeFilter{Date: day, KeepDisclosures: r.KeepDisclosures}, nil
}

// ParseDay parses YYYY-MM-DD; "" yields nil.
func ParseDay(s, field string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, apperror.NewValidation(field+" must use YYYY-MM-DD").WithDetail("field", field)
	}
	return &t, nil
}
