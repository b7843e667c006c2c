package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sale is a completed transaction tying a product, a customer and
// optionally the employee who made the sale.
type Sale struct {
	ID                int             `json:"id" validate:"gt=0"`
	ProductID         int             `json:"product_id" validate:"gt=0"`
	CustomerID        int             `json:"customer_id" validate:"gt=0"`
	Quantity          int             `json:"quantity" validate:"gt=0"`
	TotalPrice        decimal.Decimal `json:"total_price"`
	SalespersonID     int             `json:"salesperson_id,omitempty" validate:"gte=0"`
	Discount          decimal.Decimal `json:"discount,omitempty"`
	SaleTime          time.Duration   `json:"sale_time,omitempty"`
	TransactionNumber string          `json:"transaction_number,omitempty"`
}

// NewSale validates and returns a Sale. A zero SalespersonID means the
// seller was not recorded.
func NewSale(id, productID, customerID, quantity int, totalPrice decimal.Decimal, salespersonID int, discount decimal.Decimal, saleTime time.Duration, transactionNumber string) (*Sale, error) {
	s := &Sale{
		ID:                id,
		ProductID:         productID,
		CustomerID:        customerID,
		Quantity:          quantity,
		TotalPrice:        totalPrice,
		SalespersonID:     salespersonID,
		Discount:          discount,
		SaleTime:          saleTime,
		TransactionNumber: trim(transactionNumber),
	}
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("%w: sale: %v", ErrInvalidField, err)
	}
	if totalPrice.IsNegative() {
		return nil, fmt.Errorf("%w: sale: total price %s is negative", ErrInvalidField, totalPrice)
	}
	if discount.IsNegative() {
		return nil, fmt.Errorf("%w: sale: discount %s is negative", ErrInvalidField, discount)
	}
	return s, nil
}

// NetPrice returns the total price after subtracting the discount.
func (s *Sale) NetPrice() decimal.Decimal {
	return s.TotalPrice.Sub(s.Discount)
}
