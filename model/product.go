package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// maxPrice and maxPriceScale bound product prices; the source data
// stores amounts with at most four decimal places.
var maxPrice = decimal.RequireFromString("999999.99")

const (
	maxPriceScale   = 4
	maxVitalityDays = 3650
)

// Product is an item offered for sale.
type Product struct {
	ID           int             `json:"id" validate:"gt=0"`
	Name         string          `json:"name" validate:"min=2,max=100"`
	Price        decimal.Decimal `json:"price"`
	CategoryID   int             `json:"category_id" validate:"gt=0"`
	Class        string          `json:"class,omitempty"`
	ModifyTime   time.Duration   `json:"modify_time,omitempty"`
	Resistant    string          `json:"resistant,omitempty"`
	Allergenic   Allergen        `json:"allergenic"`
	VitalityDays int             `json:"vitality_days,omitempty" validate:"gte=0,lte=3650"`
}

// NewProduct validates and returns a Product.
func NewProduct(id int, name string, price decimal.Decimal, categoryID int, class string, modifyTime time.Duration, resistant string, allergenic Allergen, vitalityDays int) (*Product, error) {
	p := &Product{
		ID:           id,
		Name:         trim(name),
		Price:        price,
		CategoryID:   categoryID,
		Class:        trim(class),
		ModifyTime:   modifyTime,
		Resistant:    trim(resistant),
		Allergenic:   allergenic,
		VitalityDays: vitalityDays,
	}
	if err := validate.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: product: %v", ErrInvalidField, err)
	}
	if err := checkPrice(price); err != nil {
		return nil, fmt.Errorf("%w: product: %v", ErrInvalidField, err)
	}
	return p, nil
}

func checkPrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return fmt.Errorf("price %s is negative", price)
	}
	if price.GreaterThan(maxPrice) {
		return fmt.Errorf("price %s exceeds %s", price, maxPrice)
	}
	if price.Exponent() < -maxPriceScale {
		return fmt.Errorf("price %s has more than %d decimal places", price, maxPriceScale)
	}
	return nil
}
