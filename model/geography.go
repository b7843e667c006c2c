package model

import "fmt"

// Country is a top-level geographic region.
type Country struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"required"`
	Code string `json:"code,omitempty" validate:"max=2"`
}

// NewCountry validates and returns a Country. Code is an optional
// two-letter ISO code.
func NewCountry(id int, name, code string) (*Country, error) {
	c := &Country{ID: id, Name: trim(name), Code: trim(code)}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("%w: country: %v", ErrInvalidField, err)
	}
	return c, nil
}

// City belongs to a country and anchors customers and employees.
type City struct {
	ID         int    `json:"id" validate:"gt=0"`
	Name       string `json:"name" validate:"required"`
	CountryID  int    `json:"country_id" validate:"gt=0"`
	PostalCode string `json:"postal_code,omitempty" validate:"max=10"`
}

// NewCity validates and returns a City.
func NewCity(id int, name string, countryID int, postalCode string) (*City, error) {
	c := &City{ID: id, Name: trim(name), CountryID: countryID, PostalCode: trim(postalCode)}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("%w: city: %v", ErrInvalidField, err)
	}
	return c, nil
}

// Category groups products.
type Category struct {
	ID   int    `json:"id" validate:"gt=0"`
	Name string `json:"name" validate:"required"`
}

// NewCategory validates and returns a Category.
func NewCategory(id int, name string) (*Category, error) {
	c := &Category{ID: id, Name: trim(name)}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("%w: category: %v", ErrInvalidField, err)
	}
	return c, nil
}
