package model

import (
	"fmt"
	"strings"
	"time"
)

// Customer is a buyer registered in the sales system.
type Customer struct {
	ID            int    `json:"id" validate:"gt=0"`
	FirstName     string `json:"first_name" validate:"required"`
	MiddleInitial string `json:"middle_initial,omitempty" validate:"max=1"`
	LastName      string `json:"last_name" validate:"required"`
	Address       string `json:"address,omitempty"`
	CityID        int    `json:"city_id" validate:"gt=0"`
}

// NewCustomer validates and returns a Customer. MiddleInitial is
// upper-cased and limited to a single character.
func NewCustomer(id int, firstName, middleInitial, lastName, address string, cityID int) (*Customer, error) {
	c := &Customer{
		ID:            id,
		FirstName:     trim(firstName),
		MiddleInitial: strings.ToUpper(trim(middleInitial)),
		LastName:      trim(lastName),
		Address:       trim(address),
		CityID:        cityID,
	}
	if err := validate.Struct(c); err != nil {
		return nil, fmt.Errorf("%w: customer: %v", ErrInvalidField, err)
	}
	return c, nil
}

// FullName joins the name parts, skipping the middle initial when it
// is not recorded.
func (c *Customer) FullName() string {
	if c.MiddleInitial == "" {
		return c.FirstName + " " + c.LastName
	}
	return c.FirstName + " " + c.MiddleInitial + ". " + c.LastName
}

// Employee is a member of the sales staff.
type Employee struct {
	ID            int       `json:"id" validate:"gt=0"`
	FirstName     string    `json:"first_name" validate:"required"`
	MiddleInitial string    `json:"middle_initial,omitempty" validate:"max=1"`
	LastName      string    `json:"last_name" validate:"required"`
	BirthDate     time.Time `json:"birth_date,omitzero"`
	Gender        string    `json:"gender,omitempty" validate:"max=1"`
	CityID        int       `json:"city_id" validate:"gt=0"`
	HireDate      time.Time `json:"hire_date,omitzero"`
}

// NewEmployee validates and returns an Employee. A hire date before
// the birth date is rejected when both are set.
func NewEmployee(id int, firstName, middleInitial, lastName string, birthDate time.Time, gender string, cityID int, hireDate time.Time) (*Employee, error) {
	e := &Employee{
		ID:            id,
		FirstName:     trim(firstName),
		MiddleInitial: strings.ToUpper(trim(middleInitial)),
		LastName:      trim(lastName),
		BirthDate:     birthDate,
		Gender:        strings.ToUpper(trim(gender)),
		CityID:        cityID,
		HireDate:      hireDate,
	}
	if err := validate.Struct(e); err != nil {
		return nil, fmt.Errorf("%w: employee: %v", ErrInvalidField, err)
	}
	if !e.BirthDate.IsZero() && !e.HireDate.IsZero() && e.HireDate.Before(e.BirthDate) {
		return nil, fmt.Errorf("%w: employee: hire date precedes birth date", ErrInvalidField)
	}
	return e, nil
}

func trim(s string) string { return strings.TrimSpace(s) }
