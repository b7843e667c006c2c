package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate checks struct tags for every entity constructor. A single
// instance is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Allergen is a tri-state flag carried by products whose source data
// distinguishes "not recorded" from an explicit yes or no.
type Allergen int8

const (
	AllergenUnknown Allergen = iota
	AllergenFalse
	AllergenTrue
)

func (a Allergen) String() string {
	switch a {
	case AllergenTrue:
		return "TRUE"
	case AllergenFalse:
		return "FALSE"
	default:
		return "Unknown"
	}
}

// ParseAllergen converts the raw column value to an Allergen. Empty
// strings and "Unknown" both map to AllergenUnknown; anything other
// than TRUE/FALSE/Unknown (case-insensitive) is rejected.
func ParseAllergen(s string) (Allergen, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE":
		return AllergenTrue, nil
	case "FALSE":
		return AllergenFalse, nil
	case "UNKNOWN", "":
		return AllergenUnknown, nil
	}
	return AllergenUnknown, fmt.Errorf("%w: allergen value %q, want TRUE, FALSE or Unknown", ErrInvalidField, s)
}

// ParseModifyTime converts a product modification timestamp in
// "MM:SS" or "MM:SS.f" form to an offset from the start of the hour.
// Minutes and seconds must each be in [0, 59]; the fractional part is
// truncated to microsecond precision.
func ParseModifyTime(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: modify time %q, want MM:SS or MM:SS.f", ErrInvalidField, s)
	}

	minutes, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("%w: modify time %q: %v", ErrInvalidField, s, err)
	}

	secPart, fracPart, hasFrac := strings.Cut(parts[1], ".")
	seconds, err := strconv.Atoi(secPart)
	if err != nil {
		return 0, fmt.Errorf("%w: modify time %q: %v", ErrInvalidField, s, err)
	}
	if minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("%w: modify time %q out of range", ErrInvalidField, s)
	}

	var micros int
	if hasFrac && fracPart != "" {
		padded := fracPart + strings.Repeat("0", 6)
		micros, err = strconv.Atoi(padded[:6])
		if err != nil {
			return 0, fmt.Errorf("%w: modify time %q: %v", ErrInvalidField, s, err)
		}
	}

	return time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(micros)*time.Microsecond, nil
}
