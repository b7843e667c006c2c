package model

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/observe"
	"github.com/gnavarrolema/sistema-de-analisis-de-ventas/table"
)

// Row is a single query result keyed by column name.
type Row = map[string]any

// Builder turns a raw row into a validated entity.
type Builder func(Row) (any, error)

// builders is the registry consulted by Factory.Build. Keys are the
// entity kinds accepted by Build and BuildAll.
var builders = map[string]Builder{
	"category": buildCategory,
	"city":     buildCity,
	"country":  buildCountry,
	"customer": buildCustomer,
	"employee": buildEmployee,
	"product":  buildProduct,
	"sale":     buildSale,
}

// Kinds returns the registered entity kinds in sorted order.
func Kinds() []string {
	kinds := make([]string, 0, len(builders))
	for k := range builders {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Factory builds entities from query rows and keeps a running count
// of successful builds. The zero value is not usable; call NewFactory.
type Factory struct {
	log   observe.Logger
	built atomic.Uint64
}

// NewFactory returns a Factory that logs through log. A nil logger is
// replaced with a no-op one.
func NewFactory(log observe.Logger) *Factory {
	if log == nil {
		log = observe.NopLogger()
	}
	return &Factory{log: log}
}

// Build constructs a single entity of the given kind from row.
func (f *Factory) Build(ctx context.Context, kind string, row Row) (any, error) {
	build, ok := builders[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q (have %v)", ErrUnknownKind, kind, Kinds())
	}
	entity, err := build(row)
	if err != nil {
		f.log.Warn(ctx, "entity build failed",
			observe.Field{Key: "kind", Value: kind},
			observe.Field{Key: "error", Value: err.Error()})
		return nil, err
	}
	f.built.Add(1)
	return entity, nil
}

// BuildAll constructs one entity per row of res. It fails on the
// first bad row, reporting its index.
func (f *Factory) BuildAll(ctx context.Context, kind string, res *table.Result) ([]any, error) {
	if res == nil {
		return nil, nil
	}
	entities := make([]any, 0, res.RowCount())
	for i := 0; i < res.RowCount(); i++ {
		entity, err := f.Build(ctx, kind, res.Row(i))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		entities = append(entities, entity)
	}
	f.log.Debug(ctx, "entities built",
		observe.Field{Key: "kind", Value: kind},
		observe.Field{Key: "count", Value: len(entities)})
	return entities, nil
}

// Built reports how many entities this factory has produced.
func (f *Factory) Built() uint64 { return f.built.Load() }

func buildCategory(row Row) (any, error) {
	id, err := intField(row, "id")
	if err != nil {
		return nil, err
	}
	name, err := stringField(row, "name")
	if err != nil {
		return nil, err
	}
	return NewCategory(id, name)
}

func buildCountry(row Row) (any, error) {
	id, err := intField(row, "id")
	if err != nil {
		return nil, err
	}
	name, err := stringField(row, "name")
	if err != nil {
		return nil, err
	}
	return NewCountry(id, name, optString(row, "code"))
}

func buildCity(row Row) (any, error) {
	id, err := intField(row, "id")
	if err != nil {
		return nil, err
	}
	name, err := stringField(row, "name")
	if err != nil {
		return nil, err
	}
	countryID, err := intField(row, "country_id")
	if err != nil {
		return nil, err
	}
	return NewCity(id, name, countryID, optString(row, "postal_code"))
}

func buildCustomer(row Row) (any, error) {
	id, err := intField(row, "id")
	if err != nil {
		return nil, err
	}
	first, err := stringField(row, "first_name")
	if err != nil {
		return nil, err
	}
	last, err := stringField(row, "last_name")
	if err != nil {
		return nil, err
	}
	cityID, err := intField(row, "city_id")
	if err != nil {
		return nil, err
	}
	return NewCustomer(id, first, optString(row, "middle_initial"), last, optString(row, "address"), cityID)
}

func buildEmployee(row Row) (any, error) {
	id, err := intField(row, "id")
	if err != nil {
		return nil, err
	}
	first, err := stringField(row, "first_name")
	if err != nil {
		return nil, err
	}
	last, err := stringField(row, "last_name")
	if err != nil {
		return nil, err
	}
	cityID, err := intField(row, "city_id")
	if err != nil {
		return nil, err
	}
	birth, err := optTime(row, "birth_date")
	if err != nil {
		return nil, err
	}
	hire, err := optTime(row, "hire_date")
	if err != nil {
		return nil, err
	}
	return NewEmployee(id, first, optString(row, "middle_initial"), last, birth, optString(row, "gender"), cityID, hire)
}

func buildProduct(row Row) (any, error) {
	id, err := intField(row, "id")
	if err != nil {
		return nil, err
	}
	name, err := stringField(row, "name")
	if err != nil {
		return nil, err
	}
	price, err := decimalField(row, "price")
	if err != nil {
		return nil, err
	}
	categoryID, err := intField(row, "category_id")
	if err != nil {
		return nil, err
	}
	modify, err := optModifyTime(row, "modify_time")
	if err != nil {
		return nil, err
	}
	allergenic, err := ParseAllergen(optString(row, "allergenic"))
	if err != nil {
		return nil, err
	}
	vitality, err := optInt(row, "vitality_days")
	if err != nil {
		return nil, err
	}
	return NewProduct(id, name, price, categoryID, optString(row, "class"), modify, optString(row, "resistant"), allergenic, vitality)
}

func buildSale(row Row) (any, error) {
	id, err := intField(row, "id")
	if err != nil {
		return nil, err
	}
	productID, err := intField(row, "product_id")
	if err != nil {
		return nil, err
	}
	customerID, err := intField(row, "customer_id")
	if err != nil {
		return nil, err
	}
	quantity, err := intField(row, "quantity")
	if err != nil {
		return nil, err
	}
	total, err := decimalField(row, "total_price")
	if err != nil {
		return nil, err
	}
	salespersonID, err := optInt(row, "salesperson_id")
	if err != nil {
		return nil, err
	}
	discount, err := optDecimal(row, "discount")
	if err != nil {
		return nil, err
	}
	saleTime, err := optModifyTime(row, "sale_time")
	if err != nil {
		return nil, err
	}
	return NewSale(id, productID, customerID, quantity, total, salespersonID, discount, saleTime, optString(row, "transaction_number"))
}

// Field accessors tolerate the value types seen both from the driver
// (int64, time.Time) and from cached rows that round-tripped through
// JSON (float64, strings).

func intField(row Row, key string) (int, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	return coerceInt(key, v)
}

func optInt(row Row, key string) (int, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, nil
	}
	return coerceInt(key, v)
}

func coerceInt(key string, v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: %q value %v is not an integer", ErrInvalidField, key, n)
		}
		return int(n), nil
	}
	return 0, fmt.Errorf("%w: %q has type %T, want integer", ErrInvalidField, key, v)
}

func stringField(row Row, key string) (string, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return "", fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q has type %T, want string", ErrInvalidField, key, v)
	}
	return s, nil
}

func optString(row Row, key string) string {
	if s, ok := row[key].(string); ok {
		return s
	}
	return ""
}

func decimalField(row Row, key string) (decimal.Decimal, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrMissingField, key)
	}
	return coerceDecimal(key, v)
}

func optDecimal(row Row, key string) (decimal.Decimal, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return decimal.Zero, nil
	}
	return coerceDecimal(key, v)
}

func coerceDecimal(key string, v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case string:
		d, err := decimal.NewFromString(n)
		if err != nil {
			return decimal.Zero, fmt.Errorf("%w: %q: %v", ErrInvalidField, key, err)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	}
	return decimal.Zero, fmt.Errorf("%w: %q has type %T, want numeric", ErrInvalidField, key, v)
}

func optTime(row Row, key string) (time.Time, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse("2006-01-02", t)
		if err != nil {
			parsed, err = time.Parse(time.RFC3339, t)
		}
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidField, key, err)
		}
		return parsed, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q has type %T, want date", ErrInvalidField, key, v)
}

func optModifyTime(row Row, key string) (time.Duration, error) {
	v, ok := row[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch t := v.(type) {
	case time.Duration:
		return t, nil
	case string:
		if t == "" {
			return 0, nil
		}
		return ParseModifyTime(t)
	case float64:
		return time.Duration(t), nil
	case int64:
		return time.Duration(t), nil
	}
	return 0, fmt.Errorf("%w: %q has type %T, want duration", ErrInvalidField, key, v)
}
