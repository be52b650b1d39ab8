package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

const (
	CategoryStarter = "starter"
	CategoryMain    = "main"
	CategoryDessert = "dessert"
	CategoryDrink   = "drink"
)

// Item is a catalog entry as captured on an order. It is treated as a value:
// orders hold copies, never shared pointers.
type Item struct {
	ID           int64
	Name         string
	Category     string
	Price        decimal.Decimal
	DailySpecial bool
}

// NewItem validates the catalog fields. The id stays 0 until a store assigns one.
func NewItem(name, category string, price decimal.Decimal, dailySpecial bool) (Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Item{}, &ValidationError{Field: "name", Reason: "must not be blank"}
	}
	if price.IsNegative() {
		return Item{}, &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	return Item{Name: name, Category: strings.TrimSpace(category), Price: price, DailySpecial: dailySpecial}, nil
}

// SetID assigns the store id. A positive id can never be replaced by a different one.
func (i *Item) SetID(id int64) error {
	if id <= 0 {
		return &ValidationError{Field: "id", Reason: "must be positive"}
	}
	if i.ID > 0 && i.ID != id {
		return &ValidationError{Field: "id", Reason: "already assigned"}
	}
	i.ID = id
	return nil
}

// Equal compares by id once both sides have one, else by name, category and price.
func (i Item) Equal(o Item) bool {
	if i.ID > 0 && o.ID > 0 {
		return i.ID == o.ID
	}
	return i.Name == o.Name && i.Category == o.Category && i.Price.Equal(o.Price)
}

// SumPrices returns the total of the given items.
func SumPrices(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price)
	}
	return total
}
