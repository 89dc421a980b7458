package cart

import "github.com/shopspring/decimal"

// Item represents a single scanned line in the cart. Prices are in KRW.
type Item struct {
	ProductID string
	Barcode   string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	Category  string
	Brand     string
}

// LineTotal returns unit price multiplied by quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Subtotal returns the sum of line totals across all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.LineTotal())
	}
	return sum
}

// TotalQuantity returns the sum of quantities across all items.
func TotalQuantity(items []Item) int {
	total := 0
	for _, item := range items {
		total += item.Quantity
	}
	return total
}
