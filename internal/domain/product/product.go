package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item, keyed by its barcode at the till. Price is KRW.
type Product struct {
	ID       string
	Barcode  string
	Name     string
	Price    decimal.Decimal
	Category string
	Brand    string
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByBarcode(ctx context.Context, barcode string) (*Product, error)
	GetByBarcodes(ctx context.Context, barcodes []string) ([]Product, error)
}
