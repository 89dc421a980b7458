package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, barcode, name, price, category, brand
		FROM products ORDER BY id`

	getProductByBarcodeSQL = `SELECT id, barcode, name, price, category, brand
		FROM products WHERE barcode = $1`

	getProductsByBarcodesSQL = `SELECT id, barcode, name, price, category, brand
		FROM products WHERE barcode = ANY($1)`

	upsertProductSQL = `INSERT INTO products (id, barcode, name, price, category, brand)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (barcode) DO UPDATE SET
			name = EXCLUDED.name,
			price = EXCLUDED.price,
			category = EXCLUDED.category,
			brand = EXCLUDED.brand`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByBarcode returns a single product by its barcode.
func (r *ProductRepository) GetByBarcode(ctx context.Context, barcode string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByBarcodeSQL, barcode)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", barcode, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", barcode, err)
	}
	return &p, nil
}

// GetByBarcodes returns products matching any of the given barcodes.
func (r *ProductRepository) GetByBarcodes(ctx context.Context, barcodes []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByBarcodesSQL, barcodes)
	if err != nil {
		return nil, fmt.Errorf("getting products by barcodes: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Upsert inserts or replaces a product. Used by the seed tool.
func (r *ProductRepository) Upsert(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, upsertProductSQL,
		p.ID, p.Barcode, p.Name, p.Price, p.Category, p.Brand,
	)
	if err != nil {
		return fmt.Errorf("upserting product %q: %w", p.Barcode, err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(&p.ID, &p.Barcode, &p.Name, &price, &p.Category, &p.Brand)
	p.Price = price
	return p, err
}
