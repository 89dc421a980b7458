package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/product"
)

type productResponse struct {
	ID       string          `json:"id"`
	Barcode  string          `json:"barcode"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category,omitempty"`
	Brand    string          `json:"brand,omitempty"`
}

// ListProducts returns the full product catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// GetProduct returns a single product by barcode.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	barcode := r.PathValue("barcode")

	p, err := h.products.GetByBarcode(r.Context(), barcode)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "product not found: "+barcode)
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toProductResponse(*p))
}

func toProductResponse(p product.Product) productResponse {
	return productResponse{
		ID:       p.ID,
		Barcode:  p.Barcode,
		Name:     p.Name,
		Price:    p.Price,
		Category: p.Category,
		Brand:    p.Brand,
	}
}
