// Package handler implements the HTTP API of the discount optimizer service.
package handler

import (
	"net/http"
	"time"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/pricing"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/product"
)

// OptimizerLimits bounds the combination search for every request. Request
// options may lower these but never raise them. Zero fields fall back to the
// search defaults.
type OptimizerLimits struct {
	MaxCombinations int
	MaxAlternatives int
}

// Handler serves the API endpoints, delegating pricing decisions to the
// optimizer and persistence to the repositories.
type Handler struct {
	products  product.Repository
	rules     discount.Repository
	presets   preset.Repository
	optimizer *pricing.Optimizer
	limits    OptimizerLimits

	// now is replaceable in tests.
	now func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	rules discount.Repository,
	presets preset.Repository,
	optimizer *pricing.Optimizer,
	limits OptimizerLimits,
) *Handler {
	return &Handler{
		products:  products,
		rules:     rules,
		presets:   presets,
		optimizer: optimizer,
		limits:    limits,
		now:       time.Now,
	}
}

// Routes registers all API endpoints on mux. Write endpoints are wrapped
// with the guard middleware; pass handler.NoAuth to disable authentication.
func (h *Handler) Routes(mux *http.ServeMux, guard func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/optimize", h.Optimize)
	mux.HandleFunc("POST /api/eligibility", h.Eligibility)

	mux.HandleFunc("GET /api/products", h.ListProducts)
	mux.HandleFunc("GET /api/products/{barcode}", h.GetProduct)

	mux.HandleFunc("GET /api/rules", h.ListRules)
	mux.HandleFunc("GET /api/rules/{id}", h.GetRule)

	mux.HandleFunc("GET /api/presets", h.ListPresets)
	mux.HandleFunc("GET /api/presets/{id}", h.GetPreset)
	mux.Handle("POST /api/presets", guard(http.HandlerFunc(h.CreatePreset)))
	mux.Handle("PUT /api/presets/{id}", guard(http.HandlerFunc(h.UpdatePreset)))
	mux.Handle("DELETE /api/presets/{id}", guard(http.HandlerFunc(h.DeletePreset)))
}

// NoAuth is a pass-through guard for Routes.
func NoAuth(next http.Handler) http.Handler { return next }
