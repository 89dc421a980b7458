package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/cart"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/pricing"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/product"
)

type cartItemRequest struct {
	Barcode  string `json:"barcode"`
	Quantity int    `json:"quantity"`
}

type optimizeRequest struct {
	Items    []cartItemRequest `json:"items"`
	PresetID string            `json:"preset_id,omitempty"`
	Preset   *preset.Preset    `json:"preset,omitempty"`
	Options  *optionsRequest   `json:"options,omitempty"`
}

type optionsRequest struct {
	MaxCombinations     int   `json:"max_combinations,omitempty"`
	IncludeAlternatives *bool `json:"include_alternatives,omitempty"`
	MaxAlternatives     int   `json:"max_alternatives,omitempty"`
}

type stepResponse struct {
	RuleID             string          `json:"rule_id"`
	RuleName           string          `json:"rule_name"`
	Category           string          `json:"category"`
	Amount             decimal.Decimal `json:"amount"`
	Base               decimal.Decimal `json:"base"`
	OriginalPriceBased bool            `json:"original_price_based,omitempty"`
}

type combinationResponse struct {
	RuleIDs       []string        `json:"rule_ids"`
	OriginalPrice decimal.Decimal `json:"original_price"`
	FinalPrice    decimal.Decimal `json:"final_price"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	DiscountRate  decimal.Decimal `json:"discount_rate"`
	Optimal       bool            `json:"optimal"`
	Warnings      []string        `json:"warnings,omitempty"`
	Steps         []stepResponse  `json:"steps"`
}

type optimizeResponse struct {
	Optimal      *combinationResponse  `json:"optimal"`
	Alternatives []combinationResponse `json:"alternatives,omitempty"`
}

// Optimize resolves the cart against the product catalog, loads the active
// rule set, and runs the combination search for the caller's preset.
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Items) == 0 {
		respondError(w, r, http.StatusBadRequest, "items must not be empty")
		return
	}

	items, err := h.resolveItems(r, req.Items)
	if err != nil {
		var unknown *unknownBarcodeError
		if errors.As(err, &unknown) {
			respondError(w, r, http.StatusUnprocessableEntity, unknown.Error())
			return
		}
		respondInternal(w, r, err)
		return
	}

	p, ok := h.resolvePreset(w, r, req.PresetID, req.Preset)
	if !ok {
		return
	}

	rules, err := h.rules.ListActive(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	outcome, err := h.optimizer.FindOptimal(items, rules, p, h.now(), h.searchOptions(req.Options))
	if err != nil {
		if errors.Is(err, pricing.ErrInvalidQuantity) || errors.Is(err, pricing.ErrNegativePrice) {
			respondError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondInternal(w, r, err)
		return
	}

	resp := optimizeResponse{
		Alternatives: make([]combinationResponse, len(outcome.Alternatives)),
	}
	if outcome.Optimal != nil {
		best := toCombinationResponse(*outcome.Optimal)
		resp.Optimal = &best
	}
	for i, alt := range outcome.Alternatives {
		resp.Alternatives[i] = toCombinationResponse(alt)
	}

	respondJSON(w, r, http.StatusOK, resp)
}

// searchOptions starts from the configured server-side limits and lets the
// request lower them. A request can never widen the search or the response
// beyond what the server allows.
func (h *Handler) searchOptions(o *optionsRequest) pricing.Options {
	opts := pricing.DefaultOptions()
	if h.limits.MaxCombinations > 0 {
		opts.MaxCombinations = h.limits.MaxCombinations
	}
	if h.limits.MaxAlternatives > 0 {
		opts.MaxAlternatives = h.limits.MaxAlternatives
	}
	if o == nil {
		return opts
	}
	if o.MaxCombinations > 0 && o.MaxCombinations < opts.MaxCombinations {
		opts.MaxCombinations = o.MaxCombinations
	}
	if o.IncludeAlternatives != nil {
		opts.IncludeAlternatives = *o.IncludeAlternatives
	}
	if o.MaxAlternatives > 0 && o.MaxAlternatives < opts.MaxAlternatives {
		opts.MaxAlternatives = o.MaxAlternatives
	}
	return opts
}

type unknownBarcodeError struct {
	barcode string
}

func (e *unknownBarcodeError) Error() string {
	return "unknown barcode " + e.barcode
}

// resolveItems looks up every barcode in the catalog and builds priced cart
// lines. Duplicate barcodes collapse into a single line with summed quantity.
func (h *Handler) resolveItems(r *http.Request, reqItems []cartItemRequest) ([]cart.Item, error) {
	barcodes := make([]string, 0, len(reqItems))
	for _, it := range reqItems {
		barcodes = append(barcodes, it.Barcode)
	}

	products, err := h.products.GetByBarcodes(r.Context(), barcodes)
	if err != nil {
		return nil, err
	}
	byBarcode := make(map[string]product.Product, len(products))
	for _, p := range products {
		byBarcode[p.Barcode] = p
	}

	lines := make(map[string]int, len(reqItems))
	order := make([]string, 0, len(reqItems))
	for _, it := range reqItems {
		if _, seen := lines[it.Barcode]; !seen {
			order = append(order, it.Barcode)
		}
		lines[it.Barcode] += it.Quantity
	}

	items := make([]cart.Item, 0, len(order))
	for _, barcode := range order {
		p, ok := byBarcode[barcode]
		if !ok {
			return nil, &unknownBarcodeError{barcode: barcode}
		}
		items = append(items, cart.Item{
			ProductID: p.ID,
			Barcode:   p.Barcode,
			Name:      p.Name,
			UnitPrice: p.Price,
			Quantity:  lines[barcode],
			Category:  p.Category,
			Brand:     p.Brand,
		})
	}
	return items, nil
}

// resolvePreset returns the preset referenced by ID, the inline preset, or an
// empty one. It writes the error response itself when resolution fails.
func (h *Handler) resolvePreset(w http.ResponseWriter, r *http.Request, id string, inline *preset.Preset) (*preset.Preset, bool) {
	if id != "" {
		p, err := h.presets.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, preset.ErrNotFound) {
				respondError(w, r, http.StatusNotFound, "preset not found: "+id)
				return nil, false
			}
			respondInternal(w, r, err)
			return nil, false
		}
		return p, true
	}
	if inline != nil {
		return inline, true
	}
	return &preset.Preset{}, true
}

func toCombinationResponse(c pricing.Combination) combinationResponse {
	steps := make([]stepResponse, len(c.Steps))
	for i, s := range c.Steps {
		steps[i] = stepResponse{
			RuleID:             s.RuleID,
			RuleName:           s.RuleName,
			Category:           string(s.Category),
			Amount:             s.Amount,
			Base:               s.Base,
			OriginalPriceBased: s.OriginalPriceBased,
		}
	}
	return combinationResponse{
		RuleIDs:       c.RuleIDs,
		OriginalPrice: c.OriginalPrice,
		FinalPrice:    c.FinalPrice,
		TotalDiscount: c.TotalDiscount,
		DiscountRate:  c.DiscountRate,
		Optimal:       c.Optimal,
		Warnings:      c.Warnings,
		Steps:         steps,
	}
}
