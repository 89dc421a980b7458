package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
)

type ruleResponse struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Category           string          `json:"category"`
	ValueType          string          `json:"value_type"`
	Params             json.RawMessage `json:"params"`
	Method             string          `json:"method"`
	ProductIDs         []string        `json:"product_ids,omitempty"`
	Categories         []string        `json:"categories,omitempty"`
	Brands             []string        `json:"brands,omitempty"`
	PaymentMethods     []string        `json:"payment_methods,omitempty"`
	RequiresQR         bool            `json:"requires_qr,omitempty"`
	MinPurchaseAmount  decimal.Decimal `json:"min_purchase_amount"`
	MinQuantity        int             `json:"min_quantity,omitempty"`
	MaxDiscount        decimal.Decimal `json:"max_discount"`
	ExcludeCategories  []string        `json:"exclude_categories,omitempty"`
	ExcludeRuleIDs     []string        `json:"exclude_rule_ids,omitempty"`
	RequiresRuleID     string          `json:"requires_rule_id,omitempty"`
	OriginalPriceBased bool            `json:"original_price_based,omitempty"`
	ValidFrom          *time.Time      `json:"valid_from,omitempty"`
	ValidTo            *time.Time      `json:"valid_to,omitempty"`
	Active             bool            `json:"active"`
	Priority           int             `json:"priority,omitempty"`
}

// ListRules returns every active discount rule.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.ListActive(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	resp := make([]ruleResponse, 0, len(rules))
	for i := range rules {
		rr, err := toRuleResponse(&rules[i])
		if err != nil {
			respondInternal(w, r, err)
			return
		}
		resp = append(resp, rr)
	}
	respondJSON(w, r, http.StatusOK, resp)
}

// GetRule returns a single discount rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rule, err := h.rules.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, discount.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "rule not found: "+id)
			return
		}
		respondInternal(w, r, err)
		return
	}

	resp, err := toRuleResponse(rule)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, resp)
}

func toRuleResponse(rule *discount.Rule) (ruleResponse, error) {
	params, err := discount.MarshalParams(rule.Formula)
	if err != nil {
		return ruleResponse{}, errors.Wrapf(err, "encoding params for rule %s", rule.ID)
	}

	excludeCategories := make([]string, len(rule.ExcludeCategories))
	for i, c := range rule.ExcludeCategories {
		excludeCategories[i] = string(c)
	}

	return ruleResponse{
		ID:                 rule.ID,
		Name:               rule.Name,
		Category:           string(rule.Category),
		ValueType:          string(rule.Formula.ValueType()),
		Params:             params,
		Method:             string(rule.Method),
		ProductIDs:         rule.ProductIDs,
		Categories:         rule.Categories,
		Brands:             rule.Brands,
		PaymentMethods:     rule.PaymentMethods,
		RequiresQR:         rule.RequiresQR,
		MinPurchaseAmount:  rule.MinPurchaseAmount,
		MinQuantity:        rule.MinQuantity,
		MaxDiscount:        rule.MaxDiscount,
		ExcludeCategories:  excludeCategories,
		ExcludeRuleIDs:     rule.ExcludeRuleIDs,
		RequiresRuleID:     rule.RequiresRuleID,
		OriginalPriceBased: rule.OriginalPriceBased,
		ValidFrom:          rule.ValidFrom,
		ValidTo:            rule.ValidTo,
		Active:             rule.Active,
		Priority:           rule.Priority,
	}, nil
}
