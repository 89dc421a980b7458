package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/pricing"
)

type eligibilityRequest struct {
	Items    []cartItemRequest `json:"items"`
	PresetID string            `json:"preset_id,omitempty"`
	Preset   *preset.Preset    `json:"preset,omitempty"`
}

type ruleEligibilityResponse struct {
	RuleID   string `json:"rule_id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

type eligibilityResponse struct {
	Rules []ruleEligibilityResponse `json:"rules"`
}

// Eligibility reports, per active rule, whether it could apply to the given
// cart and preset, with the reason when it cannot. It runs the same checks
// as the optimizer without entering combination search.
func (h *Handler) Eligibility(w http.ResponseWriter, r *http.Request) {
	var req eligibilityRequest
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

	ctx := pricing.ContextFor(items, h.now())
	resp := eligibilityResponse{Rules: make([]ruleEligibilityResponse, len(rules))}
	for i := range rules {
		e := pricing.Check(&rules[i], p, ctx)
		resp.Rules[i] = ruleEligibilityResponse{
			RuleID:   rules[i].ID,
			Name:     rules[i].Name,
			Category: string(rules[i].Category),
			Eligible: e.Eligible,
			Reason:   e.Reason,
		}
	}

	respondJSON(w, r, http.StatusOK, resp)
}
