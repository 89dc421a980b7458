package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/auth"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/pricing"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/product"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

type stubProducts struct {
	products []product.Product
}

func (s *stubProducts) List(context.Context) ([]product.Product, error) {
	return s.products, nil
}

func (s *stubProducts) GetByBarcode(_ context.Context, barcode string) (*product.Product, error) {
	for i := range s.products {
		if s.products[i].Barcode == barcode {
			return &s.products[i], nil
		}
	}
	return nil, product.ErrNotFound
}

func (s *stubProducts) GetByBarcodes(_ context.Context, barcodes []string) ([]product.Product, error) {
	var out []product.Product
	for _, b := range barcodes {
		for i := range s.products {
			if s.products[i].Barcode == b {
				out = append(out, s.products[i])
			}
		}
	}
	return out, nil
}

type stubRules struct {
	rules []discount.Rule
}

func (s *stubRules) ListActive(context.Context) ([]discount.Rule, error) {
	return s.rules, nil
}

func (s *stubRules) GetByID(_ context.Context, id string) (*discount.Rule, error) {
	for i := range s.rules {
		if s.rules[i].ID == id {
			return &s.rules[i], nil
		}
	}
	return nil, discount.ErrNotFound
}

type stubPresets struct {
	presets map[string]preset.Preset
}

func (s *stubPresets) List(context.Context) ([]preset.Preset, error) {
	out := make([]preset.Preset, 0, len(s.presets))
	for _, p := range s.presets {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubPresets) GetByID(_ context.Context, id string) (*preset.Preset, error) {
	p, ok := s.presets[id]
	if !ok {
		return nil, preset.ErrNotFound
	}
	return &p, nil
}

func (s *stubPresets) Create(_ context.Context, p *preset.Preset) error {
	s.presets[p.ID] = *p
	return nil
}

func (s *stubPresets) Update(_ context.Context, p *preset.Preset) error {
	if _, ok := s.presets[p.ID]; !ok {
		return preset.ErrNotFound
	}
	s.presets[p.ID] = *p
	return nil
}

func (s *stubPresets) Delete(_ context.Context, id string) error {
	if _, ok := s.presets[id]; !ok {
		return preset.ErrNotFound
	}
	delete(s.presets, id)
	return nil
}

func testHandler(t *testing.T) *Handler {
	t.Helper()
	return testHandlerWithLimits(t, OptimizerLimits{})
}

func testHandlerWithLimits(t *testing.T, limits OptimizerLimits) *Handler {
	t.Helper()

	products := &stubProducts{products: []product.Product{
		{ID: "p1", Barcode: "8801234500011", Name: "참치마요 도시락", Price: d("4500"), Category: "도시락"},
		{ID: "p2", Barcode: "8801234500028", Name: "바나나우유", Price: d("1800"), Category: "음료"},
	}}
	rules := &stubRules{rules: []discount.Rule{
		{
			ID:       "coupon-500",
			Name:     "500원 할인 쿠폰",
			Category: discount.CategoryCoupon,
			Formula:  discount.FixedAmount{Amount: d("500")},
			Method:   discount.MethodCartTotal,
			Active:   true,
		},
		{
			ID:       "app-10pct",
			Name:     "앱 결제 10% 할인",
			Category: discount.CategoryPaymentEvent,
			Formula:  discount.Percentage{Percent: d("10")},
			Method:   discount.MethodCartTotal,
			Active:   true,
		},
	}}
	presets := &stubPresets{presets: map[string]preset.Preset{
		"pr-1": {ID: "pr-1", Name: "기본", PaymentMethods: []string{"card"}},
	}}

	h := NewHandler(products, rules, presets, pricing.NewOptimizer(zap.NewNop()), limits)
	h.now = func() time.Time { return testNow }
	return h
}

func serve(t *testing.T, h *Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	mux := http.NewServeMux()
	h.Routes(mux, NoAuth)

	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestOptimize_PicksBestCombination(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodPost, "/api/optimize", map[string]any{
		"items": []map[string]any{
			{"barcode": "8801234500011", "quantity": 2},
		},
		"preset_id": "pr-1",
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp optimizeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Optimal)

	// 9000 - 500 coupon = 8500, then -10% (850) = 7650.
	assert.Equal(t, []string{"coupon-500", "app-10pct"}, resp.Optimal.RuleIDs)
	assert.True(t, resp.Optimal.FinalPrice.Equal(d("7650")),
		"final price %s", resp.Optimal.FinalPrice)
	assert.True(t, resp.Optimal.TotalDiscount.Equal(d("1350")))
	assert.True(t, resp.Optimal.Optimal)
	assert.NotEmpty(t, resp.Alternatives)
}

func TestOptimize_UnknownBarcode(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodPost, "/api/optimize", map[string]any{
		"items": []map[string]any{
			{"barcode": "0000000000000", "quantity": 1},
		},
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "unknown barcode")
}

func TestOptimize_EmptyItems(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodPost, "/api/optimize", map[string]any{
		"items": []map[string]any{},
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptimize_PresetNotFound(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodPost, "/api/optimize", map[string]any{
		"items": []map[string]any{
			{"barcode": "8801234500011", "quantity": 1},
		},
		"preset_id": "missing",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOptimize_RequestCannotRaiseServerLimits(t *testing.T) {
	h := testHandlerWithLimits(t, OptimizerLimits{MaxCombinations: 2, MaxAlternatives: 1})

	w := serve(t, h, http.MethodPost, "/api/optimize", map[string]any{
		"items": []map[string]any{
			{"barcode": "8801234500011", "quantity": 2},
		},
		"options": map[string]any{
			"max_combinations": 1048576,
			"max_alternatives": 1000,
		},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp optimizeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Optimal)
	// With a 2-combination cap over 2 rules only the full set and one singleton
	// get scored, and only 1 alternative comes back regardless of the request.
	assert.Equal(t, []string{"coupon-500", "app-10pct"}, resp.Optimal.RuleIDs)
	assert.Len(t, resp.Alternatives, 1)
}

func TestOptimize_RequestCanLowerAlternatives(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodPost, "/api/optimize", map[string]any{
		"items": []map[string]any{
			{"barcode": "8801234500011", "quantity": 2},
		},
		"options": map[string]any{
			"max_alternatives": 1,
		},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp optimizeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Alternatives, 1)
}

func TestOptimize_MergesDuplicateBarcodes(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodPost, "/api/optimize", map[string]any{
		"items": []map[string]any{
			{"barcode": "8801234500028", "quantity": 1},
			{"barcode": "8801234500028", "quantity": 2},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp optimizeResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotNil(t, resp.Optimal)
	assert.True(t, resp.Optimal.OriginalPrice.Equal(d("5400")),
		"original price %s", resp.Optimal.OriginalPrice)
}

func TestEligibility_ReportsReasons(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodPost, "/api/eligibility", map[string]any{
		"items": []map[string]any{
			{"barcode": "8801234500011", "quantity": 1},
		},
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp eligibilityResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Rules, 2)
	for _, rule := range resp.Rules {
		assert.True(t, rule.Eligible, "rule %s: %s", rule.RuleID, rule.Reason)
	}
}

func TestGetProduct(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodGet, "/api/products/8801234500011", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp productResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "참치마요 도시락", resp.Name)

	w = serve(t, h, http.MethodGet, "/api/products/9999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetRule(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodGet, "/api/rules/coupon-500", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ruleResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "fixed_amount", resp.ValueType)
	assert.JSONEq(t, `{"amount":"500"}`, string(resp.Params))
}

func TestPresetCRUD(t *testing.T) {
	h := testHandler(t)

	w := serve(t, h, http.MethodPost, "/api/presets", map[string]any{
		"name":            "통신사 멤버십",
		"payment_methods": []string{"card", "mobile"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var created preset.Preset
	require.NoError(t, json.NewDecoder(w.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	w = serve(t, h, http.MethodGet, "/api/presets/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, h, http.MethodPut, "/api/presets/"+created.ID, map[string]any{
		"name": "통신사 멤버십 v2",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(t, h, http.MethodDelete, "/api/presets/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = serve(t, h, http.MethodGet, "/api/presets/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type stubKeys struct {
	byHash map[string]auth.APIKeyInfo
}

func (s *stubKeys) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	info, ok := s.byHash[hash]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &info, nil
}

func TestSecurityGuard(t *testing.T) {
	pepper := []byte("test-pepper")
	hash := HashKey(pepper, "valid-key")
	sec := NewSecurityHandler(&stubKeys{byHash: map[string]auth.APIKeyInfo{
		hash: {ID: "k1", KeyHash: hash, Name: "ops"},
	}}, pepper)

	protected := sec.Guard(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "missing key")

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "wrong key")

	req = httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-API-Key", "valid-key")
	w = httptest.NewRecorder()
	protected.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, "valid key")
}
