package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/cart"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func intPtr(i int) *int { return &i }

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func activeRule(id string, category discount.Category) discount.Rule {
	return discount.Rule{
		ID:       id,
		Name:     id,
		Category: category,
		Formula:  discount.Percentage{Percent: d("10")},
		Method:   discount.MethodCartTotal,
		Active:   true,
	}
}

func TestCheck(t *testing.T) {
	past := testNow.Add(-24 * time.Hour)
	future := testNow.Add(24 * time.Hour)

	basePreset := &preset.Preset{
		ID:             "pr1",
		PaymentMethods: []string{"kb_card"},
		QRPayment:      false,
	}

	tests := []struct {
		name         string
		rule         func() discount.Rule
		preset       *preset.Preset
		ctx          Context
		wantEligible bool
		wantReason   string
	}{
		{
			name: "inactive rule",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryCoupon)
				r.Active = false
				return r
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow},
			wantReason: "not active",
		},
		{
			name: "expired rule",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryCoupon)
				r.ValidTo = &past
				return r
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow},
			wantReason: "validity window",
		},
		{
			name: "not yet valid rule",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryCoupon)
				r.ValidFrom = &future
				return r
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow},
			wantReason: "validity window",
		},
		{
			name: "missing payment method",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryPaymentInstant)
				r.PaymentMethods = []string{"naver_pay"}
				return r
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow},
			wantReason: "payment method",
		},
		{
			name: "owned payment method passes",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryPaymentInstant)
				r.PaymentMethods = []string{"naver_pay", "kb_card"}
				return r
			},
			preset:       basePreset,
			ctx:          Context{Now: testNow},
			wantEligible: true,
		},
		{
			name: "payment event requiring QR capability",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryPaymentEvent)
				r.RequiresQR = true
				return r
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow},
			wantReason: "QR payment",
		},
		{
			name: "telecom benefit without subscription",
			rule: func() discount.Rule {
				return activeRule("telecom-10", discount.CategoryTelecom)
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow},
			wantReason: "no subscription",
		},
		{
			name: "telecom benefit with exhausted subscription",
			rule: func() discount.Rule {
				return activeRule("telecom-10", discount.CategoryTelecom)
			},
			preset: &preset.Preset{
				Subscriptions: []preset.Subscription{
					{RuleID: "telecom-10", Active: true, DailyRemain: intPtr(0)},
				},
			},
			ctx:        Context{Now: testNow},
			wantReason: "exhausted",
		},
		{
			name: "telecom benefit with usable subscription",
			rule: func() discount.Rule {
				return activeRule("telecom-10", discount.CategoryTelecom)
			},
			preset: &preset.Preset{
				Subscriptions: []preset.Subscription{
					{RuleID: "telecom-10", Active: true, DailyRemain: intPtr(3)},
				},
			},
			ctx:          Context{Now: testNow},
			wantEligible: true,
		},
		{
			name: "rule requiring another rule's subscription",
			rule: func() discount.Rule {
				r := activeRule("bonus", discount.CategoryCoupon)
				r.RequiresRuleID = "telecom-10"
				return r
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow},
			wantReason: "required discount telecom-10",
		},
		{
			name: "item outside scope",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryCoupon)
				r.Categories = []string{"도시락"}
				return r
			},
			preset: basePreset,
			ctx: Context{
				Now:  testNow,
				Item: &cart.Item{Barcode: "880001", Category: "음료"},
			},
			wantReason: "scope",
		},
		{
			name: "minimum purchase amount not met",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryCoupon)
				r.MinPurchaseAmount = d("10000")
				return r
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow, TotalAmount: d("5000")},
			wantReason: "minimum purchase",
		},
		{
			name: "minimum quantity not met",
			rule: func() discount.Rule {
				r := activeRule("r1", discount.CategoryCoupon)
				r.MinQuantity = 3
				return r
			},
			preset:     basePreset,
			ctx:        Context{Now: testNow, TotalAmount: d("5000"), TotalQuantity: 2},
			wantReason: "minimum quantity",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule()
			got := Check(&rule, tt.preset, tt.ctx)

			assert.Equal(t, tt.wantEligible, got.Eligible)
			if tt.wantReason != "" {
				assert.Contains(t, got.Reason, tt.wantReason)
			}
		})
	}
}

func TestFilterEligible(t *testing.T) {
	open := activeRule("open", discount.CategoryCoupon)
	gated := activeRule("gated", discount.CategoryPaymentInstant)
	gated.PaymentMethods = []string{"naver_pay"}
	inactive := activeRule("off", discount.CategoryCoupon)
	inactive.Active = false

	got := FilterEligible(
		[]discount.Rule{open, gated, inactive},
		&preset.Preset{PaymentMethods: []string{"kb_card"}},
		Context{Now: testNow},
	)

	assert.Len(t, got, 1)
	assert.Equal(t, "open", got[0].ID)
}
