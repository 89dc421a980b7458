package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/cart"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
)

// Context carries the cart aggregates and reference time an eligibility check
// runs against. Item is optional; when set, the rule's scope is checked
// against that specific line.
type Context struct {
	TotalAmount   decimal.Decimal
	TotalQuantity int
	Item          *cart.Item
	Now           time.Time
}

// ContextFor builds a Context from the cart items and reference time.
func ContextFor(items []cart.Item, now time.Time) Context {
	return Context{
		TotalAmount:   cart.Subtotal(items),
		TotalQuantity: cart.TotalQuantity(items),
		Now:           now,
	}
}

// Eligibility is the typed outcome of an eligibility check. Ineligibility is
// not an error: the reason is kept for display and search-space pruning.
type Eligibility struct {
	Eligible bool
	Reason   string
}

func ineligible(format string, args ...any) Eligibility {
	return Eligibility{Reason: fmt.Sprintf(format, args...)}
}

// Check decides whether a rule can apply for the given preset and cart
// context. Checks short-circuit on the first failure, in a fixed order:
// activity and validity window, required payment methods, QR capability,
// subscription backing (own or via the required rule), scope, and purchase
// minimums.
func Check(rule *discount.Rule, p *preset.Preset, ctx Context) Eligibility {
	if !rule.Active {
		return ineligible("rule %s is not active", rule.ID)
	}
	if !rule.ValidAt(ctx.Now) {
		return ineligible("rule %s is outside its validity window", rule.ID)
	}

	if !p.HasPaymentMethod(rule.PaymentMethods) {
		return ineligible("requires one of payment methods %v", rule.PaymentMethods)
	}

	if rule.Category == discount.CategoryPaymentEvent && rule.RequiresQR && !p.QRPayment {
		return ineligible("rule %s requires QR payment capability", rule.ID)
	}

	if rule.SubscriptionBacked() {
		if r := checkSubscription(p, rule.ID, ctx.Now); r != "" {
			return Eligibility{Reason: r}
		}
	} else if rule.RequiresRuleID != "" {
		if r := checkSubscription(p, rule.RequiresRuleID, ctx.Now); r != "" {
			return ineligible("required discount %s: %s", rule.RequiresRuleID, r)
		}
	}

	if ctx.Item != nil && !rule.AppliesTo(*ctx.Item) {
		return ineligible("item %s is outside the rule's scope", ctx.Item.Barcode)
	}

	if rule.MinPurchaseAmount.IsPositive() && ctx.TotalAmount.LessThan(rule.MinPurchaseAmount) {
		return ineligible("minimum purchase amount %s not met", rule.MinPurchaseAmount)
	}
	if rule.MinQuantity > 0 && ctx.TotalQuantity < rule.MinQuantity {
		return ineligible("minimum quantity %d not met", rule.MinQuantity)
	}

	return Eligibility{Eligible: true}
}

// checkSubscription verifies that the preset carries a usable subscription for
// the given rule ID. Returns an empty string when satisfied.
func checkSubscription(p *preset.Preset, ruleID string, now time.Time) string {
	sub := p.Subscription(ruleID)
	if sub == nil {
		return fmt.Sprintf("no subscription for rule %s", ruleID)
	}
	if !sub.Usable(now) {
		return fmt.Sprintf("subscription for rule %s is inactive, expired, or exhausted", ruleID)
	}
	return ""
}

// FilterEligible applies Check to every rule and keeps only the admitted
// ones. This is the sole gate before combination search: ineligible rules
// never enter the combinatorial space.
func FilterEligible(rules []discount.Rule, p *preset.Preset, ctx Context) []discount.Rule {
	eligible := make([]discount.Rule, 0, len(rules))
	for i := range rules {
		if Check(&rules[i], p, ctx).Eligible {
			eligible = append(eligible, rules[i])
		}
	}
	return eligible
}
