package pricing

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/cart"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
)

var hundred = decimal.NewFromInt(100)

// CalculationError reports that scoring one rule combination failed, naming
// the rule whose data could not be applied. The optimizer skips the affected
// combination; it never aborts the whole search.
type CalculationError struct {
	RuleID string
	Err    error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculate rule %s: %v", e.RuleID, e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }

// Step records one applied discount in the breakdown: the amount it removed
// and the base it was computed from. OriginalPriceBased marks steps whose
// base was the pre-discount subtotal instead of the running amount.
type Step struct {
	RuleID             string
	RuleName           string
	Category           discount.Category
	Amount             decimal.Decimal
	Base               decimal.Decimal
	OriginalPriceBased bool
}

// Result is the outcome of applying one ordered, conflict-free rule set to a
// cart. Amounts are KRW; DiscountRate is a percentage rounded to 2 places.
type Result struct {
	OriginalPrice decimal.Decimal
	FinalPrice    decimal.Decimal
	TotalDiscount decimal.Decimal
	DiscountRate  decimal.Decimal
	Warnings      []string
	Steps         []Step
}

// Calculate applies the rule set to the cart in two phases: per-item rules
// first (price-descending consumption against subscription allowances), then
// cart-level rules stacking sequentially on the running amount in
// category-rank order. Rules that match nothing contribute zero and a
// warning; malformed rule data yields a CalculationError.
func Calculate(items []cart.Item, rules []discount.Rule, p *preset.Preset, now time.Time) (*Result, error) {
	ordered := orderRules(rules)
	original := cart.Subtotal(items)

	res := &Result{
		OriginalPrice: original,
		FinalPrice:    original,
	}

	// Per-item phase.
	running := original
	for i := range ordered {
		rule := &ordered[i]
		if rule.Method != discount.MethodPerItem {
			continue
		}
		amount, err := applyPerItem(rule, items, p, now, res)
		if err != nil {
			return nil, &CalculationError{RuleID: rule.ID, Err: err}
		}
		running = floorAtZero(running.Sub(amount))
	}

	// Cart-total phase: each rule operates on the running amount left by the
	// previous one, except original-price-based rules.
	for i := range ordered {
		rule := &ordered[i]
		if rule.Method == discount.MethodPerItem {
			continue
		}
		next, err := applyCartLevel(rule, items, running, original, res)
		if err != nil {
			return nil, &CalculationError{RuleID: rule.ID, Err: err}
		}
		running = next
	}

	res.FinalPrice = running
	res.TotalDiscount = original.Sub(running)
	if original.IsPositive() {
		res.DiscountRate = res.TotalDiscount.Div(original).Mul(hundred).Round(2)
	}
	return res, nil
}

// orderRules returns the rules sorted into application order: category rank
// ascending, then priority descending within a category, then ID for full
// determinism.
func orderRules(rules []discount.Rule) []discount.Rule {
	ordered := make([]discount.Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		ri, rj := ordered[i].Category.Rank(), ordered[j].Category.Rank()
		if ri != rj {
			return ri < rj
		}
		if ordered[i].Priority != ordered[j].Priority {
			return ordered[i].Priority > ordered[j].Priority
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// applyPerItem walks the rule's matching items in unit-price-descending order,
// consuming quantity against the subscription allowance, and returns the
// total discount. The highest-value eligible units benefit first, which
// matters when the allowance caps how many units can.
func applyPerItem(rule *discount.Rule, items []cart.Item, p *preset.Preset, now time.Time, res *Result) (decimal.Decimal, error) {
	matched := rule.MatchingItems(items)
	if len(matched) == 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("rule %s (%s) matched no cart item targeting %s", rule.ID, rule.Name, scopeOf(rule)))
		return decimal.Zero, nil
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if !matched[i].UnitPrice.Equal(matched[j].UnitPrice) {
			return matched[i].UnitPrice.GreaterThan(matched[j].UnitPrice)
		}
		return matched[i].Barcode < matched[j].Barcode
	})

	remaining, limited := unlimitedAllowance()
	if sub := p.Subscription(rule.ID); sub != nil {
		if !sub.Usable(now) {
			remaining, limited = 0, true
		} else {
			remaining, limited = sub.Allowance()
		}
	}

	total := decimal.Zero
	base := decimal.Zero
	for _, item := range matched {
		base = base.Add(item.LineTotal())
		if limited && remaining <= 0 {
			continue
		}

		units, perUnit, err := perUnitDiscount(rule.Formula, item)
		if err != nil {
			return decimal.Zero, err
		}
		if limited && units > remaining {
			units = remaining
		}
		if units <= 0 {
			continue
		}

		total = total.Add(perUnit.Mul(decimal.NewFromInt(int64(units))))
		if limited {
			remaining -= units
		}
	}

	total = capDiscount(total, rule.MaxDiscount)
	res.Steps = append(res.Steps, Step{
		RuleID:   rule.ID,
		RuleName: rule.Name,
		Category: rule.Category,
		Amount:   total,
		Base:     base,
	})
	return total, nil
}

func unlimitedAllowance() (int, bool) { return 0, false }

// scopeOf names what the rule targets, for warning messages.
func scopeOf(r *discount.Rule) string {
	parts := make([]string, 0, 3)
	if len(r.ProductIDs) > 0 {
		parts = append(parts, "products "+strings.Join(r.ProductIDs, ", "))
	}
	if len(r.Categories) > 0 {
		parts = append(parts, "categories "+strings.Join(r.Categories, ", "))
	}
	if len(r.Brands) > 0 {
		parts = append(parts, "brands "+strings.Join(r.Brands, ", "))
	}
	if len(parts) == 0 {
		return "any item"
	}
	return strings.Join(parts, "; ")
}

// perUnitDiscount resolves how many units of the line receive a discount and
// how much each discounted unit saves. The dispatch is exhaustive over the
// formula variants; types with no per-unit meaning are malformed rule data.
func perUnitDiscount(f discount.Formula, item cart.Item) (units int, perUnit decimal.Decimal, err error) {
	switch v := f.(type) {
	case discount.Percentage:
		return item.Quantity, item.UnitPrice.Mul(v.Percent).Div(hundred).Floor(), nil
	case discount.UnitPrice:
		return item.Quantity, decimal.Min(v.Amount, item.UnitPrice), nil
	case discount.BuyNGetM:
		return v.FreeUnits(item.Quantity), item.UnitPrice, nil
	case discount.FixedAmount:
		// Flat amount once per matching line.
		return 1, decimal.Min(v.Amount, item.LineTotal()), nil
	case discount.TieredAmount, discount.VoucherAmount:
		return 0, decimal.Zero, errors.Errorf("value type %q cannot be applied per item", f.ValueType())
	default:
		return 0, decimal.Zero, errors.Errorf("unsupported value type: %q", f.ValueType())
	}
}

// applyCartLevel applies a cart-total rule to the running amount and returns
// the new running amount. Original-price-based rules compute from the
// pre-discount subtotal, but the deduction still comes off the running amount.
func applyCartLevel(rule *discount.Rule, items []cart.Item, running, original decimal.Decimal, res *Result) (decimal.Decimal, error) {
	scoped := len(rule.ProductIDs) > 0 || len(rule.Categories) > 0 || len(rule.Brands) > 0
	matched := rule.MatchingItems(items)
	if scoped && len(matched) == 0 {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("rule %s (%s) matched no cart item targeting %s", rule.ID, rule.Name, scopeOf(rule)))
		return running, nil
	}

	base := running
	if rule.OriginalPriceBased {
		base = original
	}

	var amount decimal.Decimal
	switch v := rule.Formula.(type) {
	case discount.Percentage:
		amount = base.Mul(v.Percent).Div(hundred).Floor()
	case discount.FixedAmount:
		if rule.MinPurchaseAmount.IsPositive() && base.LessThan(rule.MinPurchaseAmount) {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("rule %s (%s) minimum purchase amount not met after prior discounts", rule.ID, rule.Name))
			return running, nil
		}
		amount = v.Amount
	case discount.TieredAmount:
		if !v.Unit.IsPositive() {
			return running, errors.Errorf("tiered rule has non-positive unit %s", v.Unit)
		}
		amount = base.Div(v.Unit).Floor().Mul(v.Amount)
	case discount.VoucherAmount:
		amount = v.Face
	case discount.BuyNGetM:
		amount = decimal.Zero
		for _, item := range matched {
			free := v.FreeUnits(item.Quantity)
			amount = amount.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(free))))
		}
	case discount.UnitPrice:
		amount = decimal.Zero
		for _, item := range matched {
			amount = amount.Add(decimal.Min(v.Amount, item.UnitPrice).
				Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	default:
		return running, errors.Errorf("unsupported value type: %q", rule.Formula.ValueType())
	}

	amount = capDiscount(amount, rule.MaxDiscount)
	// The deduction never drives the running amount below zero.
	amount = decimal.Min(amount, running)

	res.Steps = append(res.Steps, Step{
		RuleID:             rule.ID,
		RuleName:           rule.Name,
		Category:           rule.Category,
		Amount:             amount,
		Base:               base,
		OriginalPriceBased: rule.OriginalPriceBased,
	})
	return running.Sub(amount), nil
}

// capDiscount clamps the discount to the rule's cap when one is set, and
// never returns a negative amount.
func capDiscount(amount, maxDiscount decimal.Decimal) decimal.Decimal {
	if maxDiscount.IsPositive() && amount.GreaterThan(maxDiscount) {
		amount = maxDiscount
	}
	return floorAtZero(amount)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
