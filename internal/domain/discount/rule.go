package discount

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/cart"
)

// ErrNotFound is returned when a requested discount rule does not exist.
var ErrNotFound = errors.New("discount rule not found")

// Category classifies a discount rule. Categories have a fixed total order
// that determines the sequence in which rules stack during calculation.
type Category string

const (
	CategoryCoupon          Category = "coupon"
	CategoryTelecom         Category = "telecom"
	CategoryPaymentEvent    Category = "payment_event"
	CategoryVoucher         Category = "voucher"
	CategoryPaymentInstant  Category = "payment_instant"
	CategoryPaymentCompound Category = "payment_compound"
	CategoryPromotion       Category = "promotion"
)

// categoryRank fixes the stacking order across categories. Lower ranks apply
// earlier in the cart-total phase.
var categoryRank = map[Category]int{
	CategoryCoupon:          0,
	CategoryTelecom:         1,
	CategoryPaymentEvent:    2,
	CategoryVoucher:         3,
	CategoryPaymentInstant:  4,
	CategoryPaymentCompound: 5,
	CategoryPromotion:       6,
}

// Rank returns the category's position in the fixed stacking order.
// Unknown categories sort last.
func (c Category) Rank() int {
	if r, ok := categoryRank[c]; ok {
		return r
	}
	return len(categoryRank)
}

// Method selects how a rule's formula is applied to the cart.
type Method string

const (
	// MethodCartTotal applies the formula once to the whole eligible subtotal.
	MethodCartTotal Method = "cart_total"
	// MethodPerItem applies the formula independently to each matching line.
	MethodPerItem Method = "per_item"
)

// Rule is a declarative description of one way to reduce price: its formula,
// scope, preconditions, and combination constraints.
type Rule struct {
	ID       string
	Name     string
	Category Category
	Formula  Formula
	Method   Method

	// Scope allow-lists. An empty list means "applies to everything".
	ProductIDs []string
	Categories []string
	Brands     []string

	// Preconditions.
	PaymentMethods    []string
	RequiresQR        bool
	MinPurchaseAmount decimal.Decimal
	MinQuantity       int

	// MaxDiscount caps the computed discount when positive.
	MaxDiscount decimal.Decimal

	// Combination constraints. Exclusions may be declared on either side of a
	// pair; the conflict check is symmetric by construction.
	ExcludeCategories []Category
	ExcludeRuleIDs    []string
	RequiresRuleID    string

	// OriginalPriceBased marks rules whose base amount is the pre-discount
	// subtotal rather than the running post-discount amount.
	OriginalPriceBased bool

	ValidFrom *time.Time
	ValidTo   *time.Time
	Active    bool

	// Priority breaks ties between rules of the same category; higher applies
	// first.
	Priority int
}

// ValidAt reports whether the rule is active and inside its validity window.
func (r *Rule) ValidAt(now time.Time) bool {
	if !r.Active {
		return false
	}
	if r.ValidFrom != nil && now.Before(*r.ValidFrom) {
		return false
	}
	if r.ValidTo != nil && now.After(*r.ValidTo) {
		return false
	}
	return true
}

// AppliesTo reports whether the given cart item falls inside the rule's
// product/category/brand scope. Absent lists admit everything.
func (r *Rule) AppliesTo(item cart.Item) bool {
	if len(r.ProductIDs) > 0 && !containsAny(r.ProductIDs, item.ProductID, item.Barcode) {
		return false
	}
	if len(r.Categories) > 0 && !containsAny(r.Categories, item.Category) {
		return false
	}
	if len(r.Brands) > 0 && !containsAny(r.Brands, item.Brand) {
		return false
	}
	return true
}

// MatchingItems returns the cart items inside the rule's scope.
func (r *Rule) MatchingItems(items []cart.Item) []cart.Item {
	matched := make([]cart.Item, 0, len(items))
	for _, item := range items {
		if r.AppliesTo(item) {
			matched = append(matched, item)
		}
	}
	return matched
}

// SubscriptionBacked reports whether the rule represents a subscription,
// telecom, or membership benefit that must be backed by a subscription entry
// in the user's preset.
func (r *Rule) SubscriptionBacked() bool {
	return r.Category == CategoryTelecom || r.Category == CategoryPaymentCompound
}

func containsAny(list []string, values ...string) bool {
	for _, entry := range list {
		for _, v := range values {
			if v != "" && entry == v {
				return true
			}
		}
	}
	return false
}

// Repository defines read operations for the discount rule catalog.
type Repository interface {
	ListActive(ctx context.Context) ([]Rule, error)
	GetByID(ctx context.Context, id string) (*Rule, error)
}
