package pricing

import (
	"sort"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/cart"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
)

// Sentinel errors for optimizer input validation. Everything past input
// validation is handled locally: bad combinations are skipped, and an empty
// outcome is a valid terminal state, not an error.
var (
	ErrInvalidQuantity = errors.New("cart item quantity must be greater than 0")
	ErrNegativePrice   = errors.New("cart item price must not be negative")
)

// Options configures one optimizer invocation. The zero value searches with
// the default caps but returns no alternatives; callers wanting the documented
// defaults start from DefaultOptions.
type Options struct {
	// MaxCombinations caps the candidate subsets searched. Zero or negative
	// means the default cap.
	MaxCombinations int
	// IncludeAlternatives controls whether ranked runner-ups are returned.
	// False is a meaningful setting, so no default is restored for it.
	IncludeAlternatives bool
	// MaxAlternatives caps how many runner-ups are returned. Zero or negative
	// means the default cap.
	MaxAlternatives int
}

// DefaultOptions returns the documented defaults: a 100-combination search
// cap and up to 5 alternatives.
func DefaultOptions() Options {
	return Options{
		MaxCombinations:     discount.DefaultCap,
		IncludeAlternatives: true,
		MaxAlternatives:     5,
	}
}

// normalized restores the default caps for unset numeric fields.
// IncludeAlternatives is taken as given.
func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.MaxCombinations <= 0 {
		o.MaxCombinations = def.MaxCombinations
	}
	if o.MaxAlternatives <= 0 {
		o.MaxAlternatives = def.MaxAlternatives
	}
	return o
}

// Combination is one scored pricing scenario: an ordered conflict-free rule
// set with its computed totals and per-rule breakdown. Never mutated after
// return.
type Combination struct {
	RuleIDs       []string
	OriginalPrice decimal.Decimal
	FinalPrice    decimal.Decimal
	TotalDiscount decimal.Decimal
	DiscountRate  decimal.Decimal
	Optimal       bool
	Warnings      []string
	Steps         []Step
}

// Outcome holds the best combination and its ranked alternatives. Optimal is
// nil when no eligible rule produced a scoreable combination.
type Outcome struct {
	Optimal      *Combination
	Alternatives []Combination
}

// Optimizer searches for the rule combination that minimizes the final price.
// It is stateless apart from its logger; every invocation is deterministic
// and side-effect-free over its inputs.
type Optimizer struct {
	lg *zap.Logger
}

// NewOptimizer returns an Optimizer that logs skipped combinations to lg.
func NewOptimizer(lg *zap.Logger) *Optimizer {
	return &Optimizer{lg: lg}
}

// FindOptimal filters the rules for eligibility, enumerates conflict-free
// combinations up to the configured cap, scores each with the sequential
// calculator, and ranks the results by total discount. Combinations whose
// calculation fails are logged and skipped. Returns an error only for
// malformed cart input.
func (o *Optimizer) FindOptimal(
	items []cart.Item,
	rules []discount.Rule,
	p *preset.Preset,
	now time.Time,
	opts Options,
) (Outcome, error) {
	if err := validateCart(items); err != nil {
		return Outcome{}, err
	}
	opts = opts.normalized()

	ctx := ContextFor(items, now)
	eligible := FilterEligible(rules, p, ctx)
	if len(eligible) == 0 {
		return Outcome{}, nil
	}

	candidates := discount.Combinations(eligible, opts.MaxCombinations)

	results := make([]Combination, 0, len(candidates))
	for _, candidate := range candidates {
		if !discount.ValidCombination(candidate) {
			continue
		}

		res, err := Calculate(items, candidate, p, now)
		if err != nil {
			o.lg.Warn("skipping combination",
				zap.Strings("rule_ids", ruleIDs(candidate)),
				zap.Error(err),
			)
			continue
		}

		results = append(results, Combination{
			RuleIDs:       ruleIDs(candidate),
			OriginalPrice: res.OriginalPrice,
			FinalPrice:    res.FinalPrice,
			TotalDiscount: res.TotalDiscount,
			DiscountRate:  res.DiscountRate,
			Warnings:      res.Warnings,
			Steps:         res.Steps,
		})
	}
	if len(results) == 0 {
		return Outcome{}, nil
	}

	// Rank: total discount descending, larger sets first on ties, and the
	// stable sort preserves generation order thereafter.
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].TotalDiscount.Equal(results[j].TotalDiscount) {
			return results[i].TotalDiscount.GreaterThan(results[j].TotalDiscount)
		}
		return len(results[i].RuleIDs) > len(results[j].RuleIDs)
	})

	best := results[0]
	best.Optimal = true

	out := Outcome{Optimal: &best}
	if opts.IncludeAlternatives {
		rest := results[1:]
		if len(rest) > opts.MaxAlternatives {
			rest = rest[:opts.MaxAlternatives]
		}
		out.Alternatives = rest
	}
	return out, nil
}

func validateCart(items []cart.Item) error {
	for _, item := range items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.UnitPrice.IsNegative() {
			return ErrNegativePrice
		}
	}
	return nil
}

// ruleIDs lists the combination's rule IDs in application order.
func ruleIDs(rules []discount.Rule) []string {
	ordered := orderRules(rules)
	ids := make([]string, len(ordered))
	for i := range ordered {
		ids[i] = ordered[i].ID
	}
	return ids
}
