package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
)

const (
	ruleColumns = `id, name, category, value_type, params, method,
		product_ids, categories, brands, payment_methods, requires_qr,
		min_purchase_amount, min_quantity, max_discount,
		exclude_categories, exclude_rule_ids, requires_rule_id,
		original_price_based, valid_from, valid_to, active, priority`

	listActiveRulesSQL = `SELECT ` + ruleColumns + `
		FROM discount_rules WHERE active = TRUE ORDER BY id`

	getRuleByIDSQL = `SELECT ` + ruleColumns + `
		FROM discount_rules WHERE id = $1`

	upsertRuleSQL = `INSERT INTO discount_rules (
			id, name, category, value_type, params, method,
			product_ids, categories, brands, payment_methods, requires_qr,
			min_purchase_amount, min_quantity, max_discount,
			exclude_categories, exclude_rule_ids, requires_rule_id,
			original_price_based, valid_from, valid_to, active, priority, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, NOW())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			category = EXCLUDED.category,
			value_type = EXCLUDED.value_type,
			params = EXCLUDED.params,
			method = EXCLUDED.method,
			product_ids = EXCLUDED.product_ids,
			categories = EXCLUDED.categories,
			brands = EXCLUDED.brands,
			payment_methods = EXCLUDED.payment_methods,
			requires_qr = EXCLUDED.requires_qr,
			min_purchase_amount = EXCLUDED.min_purchase_amount,
			min_quantity = EXCLUDED.min_quantity,
			max_discount = EXCLUDED.max_discount,
			exclude_categories = EXCLUDED.exclude_categories,
			exclude_rule_ids = EXCLUDED.exclude_rule_ids,
			requires_rule_id = EXCLUDED.requires_rule_id,
			original_price_based = EXCLUDED.original_price_based,
			valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to,
			active = EXCLUDED.active,
			priority = EXCLUDED.priority,
			updated_at = NOW()`
)

var _ discount.Repository = (*RuleRepository)(nil)

// RuleRepository implements discount.Repository backed by PostgreSQL.
type RuleRepository struct {
	pool *pgxpool.Pool
}

// NewRuleRepository returns a RuleRepository that uses the given pool.
func NewRuleRepository(pool *pgxpool.Pool) *RuleRepository {
	return &RuleRepository{pool: pool}
}

// ListActive returns every active discount rule ordered by ID.
func (r *RuleRepository) ListActive(ctx context.Context) ([]discount.Rule, error) {
	rows, err := r.pool.Query(ctx, listActiveRulesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing discount rules: %w", err)
	}
	return pgx.CollectRows(rows, scanRule)
}

// GetByID returns a single discount rule by its identifier.
// Returns discount.ErrNotFound when no matching rule exists.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*discount.Rule, error) {
	rows, err := r.pool.Query(ctx, getRuleByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting rule %q: %w", id, err)
	}

	rule, err := pgx.CollectExactlyOneRow(rows, scanRule)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, discount.ErrNotFound
		}
		return nil, fmt.Errorf("getting rule %q: %w", id, err)
	}
	return &rule, nil
}

// Upsert inserts or replaces a discount rule. Used by the seed and ingest
// tools, not by the API service.
func (r *RuleRepository) Upsert(ctx context.Context, rule *discount.Rule) error {
	params, err := discount.MarshalParams(rule.Formula)
	if err != nil {
		return fmt.Errorf("marshaling params for rule %q: %w", rule.ID, err)
	}

	excludeCategories := make([]string, len(rule.ExcludeCategories))
	for i, c := range rule.ExcludeCategories {
		excludeCategories[i] = string(c)
	}

	_, err = r.pool.Exec(ctx, upsertRuleSQL,
		rule.ID, rule.Name, string(rule.Category), string(rule.Formula.ValueType()), params,
		string(rule.Method), rule.ProductIDs, rule.Categories, rule.Brands,
		rule.PaymentMethods, rule.RequiresQR, rule.MinPurchaseAmount, rule.MinQuantity,
		rule.MaxDiscount, excludeCategories, rule.ExcludeRuleIDs, rule.RequiresRuleID,
		rule.OriginalPriceBased, rule.ValidFrom, rule.ValidTo, rule.Active, rule.Priority,
	)
	if err != nil {
		return fmt.Errorf("upserting rule %q: %w", rule.ID, err)
	}
	return nil
}

func scanRule(row pgx.CollectableRow) (discount.Rule, error) {
	var (
		rule              discount.Rule
		category          string
		valueType         string
		params            []byte
		method            string
		excludeCategories []string
		minPurchase       decimal.Decimal
		maxDiscount       decimal.Decimal
		validFrom         *time.Time
		validTo           *time.Time
	)
	err := row.Scan(
		&rule.ID, &rule.Name, &category, &valueType, &params, &method,
		&rule.ProductIDs, &rule.Categories, &rule.Brands, &rule.PaymentMethods,
		&rule.RequiresQR, &minPurchase, &rule.MinQuantity, &maxDiscount,
		&excludeCategories, &rule.ExcludeRuleIDs, &rule.RequiresRuleID,
		&rule.OriginalPriceBased, &validFrom, &validTo, &rule.Active, &rule.Priority,
	)
	if err != nil {
		return rule, err
	}

	formula, err := discount.UnmarshalParams(discount.ValueType(valueType), params)
	if err != nil {
		return rule, fmt.Errorf("decoding params for rule %q: %w", rule.ID, err)
	}

	rule.Category = discount.Category(category)
	rule.Formula = formula
	rule.Method = discount.Method(method)
	rule.MinPurchaseAmount = minPurchase
	rule.MaxDiscount = maxDiscount
	rule.ValidFrom = validFrom
	rule.ValidTo = validTo
	rule.ExcludeCategories = make([]discount.Category, len(excludeCategories))
	for i, c := range excludeCategories {
		rule.ExcludeCategories[i] = discount.Category(c)
	}
	return rule, nil
}
