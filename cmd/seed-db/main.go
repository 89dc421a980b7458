// Command seed-db applies migrations and loads the catalog, discount rules,
// demo preset, and a default API key into a fresh database.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/Wd-70/cu-calculator-sub001/internal/domain/auth"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/discount"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/preset"
	"github.com/Wd-70/cu-calculator-sub001/internal/domain/product"
	"github.com/Wd-70/cu-calculator-sub001/internal/handler"
	"github.com/Wd-70/cu-calculator-sub001/internal/repository"
)

type productJSON struct {
	ID       string          `json:"id"`
	Barcode  string          `json:"barcode"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Brand    string          `json:"brand"`
}

type ruleJSON struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	Category           string          `json:"category"`
	ValueType          string          `json:"value_type"`
	Params             json.RawMessage `json:"params"`
	Method             string          `json:"method"`
	ProductIDs         []string        `json:"product_ids"`
	Categories         []string        `json:"categories"`
	Brands             []string        `json:"brands"`
	PaymentMethods     []string        `json:"payment_methods"`
	RequiresQR         bool            `json:"requires_qr"`
	MinPurchaseAmount  decimal.Decimal `json:"min_purchase_amount"`
	MinQuantity        int             `json:"min_quantity"`
	MaxDiscount        decimal.Decimal `json:"max_discount"`
	ExcludeCategories  []string        `json:"exclude_categories"`
	ExcludeRuleIDs     []string        `json:"exclude_rule_ids"`
	RequiresRuleID     string          `json:"requires_rule_id"`
	OriginalPriceBased bool            `json:"original_price_based"`
	ValidFrom          *time.Time      `json:"valid_from"`
	ValidTo            *time.Time      `json:"valid_to"`
	Active             bool            `json:"active"`
	Priority           int             `json:"priority"`
}

func main() {
	var (
		databaseURL  string
		productsFile string
		rulesFile    string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&rulesFile, "rules-file", "db/seed/rules.json", "path to discount rules JSON file")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or CUCALC_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CUCALC_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("CUCALC_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or CUCALC_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CUCALC_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, rulesFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, rulesFile, apiKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, repository.NewProductRepository(pool), productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedRules(ctx, repository.NewRuleRepository(pool), rulesFile); err != nil {
		return errors.Wrap(err, "seed rules")
	}

	if err := seedDemoPreset(ctx, repository.NewPresetRepository(pool)); err != nil {
		return errors.Wrap(err, "seed demo preset")
	}

	if err := seedAPIKey(ctx, repository.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

func seedProducts(ctx context.Context, repo *repository.ProductRepository, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if err := repo.Upsert(ctx, &product.Product{
			ID:       p.ID,
			Barcode:  p.Barcode,
			Name:     p.Name,
			Price:    p.Price,
			Category: p.Category,
			Brand:    p.Brand,
		}); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.Barcode)
		}

		slog.Info("upserted product", slog.String("barcode", p.Barcode), slog.String("name", p.Name))
	}

	return nil
}

func seedRules(ctx context.Context, repo *repository.RuleRepository, rulesFile string) error {
	slog.Info("reading rules file", slog.String("path", rulesFile))

	data, err := os.ReadFile(rulesFile)
	if err != nil {
		return errors.Wrap(err, "read rules file")
	}

	var rules []ruleJSON
	if err := json.Unmarshal(data, &rules); err != nil {
		return errors.Wrap(err, "parse rules JSON")
	}

	slog.Info("upserting rules", slog.Int("count", len(rules)))

	for _, r := range rules {
		formula, err := discount.UnmarshalParams(discount.ValueType(r.ValueType), r.Params)
		if err != nil {
			return errors.Wrapf(err, "decode params for rule %s", r.ID)
		}

		excludeCategories := make([]discount.Category, len(r.ExcludeCategories))
		for i, c := range r.ExcludeCategories {
			excludeCategories[i] = discount.Category(c)
		}

		rule := discount.Rule{
			ID:                 r.ID,
			Name:               r.Name,
			Category:           discount.Category(r.Category),
			Formula:            formula,
			Method:             discount.Method(r.Method),
			ProductIDs:         r.ProductIDs,
			Categories:         r.Categories,
			Brands:             r.Brands,
			PaymentMethods:     r.PaymentMethods,
			RequiresQR:         r.RequiresQR,
			MinPurchaseAmount:  r.MinPurchaseAmount,
			MinQuantity:        r.MinQuantity,
			MaxDiscount:        r.MaxDiscount,
			ExcludeCategories:  excludeCategories,
			ExcludeRuleIDs:     r.ExcludeRuleIDs,
			RequiresRuleID:     r.RequiresRuleID,
			OriginalPriceBased: r.OriginalPriceBased,
			ValidFrom:          r.ValidFrom,
			ValidTo:            r.ValidTo,
			Active:             r.Active,
			Priority:           r.Priority,
		}
		if err := repo.Upsert(ctx, &rule); err != nil {
			return errors.Wrapf(err, "upsert rule %s", r.ID)
		}

		slog.Info("upserted rule", slog.String("id", r.ID), slog.String("name", r.Name))
	}

	return nil
}

func seedDemoPreset(ctx context.Context, repo *repository.PresetRepository) error {
	slog.Info("seeding demo preset")

	daily := 1
	p := preset.Preset{
		ID:             "demo",
		Name:           "데모 프리셋",
		PaymentMethods: []string{"card", "mobile"},
		QRPayment:      true,
		Subscriptions: []preset.Subscription{
			{RuleID: "telecom-skt", Active: true, DailyRemain: &daily},
		},
	}

	if err := repo.Create(ctx, &p); err != nil {
		// An existing demo preset keeps its state across reseeds.
		slog.Warn("demo preset not created", slog.String("error", err.Error()))
		return nil
	}

	slog.Info("created demo preset", slog.String("id", p.ID))
	return nil
}

func seedAPIKey(ctx context.Context, repo *repository.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	info := auth.APIKeyInfo{
		ID:      "default",
		KeyHash: handler.HashKey([]byte(pepper), apiKey),
		Name:    "Default admin key",
		Scopes:  []string{"presets:write"},
	}
	if err := repo.InsertAPIKey(ctx, &info); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", info.ID), slog.String("name", info.Name))

	return nil
}
